package model

// Point is a 2-D coordinate in the same length unit as the cell parameters.
type Point struct {
	X float64
	Y float64
}

// Edge joins two nodes of a CellTopology by index.
type Edge struct {
	From int
	To   int
}

// CellParams are the three scalars a re-entrant cell is generated from.
type CellParams struct {
	A        float64 `yaml:"a" validate:"gt=0"`          // undeformed side length
	B        float64 `yaml:"b" validate:"gte=0"`         // wall thickness
	AlphaDeg float64 `yaml:"alpha_deg" validate:"gte=0"` // re-entrance angle, degrees
}

// CellTopology is the node/edge outline of one 2-D unit cell. It is the only
// contract the CAD extrusion tooling depends on: node count, edge count, the
// closed-loop edge order and the coordinate unit must not change.
type CellTopology struct {
	Nodes []Point
	Edges []Edge
}

// Design names a set of cell parameters so it can be catalogued and compared.
type Design struct {
	Name   string     `yaml:"name" validate:"required"`
	Params CellParams `yaml:"params"`
}
