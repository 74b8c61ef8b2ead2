package core

import (
	"math"

	"github.com/signalsfoundry/auxetic-sensor/model"
)

// CellNodeCount and CellEdgeCount are fixed by the re-entrant outline and
// relied on by the CAD extrusion tooling.
const (
	CellNodeCount = 8
	CellEdgeCount = 8
)

// GenerateReentrantCell returns the 2-D outline of one re-entrant auxetic unit
// cell with side length a, wall thickness b and re-entrance angle alphaDeg
// (degrees).
//
// The eight nodes trace the outline counter-clockwise from the origin and the
// eight edges join them in order, closing back on node 0. Inputs are not
// validated; extreme combinations can self-intersect (see ValidateTopology).
// Every call allocates fresh slices.
func GenerateReentrantCell(a, b, alphaDeg float64) model.CellTopology {
	sin, cos := math.Sincos(degToRad(alphaDeg))
	l := a * cos // horizontal projection of the angled strut
	h := a * sin // vertical projection of the angled strut

	nodes := []model.Point{
		{X: 0, Y: 0},
		{X: l, Y: 0},
		{X: l, Y: h},
		{X: l + b, Y: h},
		{X: l + b, Y: h + b},
		{X: l, Y: h + b},
		{X: l, Y: 2*h + b},
		{X: 0, Y: 2*h + b},
	}

	edges := make([]model.Edge, CellEdgeCount)
	for i := range edges {
		edges[i] = model.Edge{From: i, To: (i + 1) % CellNodeCount}
	}

	return model.CellTopology{Nodes: nodes, Edges: edges}
}

// GenerateFromParams is GenerateReentrantCell for a CellParams value.
func GenerateFromParams(p model.CellParams) model.CellTopology {
	return GenerateReentrantCell(p.A, p.B, p.AlphaDeg)
}

// Outline returns the nodes of t in edge-walk order starting at the first
// edge. For a topology produced by GenerateReentrantCell this is the node
// slice itself; a copy is returned either way.
func Outline(t model.CellTopology) []model.Point {
	out := make([]model.Point, 0, len(t.Edges))
	for _, e := range t.Edges {
		if e.From < 0 || e.From >= len(t.Nodes) {
			continue
		}
		out = append(out, t.Nodes[e.From])
	}
	return out
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}
