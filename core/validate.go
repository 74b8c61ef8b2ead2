package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/signalsfoundry/auxetic-sensor/model"
)

var (
	// ErrEdgeOutOfRange reports an edge that references a missing node.
	ErrEdgeOutOfRange = errors.New("edge references a node out of range")
	// ErrOpenLoop reports edges that do not form one closed loop over every node.
	ErrOpenLoop = errors.New("edges do not form a single closed loop")
	// ErrSelfIntersecting reports an outline whose non-adjacent edges touch or cross.
	ErrSelfIntersecting = errors.New("cell outline is self-intersecting")
)

const orientEpsilon = 1e-12

// ValidateTopology checks that t describes a simple polygon: every edge index
// is in range, the edges walk a single closed loop that visits every node
// exactly once, and no two non-adjacent edges intersect.
//
// GenerateReentrantCell never calls this; it is for callers that want to
// reject extreme parameter combinations before handing geometry to CAD.
func ValidateTopology(t model.CellTopology) error {
	n := len(t.Nodes)
	for i, e := range t.Edges {
		if e.From < 0 || e.From >= n || e.To < 0 || e.To >= n {
			return fmt.Errorf("edge %d (%d→%d) with %d nodes: %w", i, e.From, e.To, n, ErrEdgeOutOfRange)
		}
	}
	if err := checkClosedLoop(t); err != nil {
		return err
	}

	m := len(t.Edges)
	for i := range m {
		for j := i + 1; j < m; j++ {
			if sharesNode(t.Edges[i], t.Edges[j]) {
				continue
			}
			a1, a2 := t.Nodes[t.Edges[i].From], t.Nodes[t.Edges[i].To]
			b1, b2 := t.Nodes[t.Edges[j].From], t.Nodes[t.Edges[j].To]
			if segmentsIntersect(a1, a2, b1, b2) {
				return fmt.Errorf("edges %d and %d: %w", i, j, ErrSelfIntersecting)
			}
		}
	}
	return nil
}

func checkClosedLoop(t model.CellTopology) error {
	n := len(t.Nodes)
	if n < 3 || len(t.Edges) != n {
		return fmt.Errorf("%d nodes, %d edges: %w", n, len(t.Edges), ErrOpenLoop)
	}
	next := make(map[int]int, n)
	for _, e := range t.Edges {
		if _, dup := next[e.From]; dup {
			return fmt.Errorf("node %d leaves twice: %w", e.From, ErrOpenLoop)
		}
		next[e.From] = e.To
	}

	seen := make(map[int]bool, n)
	cur := t.Edges[0].From
	for range n {
		if seen[cur] {
			return fmt.Errorf("node %d revisited: %w", cur, ErrOpenLoop)
		}
		seen[cur] = true
		nxt, ok := next[cur]
		if !ok {
			return fmt.Errorf("node %d has no outgoing edge: %w", cur, ErrOpenLoop)
		}
		cur = nxt
	}
	if cur != t.Edges[0].From || len(seen) != n {
		return fmt.Errorf("walk does not return to start: %w", ErrOpenLoop)
	}
	return nil
}

func sharesNode(a, b model.Edge) bool {
	return a.From == b.From || a.From == b.To || a.To == b.From || a.To == b.To
}

// segmentsIntersect reports whether closed segments p1p2 and q1q2 share any
// point, collinear overlap and endpoint contact included.
func segmentsIntersect(p1, p2, q1, q2 model.Point) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)

	if d1*d2 < 0 && d3*d4 < 0 {
		return true
	}
	switch {
	case d1 == 0 && onSegment(q1, q2, p1):
		return true
	case d2 == 0 && onSegment(q1, q2, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, q1):
		return true
	case d4 == 0 && onSegment(p1, p2, q2):
		return true
	}
	return false
}

// orientation returns the sign of the turn a→b→c: 1 counter-clockwise,
// -1 clockwise, 0 collinear.
func orientation(a, b, c model.Point) float64 {
	v := Cross(Sub(b, a), Sub(c, a))
	if math.Abs(v) <= orientEpsilon {
		return 0
	}
	if v > 0 {
		return 1
	}
	return -1
}

func onSegment(a, b, p model.Point) bool {
	return p.X >= math.Min(a.X, b.X)-orientEpsilon && p.X <= math.Max(a.X, b.X)+orientEpsilon &&
		p.Y >= math.Min(a.Y, b.Y)-orientEpsilon && p.Y <= math.Max(a.Y, b.Y)+orientEpsilon
}
