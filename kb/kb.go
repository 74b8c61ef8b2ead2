// Package kb holds the catalog of named auxetic cell designs the sensor
// tooling reports on and measures.
package kb

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/auxetic-sensor/model"
)

var (
	// ErrDuplicateDesign is returned when adding a name already in the catalog.
	ErrDuplicateDesign = errors.New("design already exists")
	// ErrDesignNotFound is returned when a named design is absent.
	ErrDesignNotFound = errors.New("design not found")
	// ErrUnnamedDesign is returned when adding a design with an empty name.
	ErrUnnamedDesign = errors.New("design name is empty")
)

// EventType indicates what kind of change happened in the catalog.
type EventType int

const (
	EventDesignAdded EventType = iota
	EventDesignUpdated
	EventDesignRemoved
)

func (t EventType) String() string {
	switch t {
	case EventDesignAdded:
		return "added"
	case EventDesignUpdated:
		return "updated"
	case EventDesignRemoved:
		return "removed"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is emitted to subscribers after a catalog change. Design holds the
// design as it is after the change (as it was, for removals).
type Event struct {
	Type   EventType
	Design model.Design
}

// Catalog is an in-memory, thread-safe store of designs keyed by name.
type Catalog struct {
	mu      sync.RWMutex
	designs map[string]model.Design

	nextSub int
	subs    map[int]func(Event)
}

// NewCatalog constructs a catalog seeded with designs. Seeding stops at the
// first duplicate or unnamed design.
func NewCatalog(designs ...model.Design) (*Catalog, error) {
	c := &Catalog{
		designs: make(map[string]model.Design),
		subs:    make(map[int]func(Event)),
	}
	for _, d := range designs {
		if err := c.AddDesign(d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// DefaultDesigns returns the three reference designs, from least to most
// re-entrant: a=1, b=0.1 at 30°, 45° and 60°.
func DefaultDesigns() []model.Design {
	return []model.Design{
		{Name: "Conservative", Params: model.CellParams{A: 1, B: 0.1, AlphaDeg: 30}},
		{Name: "Balanced", Params: model.CellParams{A: 1, B: 0.1, AlphaDeg: 45}},
		{Name: "Aggressive", Params: model.CellParams{A: 1, B: 0.1, AlphaDeg: 60}},
	}
}

// AddDesign adds a new design. It returns an error if the name already exists.
func (c *Catalog) AddDesign(d model.Design) error {
	if d.Name == "" {
		return ErrUnnamedDesign
	}
	c.mu.Lock()
	if _, exists := c.designs[d.Name]; exists {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrDuplicateDesign, d.Name)
	}
	c.designs[d.Name] = d
	subs := c.snapshotSubs()
	c.mu.Unlock()

	notify(subs, Event{Type: EventDesignAdded, Design: d})
	return nil
}

// GetDesign returns the named design.
func (c *Catalog) GetDesign(name string) (model.Design, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.designs[name]
	return d, ok
}

// ListDesigns returns a snapshot of all designs sorted by name.
func (c *Catalog) ListDesigns() []model.Design {
	c.mu.RLock()
	res := make([]model.Design, 0, len(c.designs))
	for _, d := range c.designs {
		res = append(res, d)
	}
	c.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// Len returns the number of designs.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.designs)
}

// UpdateDesign replaces a design's cell parameters and notifies subscribers.
func (c *Catalog) UpdateDesign(name string, params model.CellParams) error {
	c.mu.Lock()
	d, ok := c.designs[name]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrDesignNotFound, name)
	}
	d.Params = params
	c.designs[name] = d
	subs := c.snapshotSubs()
	c.mu.Unlock()

	// Notify outside the lock so subscribers may call back into the catalog.
	notify(subs, Event{Type: EventDesignUpdated, Design: d})
	return nil
}

// RemoveDesign deletes the named design and notifies subscribers.
func (c *Catalog) RemoveDesign(name string) error {
	c.mu.Lock()
	d, ok := c.designs[name]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrDesignNotFound, name)
	}
	delete(c.designs, name)
	subs := c.snapshotSubs()
	c.mu.Unlock()

	notify(subs, Event{Type: EventDesignRemoved, Design: d})
	return nil
}

// Subscribe registers a callback for catalog events. It returns an
// unsubscribe function that is safe to call more than once.
func (c *Catalog) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// snapshotSubs copies the subscribers in registration order. Callers hold mu.
func (c *Catalog) snapshotSubs() []func(Event) {
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Event), len(ids))
	for i, id := range ids {
		out[i] = c.subs[id]
	}
	return out
}

func notify(subs []func(Event), ev Event) {
	for _, sub := range subs {
		sub(ev)
	}
}
