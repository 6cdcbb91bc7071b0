// Package catalog turns a flat snapshot of craftable items into a graph in
// which every item links directly to the items it can chain into.
package catalog

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownItem is returned when a category lists an item that is not part
// of the snapshot.
var ErrUnknownItem = errors.New("unknown item referenced")

// ErrInvalidEntry is returned for entries the search cannot work with.
var ErrInvalidEntry = errors.New("invalid catalog entry")

// Entry is the per-item record pushed by the caller.
type Entry struct {
	Categories []string   `json:"categories"`
	Value      int        `json:"value"`
	Time       int        `json:"time"`
	Popularity Popularity `json:"popularity"`
	Supply     Supply     `json:"supply"`
}

// Item is a node of the catalog graph. Items are shared by reference between
// adjacency lists and never change after Build returns.
type Item struct {
	ID         string
	Value      int
	Time       int
	Popularity float64 // modifier, not index
	Supply     float64 // modifier, not index

	// Children are the items sharing at least one category with this one.
	Children []*Item
}

// Catalog is the immutable item graph for one snapshot.
type Catalog struct {
	items []*Item // sorted by ID
	byID  map[string]*Item
}

// Build constructs the catalog graph for snapshot. The result does not
// reference snapshot after returning.
func Build(snapshot map[string]Entry) (*Catalog, error) {
	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	// Step 1: bin into categories.
	members := make(map[string][]string)
	for _, id := range ids {
		for _, cat := range snapshot[id].Categories {
			members[cat] = append(members[cat], id)
		}
	}

	// Step 2: one node per item.
	c := &Catalog{
		items: make([]*Item, 0, len(ids)),
		byID:  make(map[string]*Item, len(ids)),
	}
	for _, id := range ids {
		e := snapshot[id]
		if err := validate(id, e); err != nil {
			return nil, err
		}
		it := &Item{
			ID:         id,
			Value:      e.Value,
			Time:       e.Time,
			Popularity: e.Popularity.Modifier(),
			Supply:     e.Supply.Modifier(),
		}
		c.items = append(c.items, it)
		c.byID[id] = it
	}

	// Step 3: link chain partners.
	for _, it := range c.items {
		children, err := c.link(it.ID, snapshot[it.ID].Categories, members)
		if err != nil {
			return nil, err
		}
		it.Children = children
	}
	return c, nil
}

func validate(id string, e Entry) error {
	switch {
	case !e.Popularity.Valid():
		return fmt.Errorf("catalog: item %q: popularity index %d: %w", id, int(e.Popularity), ErrInvalidEntry)
	case !e.Supply.Valid():
		return fmt.Errorf("catalog: item %q: supply index %d: %w", id, int(e.Supply), ErrInvalidEntry)
	case e.Time <= 0:
		return fmt.Errorf("catalog: item %q: time %d: %w", id, e.Time, ErrInvalidEntry)
	case e.Value < 0:
		return fmt.Errorf("catalog: item %q: value %d: %w", id, e.Value, ErrInvalidEntry)
	}
	return nil
}

// link resolves the union of the members of categories, minus self, to item
// nodes. Order is first appearance across categories.
func (c *Catalog) link(self string, categories []string, members map[string][]string) ([]*Item, error) {
	seen := map[string]bool{self: true}
	var children []*Item
	for _, cat := range categories {
		for _, id := range members[cat] {
			if seen[id] {
				continue
			}
			seen[id] = true
			child, ok := c.byID[id]
			if !ok {
				return nil, fmt.Errorf("catalog: category %q of %q lists %q: %w", cat, self, id, ErrUnknownItem)
			}
			children = append(children, child)
		}
	}
	return children, nil
}

// Items returns the catalog nodes sorted by id.
func (c *Catalog) Items() []*Item {
	if c == nil {
		return nil
	}
	return c.items
}

// Item returns the node for id, or nil.
func (c *Catalog) Item(id string) *Item {
	if c == nil {
		return nil
	}
	return c.byID[id]
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Clone deep-copies a snapshot so it can cross a goroutine boundary without
// sharing category slices with the sender.
func Clone(snapshot map[string]Entry) map[string]Entry {
	out := make(map[string]Entry, len(snapshot))
	for id, e := range snapshot {
		e.Categories = slices.Clone(e.Categories)
		out[id] = e
	}
	return out
}
