// Package gamedata loads the static island reference data: the product list,
// workshop tiers and the groove/workshop unlock tables.
package gamedata

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"
)

//go:embed island.json
var embeddedData []byte

// ErrUnknownProduct is returned when a product id is not in the data set.
var ErrUnknownProduct = errors.New("unknown product")

// Product is one craftable item.
type Product struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Value       int            `json:"value"` // base value
	Time        int            `json:"time"`  // hours
	Categories  []string       `json:"categories"`
	Ingredients map[string]int `json:"ingredients,omitempty"`
}

// Tier is a workshop upgrade level.
type Tier struct {
	ID       string
	Name     string
	Rank     int // 0-based
	Modifier float64
}

// Data is the parsed reference data. It is read-only after Parse returns.
type Data struct {
	Products          []Product // in-game order
	Tiers             []Tier
	WorkshopRanks     []int // island rank unlocking each workshop
	LandmarkRanks     []int
	LandmarkMaxGroove []int // indexed by landmark count
	MaxRank           int

	byID       map[string]int
	byCategory map[string][]int
}

// Load reads and parses the data file at path.
func Load(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gamedata: read %s: %w", path, err)
	}
	d, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("gamedata: %s: %w", path, err)
	}
	return d, nil
}

var defaultData = sync.OnceValues(func() (*Data, error) {
	return Parse(embeddedData)
})

// Default returns the data set compiled into the binary.
func Default() (*Data, error) {
	return defaultData()
}

// LoadOrDefault loads path, or the embedded data when path is empty.
func LoadOrDefault(path string) (*Data, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}

func (d *Data) index() {
	d.byID = make(map[string]int, len(d.Products))
	d.byCategory = make(map[string][]int)
	for i := range d.Products {
		p := &d.Products[i]
		d.byID[p.ID] = i
		for _, cat := range p.Categories {
			d.byCategory[cat] = append(d.byCategory[cat], i)
		}
	}
}

// Product returns the product with the given id.
func (d *Data) Product(id string) (*Product, bool) {
	i, ok := d.byID[id]
	if !ok {
		return nil, false
	}
	return &d.Products[i], true
}

// ProductsInCategory returns the products of one category in in-game order.
func (d *Data) ProductsInCategory(category string) []*Product {
	idxs := d.byCategory[category]
	out := make([]*Product, len(idxs))
	for i, idx := range idxs {
		out[i] = &d.Products[idx]
	}
	return out
}

// ProductsInCategories returns every product in any of the categories,
// without duplicates, in first-seen order.
func (d *Data) ProductsInCategories(categories []string) []*Product {
	seen := make(map[int]bool)
	var out []*Product
	for _, cat := range categories {
		for _, idx := range d.byCategory[cat] {
			if seen[idx] {
				continue
			}
			seen[idx] = true
			out = append(out, &d.Products[idx])
		}
	}
	return out
}

// ChainsWith returns the products that can follow id in a chain.
func (d *Data) ChainsWith(id string) ([]*Product, error) {
	p, ok := d.Product(id)
	if !ok {
		return nil, fmt.Errorf("gamedata: %q: %w", id, ErrUnknownProduct)
	}
	all := d.ProductsInCategories(p.Categories)
	out := all[:0]
	for _, other := range all {
		if other.ID != id {
			out = append(out, other)
		}
	}
	return out, nil
}

// Tier returns the workshop tier with the given id, e.g. "workshop-2".
func (d *Data) Tier(id string) (Tier, bool) {
	for _, t := range d.Tiers {
		if t.ID == id {
			return t, true
		}
	}
	return Tier{}, false
}

// MaxGroove returns the groove ceiling for the given number of landmarks,
// clamped to the table.
func (d *Data) MaxGroove(landmarks int) int {
	if len(d.LandmarkMaxGroove) == 0 {
		return 0
	}
	landmarks = max(0, min(landmarks, len(d.LandmarkMaxGroove)-1))
	return d.LandmarkMaxGroove[landmarks]
}

// MaxWorkshops returns the number of workshops unlocked at an island rank.
func (d *Data) MaxWorkshops(rank int) int {
	for i, r := range d.WorkshopRanks {
		if rank < r {
			return i
		}
	}
	return len(d.WorkshopRanks)
}
