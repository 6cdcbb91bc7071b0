package catalog

import (
	"errors"
	"fmt"
)

// ErrUnknownLevel is returned when a popularity or supply id is not recognised.
var ErrUnknownLevel = errors.New("unknown level")

// Popularity is the market popularity index of a product (0-3).
type Popularity int

const (
	PopularityLow Popularity = iota
	PopularityAverage
	PopularityHigh
	PopularityVeryHigh
)

// Supply is the market supply index of a product (0-4).
type Supply int

const (
	SupplyNonexistent Supply = iota
	SupplyInsufficient
	SupplySufficient
	SupplySurplus
	SupplyOverflowing
)

// Level describes one step of a popularity or supply table.
type Level struct {
	ID       string
	Name     string
	Modifier float64
}

var popularityLevels = [...]Level{
	{"low", "Low", 0.8},
	{"average", "Average", 1},
	{"high", "High", 1.2},
	{"veryHigh", "Very High", 1.4},
}

var supplyLevels = [...]Level{
	{"nonexistent", "Nonexistent", 1.6},
	{"insufficient", "Insufficient", 1.3},
	{"sufficient", "Sufficient", 1},
	{"surplus", "Surplus", 0.8},
	{"overflowing", "Overflowing", 0.6},
}

// Valid reports whether p indexes the popularity table.
func (p Popularity) Valid() bool { return p >= 0 && int(p) < len(popularityLevels) }

// Level returns the table entry for p. p must be valid.
func (p Popularity) Level() Level { return popularityLevels[p] }

// Modifier returns the value multiplier for p. p must be valid.
func (p Popularity) Modifier() float64 { return popularityLevels[p].Modifier }

func (p Popularity) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Popularity(%d)", int(p))
	}
	return popularityLevels[p].ID
}

// Valid reports whether s indexes the supply table.
func (s Supply) Valid() bool { return s >= 0 && int(s) < len(supplyLevels) }

// Level returns the table entry for s. s must be valid.
func (s Supply) Level() Level { return supplyLevels[s] }

// Modifier returns the value multiplier for s. s must be valid.
func (s Supply) Modifier() float64 { return supplyLevels[s].Modifier }

func (s Supply) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Supply(%d)", int(s))
	}
	return supplyLevels[s].ID
}

// ParsePopularity maps a level id such as "veryHigh" to its index.
func ParsePopularity(id string) (Popularity, error) {
	for i := range popularityLevels {
		if popularityLevels[i].ID == id {
			return Popularity(i), nil
		}
	}
	return 0, fmt.Errorf("catalog: popularity %q: %w", id, ErrUnknownLevel)
}

// ParseSupply maps a level id such as "surplus" to its index.
func ParseSupply(id string) (Supply, error) {
	for i := range supplyLevels {
		if supplyLevels[i].ID == id {
			return Supply(i), nil
		}
	}
	return 0, fmt.Errorf("catalog: supply %q: %w", id, ErrUnknownLevel)
}

// PopularityLevels returns the popularity table in index order.
func PopularityLevels() []Level { return popularityLevels[:] }

// SupplyLevels returns the supply table in index order.
func SupplyLevels() []Level { return supplyLevels[:] }
