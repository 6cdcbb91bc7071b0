// Package island holds the player's island settings: built workshops, island
// rank, landmarks, current groove and per-product market conditions. It turns
// them into catalog snapshots and search requests.
package island

import (
	"fmt"
	"log/slog"

	"workshop-optimizer/internal/catalog"
	"workshop-optimizer/internal/gamedata"
	"workshop-optimizer/internal/search"
)

// Unbuilt marks a workshop slot with no workshop in it.
const Unbuilt = -1

// DefaultRank is the starting island rank; workshops unlock around it.
const DefaultRank = 3

// ProductState records market conditions for one product by level id.
type ProductState struct {
	Popularity      string `toml:"popularity,omitempty" json:"p,omitempty"`
	Supply          string `toml:"supply,omitempty" json:"s,omitempty"`
	PredictedDemand string `toml:"predicted_demand,omitempty" json:"pd,omitempty"`
}

// Island is the persisted settings document.
type Island struct {
	// Workshops holds a tier index per slot, or Unbuilt.
	Workshops []int                   `toml:"workshops" json:"w"`
	Rank      int                     `toml:"rank" json:"r"`
	Landmarks int                     `toml:"landmarks" json:"l"`
	Groove    int                     `toml:"groove" json:"g"`
	Products  map[string]ProductState `toml:"products,omitempty" json:"products,omitempty"`
}

// New returns default settings: one tier-1 workshop at the default rank.
func New() *Island {
	return &Island{
		Workshops: []int{0},
		Rank:      DefaultRank,
		Groove:    0,
		Products:  make(map[string]ProductState),
	}
}

// WorkshopModifiers returns the value multiplier of every built workshop,
// skipping unbuilt or unknown tiers.
func (is *Island) WorkshopModifiers(d *gamedata.Data) []float64 {
	out := make([]float64, 0, len(is.Workshops))
	for _, idx := range is.Workshops {
		if idx >= 0 && idx < len(d.Tiers) {
			out = append(out, d.Tiers[idx].Modifier)
		}
	}
	return out
}

// MaxGroove returns the groove ceiling allowed by the built landmarks.
func (is *Island) MaxGroove(d *gamedata.Data) int {
	return d.MaxGroove(is.Landmarks)
}

// MaxWorkshops returns how many workshops the island rank allows.
func (is *Island) MaxWorkshops(d *gamedata.Data) int {
	return d.MaxWorkshops(is.Rank)
}

// Popularity returns the popularity level of a product, defaulting to average.
func (is *Island) Popularity(id string) catalog.Popularity {
	if p, err := catalog.ParsePopularity(is.Products[id].Popularity); err == nil {
		return p
	}
	return catalog.PopularityAverage
}

// Supply returns the supply level of a product, defaulting to sufficient.
func (is *Island) Supply(id string) catalog.Supply {
	if s, err := catalog.ParseSupply(is.Products[id].Supply); err == nil {
		return s
	}
	return catalog.SupplySufficient
}

// SetWorkshop sets slot index to tier, growing the slot list with unbuilt
// entries as needed. tier may be Unbuilt.
func (is *Island) SetWorkshop(d *gamedata.Data, index, tier int) error {
	if index < 0 || index >= len(d.WorkshopRanks) {
		return fmt.Errorf("island: workshop slot %d out of range [0,%d)", index, len(d.WorkshopRanks))
	}
	if tier != Unbuilt && (tier < 0 || tier >= len(d.Tiers)) {
		return fmt.Errorf("island: workshop tier %d out of range [0,%d)", tier, len(d.Tiers))
	}
	for len(is.Workshops) <= index {
		is.Workshops = append(is.Workshops, Unbuilt)
	}
	is.Workshops[index] = tier
	return nil
}

// SetProduct records market conditions for a product. Empty level ids leave
// the existing value alone.
func (is *Island) SetProduct(d *gamedata.Data, id, popularity, supply, predicted string) error {
	if _, ok := d.Product(id); !ok {
		return fmt.Errorf("island: %q: %w", id, gamedata.ErrUnknownProduct)
	}
	st := is.Products[id]
	if popularity != "" {
		if _, err := catalog.ParsePopularity(popularity); err != nil {
			return err
		}
		st.Popularity = popularity
	}
	if supply != "" {
		if _, err := catalog.ParseSupply(supply); err != nil {
			return err
		}
		st.Supply = supply
	}
	if predicted != "" {
		if _, err := catalog.ParsePopularity(predicted); err != nil {
			return err
		}
		st.PredictedDemand = predicted
	}
	if is.Products == nil {
		is.Products = make(map[string]ProductState)
	}
	is.Products[id] = st
	return nil
}

// Reset puts every product back to average popularity and sufficient supply.
func (is *Island) Reset() {
	is.Products = make(map[string]ProductState)
}

// Snapshot builds the catalog snapshot for the current settings.
func (is *Island) Snapshot(d *gamedata.Data) map[string]catalog.Entry {
	out := make(map[string]catalog.Entry, len(d.Products))
	for i := range d.Products {
		p := &d.Products[i]
		out[p.ID] = catalog.Entry{
			Categories: append([]string(nil), p.Categories...),
			Value:      p.Value,
			Time:       p.Time,
			Popularity: is.Popularity(p.ID),
			Supply:     is.Supply(p.ID),
		}
	}
	return out
}

// Request builds the search request for the current settings.
func (is *Island) Request(d *gamedata.Data, limit int) search.Request {
	return search.Request{
		Workshops: is.WorkshopModifiers(d),
		Groove:    is.Groove,
		MaxGroove: is.MaxGroove(d),
		Limit:     limit,
	}
}

// sanitize drops or clamps values a hand-edited file may contain, logging
// what it discards.
func (is *Island) sanitize(d *gamedata.Data, logger *slog.Logger) {
	built := is.Workshops[:0]
	for _, w := range is.Workshops {
		if w >= 0 && w < len(d.Tiers) {
			built = append(built, w)
		} else if w != Unbuilt {
			logger.Warn("island: dropping invalid workshop tier", "tier", w)
		}
	}
	is.Workshops = built
	if len(is.Workshops) == 0 {
		is.Workshops = []int{0}
	}

	if d.MaxRank > 0 && (is.Rank < 1 || is.Rank > d.MaxRank) {
		is.Rank = DefaultRank
	}
	if is.Landmarks < 0 || is.Landmarks > len(d.LandmarkRanks) {
		is.Landmarks = 0
	}
	if maxGroove := is.MaxGroove(d); is.Groove < 0 || is.Groove > maxGroove {
		is.Groove = 0
	}

	if is.Products == nil {
		is.Products = make(map[string]ProductState)
	}
	for id := range is.Products {
		if _, ok := d.Product(id); !ok {
			logger.Warn("island: unknown product in settings", "product", id)
			delete(is.Products, id)
		}
	}
}
