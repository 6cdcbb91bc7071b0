package catalog

import "math"

// ── Value accounting ────────────────────────────────────────────────

// ModifiedValue is the value of one unit made in a workshop with the given
// multiplier at the given groove. Groove and workshop apply to the base value
// before the first floor, popularity and supply to the floored amount.
func (it *Item) ModifiedValue(workshop float64, groove int) int {
	base := math.Floor(float64(it.Value) * workshop * (1 + float64(groove)/100))
	return int(math.Floor(it.Popularity * it.Supply * base))
}

// TotalValue sums ModifiedValue over every workshop producing the item in
// parallel.
func (it *Item) TotalValue(workshops []float64, groove int) int {
	total := 0
	for _, w := range workshops {
		total += it.ModifiedValue(w, groove)
	}
	return total
}
