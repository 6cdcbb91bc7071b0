package search

import (
	"cmp"
	"slices"
)

// DefaultLimit is the number of chains returned when a request sets none.
const DefaultLimit = 100

// Rank orders results by final groove, then value, both descending, and keeps
// the first limit. Equal results keep their input order. The input is not
// modified.
func Rank(results []Result, limit int) []Result {
	if limit <= 0 {
		limit = DefaultLimit
	}
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, compareResults)
	if len(sorted) > limit {
		// Copy so the truncated slice does not pin the full backing array.
		return slices.Clone(sorted[:limit])
	}
	return sorted
}

// compareResults sorts "better" first.
func compareResults(a, b Result) int {
	if c := cmp.Compare(b.Groove, a.Groove); c != 0 {
		return c
	}
	return cmp.Compare(b.Value, a.Value)
}
