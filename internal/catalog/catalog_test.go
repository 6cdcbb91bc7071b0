package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(value, time int, cats ...string) Entry {
	return Entry{Categories: cats, Value: value, Time: time, Popularity: PopularityAverage, Supply: SupplySufficient}
}

func childIDs(it *Item) []string {
	ids := make([]string, 0, len(it.Children))
	for _, c := range it.Children {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestBuild_Adjacency(t *testing.T) {
	c, err := Build(map[string]Entry{
		"potion":   entry(28, 4, "concoctions"),
		"firesand": entry(28, 4, "concoctions", "unburied"),
		"necklace": entry(28, 4, "accessories", "woodworks"),
		"chair":    entry(42, 6, "furnishings", "woodworks"),
		"pumpkin":  entry(36, 4, "unburied", "concoctions"),
	})
	require.NoError(t, err)
	require.Equal(t, 5, c.Len())

	tests := []struct {
		id   string
		want []string
	}{
		{"potion", []string{"firesand", "pumpkin"}},
		{"firesand", []string{"potion", "pumpkin"}},
		{"pumpkin", []string{"firesand", "potion"}},
		{"necklace", []string{"chair"}},
		{"chair", []string{"necklace"}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, childIDs(c.Item(tt.id)))
		})
	}
}

func TestBuild_SharedNodes(t *testing.T) {
	c, err := Build(map[string]Entry{
		"a": entry(10, 4, "x"),
		"b": entry(10, 4, "x"),
	})
	require.NoError(t, err)

	a, b := c.Item("a"), c.Item("b")
	require.Len(t, a.Children, 1)
	require.Len(t, b.Children, 1)
	assert.Same(t, b, a.Children[0])
	assert.Same(t, a, b.Children[0])
}

func TestBuild_NoCategories(t *testing.T) {
	c, err := Build(map[string]Entry{
		"lonely": entry(10, 4),
		"other":  entry(10, 4),
	})
	require.NoError(t, err)
	assert.Empty(t, c.Item("lonely").Children)
	assert.Empty(t, c.Item("other").Children)
}

func TestBuild_ItemsSorted(t *testing.T) {
	c, err := Build(map[string]Entry{
		"c": entry(1, 1), "a": entry(1, 1), "b": entry(1, 1),
	})
	require.NoError(t, err)
	var got []string
	for _, it := range c.Items() {
		got = append(got, it.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestBuild_InvalidEntries(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
	}{
		{"popularity out of range", Entry{Value: 1, Time: 4, Popularity: 4, Supply: SupplySufficient}},
		{"negative popularity", Entry{Value: 1, Time: 4, Popularity: -1, Supply: SupplySufficient}},
		{"supply out of range", Entry{Value: 1, Time: 4, Popularity: PopularityAverage, Supply: 5}},
		{"zero time", Entry{Value: 1, Time: 0, Popularity: PopularityAverage, Supply: SupplySufficient}},
		{"negative value", Entry{Value: -3, Time: 4, Popularity: PopularityAverage, Supply: SupplySufficient}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(map[string]Entry{"bad": tt.entry})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidEntry), "got %v", err)
		})
	}
}

func TestLink_UnknownMember(t *testing.T) {
	c, err := Build(map[string]Entry{"a": entry(10, 4, "x")})
	require.NoError(t, err)

	members := map[string][]string{"x": {"a", "ghost"}}
	_, err = c.link("a", []string{"x"}, members)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownItem)
	assert.Contains(t, err.Error(), "ghost")
}

func TestClone_DoesNotShareCategories(t *testing.T) {
	orig := map[string]Entry{"a": entry(1, 1, "x", "y")}
	cp := Clone(orig)
	cp["a"].Categories[0] = "changed"
	assert.Equal(t, "x", orig["a"].Categories[0])
}

func TestModifiedValue(t *testing.T) {
	tests := []struct {
		name     string
		value    int
		pop      Popularity
		supply   Supply
		workshop float64
		groove   int
		want     int
	}{
		{"plain", 100, PopularityAverage, SupplySufficient, 1, 0, 100},
		{"groove floors first", 50, PopularityAverage, SupplySufficient, 1, 1, 50},
		{"tier two", 28, PopularityAverage, SupplySufficient, 1.1, 0, 30},
		{"very high popularity", 100, PopularityVeryHigh, SupplySufficient, 1, 0, 140},
		{"nonexistent supply", 100, PopularityAverage, SupplyNonexistent, 1, 0, 160},
		{"low popularity", 100, PopularityLow, SupplySufficient, 1, 0, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := &Item{Value: tt.value, Popularity: tt.pop.Modifier(), Supply: tt.supply.Modifier()}
			assert.Equal(t, tt.want, it.ModifiedValue(tt.workshop, tt.groove))
		})
	}
}

func TestTotalValue_SumsWorkshops(t *testing.T) {
	it := &Item{Value: 100, Popularity: 1, Supply: 1}
	assert.Equal(t, 300, it.TotalValue([]float64{1, 1, 1}, 0))
	assert.Equal(t, 0, it.TotalValue(nil, 10))
}

func TestParseLevels(t *testing.T) {
	p, err := ParsePopularity("veryHigh")
	require.NoError(t, err)
	assert.Equal(t, PopularityVeryHigh, p)

	s, err := ParseSupply("surplus")
	require.NoError(t, err)
	assert.Equal(t, SupplySurplus, s)

	_, err = ParsePopularity("meh")
	assert.ErrorIs(t, err, ErrUnknownLevel)
	_, err = ParseSupply("")
	assert.ErrorIs(t, err, ErrUnknownLevel)

	assert.Equal(t, "average", PopularityAverage.String())
	assert.Equal(t, "Supply(9)", Supply(9).String())
}
