package island

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workshop-optimizer/internal/catalog"
	"workshop-optimizer/internal/gamedata"
)

func testData(t *testing.T) *gamedata.Data {
	t.Helper()
	d, err := gamedata.Default()
	require.NoError(t, err)
	return d
}

func TestWorkshopModifiers(t *testing.T) {
	d := testData(t)
	is := New()
	is.Workshops = []int{0, Unbuilt, 2, 7}
	assert.Equal(t, []float64{1, 1.2}, is.WorkshopModifiers(d))
}

func TestSetWorkshop(t *testing.T) {
	d := testData(t)
	is := &Island{}

	require.NoError(t, is.SetWorkshop(d, 2, 1))
	assert.Equal(t, []int{Unbuilt, Unbuilt, 1}, is.Workshops)

	require.NoError(t, is.SetWorkshop(d, 0, 0))
	assert.Equal(t, []int{0, Unbuilt, 1}, is.Workshops)

	assert.Error(t, is.SetWorkshop(d, 3, 0), "slot beyond unlock table")
	assert.Error(t, is.SetWorkshop(d, 0, 3), "tier beyond tier table")
	assert.NoError(t, is.SetWorkshop(d, 1, Unbuilt))
}

func TestSetProduct(t *testing.T) {
	d := testData(t)
	is := New()

	require.NoError(t, is.SetProduct(d, "potion", "high", "surplus", ""))
	assert.Equal(t, catalog.PopularityHigh, is.Popularity("potion"))
	assert.Equal(t, catalog.SupplySurplus, is.Supply("potion"))

	require.NoError(t, is.SetProduct(d, "potion", "", "", "veryHigh"))
	assert.Equal(t, catalog.PopularityHigh, is.Popularity("potion"), "empty level keeps old value")
	assert.Equal(t, "veryHigh", is.Products["potion"].PredictedDemand)

	assert.ErrorIs(t, is.SetProduct(d, "ghost", "high", "", ""), gamedata.ErrUnknownProduct)
	assert.ErrorIs(t, is.SetProduct(d, "potion", "sky-high", "", ""), catalog.ErrUnknownLevel)
	assert.ErrorIs(t, is.SetProduct(d, "potion", "", "lots", ""), catalog.ErrUnknownLevel)

	is.Reset()
	assert.Equal(t, catalog.PopularityAverage, is.Popularity("potion"))
	assert.Equal(t, catalog.SupplySufficient, is.Supply("potion"))
}

func TestSnapshotAndRequest(t *testing.T) {
	d := testData(t)
	is := New()
	is.Workshops = []int{0, 1}
	is.Landmarks = 2
	is.Groove = 5
	require.NoError(t, is.SetProduct(d, "firesand", "low", "nonexistent", ""))

	snap := is.Snapshot(d)
	require.Len(t, snap, len(d.Products))
	fs := snap["firesand"]
	assert.Equal(t, catalog.PopularityLow, fs.Popularity)
	assert.Equal(t, catalog.SupplyNonexistent, fs.Supply)
	assert.Equal(t, []string{"concoctions", "unburiedTreasures"}, fs.Categories)
	assert.Equal(t, catalog.PopularityAverage, snap["potion"].Popularity)

	_, err := catalog.Build(snap)
	require.NoError(t, err)

	req := is.Request(d, 25)
	assert.Equal(t, []float64{1, 1.1}, req.Workshops)
	assert.Equal(t, 5, req.Groove)
	assert.Equal(t, 20, req.MaxGroove)
	assert.Equal(t, 25, req.Limit)
}

func TestSaveLoad(t *testing.T) {
	d := testData(t)
	path := filepath.Join(t.TempDir(), "island.toml")

	is := New()
	is.Workshops = []int{0, 2}
	is.Rank = 8
	is.Landmarks = 3
	is.Groove = 12
	require.NoError(t, is.SetProduct(d, "tunic", "veryHigh", "insufficient", "high"))
	require.NoError(t, is.Save(path))

	got, err := Load(path, d, nil)
	require.NoError(t, err)
	assert.Equal(t, is, got)
}

func TestLoad_Missing(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "none.toml"), testData(t), nil)
	require.NoError(t, err)
	assert.Equal(t, New(), got)
}

func TestLoad_Sanitizes(t *testing.T) {
	d := testData(t)
	path := filepath.Join(t.TempDir(), "island.toml")
	content := `
workshops = [-1, 9, 1]
rank = 99
landmarks = 12
groove = 80

[products.potion]
popularity = "high"

[products.ghost]
supply = "surplus"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := Load(path, d, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got.Workshops)
	assert.Equal(t, DefaultRank, got.Rank)
	assert.Equal(t, 0, got.Landmarks)
	assert.Equal(t, 0, got.Groove)
	assert.Contains(t, got.Products, "potion")
	assert.NotContains(t, got.Products, "ghost")
}

func TestLoad_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "island.toml")
	require.NoError(t, os.WriteFile(path, []byte("workshops = [1,"), 0o644))
	_, err := Load(path, testData(t), nil)
	assert.Error(t, err)
}

func TestFromJSON(t *testing.T) {
	d := testData(t)

	got, err := FromJSON([]byte(`{"w":[0,2],"r":8,"l":1,"g":4,"products":{"potion":{"p":"high","s":"surplus"}}}`), d, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, got.Workshops)
	assert.Equal(t, 8, got.Rank)
	assert.Equal(t, 15, got.MaxGroove(d))
	assert.Equal(t, 4, got.Groove)
	assert.Equal(t, catalog.PopularityHigh, got.Popularity("potion"))
	assert.Equal(t, catalog.SupplySurplus, got.Supply("potion"))

	got, err = FromJSON(nil, d, nil)
	require.NoError(t, err)
	assert.Equal(t, New(), got)

	_, err = FromJSON([]byte(`{"w":"all"}`), d, nil)
	assert.Error(t, err)
}
