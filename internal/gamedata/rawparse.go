package gamedata

import (
	"errors"
	"fmt"

	"github.com/tailscale/hujson"
	"github.com/tidwall/gjson"
)

// Parse decodes island data. Comments and trailing commas are allowed.
func Parse(raw []byte) (*Data, error) {
	std, err := hujson.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if !gjson.ValidBytes(std) {
		return nil, errors.New("parse: invalid JSON")
	}
	dataJSON := string(std)

	d := &Data{
		MaxRank:           int(gjson.Get(dataJSON, "maxRank").Int()),
		WorkshopRanks:     readIntSlice(gjson.Get(dataJSON, "workshop.ranks")),
		LandmarkRanks:     readIntSlice(gjson.Get(dataJSON, "landmark.ranks")),
		LandmarkMaxGroove: readIntSlice(gjson.Get(dataJSON, "landmark.maxGroove")),
		Tiers:             buildTiers(dataJSON),
	}

	products := gjson.Get(dataJSON, "products")
	if !products.IsObject() {
		return nil, errors.New("parse: missing products object")
	}
	var perr error
	products.ForEach(func(key, v gjson.Result) bool {
		p, err := parseProduct(key.String(), v)
		if err != nil {
			perr = err
			return false
		}
		d.Products = append(d.Products, p)
		return true
	})
	if perr != nil {
		return nil, perr
	}
	d.index()
	return d, nil
}

func buildTiers(dataJSON string) []Tier {
	names := gjson.Get(dataJSON, "workshop.modifiers.tierNames").Array()
	var tiers []Tier
	gjson.Get(dataJSON, "workshop.modifiers.tier").ForEach(func(idx, v gjson.Result) bool {
		i := int(idx.Int())
		t := Tier{
			ID:       fmt.Sprintf("workshop-%d", i+1),
			Rank:     i,
			Modifier: v.Float(),
		}
		if i < len(names) {
			t.Name = names[i].String()
		} else {
			t.Name = t.ID
		}
		tiers = append(tiers, t)
		return true
	})
	return tiers
}

func parseProduct(id string, v gjson.Result) (Product, error) {
	value, time := v.Get("value"), v.Get("time")
	if value.Type != gjson.Number {
		return Product{}, fmt.Errorf("parse: product %q: missing numeric value", id)
	}
	if time.Type != gjson.Number {
		return Product{}, fmt.Errorf("parse: product %q: missing numeric time", id)
	}
	p := Product{
		ID:    id,
		Name:  v.Get("name").String(),
		Value: int(value.Int()),
		Time:  int(time.Int()),
	}
	if p.Name == "" {
		p.Name = id
	}
	v.Get("categories").ForEach(func(_, c gjson.Result) bool {
		p.Categories = append(p.Categories, c.String())
		return true
	})
	if ing := v.Get("ingredients"); ing.IsObject() {
		p.Ingredients = make(map[string]int)
		ing.ForEach(func(k, n gjson.Result) bool {
			// Entries without a count are placeholders in the source data.
			if n.Type == gjson.Number {
				p.Ingredients[k.String()] = int(n.Int())
			}
			return true
		})
	}
	return p, nil
}

func readIntSlice(v gjson.Result) []int {
	arr := v.Array()
	out := make([]int, len(arr))
	for i, item := range arr {
		out[i] = int(item.Int())
	}
	return out
}
