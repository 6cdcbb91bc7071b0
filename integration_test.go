package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"workshop-optimizer/internal/catalog"
	"workshop-optimizer/internal/config"
	"workshop-optimizer/internal/gateway"
	"workshop-optimizer/internal/island"
	"workshop-optimizer/internal/search"
)

func loadTestApp(t *testing.T) *app {
	t.Helper()
	cfg := config.Config{
		StatePath:  filepath.Join(t.TempDir(), "island.toml"),
		MaxResults: 100,
		LogFormat:  "text",
		Optimizer:  config.OptimizerConfig{Enabled: true, QueueDepth: 8},
	}
	a, err := newApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func sharesCategory(a, b []string) bool {
	for _, c := range a {
		if slices.Contains(b, c) {
			return true
		}
	}
	return false
}

// verifyPlans runs the 8-point checklist against ranked plans.
func verifyPlans(t *testing.T, a *app, is *island.Island, limit int, plans []gateway.Plan) {
	t.Helper()
	req := is.Request(a.data, limit)
	c, err := catalog.Build(is.Snapshot(a.data))
	if err != nil {
		t.Fatalf("catalog.Build: %v", err)
	}

	// 1. at least one plan, at most limit
	if len(plans) == 0 || len(plans) > limit {
		t.Fatalf("got %d plans, want 1..%d", len(plans), limit)
	}

	for pi, p := range plans {
		prefix := fmt.Sprintf("plan %d %v", pi, p.IDs())

		// 2. value > 0
		if p.Value <= 0 {
			t.Errorf("%s: value %d, want > 0", prefix, p.Value)
		}

		hours := 0
		groove := req.Groove
		value := 0
		for i, prod := range p.Products {
			// 3. consecutive products differ and share a category
			if i > 0 {
				prev := p.Products[i-1]
				if prev.ID == prod.ID || !sharesCategory(prev.Categories, prod.Categories) {
					t.Errorf("%s: %s cannot follow %s", prefix, prod.ID, prev.ID)
				}
			}
			hours += prod.Time

			// 4. value follows the scoring formula
			v := c.Item(prod.ID).TotalValue(req.Workshops, groove)
			if i > 0 {
				v *= 2
			}
			value += v
			groove = min(groove+len(req.Workshops), req.MaxGroove)
		}

		// 5. time is the sum of product times and fits the day
		if hours != p.Time || p.Time > search.DayHours {
			t.Errorf("%s: time %d (sum %d), want sum <= %d", prefix, p.Time, hours, search.DayHours)
		}
		// 6. groove after the last product
		if groove != p.Groove {
			t.Errorf("%s: groove %d, want %d", prefix, p.Groove, groove)
		}
		if value != p.Value {
			t.Errorf("%s: value %d, want %d", prefix, p.Value, value)
		}

		// 7. chain is maximal
		last := c.Item(p.Products[len(p.Products)-1].ID)
		for _, next := range last.Children {
			if p.Time+next.Time <= search.DayHours {
				t.Errorf("%s: could still add %s", prefix, next.ID)
			}
		}

		// 8. ranked by groove, then value
		if pi > 0 {
			prev := plans[pi-1]
			if prev.Groove < p.Groove || (prev.Groove == p.Groove && prev.Value < p.Value) {
				t.Errorf("%s: ranked after (%d, %d)", prefix, prev.Groove, prev.Value)
			}
		}
	}
}

func TestOptimize_DefaultIsland(t *testing.T) {
	a := loadTestApp(t)
	is := island.New()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	plans, err := a.plan(ctx, is, 20)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	verifyPlans(t, a, is, 20, plans)
}

func TestOptimize_DevelopedIsland(t *testing.T) {
	a := loadTestApp(t)
	is := island.New()
	is.Rank = 8
	is.Landmarks = 2
	is.Groove = 5
	for slot, tier := range []int{2, 1, 0} {
		if err := is.SetWorkshop(a.data, slot, tier); err != nil {
			t.Fatalf("SetWorkshop: %v", err)
		}
	}
	for id, levels := range map[string][2]string{
		"potion":      {"veryHigh", "insufficient"},
		"woodenChair": {"low", "overflowing"},
		"necklace":    {"high", "nonexistent"},
	} {
		if err := is.SetProduct(a.data, id, levels[0], levels[1], ""); err != nil {
			t.Fatalf("SetProduct %s: %v", id, err)
		}
	}

	// Persist and reload so the saved form is what gets searched.
	if err := is.Save(a.cfg.StatePath); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := a.loadIsland()
	if err != nil {
		t.Fatalf("loadIsland: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	plans, err := a.plan(ctx, loaded, 50)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	verifyPlans(t, a, loaded, 50, plans)
	if plans[0].Groove != loaded.MaxGroove(a.data) {
		t.Errorf("top plan groove %d, want max groove %d", plans[0].Groove, loaded.MaxGroove(a.data))
	}
}

func TestOptimize_Unavailable(t *testing.T) {
	cfg := config.Config{StatePath: filepath.Join(t.TempDir(), "island.toml"), MaxResults: 10}
	a, err := newApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	plans, err := a.plan(context.Background(), island.New(), 10)
	if err != nil || len(plans) != 0 {
		t.Fatalf("plan = %d plans, %v; want none, nil", len(plans), err)
	}
	if got := FormatResult(plans); got != "no production chains found\n" {
		t.Errorf("FormatResult(nil) = %q", got)
	}
}

func TestFormatResult(t *testing.T) {
	a := loadTestApp(t)
	plans, err := a.plan(context.Background(), island.New(), 2)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	out := FormatResult(plans)
	if !strings.Contains(out, "#1") || !strings.Contains(out, "#2") {
		t.Errorf("missing rank headers:\n%s", out)
	}
	for _, prod := range plans[0].Products {
		if !strings.Contains(out, prod.Name) {
			t.Errorf("missing product %q:\n%s", prod.Name, out)
		}
	}

	shown := FormatIsland(island.New(), a.data)
	if !strings.Contains(shown, "Rank:") || !strings.Contains(shown, "max groove 10") {
		t.Errorf("unexpected island output:\n%s", shown)
	}
}
