// Package search enumerates production chains over a catalog graph and
// ranks them.
package search

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"sync"
	"time"

	"workshop-optimizer/internal/catalog"
)

// DayHours is the production window every chain must fit into.
const DayHours = 24

// ErrInvalidRequest is returned for requests the engine refuses to search.
var ErrInvalidRequest = errors.New("invalid search request")

// Request carries the per-run search parameters.
type Request struct {
	// Workshops holds one value multiplier per production slot.
	Workshops []float64 `json:"workshops"`
	Groove    int       `json:"groove"`
	MaxGroove int       `json:"maxGroove"`
	// Limit caps the ranked output; 0 means DefaultLimit.
	Limit int `json:"maxResults,omitempty"`
}

// Validate reports whether r can be searched.
func (r Request) Validate() error {
	switch {
	case r.Groove < 0:
		return fmt.Errorf("search: groove %d: %w", r.Groove, ErrInvalidRequest)
	case r.MaxGroove < 0:
		return fmt.Errorf("search: max groove %d: %w", r.MaxGroove, ErrInvalidRequest)
	case r.Limit < 0:
		return fmt.Errorf("search: limit %d: %w", r.Limit, ErrInvalidRequest)
	}
	for i, w := range r.Workshops {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("search: workshop %d multiplier %v: %w", i, w, ErrInvalidRequest)
		}
	}
	return nil
}

// Result is one maximal chain.
type Result struct {
	Products []string `json:"products"`
	Value    int      `json:"value"`
	Time     int      `json:"time"`
	Groove   int      `json:"groove"`
}

// Config tunes the engine. Adjust Parallelism to trade CPU for latency.
type Config struct {
	// Parallelism is the number of goroutines searching roots; 0 means GOMAXPROCS.
	Parallelism int
	// Budget is the time window in hours; 0 means DayHours.
	Budget int
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{Budget: DayHours}
}

// Engine runs exhaustive chain enumeration. It holds no per-search state and
// is safe for concurrent use.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// NewEngine creates an engine. A nil logger uses slog.Default().
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if cfg.Budget <= 0 {
		cfg.Budget = DayHours
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// ── Main entry point ────────────────────────────────────────────────

// Optimize enumerates every chain and returns the ranked top results.
func (e *Engine) Optimize(c *catalog.Catalog, req Request) ([]Result, error) {
	start := time.Now()
	raw, err := e.Enumerate(c, req)
	if err != nil {
		return nil, err
	}
	ranked := Rank(raw, req.Limit)
	e.logger.Debug("[done] ranked",
		"raw", len(raw),
		"returned", len(ranked),
		"elapsed", time.Since(start))
	return ranked, nil
}

// Enumerate returns every terminal chain, grouped by root in catalog order.
func (e *Engine) Enumerate(c *catalog.Catalog, req Request) ([]Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	roots := c.Items()
	if len(roots) == 0 {
		return nil, nil
	}

	numWorkers := e.cfg.Parallelism
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(roots) {
		numWorkers = len(roots)
	}
	e.logger.Debug("[search] enumerating",
		"roots", len(roots),
		"workers", numWorkers,
		"workshops", len(req.Workshops),
		"groove", req.Groove,
		"max_groove", req.MaxGroove)

	perRoot := make([][]Result, len(roots))
	rootCh := make(chan int, len(roots))
	for i := range roots {
		rootCh <- i
	}
	close(rootCh)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var path []*catalog.Item
			for idx := range rootCh {
				perRoot[idx], path = e.walk(roots[idx], req, path[:0])
			}
		}()
	}
	wg.Wait()

	total := 0
	for _, rs := range perRoot {
		total += len(rs)
	}
	out := make([]Result, 0, total)
	for _, rs := range perRoot {
		out = append(out, rs...)
	}
	e.logger.Debug("[search] terminals", "count", total)
	return out, nil
}

// ── Depth-first walk ────────────────────────────────────────────────

// frame is one pending step: produce item on top of the totals accumulated
// by its ancestors.
type frame struct {
	item   *catalog.Item
	depth  int
	value  int
	time   int
	groove int
}

// walk enumerates all chains rooted at root with an explicit stack. Children
// are pushed in reverse so they pop in adjacency order. path is scratch space
// returned for reuse.
func (e *Engine) walk(root *catalog.Item, req Request, path []*catalog.Item) ([]Result, []*catalog.Item) {
	var out []Result
	n := len(req.Workshops)
	stack := []frame{{item: root, groove: req.Groove}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		// Ancestors at path[:f.depth] are untouched while f is on the stack.
		path = append(path[:f.depth], f.item)

		produced := f.item.TotalValue(req.Workshops, f.groove)
		if f.depth > 0 {
			produced *= 2 // chain bonus
		}
		value := f.value + produced
		elapsed := f.time + f.item.Time
		groove := min(f.groove+n, req.MaxGroove)

		mark := len(stack)
		for _, child := range f.item.Children {
			if elapsed+child.Time <= e.cfg.Budget {
				stack = append(stack, frame{
					item:   child,
					depth:  f.depth + 1,
					value:  value,
					time:   elapsed,
					groove: groove,
				})
			}
		}
		if len(stack) == mark {
			out = append(out, Result{
				Products: pathIDs(path),
				Value:    value,
				Time:     elapsed,
				Groove:   groove,
			})
			continue
		}
		slices.Reverse(stack[mark:])
	}
	return out, path
}

func pathIDs(path []*catalog.Item) []string {
	ids := make([]string, len(path))
	for i, it := range path {
		ids[i] = it.ID
	}
	return ids
}
