// Package gateway connects callers to the optimizer worker. It forwards
// catalog pushes, tracks outstanding optimize requests in submission order
// and resolves each reply's product ids to display records.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"workshop-optimizer/internal/catalog"
	"workshop-optimizer/internal/gamedata"
	"workshop-optimizer/internal/search"
)

var (
	// ErrProtocolDesync is reported when an optimized reply arrives with no
	// outstanding request. The gateway refuses further work afterwards.
	ErrProtocolDesync = errors.New("optimized reply with no outstanding request")
	// ErrWorkerGone is returned once the worker's reply stream has ended
	// without the gateway being closed.
	ErrWorkerGone = errors.New("worker reply stream ended")
)

// Transport carries messages to a worker and replies back. Replies must be
// delivered in the order the worker produced them.
type Transport interface {
	Send(Message) error
	Replies() <-chan Reply
}

// Resolver maps product ids to display records.
type Resolver interface {
	Product(id string) (*gamedata.Product, bool)
}

// Plan is a search result with its products resolved.
type Plan struct {
	Products []*gamedata.Product `json:"products"`
	Value    int                 `json:"value"`
	Time     int                 `json:"time"`
	Groove   int                 `json:"groove"`
}

// IDs returns the product ids of the plan in order.
func (p Plan) IDs() []string {
	out := make([]string, len(p.Products))
	for i, prod := range p.Products {
		out[i] = prod.ID
	}
	return out
}

// Pending is an outstanding optimize request.
type Pending struct {
	ID string

	once  sync.Once
	done  chan struct{}
	plans []Plan
	err   error
}

func newPending(id string) *Pending {
	return &Pending{ID: id, done: make(chan struct{})}
}

// resolve settles the request. Only the first call has any effect.
func (p *Pending) resolve(plans []Plan, err error) bool {
	settled := false
	p.once.Do(func() {
		p.plans, p.err = plans, err
		close(p.done)
		settled = true
	})
	return settled
}

// Done is closed once the request has settled.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the request settles or ctx is done. A request abandoned
// through ctx still consumes its reply when it arrives.
func (p *Pending) Wait(ctx context.Context) ([]Plan, error) {
	select {
	case <-p.done:
		return p.plans, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the gateway logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithErrorHandler registers a callback for worker-level errors: rejected
// catalogs, unknown replies and protocol desync. It runs on the dispatch
// goroutine.
func WithErrorHandler(fn func(error)) Option {
	return func(g *Gateway) { g.onError = fn }
}

// Gateway is safe for concurrent use.
type Gateway struct {
	transport Transport
	resolver  Resolver
	logger    *slog.Logger
	onError   func(error)

	mu      sync.Mutex
	queue   []*Pending
	broken  error
	closed  bool
	stopped chan struct{}
}

// New starts a gateway over t. Replies are read until t closes its reply
// channel.
func New(t Transport, r Resolver, opts ...Option) *Gateway {
	g := newGateway(opts)
	g.transport = t
	g.resolver = r
	go g.dispatch()
	return g
}

// Unavailable returns a gateway for environments without a worker. Optimize
// returns no plans and catalog pushes are dropped.
func Unavailable(opts ...Option) *Gateway {
	g := newGateway(opts)
	close(g.stopped)
	g.logger.Warn("optimizer unavailable, searches will return no results")
	return g
}

func newGateway(opts []Option) *Gateway {
	g := &Gateway{stopped: make(chan struct{})}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Available reports whether a worker backs the gateway.
func (g *Gateway) Available() bool {
	return g.transport != nil
}

// Outstanding returns the number of requests waiting for a reply.
func (g *Gateway) Outstanding() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue)
}

// PushCatalog sends a copy of snapshot to the worker. Acceptance or rejection
// is reported asynchronously; a rejected catalog makes later searches fail
// with ErrNoCatalog until a good one is pushed.
func (g *Gateway) PushCatalog(snapshot map[string]catalog.Entry) error {
	if !g.Available() {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pushLocked(snapshot)
}

// Submit sends an optimize request and returns its pending handle.
func (g *Gateway) Submit(req search.Request) (*Pending, error) {
	if !g.Available() {
		return unavailablePending(), nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submitLocked(req)
}

// SubmitWith pushes snapshot and submits req with no other message between
// them, so the search runs against exactly that catalog.
func (g *Gateway) SubmitWith(snapshot map[string]catalog.Entry, req search.Request) (*Pending, error) {
	if !g.Available() {
		return unavailablePending(), nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.pushLocked(snapshot); err != nil {
		return nil, err
	}
	return g.submitLocked(req)
}

// Optimize submits req and waits for its plans.
func (g *Gateway) Optimize(ctx context.Context, req search.Request) ([]Plan, error) {
	p, err := g.Submit(req)
	if err != nil {
		return nil, err
	}
	return p.Wait(ctx)
}

// OptimizeWith is Optimize against snapshot. See SubmitWith.
func (g *Gateway) OptimizeWith(ctx context.Context, snapshot map[string]catalog.Entry, req search.Request) ([]Plan, error) {
	p, err := g.SubmitWith(snapshot, req)
	if err != nil {
		return nil, err
	}
	return p.Wait(ctx)
}

func unavailablePending() *Pending {
	p := newPending(uuid.NewString())
	requestsTotal.WithLabelValues("unavailable").Inc()
	p.resolve(nil, nil)
	return p
}

func (g *Gateway) pushLocked(snapshot map[string]catalog.Entry) error {
	if err := g.usableLocked(); err != nil {
		return err
	}
	msg := CatalogMessage{Type: KindCatalog, Catalog: catalog.Clone(snapshot)}
	if err := g.transport.Send(msg); err != nil {
		return fmt.Errorf("gateway: push catalog: %w", err)
	}
	return nil
}

func (g *Gateway) submitLocked(req search.Request) (*Pending, error) {
	if err := g.usableLocked(); err != nil {
		return nil, err
	}
	p := newPending(uuid.NewString())
	if err := g.transport.Send(optimizeMessage(p.ID, req)); err != nil {
		requestsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("gateway: submit: %w", err)
	}
	g.queue = append(g.queue, p)
	pendingRequests.Inc()
	return p, nil
}

// Close closes the transport if it supports it, waits for outstanding
// replies and fails whatever is left with ErrClosed.
func (g *Gateway) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		<-g.stopped
		return nil
	}
	g.closed = true
	g.mu.Unlock()

	var err error
	if c, ok := g.transport.(io.Closer); ok {
		err = c.Close()
	}
	<-g.stopped
	return err
}

func (g *Gateway) usableLocked() error {
	if g.closed {
		return ErrClosed
	}
	return g.broken
}

func (g *Gateway) dispatch() {
	defer close(g.stopped)
	for r := range g.transport.Replies() {
		switch r.Type {
		case KindReady:
			g.logger.Debug("[gateway] catalog ready")
		case KindError:
			g.report(fmt.Errorf("gateway: catalog rejected: %w", r.Failure()))
		case KindOptimized:
			g.settle(r)
		default:
			g.report(fmt.Errorf("gateway: reply type %q: %w", r.Type, ErrUnknownMessage))
		}
	}

	// Nothing will answer from here on: refuse new work and fail the rest.
	g.mu.Lock()
	if g.broken == nil {
		g.broken = ErrWorkerGone
	}
	left := g.queue
	g.queue = nil
	closed := g.closed
	g.mu.Unlock()
	failWith := ErrClosed
	if !closed {
		failWith = ErrWorkerGone
		g.logger.Error("[gateway] worker reply stream ended", "outstanding", len(left))
	}
	for _, p := range left {
		pendingRequests.Dec()
		requestsTotal.WithLabelValues("error").Inc()
		p.resolve(nil, failWith)
	}
}

func (g *Gateway) settle(r Reply) {
	g.mu.Lock()
	if len(g.queue) == 0 {
		g.broken = ErrProtocolDesync
		g.mu.Unlock()
		protocolDesync.Inc()
		g.report(ErrProtocolDesync)
		return
	}
	p := g.queue[0]
	g.queue[0] = nil
	g.queue = g.queue[1:]
	g.mu.Unlock()
	pendingRequests.Dec()

	if r.ID != "" && r.ID != p.ID {
		g.logger.Warn("[gateway] reply id does not match oldest request", "reply", r.ID, "request", p.ID)
	}

	if err := r.Failure(); err != nil {
		requestsTotal.WithLabelValues("error").Inc()
		p.resolve(nil, err)
		return
	}
	plans, err := g.resolvePlans(r.Results)
	if err != nil {
		requestsTotal.WithLabelValues("error").Inc()
		p.resolve(nil, err)
		return
	}
	requestsTotal.WithLabelValues("ok").Inc()
	resultsTotal.Add(float64(len(plans)))
	p.resolve(plans, nil)
}

func (g *Gateway) resolvePlans(results []search.Result) ([]Plan, error) {
	plans := make([]Plan, 0, len(results))
	for _, res := range results {
		plan := Plan{
			Products: make([]*gamedata.Product, 0, len(res.Products)),
			Value:    res.Value,
			Time:     res.Time,
			Groove:   res.Groove,
		}
		for _, id := range res.Products {
			prod, ok := g.resolver.Product(id)
			if !ok {
				return nil, fmt.Errorf("gateway: result references %q: %w", id, gamedata.ErrUnknownProduct)
			}
			plan.Products = append(plan.Products, prod)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func (g *Gateway) report(err error) {
	g.logger.Error("[gateway] worker error", "err", err)
	if g.onError != nil {
		g.onError(err)
	}
}
