package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"workshop-optimizer/internal/catalog"
	"workshop-optimizer/internal/search"
)

var (
	// ErrNoCatalog is carried by an optimized reply when no catalog has been
	// loaded, or when the last catalog push failed.
	ErrNoCatalog = errors.New("no catalog loaded")
	// ErrQueueFull is returned when the inbound queue has no room.
	ErrQueueFull = errors.New("worker queue full")
	// ErrClosed is returned after the worker or gateway has shut down.
	ErrClosed = errors.New("closed")
)

// DefaultQueueDepth bounds the worker's inbound queue.
const DefaultQueueDepth = 64

// Worker owns the catalog and runs searches on a single goroutine. Messages
// are processed strictly in arrival order and every optimize message yields
// exactly one optimized reply.
type Worker struct {
	engine *search.Engine
	logger *slog.Logger

	mu       sync.RWMutex
	closed   bool
	inbox    chan Message
	replies  chan Reply
	quit     chan struct{} // closed first by Close to release blocked Enqueues
	quitOnce sync.Once
	start    sync.Once
}

// NewWorker creates a worker. Call Start to begin processing.
func NewWorker(engine *search.Engine, queueDepth int, logger *slog.Logger) *Worker {
	if queueDepth <= 0 {
		queueDepth = DefaultQueueDepth
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		engine:  engine,
		logger:  logger,
		inbox:   make(chan Message, queueDepth),
		replies: make(chan Reply, queueDepth),
		quit:    make(chan struct{}),
	}
}

// Start launches the processing goroutine. Extra calls are no-ops.
func (w *Worker) Start() {
	w.start.Do(func() { go w.run() })
}

// Send enqueues a message without blocking.
func (w *Worker) Send(msg Message) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	select {
	case w.inbox <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Enqueue is Send that waits for queue room instead of failing. Used by
// stream front ends where the peer should be slowed down, not refused.
func (w *Worker) Enqueue(ctx context.Context, msg Message) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	select {
	case w.inbox <- msg:
		return nil
	case <-w.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Replies returns the outbound channel. It is closed once the worker has
// drained its queue after Close.
func (w *Worker) Replies() <-chan Reply {
	return w.replies
}

// Close stops accepting messages. Queued messages are still processed.
func (w *Worker) Close() error {
	w.quitOnce.Do(func() { close(w.quit) })
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	close(w.inbox)
	w.Start()
	return nil
}

func (w *Worker) run() {
	defer close(w.replies)

	var cat *catalog.Catalog
	for msg := range w.inbox {
		switch m := msg.(type) {
		case CatalogMessage:
			c, err := catalog.Build(m.Catalog)
			if err != nil {
				cat = nil
				w.rejectCatalog(err)
				continue
			}
			cat = c
			catalogRebuilds.WithLabelValues("ok").Inc()
			w.logger.Debug("[catalog] ready", "items", c.Len())
			w.replies <- Reply{Type: KindReady}

		case rejectedCatalog:
			cat = nil
			w.rejectCatalog(m.err)

		case OptimizeMessage:
			w.replies <- w.optimize(cat, m)

		case rejectedMessage:
			w.replies <- errorReply(KindOptimized, m.id, m.err)

		default:
			w.logger.Warn("[worker] ignoring message", "kind", msg.Kind())
		}
	}
}

// rejectCatalog reports a failed push. The caller drops its catalog so later
// searches cannot run against stale data.
func (w *Worker) rejectCatalog(err error) {
	catalogRebuilds.WithLabelValues("error").Inc()
	w.logger.Warn("[catalog] rejected", "err", err)
	w.replies <- errorReply(KindError, "", err)
}

func (w *Worker) optimize(cat *catalog.Catalog, m OptimizeMessage) Reply {
	if cat == nil {
		return errorReply(KindOptimized, m.ID, ErrNoCatalog)
	}
	start := time.Now()
	results, err := w.engine.Optimize(cat, m.Request())
	searchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return errorReply(KindOptimized, m.ID, fmt.Errorf("worker: %w", err))
	}
	return Reply{Type: KindOptimized, ID: m.ID, Results: results}
}
