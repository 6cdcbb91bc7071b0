// Package server exposes the optimizer over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"workshop-optimizer/internal/catalog"
	"workshop-optimizer/internal/gamedata"
	"workshop-optimizer/internal/gateway"
	"workshop-optimizer/internal/island"
	"workshop-optimizer/internal/search"
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-ID"

// Server holds the handlers' dependencies.
type Server struct {
	gw      *gateway.Gateway
	data    *gamedata.Data
	logger  *slog.Logger
	limit   int
	limiter *rate.Limiter // nil means unlimited

	mu     sync.RWMutex
	island *island.Island
}

// New creates a server. limit is applied to requests that do not set
// maxResults.
func New(gw *gateway.Gateway, data *gamedata.Data, logger *slog.Logger, limit int) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{gw: gw, data: data, logger: logger, limit: limit}
}

// SetIsland replaces the current island settings and pushes their catalog.
func (s *Server) SetIsland(is *island.Island) error {
	s.mu.Lock()
	s.island = is
	s.mu.Unlock()
	return s.gw.PushCatalog(is.Snapshot(s.data))
}

// LimitRate caps searches at perSecond across all clients. Zero or less
// removes the cap. Call before Routes.
func (s *Server) LimitRate(perSecond float64) {
	if perSecond <= 0 {
		s.limiter = nil
		return
	}
	s.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
}

func (s *Server) currentIsland() *island.Island {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.island
}

// Routes builds the gin engine.
func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.accessLog())

	v1 := r.Group("/v1")
	v1.GET("/health", s.health)
	v1.PUT("/catalog", s.putCatalog)
	v1.POST("/optimize", s.throttle(), s.optimize)
	v1.GET("/island", s.getIsland)
	v1.GET("/island/plans", s.throttle(), s.islandPlans)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// ── Middleware ───────────────────────────────────────────────────────

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *Server) throttle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("[http]",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"request_id", c.GetString("requestID"),
			"elapsed", time.Since(start),
		)
	}
}

type optimizeResponse struct {
	RequestID string         `json:"requestId"`
	Results   []gateway.Plan `json:"results"`
}

// ── Handlers ─────────────────────────────────────────────────────────

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"optimizer":   s.gw.Available(),
		"outstanding": s.gw.Outstanding(),
	})
}

func (s *Server) putCatalog(c *gin.Context) {
	var snapshot map[string]catalog.Entry
	if err := c.ShouldBindJSON(&snapshot); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid catalog body"})
		return
	}
	for _, id := range slices.Sorted(maps.Keys(snapshot)) {
		if _, ok := s.data.Product(id); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown product %q", id)})
			return
		}
	}
	if err := s.gw.PushCatalog(snapshot); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "items": len(snapshot)})
}

func (s *Server) optimize(c *gin.Context) {
	var req search.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid optimize body"})
		return
	}
	s.run(c, nil, req)
}

func (s *Server) getIsland(c *gin.Context) {
	is := s.currentIsland()
	if is == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no island settings loaded"})
		return
	}
	c.JSON(http.StatusOK, is)
}

func (s *Server) islandPlans(c *gin.Context) {
	is := s.currentIsland()
	if is == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no island settings loaded"})
		return
	}
	// Search the island's own catalog, not whatever was pushed last.
	s.run(c, is.Snapshot(s.data), is.Request(s.data, s.limit))
}

// run searches the last pushed catalog, or snapshot when it is non-nil.
func (s *Server) run(c *gin.Context, snapshot map[string]catalog.Entry, req search.Request) {
	if !s.gw.Available() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "optimizer unavailable"})
		return
	}
	if req.Limit == 0 {
		req.Limit = s.limit
	}
	if err := req.Validate(); err != nil {
		s.fail(c, err)
		return
	}
	var plans []gateway.Plan
	var err error
	if snapshot != nil {
		plans, err = s.gw.OptimizeWith(c.Request.Context(), snapshot, req)
	} else {
		plans, err = s.gw.Optimize(c.Request.Context(), req)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, optimizeResponse{RequestID: c.GetString("requestID"), Results: plans})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("[http] request failed", "request_id", c.GetString("requestID"), "err", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, search.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, gateway.ErrNoCatalog):
		return http.StatusConflict
	case errors.Is(err, gateway.ErrQueueFull),
		errors.Is(err, gateway.ErrClosed),
		errors.Is(err, gateway.ErrWorkerGone),
		errors.Is(err, gateway.ErrProtocolDesync):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("[http] listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
