// Package httpapi serves a small read-only status API over the price cache,
// the latest detection result and the reward history.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/raine/relic-reward-prices/internal/catalog"
	"github.com/raine/relic-reward-prices/internal/prices"
	"github.com/raine/relic-reward-prices/internal/reward"
	"github.com/raine/relic-reward-prices/internal/storage"
	"github.com/rs/zerolog/log"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
	shutdownTimeout     = 5 * time.Second
)

// PriceSource is the price cache as seen by the API.
type PriceSource interface {
	Lookup(key string) (reward.PriceEntry, bool)
	Table() *prices.Table
}

// LatestResult returns the most recent detection result, or nil.
type LatestResult interface {
	Get() *reward.Result
}

// History reads recorded cycles.
type History interface {
	RecentCycles(limit int) ([]storage.CycleRecord, error)
	ItemCounts(limit int) ([]storage.ItemCount, error)
}

// Scanner requests a detection cycle.
type Scanner interface {
	Fire(source string)
}

// Deps are the collaborators of the API. History and Scanner may be nil, in
// which case their endpoints are not registered.
type Deps struct {
	Prices  PriceSource
	Latest  LatestResult
	History History
	Scanner Scanner
}

// NewRouter builds the gin engine with all routes.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	h := &handlers{deps: deps}
	r.GET("/healthz", h.health)
	r.GET("/prices/:key", h.price)
	r.GET("/latest", h.latest)
	if deps.History != nil {
		r.GET("/history", h.history)
		r.GET("/history/items", h.itemCounts)
	}
	if deps.Scanner != nil {
		r.POST("/scan", h.scan)
	}
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	}
}

type handlers struct {
	deps Deps
}

func (h *handlers) health(c *gin.Context) {
	t := h.deps.Prices.Table()
	if t == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "no prices yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"prices":       t.Len(),
		"refreshed_at": t.RefreshedAt,
	})
}

func (h *handlers) price(c *gin.Context) {
	key := catalog.Key(c.Param("key"))
	entry, ok := h.deps.Prices.Lookup(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no price for item", "key": key})
		return
	}
	c.JSON(http.StatusOK, newPriceView(entry))
}

func (h *handlers) latest(c *gin.Context) {
	result := h.deps.Latest.Get()
	if result == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, newResultView(result))
}

func (h *handlers) history(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	cycles, err := h.deps.History.RecentCycles(limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to read history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	views := make([]cycleView, len(cycles))
	for i, rec := range cycles {
		views[i] = newCycleView(rec)
	}
	c.JSON(http.StatusOK, views)
}

func (h *handlers) itemCounts(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	counts, err := h.deps.History.ItemCounts(limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to read item counts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	views := make([]itemCountView, len(counts))
	for i, ic := range counts {
		views[i] = itemCountView{
			Key:          ic.ItemKey,
			Name:         ic.ItemName,
			Seen:         ic.Seen,
			LastPlatinum: ic.LastPlatinum,
			LastSeen:     ic.LastSeen,
		}
	}
	c.JSON(http.StatusOK, views)
}

func (h *handlers) scan(c *gin.Context) {
	h.deps.Scanner.Fire("http")
	c.JSON(http.StatusAccepted, gin.H{"status": "scan requested"})
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultHistoryLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxHistoryLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and " + strconv.Itoa(maxHistoryLimit)})
		return 0, false
	}
	return n, true
}

// Server runs the API until its context is cancelled.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

func NewServer(addr string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Listen binds the address so bind failures surface before serving starts.
// Run calls it when it has not been called yet.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}
	s.ln = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.srv.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.Addr()).Msg("status api listening")
		errCh <- s.srv.Serve(s.ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("status api stopped")
	return nil
}
