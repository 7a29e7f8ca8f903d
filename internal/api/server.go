// Package api exposes the on-demand digest endpoint, health and metrics.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deusflow/musive/internal/app"
	"github.com/deusflow/musive/internal/metrics"
	"github.com/deusflow/musive/internal/news"
	"github.com/deusflow/musive/internal/storage"
)

// Runner builds digests on demand and remembers the latest one.
type Runner interface {
	Preview(ctx context.Context) (news.Digest, error)
	Last() news.Digest
}

// History lists archived runs, newest first.
type History interface {
	Recent(ctx context.Context, limit int) ([]storage.DigestRun, error)
}

// StatsSource contributes extra counters to /metrics.
type StatsSource interface {
	GetStats() map[string]interface{}
}

// Deps are the handler's collaborators. History and Stats are optional.
type Deps struct {
	Runner  Runner
	History History
	Stats   StatsSource
}

type Handler struct {
	runner  Runner
	history History
	stats   StatsSource
	logger  *slog.Logger
}

func NewHandler(deps Deps, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		runner:  deps.Runner,
		history: deps.History,
		stats:   deps.Stats,
		logger:  logger.With("component", "api"),
	}
}

// NewRouter creates the gin engine with all routes configured
func NewRouter(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(requestLogger(handler.logger))
	r.Use(gin.Recovery())

	r.GET("/api/digest", handler.GetDigest)
	r.GET("/api/digest/last", handler.GetLastDigest)
	if handler.history != nil {
		r.GET("/api/history", handler.GetHistory)
	}
	r.GET("/health", handler.GetHealth)
	r.GET("/metrics", handler.GetMetrics)

	return r
}

// NewServer wraps the router in an http.Server listening on port.
func NewServer(handler *Handler, port string) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// GetDigest runs the pipeline and returns the ranked items.
func (h *Handler) GetDigest(c *gin.Context) {
	d, err := h.runner.Preview(c.Request.Context())
	switch {
	case errors.Is(err, app.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("digest preview failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Digest run failed"})
		return
	}

	c.JSON(http.StatusOK, itemsResponse(d.Items))
}

// GetLastDigest returns the most recent digest without running the
// pipeline.
func (h *Handler) GetLastDigest(c *gin.Context) {
	d := h.runner.Last()
	if d.RunID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "No digest built yet"})
		return
	}
	resp := itemsResponse(d.Items)
	resp["runId"] = d.RunID
	resp["generatedAt"] = d.GeneratedAt
	c.JSON(http.StatusOK, resp)
}

func itemsResponse(items []news.Item) gin.H {
	if items == nil {
		items = []news.Item{}
	}
	return gin.H{
		"count": len(items),
		"data":  items,
	}
}

// GetHistory lists archived runs; ?limit defaults to 7 and is capped at 100.
func (h *Handler) GetHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "7"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return
	}
	if limit > 100 {
		limit = 100
	}

	runs, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("history query failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if runs == nil {
		runs = []storage.DigestRun{}
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(runs),
		"data":  runs,
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	stats := metrics.Global.GetStats()

	status := "ok"
	code := http.StatusOK
	if !metrics.Global.Healthy() {
		status = "error"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

func (h *Handler) GetMetrics(c *gin.Context) {
	stats := metrics.Global.GetStats()
	if h.stats != nil {
		for k, v := range h.stats.GetStats() {
			stats[k] = v
		}
	}
	c.JSON(http.StatusOK, stats)
}
