// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api exposes the discovery pipeline over HTTP. Authentication is
// done upstream: a proxy sets the user id header and every /api route
// rejects requests without it.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/signal-engine/internal/discovery"
	"github.com/pdiddy/signal-engine/internal/export"
	"github.com/pdiddy/signal-engine/internal/logging"
	"github.com/pdiddy/signal-engine/internal/signals"
	"github.com/pdiddy/signal-engine/internal/store"
	"github.com/pdiddy/signal-engine/pkg/types"
)

// DefaultUserHeader carries the authenticated user id.
const DefaultUserHeader = "X-User-ID"

const userKey = "user_id"

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	runner     Runner
	store      Store
	logger     logging.Logger
	metrics    *Metrics
	gatherer   prometheus.Gatherer
	userHeader string
	now        func() time.Time
}

// NewServer creates a server. gatherer backs /metrics and may be nil, in
// which case the default Prometheus registry is served.
func NewServer(runner Runner, st Store, cfg types.ServerConfig, logger logging.Logger, metrics *Metrics, gatherer prometheus.Gatherer) *Server {
	header := cfg.UserHeader
	if header == "" {
		header = DefaultUserHeader
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		runner:     runner,
		store:      st,
		logger:     logging.Component(logger, "api"),
		metrics:    metrics,
		gatherer:   gatherer,
		userHeader: header,
		now:        time.Now,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), s.metrics.middleware())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api", s.requireUser())
	api.POST("/profiles/:id/run", s.handleRun)
	api.GET("/sources/:source/signals", s.handleSourceSignals)
	api.GET("/runs", s.handleRuns)
	api.GET("/export", s.handleExport)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.WithFields(logging.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
		}).Debug("request")
	}
}

func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(s.userHeader))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(userKey, userID)
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleRun(c *gin.Context) {
	userID := c.GetString(userKey)
	profileID := c.Param("id")

	days, err := parseDaysBack(c.Query("daysBack"), s.runner.WindowDays())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.runner.RunWindow(c.Request.Context(), profileID, userID, days)
	switch {
	case errors.Is(err, discovery.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "search profile not found"})
		return
	case errors.Is(err, discovery.ErrInvalidWindow):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.logger.WithError(err).WithField("profile_id", profileID).Error("search run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search run failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"newSignals": res.NewSignals,
		"run_id":     res.Run.ID,
		"status":     res.Run.Status,
		"errors":     res.Run.Errors,
	})
}

func (s *Server) handleSourceSignals(c *gin.Context) {
	source := types.SourceType(c.Param("source"))

	days, err := parseDaysBack(c.Query("daysBack"), s.runner.WindowDays())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filters := types.ProfileFilters{
		Industry: strings.TrimSpace(c.Query("industry")),
		Location: strings.TrimSpace(c.Query("location")),
		Keywords: splitList(c.Query("keywords")),
	}

	res, err := s.runner.FetchSource(c.Request.Context(), source, days, filters)
	switch {
	case errors.Is(err, discovery.ErrUnknownSource):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown source " + string(source)})
		return
	case errors.Is(err, discovery.ErrInvalidWindow):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch failed"})
		return
	}

	var fetchErr *string
	if res.Failed() {
		fetchErr = &res.Err
	}
	sigs := signals.NormalizeAll(res.Signals)
	c.JSON(http.StatusOK, gin.H{
		"signals": sigs,
		"count":   len(sigs),
		"error":   fetchErr,
	})
}

func (s *Server) handleRuns(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(c.Request.Context(), store.RunQuery{
		UserID:    c.GetString(userKey),
		ProfileID: c.Query("profile_id"),
		Limit:     limit,
	})
	if err != nil {
		s.logger.WithError(err).Error("listing runs failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing runs failed"})
		return
	}
	if runs == nil {
		runs = []types.SearchRun{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleExport(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := s.store.ListSignalsWithContacts(c.Request.Context(), c.GetString(userKey))
	if err != nil {
		s.logger.WithError(err).Error("loading signals for export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Type", format.ContentType())
	c.Header("Content-Disposition", `attachment; filename="`+format.Filename(s.now())+`"`)
	c.Status(http.StatusOK)
	if err := export.Write(c.Writer, format, records); err != nil {
		s.logger.WithError(err).Warn("export write interrupted")
	}
}

// parseDaysBack reads a positive day count, using def when v is empty.
func parseDaysBack(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, errors.New("daysBack must be a positive integer")
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
