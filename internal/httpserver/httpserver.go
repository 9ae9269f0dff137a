// Package httpserver exposes the watcher's observability surface:
// health, status and Prometheus metrics.
package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hawkeye/internal/metrics"
	"hawkeye/internal/status"
)

// Server wraps the HTTP server with its dependencies.
type Server struct {
	router  *gin.Engine
	status  *status.Cell
	metrics *metrics.Metrics
}

// New creates a new observability HTTP server.
func New(st *status.Cell, m *metrics.Metrics) *Server {
	s := &Server{status: st, metrics: m}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	router := gin.New()
	router.Use(gin.Recovery(), s.instrument())

	router.GET("/healthcheck", s.handleHealthcheck)
	router.GET("/status", s.handleStatus)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router = router
}

// instrument records every request's latency and outcome, mirroring the
// Record* pattern the rest of the package family uses.
func (s *Server) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		c.Next()
		s.metrics.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start).Seconds())
	}
}

// Run starts the HTTP server on addr, blocking until the listener fails.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler exposes the underlying gin engine, so the supervisor can run it
// behind an http.Server it controls directly (for graceful shutdown).
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealthcheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.status.Snapshot())
}
