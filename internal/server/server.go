package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/atikulmunna/lognorm/internal/aggregator"
	"github.com/atikulmunna/lognorm/internal/hub"
	"github.com/atikulmunna/lognorm/internal/parser"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes run statistics, live entries and metrics over HTTP.
type Server struct {
	engine     *gin.Engine
	hub        *hub.Hub
	aggregator *aggregator.Aggregator
	registry   *parser.Registry
	log        *zap.Logger
	http       *http.Server
}

// New creates the HTTP server. addr is a host:port listen address.
func New(h *hub.Hub, agg *aggregator.Aggregator, registry *parser.Registry, addr string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// Disable automatic redirects that cause 301 issues.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	s := &Server{
		engine:     engine,
		hub:        h,
		aggregator: agg,
		registry:   registry,
		log:        log.Named("server"),
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.setupRoutes()
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRoutes() {
	// Health check.
	s.engine.GET("/healthz", func(c *gin.Context) {
		stats := s.aggregator.Snapshot()
		status := "ok"
		if s.aggregator.Failed() {
			status = "failing"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":        status,
			"run_id":        stats.RunID,
			"uptime":        stats.Uptime,
			"files_watched": stats.FilesWatched,
			"eps":           stats.EPS,
			"dropped_logs":  stats.DroppedLogs,
		})
	})

	// Run statistics.
	s.engine.GET("/api/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.aggregator.Snapshot())
	})

	// Recognizer chain in evaluation order.
	s.engine.GET("/api/formats", func(c *gin.Context) {
		type format struct {
			Name    string `json:"name"`
			Format  string `json:"format"`
			Pattern string `json:"pattern"`
		}
		var out []format
		for _, r := range s.registry.Recognizers() {
			out = append(out, format{Name: r.Name(), Format: r.Format().String(), Pattern: r.Pattern()})
		}
		c.JSON(http.StatusOK, out)
	})

	// Live entries.
	s.engine.GET("/ws", s.handleWebSocket)

	// Prometheus metrics.
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// pprof profiling endpoints.
	s.engine.GET("/debug/pprof/", gin.WrapF(pprof.Index))
	s.engine.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
	s.engine.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
	s.engine.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
	s.engine.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	s.engine.GET("/debug/pprof/allocs", gin.WrapH(pprof.Handler("allocs")))
	s.engine.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
	s.engine.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutCtx)
	}
}
