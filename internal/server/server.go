package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"iris/internal/assist"
	"iris/internal/logging"
	"iris/internal/memory"
	"iris/internal/speech"
)

// Asker runs one image upload through the full visual-memory flow.
type Asker interface {
	Ask(ctx context.Context, req assist.AskRequest) (assist.Result, error)
}

// ReadyFunc reports whether one upstream dependency is usable. A nil
// return means ready; the error text is surfaced on /health.
type ReadyFunc func() error

// Options carries everything the server needs. Transcriber and
// Synthesizer may be nil; their endpoints then answer 503.
type Options struct {
	Host           string
	Port           int
	EnableCORS     bool
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	Pipeline    Asker
	Store       memory.Store
	Transcriber speech.Transcriber
	Synthesizer speech.Synthesizer

	// Checks maps a component name to its readiness probe.
	Checks map[string]ReadyFunc

	Logger logging.Logger
}

// Server is the HTTP boundary of the service.
type Server struct {
	opts       Options
	engine     *gin.Engine
	httpServer *http.Server
	registry   *prometheus.Registry
	metrics    *requestMetrics
	logger     logging.Logger
	startTime  time.Time
}

// New builds the router and binds all routes. It does not listen yet.
func New(opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 60 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 120 * time.Second
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	if opts.EnableCORS {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"}
		engine.Use(cors.New(corsConfig))
	}

	registry := prometheus.NewRegistry()
	metrics := newRequestMetrics(registry)
	engine.Use(metrics.middleware())

	s := &Server{
		opts:      opts,
		engine:    engine,
		registry:  registry,
		metrics:   metrics,
		logger:    logging.OrNop(opts.Logger),
		startTime: time.Now(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := s.engine.Group("/api")
	{
		api.POST("/vision", s.handleVision)
		api.GET("/memory", s.handleMemoryList)
		api.DELETE("/memory", s.handleMemoryClear)
		api.POST("/speech/transcribe", s.handleTranscribe)
		api.POST("/speech/synthesize", s.handleSynthesize)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on http://%s", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
