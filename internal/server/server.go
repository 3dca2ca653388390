// Package server exposes the transform pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vtprint/vtp/pkg/config"
	"github.com/vtprint/vtp/pkg/pipeline"
	"github.com/vtprint/vtp/pkg/region"
)

// DefaultMaxBody caps the size of an uploaded program.
const DefaultMaxBody = 256 << 20

// Options configures a Server.
type Options struct {
	Config *config.Config
	Table  *region.Table
	Runner *pipeline.Runner
	Logger *log.Logger
	// Gatherer serves /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
	// MaxBody caps request bodies in bytes.
	MaxBody int64
}

// Server handles the HTTP API. One project is loaded at startup and shared
// by every request.
type Server struct {
	cfg        *config.Config
	table      *region.Table
	classifier *region.Classifier
	runner     *pipeline.Runner
	logger     *log.Logger
	gatherer   prometheus.Gatherer
	maxBody    int64
}

// New returns a Server for a validated config and its region table.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Runner == nil {
		opts.Runner = pipeline.NewRunner(nil, nil, opts.Logger)
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = DefaultMaxBody
	}
	policy, _ := region.ParseOutsidePolicy(opts.Config.Outside)
	return &Server{
		cfg:        opts.Config,
		table:      opts.Table,
		classifier: opts.Table.Classifier(policy),
		runner:     opts.Runner,
		logger:     opts.Logger,
		gatherer:   opts.Gatherer,
		maxBody:    opts.MaxBody,
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Get("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/regions", s.regions)
		r.Post("/classify", s.classify)
		r.Post("/transform", s.transform)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
