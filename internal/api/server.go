// Package api exposes the boost event entry points over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/manager"

	"github.com/uditkarode/cpu-event-boost/internal/boost"
	"github.com/uditkarode/cpu-event-boost/internal/display"
)

const shutdownTimeout = 5 * time.Second

var ErrNotReady = errors.New("boost coordinator not ready")

// Coordinator is the part of the boost coordinator the API drives.
type Coordinator interface {
	Snapshot() boost.Modes
	MaxBoostExpiry() time.Time
	ExpiryPending() bool
	OnDelayObserved(delay, duration time.Duration) boost.Outcome
	OnMaxBoostRequest(duration time.Duration) boost.Outcome
	Ready() <-chan struct{}
}

// DisplayPublisher publishes display power transitions to every subscriber.
type DisplayPublisher interface {
	PublishTransition(event display.Event)
}

type Options struct {
	Listen string
	// InputBoostDuration is used for max boost requests without a duration.
	InputBoostDuration time.Duration
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prom.Gatherer
}

// Server is the HTTP event ingestion surface.
type Server struct {
	coord   Coordinator
	display DisplayPublisher
	opts    Options
	logger  logr.Logger
}

var _ manager.Runnable = &Server{}

func NewServer(coord Coordinator, displayPublisher DisplayPublisher, opts Options, logger logr.Logger) *Server {
	return &Server{
		coord:   coord,
		display: displayPublisher,
		opts:    opts,
		logger:  logger,
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/display", s.handleDisplay)
		r.Post("/delay", s.handleDelay)
		r.Post("/boost", s.handleBoost)
		r.Get("/state", s.handleState)
	})

	mountHealthz(r, "/healthz", map[string]healthz.Checker{"ping": healthz.Ping})
	mountHealthz(r, "/readyz", map[string]healthz.Checker{"coordinator": s.readyCheck})

	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// Start serves until ctx is done, then shuts the listener down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving event api", "listen", s.opts.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("event api stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down event api: %w", err)
	}

	return nil
}

// mountHealthz serves the aggregated checks at prefix and each check at
// prefix/<name>.
func mountHealthz(r chi.Router, prefix string, checks map[string]healthz.Checker) {
	r.Mount(prefix, http.StripPrefix(prefix, &healthz.Handler{Checks: checks}))
}

func (s *Server) readyCheck(*http.Request) error {
	select {
	case <-s.coord.Ready():
		return nil
	default:
		return ErrNotReady
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
