// Package server implements the HTTP server that exposes the relay's
// retrieval store, message history, and enhancement operations as a REST API.
// The server is started by the `echorelay serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/echorelay/echorelay/internal/logging"
	"github.com/echorelay/echorelay/internal/retrieval"
)

// New constructs a Server from the provided store, dependencies, and config.
// messages and enh may be nil when the corresponding feature is disabled.
func New(store retrieval.Store, deps Deps, cfg *Config) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("server: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must cover the slowest enhance round trip.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		store:    store,
		messages: deps.Messages,
		enhancer: deps.Enhancer,
		cfg:      cfg,
		log:      log,
		metrics:  newServerMetrics(reg),
		pingers:  cfg.Pingers,
	}

	if cfg.APIKey == "" {
		log.Warn("server: ECHORELAY_API_KEY not set — API authentication is disabled")
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	s.stopRL = stopRL

	protected := func(name string, h http.HandlerFunc) http.Handler {
		return s.instrument(name, authMiddleware(cfg.APIKey, rl.middleware(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/rag/upsert", protected("rag_upsert", s.handleUpsert))
	mux.Handle("POST /api/rag/query", protected("rag_query", s.handleQuery))
	mux.Handle("GET /api/rag/stores", protected("rag_stores", s.handleStores))
	mux.Handle("POST /api/messages", protected("message_append", s.handleMessageAppend))
	mux.Handle("GET /api/messages", protected("message_recent", s.handleMessageRecent))
	mux.Handle("GET /api/messages/{id}/enhanced", protected("message_enhanced", s.handleMessageEnhanced))
	mux.Handle("POST /api/messages/{id}/enhance", protected("message_enhance", s.handleMessageEnhance))
	mux.Handle("POST /api/enhance", protected("enhance_text", s.handleEnhanceText))
	mux.Handle("POST /api/enhance/recent", protected("enhance_recent", s.handleEnhanceRecent))

	// Liveness, readiness, and metrics stay unauthenticated so orchestrators
	// and scrapers work without credentials.
	mux.Handle("GET /api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Deps bundles the optional server dependencies.
type Deps struct {
	// Messages is the message history store. Nil disables /api/messages.
	Messages messageStore
	// Enhancer drives the enhancement endpoints. Nil disables /api/enhance.
	Enhancer enhancer
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// Handler returns the server's root handler, for tests driving the mux
// directly through httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
