// Package webhook implements an HTTP receiver for run completion webhooks.
// Deliveries are validated with package schema before they reach a Consumer;
// rejected deliveries are answered with the schema's error response.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/Backland-Labs/runclient/internal/logger"
	"github.com/Backland-Labs/runclient/internal/schema"
)

const (
	// DefaultPath is where deliveries are accepted
	DefaultPath = "/webhook"

	shutdownTimeout = 5 * time.Second
)

// ErrServerRunning is returned when attempting to start an already running server
var ErrServerRunning = errors.New("webhook server is already running")

// Consumer receives validated webhook payloads
type Consumer interface {
	HandleRun(ctx context.Context, payload *schema.WebhookPayload) error
}

// ConsumerFunc adapts a function to Consumer
type ConsumerFunc func(ctx context.Context, payload *schema.WebhookPayload) error

// HandleRun implements Consumer
func (f ConsumerFunc) HandleRun(ctx context.Context, payload *schema.WebhookPayload) error {
	return f(ctx, payload)
}

// Server receives webhook deliveries
type Server struct {
	addr     string
	path     string
	consumer Consumer
	log      *logger.Logger
	header   http.Header

	mu         sync.Mutex
	running    bool
	listener   net.Listener
	httpServer *http.Server
}

// Option customizes server construction
type Option func(*Server)

// WithPath changes the delivery path
func WithPath(path string) Option {
	return func(s *Server) {
		if path != "" {
			s.path = path
		}
	}
}

// WithLogger overrides the global logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithResponseHeader adds a header to every rejection response
func WithResponseHeader(key, value string) Option {
	return func(s *Server) {
		s.header.Add(key, value)
	}
}

// NewServer creates a server listening on addr (e.g. ":3001", "localhost:0").
// It is not started; use Start.
func NewServer(addr string, consumer Consumer, opts ...Option) *Server {
	s := &Server{
		addr:     addr,
		path:     DefaultPath,
		consumer: consumer,
		log:      logger.GetLogger(),
		header:   http.Header{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed, logged handler
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(requestID)
	r.Use(logger.HTTPMiddleware(s.log))

	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc(s.path, s.deliveryHandler)
	return r
}

// Start listens and serves until ctx is canceled.
// Returns nil on graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrServerRunning
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.running = true
	s.mu.Unlock()

	s.log.WithFields(map[string]interface{}{
		"address": listener.Addr().String(),
		"path":    s.path,
	}).Info("Webhook server listening")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.WithError(err).Warn("Webhook server shutdown failed")
		}
	}()

	err = s.httpServer.Serve(listener)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if errors.Is(err, http.ErrServerClosed) {
		s.log.Info("Webhook server stopped")
		return nil
	}
	return err
}

// Addr returns the bound address once the server is running
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) deliveryHandler(w http.ResponseWriter, r *http.Request) {
	payload, errResp := schema.ParseWebhook(r, s.header)
	if errResp != nil {
		s.log.WithField("request_id", w.Header().Get(requestIDHeader)).
			WithError(errResp).Warn("Rejected webhook delivery")
		errResp.ServeHTTP(w, r)
		return
	}

	log := s.log.WithRun(payload.RunID).WithField("status", string(payload.Status))
	if err := s.consumer.HandleRun(r.Context(), payload); err != nil {
		log.WithError(err).Error("Webhook consumer failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "consumer failed"})
		return
	}

	log.Info("Webhook delivery accepted")
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

const requestIDHeader = "X-Request-ID"

// requestID tags every response with the caller's request ID or a fresh one
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
