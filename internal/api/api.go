// Package api exposes the HTTP surface of the YAHA bot.
//
// It serves the Telegram webhook endpoint plus a health probe. All domain
// work happens in the flow dispatcher; this layer only decodes updates and
// shapes HTTP responses.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DefaultAddr is the default listen address for the API server.
const DefaultAddr = ":8080"

// Server timeout configuration constants.
const (
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// UpdateHandler processes decoded Telegram updates. The flow dispatcher is
// the production implementation.
type UpdateHandler interface {
	HandleCallback(ctx context.Context, chatID int64, callbackID, token string) error
	HandleText(ctx context.Context, chatID int64, text string) error
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server is the YAHA HTTP server.
type Server struct {
	addr    string
	handler UpdateHandler
	httpSrv *http.Server
}

// NewServer creates the API server around an update handler.
func NewServer(handler UpdateHandler, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{addr: cfg.Addr, handler: handler}
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook/telegram", s.webhookHandler)
	mux.HandleFunc("/health", s.healthHandler)

	s.httpSrv = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", s.addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		slog.Info("Server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeOK(w)
}
