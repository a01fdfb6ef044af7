package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rgb-tools/rgb-multisig-bridge/internal/logger"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge/auth"
)

// Server is the bridge's HTTP server with graceful shutdown support.
type Server struct {
	server       *http.Server
	port         uint16
	shutdownOnce sync.Once
}

// NewServer creates the API HTTP server on the given port.
//
// The server is created in a stopped state; call Start to begin serving.
// Read and write timeouts are intentionally unset: uploads and downloads can
// be large and slow, so only the header read is bounded.
func NewServer(port uint16, b *bridge.Bridge, tokens *auth.TokenService) *Server {
	router := NewRouter(b, tokens)

	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		port: port,
	}
}

// Start starts the HTTP server and blocks until the context is cancelled or
// the listener fails. Cancellation triggers graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "port", s.port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
				// context was cancelled, error is not needed
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		// don't use the cancelled ctx, it would abort in-flight requests
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown. Safe to call multiple times and
// concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", "error", err)
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server listens on.
func (s *Server) Port() uint16 {
	return s.port
}
