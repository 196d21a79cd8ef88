// Package web exposes the list sync core over HTTP JSON and SSE.
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"
)

// shutdownTimeout caps how long in-flight requests may delay shutdown.
const shutdownTimeout = 5 * time.Second

// Config defines the inputs for the HTTP server.
type Config struct {
	HTTPAddr string
	Handler  http.Handler
}

// Server hosts the HTTP API and SSE endpoint.
type Server struct {
	httpServer *http.Server
}

// NewServer builds a configured HTTP server.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.Handler == nil {
		return nil, errors.New("handler is required")
	}

	return &Server{
		httpServer: &http.Server{
			Addr:    httpAddr,
			Handler: config.Handler,
		},
	}, nil
}

// ListenAndServe serves until the context is cancelled, then shuts down
// gracefully. SSE connections are long-lived, so shutdown closes them
// after the drain timeout instead of waiting for them to finish.
func (s *Server) ListenAndServe(ctx context.Context) error {
	// Request contexts derive from ctx so long-lived SSE handlers unblock
	// as soon as shutdown starts.
	s.httpServer.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		log.Printf("http server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		_ = s.httpServer.Close()
	}
	return <-errCh
}
