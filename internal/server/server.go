// Package server provides the small HTTP listener used for health
// checks next to the game engine.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dudo-games/dudo/internal/logging"
)

type Server struct {
	listener net.Listener
}

// New creates a listener on the given port.
func New(port string) (*Server, error) {
	addr := fmt.Sprintf(":%s", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	return &Server{listener: listener}, nil
}

// ServeHTTP serves srv on the listener until ctx is cancelled, then
// shuts it down gracefully.
func (s *Server) ServeHTTP(ctx context.Context, srv *http.Server) error {
	logger := logging.FromContext(ctx)

	errCh := make(chan error, 1)
	go func() {
		<-ctx.Done()

		logger.Debugf("server.Serve: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errCh <- srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(s.listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// HandleHealth returns an aliveness handler.
func HandleHealth(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
}
