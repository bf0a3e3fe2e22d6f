package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lamnguyendev/keymart-backend/pkg/logger"
)

// Server wraps http.Server with sensible timeouts and graceful shutdown.
type Server struct {
	srv *http.Server
	log *logger.Logger
}

func NewServer(port int, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		log: log,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.srv.Addr).Info("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s.log.Info("shutting down http server")
	return s.srv.Shutdown(shutdownCtx)
}
