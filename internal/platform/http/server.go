package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"valutatrade/internal/config"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Start serves the API until ctx is cancelled, then drains in-flight
// requests within shutdownTimeout.
func Start(ctx context.Context, cfg config.HTTPServer, router *chi.Mux) error {
	addr := net.JoinHostPort("", cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	logrus.Infof("HTTP server listening on port %s", cfg.Port)

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		logrus.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		return err
	}
}
