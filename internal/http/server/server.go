// Package server levanta el http.Server con apagado ordenado.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dropDatabas3/cachegate/internal/observability/logger"
)

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Run sirve handler hasta que ctx se cancele y luego espera (hasta ShutdownTimeout)
// a que terminen las requests en curso.
func Run(ctx context.Context, cfg Config, handler http.Handler) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, cfg.ShutdownTimeout, handler)
}

// Serve es Run sobre un listener ya abierto.
func Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration, handler http.Handler) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	log := logger.Named("http")

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", logger.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("http server shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
