package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/health"
)

// listen opens the TCP listener for cfg, capped at cfg.MaxConns
// simultaneous connections when that is positive.
func listen(port int, cfg config.ServerConfig) (net.Listener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("listening on port %d: %w", port, err)
	}
	if cfg.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.MaxConns)
	}
	return ln, nil
}

// serveUntilDone serves on ln until ctx is cancelled, then shuts the server
// down within cfg.ShutdownTimeout.
func serveUntilDone(ctx context.Context, name string, ln net.Listener, handler http.Handler, cfg config.ServerConfig) error {
	server := &http.Server{
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received", "service", name)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		shutdownErr <- server.Shutdown(shutdownCtx)
	}()

	slog.Info("service listening", "service", name, "addr", ln.Addr().String())
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("%s shutdown: %w", name, err)
	}
	slog.Info("service stopped", "service", name)
	return nil
}

// optional downgrades a failing dependency from down to degraded. The
// engine keeps answering without a cache.
func optional(check health.Check) health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		h := check(ctx)
		if h.Status == health.StatusDown {
			h.Status = health.StatusDegraded
		}
		return h
	}
}
