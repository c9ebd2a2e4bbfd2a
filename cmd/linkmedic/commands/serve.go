package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Sumatoshi-tech/linkmedic/pkg/observability"
)

const (
	metricsReadHeaderTimeout = 5 * time.Second
	metricsShutdownTimeout   = 5 * time.Second
)

// serveMetrics exposes /metrics, /healthz and /readyz on addr until ctx is
// done. It does nothing when addr is empty.
func (s *session) serveMetrics(ctx context.Context, addr string) {
	if addr == "" {
		return
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           observability.NewMux(s.providers.Tracer, s.providers.MetricsHandler),
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("serving metrics", "addr", addr)
}
