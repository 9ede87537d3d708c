// Package metrics exposes the Prometheus metrics of the salary-stats tools.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, auth, stats) via promauto and land in the default registry.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Path is where the exposition endpoint is mounted.
const Path = "/metrics"

// shutdownTimeout bounds the graceful stop of the metrics server.
const shutdownTimeout = 5 * time.Second

// Registry is the default Prometheus registry used by every package.
var Registry = prometheus.DefaultRegisterer

// Handler returns a mux serving the default gatherer on Path.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(Path, promhttp.Handler())
	return mux
}

// Serve listens on addr and serves Handler until ctx is done.
func Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen %s: %w", addr, err)
	}
	return ServeListener(ctx, ln)
}

// ServeListener serves Handler on ln until ctx is done, then shuts down.
func ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("Metrics endpoint listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics shutdown: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - jobstats_requests_total{provider, status} (Counter): Requests by provider and HTTP status
//   - jobstats_request_duration_seconds{provider} (Histogram): Request duration
//   - jobstats_errors_total{provider, class} (Counter): Errors by class (client, rate_limit, server, network, decode)
//
// Pacing Metrics (pkg/ratelimit):
//   - jobstats_rate_limit_cooldown_seconds{provider} (Gauge): Last cool-down announced by a 429
//   - jobstats_rate_limit_cooldowns_total{provider} (Counter): 429 responses
//   - jobstats_rate_limit_throttles_total{provider} (Counter): Requests delayed by the pacer
//
// Cache Metrics (pkg/cache):
//   - jobstats_cache_hits_total{provider} (Counter): Cache hits
//   - jobstats_cache_misses_total{provider} (Counter): Cache misses
//   - jobstats_cache_errors_total{operation} (Counter): Cache operation errors
//
// Credential Metrics (pkg/auth):
//   - jobstats_token_exchanges_total{grant_type, result} (Counter): Token endpoint calls
//   - jobstats_token_expiry_timestamp_seconds (Gauge): Expiry of the current access token
//
// Batch Metrics (pkg/stats):
//   - jobstats_batch_duration_seconds{provider, result} (Histogram): Duration of one provider batch
//   - jobstats_languages_total{provider, result} (Counter): Language searches by outcome
//
// Example Prometheus Queries:
//
//   # Area tree cache hit rate
//   sum(rate(jobstats_cache_hits_total[1h])) /
//   (sum(rate(jobstats_cache_hits_total[1h])) + sum(rate(jobstats_cache_misses_total[1h])))
//
//   # Days until the access token expires
//   (jobstats_token_expiry_timestamp_seconds - time()) / 86400
//
//   # P95 request latency per provider
//   histogram_quantile(0.95, sum by (provider, le) (rate(jobstats_request_duration_seconds_bucket[5m])))
