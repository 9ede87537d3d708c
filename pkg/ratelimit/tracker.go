package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for request pacing.
var (
	cooldownSeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jobstats_rate_limit_cooldown_seconds",
		Help: "Length of the last cool-down announced by the provider",
	}, []string{"provider"})

	cooldownsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobstats_rate_limit_cooldowns_total",
		Help: "Total number of 429 responses by provider",
	}, []string{"provider"})

	throttlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobstats_rate_limit_throttles_total",
		Help: "Total number of requests delayed by the pacer",
	}, []string{"provider"})
)

// Tracker paces the requests of one provider. It is safe for concurrent use
// by the per-language tasks sharing a provider client.
type Tracker struct {
	mu          sync.Mutex
	state       State
	minInterval time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewTracker creates a tracker for provider. minInterval may be 0.
func NewTracker(provider string, minInterval time.Duration, logger zerolog.Logger) *Tracker {
	return &Tracker{
		state:       State{Provider: provider},
		minInterval: minInterval,
		logger:      logger,
		now:         time.Now,
	}
}

// Wait blocks until the next request may be sent, reserving that slot.
// It returns ctx.Err() if the context ends first.
func (t *Tracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	now := t.now()
	start := t.state.earliestStart(now)
	t.state.NextSlot = start.Add(t.minInterval)
	blocked := t.state.IsBlocked(now)
	t.mu.Unlock()

	delay := start.Sub(now)
	if delay <= 0 {
		return ctx.Err()
	}

	throttlesTotal.WithLabelValues(t.state.Provider).Inc()
	event := t.logger.Debug()
	if blocked {
		event = t.logger.Warn()
	}
	event.
		Str("provider", t.state.Provider).
		Dur("delay", delay).
		Bool("cooldown", blocked).
		Msg("Delaying request")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Observe records a response. A 429 starts a cool-down taken from the
// Retry-After header (seconds or HTTP date), DefaultCooldown otherwise.
func (t *Tracker) Observe(status int, headers http.Header) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.LastStatus = status
	if status != http.StatusTooManyRequests {
		return
	}

	now := t.now()
	cooldown, ok := parseRetryAfter(headers.Get("Retry-After"), now)
	if !ok {
		cooldown = DefaultCooldown
	}
	if cooldown > MaxCooldown {
		cooldown = MaxCooldown
	}

	until := now.Add(cooldown)
	if until.After(t.state.BlockedUntil) {
		t.state.BlockedUntil = until
	}
	t.state.Cooldowns++

	cooldownsTotal.WithLabelValues(t.state.Provider).Inc()
	cooldownSeconds.WithLabelValues(t.state.Provider).Set(cooldown.Seconds())

	t.logger.Warn().
		Str("provider", t.state.Provider).
		Dur("cooldown", cooldown).
		Time("blocked_until", t.state.BlockedUntil).
		Msg("Provider rate limit hit - holding further requests")
}

// State returns a snapshot of the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// parseRetryAfter parses a Retry-After value given as delta seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
