package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	batchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobstats_batch_duration_seconds",
		Help:    "Duration of one provider batch",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
	}, []string{"provider", "result"})

	languagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobstats_languages_total",
		Help: "Language searches by provider and result",
	}, []string{"provider", "result"})
)

// Policy decides what a failed language does to its batch.
type Policy string

const (
	// PolicyFailFast cancels the remaining searches and fails the batch.
	PolicyFailFast Policy = "fail-fast"
	// PolicyPartial reports the failure and keeps the other languages.
	PolicyPartial Policy = "partial"
)

// ParsePolicy validates a policy name. Empty means PolicyFailFast.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyFailFast:
		return PolicyFailFast, nil
	case PolicyPartial:
		return PolicyPartial, nil
	default:
		return "", fmt.Errorf("unknown batch policy %q (want %q or %q)", s, PolicyFailFast, PolicyPartial)
	}
}

// Config holds collector settings.
type Config struct {
	Policy Policy
	// Progress is called once per finished language, from the search goroutine.
	Progress func(language string, err error)
}

// Collector computes statistics for one Source.
type Collector struct {
	source   Source
	policy   Policy
	progress func(string, error)
	logger   zerolog.Logger
	now      func() time.Time
}

// NewCollector creates a collector for source.
func NewCollector(source Source, cfg Config) *Collector {
	policy := cfg.Policy
	if policy == "" {
		policy = PolicyFailFast
	}
	return &Collector{
		source:   source,
		policy:   policy,
		progress: cfg.Progress,
		logger:   log.With().Str("component", "stats").Str("provider", source.Name()).Logger(),
		now:      time.Now,
	}
}

// Compute runs one search per language over the last daysAgo days and
// returns their statistics in input order. city may be empty.
func (c *Collector) Compute(ctx context.Context, languages []string, city string, daysAgo int) (*Report, error) {
	start := time.Now()
	langs := NormalizeLanguages(languages)
	now := c.now()

	report := &Report{
		Provider: c.source.Name(),
		City:     city,
		Days:     daysAgo,
	}

	c.logger.Info().
		Strs("languages", langs).
		Str("city", city).
		Int("days", daysAgo).
		Str("policy", string(c.policy)).
		Msg("Batch started")

	base := Query{
		City:     city,
		DateFrom: now.AddDate(0, 0, -daysAgo),
		DateTo:   now,
	}

	if resolver, ok := c.source.(CityResolver); ok && city != "" {
		areaID, err := resolver.ResolveCity(ctx, city)
		if err != nil {
			batchDuration.WithLabelValues(report.Provider, "error").Observe(time.Since(start).Seconds())
			return nil, fmt.Errorf("%s: resolve city %q: %w", report.Provider, city, err)
		}
		if areaID == 0 {
			c.logger.Warn().Str("city", city).Msg("City not found - searching without area filter")
		}
		base.AreaID = areaID
	}

	results := make([]LanguageStats, len(langs))
	failures := make([]*LanguageError, len(langs))

	var err error
	if c.policy == PolicyPartial {
		var g errgroup.Group
		for i, lang := range langs {
			g.Go(func() error {
				results[i], failures[i] = c.computeLanguage(ctx, base, lang)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		g, gctx := errgroup.WithContext(ctx)
		for i, lang := range langs {
			g.Go(func() error {
				var langErr *LanguageError
				results[i], langErr = c.computeLanguage(gctx, base, lang)
				if langErr != nil {
					return langErr
				}
				return nil
			})
		}
		err = g.Wait()
	}

	report.Duration = time.Since(start)
	if err != nil {
		batchDuration.WithLabelValues(report.Provider, "error").Observe(report.Duration.Seconds())
		c.logger.Error().Err(err).Dur("duration", report.Duration).Msg("Batch failed")
		return nil, err
	}

	for i := range langs {
		if failures[i] != nil {
			report.Failures = append(report.Failures, failures[i])
			continue
		}
		report.Stats = append(report.Stats, results[i])
	}

	result := "ok"
	if len(report.Failures) > 0 {
		result = "partial"
		for _, f := range report.Failures {
			c.logger.Warn().Err(f.Err).Str("language", f.Language).Msg("Language skipped")
		}
	}
	batchDuration.WithLabelValues(report.Provider, result).Observe(report.Duration.Seconds())

	c.logger.Info().
		Int("languages", len(report.Stats)).
		Int("failed", len(report.Failures)).
		Msgf("%s process is completed in %.2f sec", report.Provider, report.Duration.Seconds())

	return report, nil
}

// computeLanguage runs and summarises one language search.
func (c *Collector) computeLanguage(ctx context.Context, base Query, lang string) (LanguageStats, *LanguageError) {
	q := base
	q.Language = lang

	page, err := c.source.Search(ctx, q)
	if err != nil {
		languagesTotal.WithLabelValues(c.source.Name(), "error").Inc()
		c.report(lang, err)
		return LanguageStats{}, &LanguageError{Provider: c.source.Name(), Language: lang, Err: err}
	}

	st := Summarize(lang, c.source.Currency(), page)
	languagesTotal.WithLabelValues(c.source.Name(), "ok").Inc()
	c.logger.Debug().
		Str("language", lang).
		Int("found", st.VacanciesFound).
		Int("processed", st.VacanciesProcessed).
		Int("average", st.AverageSalary).
		Msg("Language done")
	c.report(lang, nil)
	return st, nil
}

func (c *Collector) report(lang string, err error) {
	if c.progress != nil {
		c.progress(lang, err)
	}
}
