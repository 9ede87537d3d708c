// Command salary-stats prints average salaries per programming language for
// SuperJob and HeadHunter. It is configured through the environment and an
// optional .env file.
package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/lang-salary-stats/internal/config"
	"github.com/Sternrassler/lang-salary-stats/pkg/auth"
	"github.com/Sternrassler/lang-salary-stats/pkg/cache"
	"github.com/Sternrassler/lang-salary-stats/pkg/client"
	"github.com/Sternrassler/lang-salary-stats/pkg/headhunter"
	"github.com/Sternrassler/lang-salary-stats/pkg/logging"
	"github.com/Sternrassler/lang-salary-stats/pkg/metrics"
	"github.com/Sternrassler/lang-salary-stats/pkg/ratelimit"
	"github.com/Sternrassler/lang-salary-stats/pkg/report"
	"github.com/Sternrassler/lang-salary-stats/pkg/stats"
	"github.com/Sternrassler/lang-salary-stats/pkg/superjob"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("salary-stats failed")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	return newApp(cfg, os.Stdin, os.Stdout, os.Stderr).run(ctx)
}

// app wires one run. Tables go to out, logs and prompts to errOut.
type app struct {
	cfg    *config.Config
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	// progress receives the per-provider bars; nil disables them.
	progress io.Writer
	// openURL opens the authorization page; nil means the system browser.
	openURL func(string) error
	now     func() time.Time
}

func newApp(cfg *config.Config, in io.Reader, out, errOut io.Writer) *app {
	return &app{
		cfg:      cfg,
		in:       in,
		out:      out,
		errOut:   errOut,
		progress: errOut,
		now:      time.Now,
	}
}

func (a *app) run(ctx context.Context) error {
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(a.cfg.Log.Level),
		Pretty: a.cfg.LogPretty(),
		Output: a.errOut,
		RunID:  logging.NewRunID(),
	})
	logger := logging.NewLogger("main")

	if a.cfg.MetricsAddr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := metrics.Serve(metricsCtx, a.cfg.MetricsAddr); err != nil {
				logger.Error().Err(err).Msg("Metrics endpoint stopped")
			}
		}()
	}

	areaCache := a.openCache(ctx, logger)
	if areaCache != nil {
		defer areaCache.Close()
	}

	reports := make([]*stats.Report, 0, 2)

	sj, err := a.runSuperJob(ctx, logger)
	if err != nil {
		return fmt.Errorf("%s: %w", superjob.Name, err)
	}
	reports = append(reports, sj)

	hh, expiresAt, err := a.runHeadHunter(ctx, logger, areaCache)
	if err != nil {
		return fmt.Errorf("%s: %w", headhunter.Name, err)
	}
	reports = append(reports, hh)

	logger.Warn().
		Time("expires_at", expiresAt).
		Msgf("HeadHunter access token will live %.2f more days", daysLeft(expiresAt, a.now()))

	if a.cfg.ReportXLSX != "" {
		if err := report.ExportXLSX(a.cfg.ReportXLSX, reports...); err != nil {
			return err
		}
		logger.Info().Str("path", a.cfg.ReportXLSX).Msg("Report exported")
	}

	return nil
}

// openCache connects to REDIS_URL. The cache is optional, so a connection
// failure only disables it.
func (a *app) openCache(ctx context.Context, logger zerolog.Logger) *cache.Manager {
	if a.cfg.RedisURL == "" {
		return nil
	}
	mgr, err := cache.NewManagerFromURL(ctx, a.cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("Area cache disabled")
		return nil
	}
	logger.Debug().Msg("Area cache connected")
	return mgr
}

func (a *app) runSuperJob(ctx context.Context, logger zerolog.Logger) (*stats.Report, error) {
	c, err := client.New(client.Config{
		Provider:    superjob.ProviderID,
		BaseURL:     a.cfg.SuperJob.APIURL,
		UserAgent:   a.cfg.HTTP.UserAgent,
		Timeout:     a.cfg.HTTP.Timeout,
		Header:      superjob.Header(a.cfg.SuperJob.Key),
		RateLimiter: ratelimit.NewTracker(superjob.ProviderID, 0, logger),
	})
	if err != nil {
		return nil, err
	}

	source := superjob.New(superjob.Config{
		Client:    c,
		Catalogue: a.cfg.SuperJob.Catalogue,
		Count:     a.cfg.HTTP.PerPage,
	})
	return a.collect(ctx, source)
}

func (a *app) runHeadHunter(ctx context.Context, logger zerolog.Logger, areaCache *cache.Manager) (*stats.Report, time.Time, error) {
	clientCfg := client.Config{
		Provider:    headhunter.ProviderID,
		BaseURL:     a.cfg.HeadHunter.APIURL,
		UserAgent:   a.cfg.HTTP.UserAgent,
		Timeout:     a.cfg.HTTP.Timeout,
		RateLimiter: ratelimit.NewTracker(headhunter.ProviderID, 0, logger),
	}
	if areaCache != nil {
		clientCfg.Cache = areaCache
	}
	c, err := client.New(clientCfg)
	if err != nil {
		return nil, time.Time{}, err
	}

	manager := auth.NewManager(
		auth.NewFileStore(a.cfg.HeadHunter.CredentialsPath),
		&headhunter.TokenExchanger{
			Client:       c,
			TokenURL:     a.cfg.HeadHunter.TokenURL,
			ClientID:     a.cfg.HeadHunter.ClientID,
			ClientSecret: a.cfg.HeadHunter.ClientSecret,
			RedirectURI:  a.cfg.HeadHunter.RedirectURI,
		},
		&auth.ConsoleAuthorizer{In: a.in, Out: a.errOut, OpenURL: a.openURL},
		auth.Config{
			AuthorizeURL: a.cfg.HeadHunter.AuthorizeURL,
			ClientID:     a.cfg.HeadHunter.ClientID,
			RedirectURI:  a.cfg.HeadHunter.RedirectURI,
		},
	)

	token, expiresAt, err := manager.Token(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}

	source := headhunter.New(headhunter.Config{
		Client:    c,
		Token:     token,
		PerPage:   a.cfg.HTTP.PerPage,
		PageDelay: a.cfg.HeadHunter.PageDelay,
	})
	r, err := a.collect(ctx, source)
	if err != nil {
		return nil, time.Time{}, err
	}
	return r, expiresAt, nil
}

// collect runs one batch and prints its table as soon as it is done.
func (a *app) collect(ctx context.Context, source stats.Source) (*stats.Report, error) {
	languages := a.cfg.Languages()
	collectorCfg := stats.Config{Policy: a.cfg.Policy()}

	var bar *report.Progress
	if a.progress != nil {
		bar = report.NewProgress(a.progress, source.Name(), len(languages))
		collectorCfg.Progress = bar.Observe
	}

	r, err := stats.NewCollector(source, collectorCfg).Compute(ctx, languages, a.cfg.City, a.cfg.Days)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return nil, err
	}

	if err := report.RenderReport(a.out, r); err != nil {
		return nil, err
	}
	return r, nil
}

// daysLeft returns the days until expiresAt rounded to two decimals, never
// below zero.
func daysLeft(expiresAt, now time.Time) float64 {
	d := expiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return math.Round(d.Hours()/24*100) / 100
}
