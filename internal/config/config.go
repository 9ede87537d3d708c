// Package config loads the salary-stats settings from the environment and
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Sternrassler/lang-salary-stats/pkg/stats"
	"github.com/gotify/configor"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is read from the working directory when Load gets no files.
const DefaultEnvFile = ".env"

// ErrConfigurationMissing is matched by MissingError.
var ErrConfigurationMissing = errors.New("configuration missing")

// MissingError lists every required key that has no value.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("configuration missing: %s", strings.Join(e.Keys, ", "))
}

// Is reports whether target is ErrConfigurationMissing.
func (e *MissingError) Is(target error) bool {
	return target == ErrConfigurationMissing
}

// Config is the full application configuration.
type Config struct {
	Langs       string `default:"JavaScript, Java, Python" env:"LANGS"`
	City        string `default:"" env:"CITY"`
	Days        int    `default:"30" env:"DAYS"`
	BatchPolicy string `default:"fail-fast" env:"BATCH_POLICY"`

	Log struct {
		Level  string `default:"info" env:"LOG_LEVEL"`
		Pretty *bool  `default:"true" env:"LOG_PRETTY"`
	}

	HTTP struct {
		UserAgent string        `default:"lang-salary-stats/1.0" env:"USER_AGENT"`
		Timeout   time.Duration `default:"30s" env:"HTTP_TIMEOUT"`
		PerPage   int           `default:"100" env:"PER_PAGE"`
	}

	HeadHunter struct {
		APIURL          string        `default:"https://api.hh.ru" env:"HH_API_URL"`
		AuthorizeURL    string        `default:"https://hh.ru/oauth/authorize" env:"HH_AUTHORIZE_URL"`
		TokenURL        string        `default:"https://hh.ru/oauth/token" env:"HH_TOKEN_URL"`
		ClientID        string        `default:"" env:"HH_CLIENT_ID"`
		ClientSecret    string        `default:"" env:"HH_CLIENT_SECRET"`
		RedirectURI     string        `default:"" env:"HH_REDIRECT_URI"`
		CredentialsPath string        `default:".hh_credentials.json" env:"HH_CREDENTIALS_PATH"`
		PageDelay       time.Duration `default:"3s" env:"HH_PAGE_DELAY"`
	}

	SuperJob struct {
		APIURL    string `default:"https://api.superjob.ru/2.0" env:"SJ_API_URL"`
		Key       string `default:"" env:"SJ_KEY"`
		Catalogue int    `default:"33" env:"SJ_CATALOGUE"`
	}

	RedisURL    string `default:"" env:"REDIS_URL"`
	ReportXLSX  string `default:"" env:"REPORT_XLSX"`
	MetricsAddr string `default:"" env:"METRICS_ADDR"`
}

// Load reads envFiles (DefaultEnvFile when none are given) into the process
// environment without overriding variables already set, then builds and
// validates the configuration. Missing files are skipped.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
	}

	cfg := new(Config)
	if err := configor.New(&configor.Config{}).Load(cfg); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required keys and derived values. Every absent required
// key is reported in one MissingError.
func (c *Config) Validate() error {
	var missing []string
	required := []struct {
		key   string
		value string
	}{
		{"HH_CLIENT_ID", c.HeadHunter.ClientID},
		{"HH_CLIENT_SECRET", c.HeadHunter.ClientSecret},
		{"HH_REDIRECT_URI", c.HeadHunter.RedirectURI},
		{"SJ_KEY", c.SuperJob.Key},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return &MissingError{Keys: missing}
	}

	if len(c.Languages()) == 0 {
		return fmt.Errorf("LANGS names no language")
	}

	if _, err := stats.ParsePolicy(strings.TrimSpace(c.BatchPolicy)); err != nil {
		return fmt.Errorf("BATCH_POLICY: %w", err)
	}

	if c.Days <= 0 {
		return fmt.Errorf("DAYS must be positive (got %d)", c.Days)
	}
	return nil
}

// Languages splits LANGS on commas and normalizes the entries.
func (c *Config) Languages() []string {
	return stats.NormalizeLanguages(strings.Split(c.Langs, ","))
}

// Policy returns BATCH_POLICY, falling back to fail-fast when it does not
// parse. Validate rejects such values.
func (c *Config) Policy() stats.Policy {
	policy, err := stats.ParsePolicy(strings.TrimSpace(c.BatchPolicy))
	if err != nil {
		return stats.PolicyFailFast
	}
	return policy
}

// LogPretty reports whether console log output is requested.
func (c *Config) LogPretty() bool {
	return c.Log.Pretty == nil || *c.Log.Pretty
}
