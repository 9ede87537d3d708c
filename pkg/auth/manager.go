package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	exchangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobstats_token_exchanges_total",
		Help: "Token endpoint exchanges by grant type and result",
	}, []string{"grant_type", "result"})

	tokenExpiry = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jobstats_token_expiry_timestamp_seconds",
		Help: "Unix time at which the current access token expires",
	})
)

// State of the stored credentials.
type State string

const (
	StateNoCredentials State = "NO_CREDENTIALS"
	StateAuthorizing   State = "AUTHORIZING"
	StateValid         State = "VALID"
	StateExpired       State = "EXPIRED"
)

// Config holds the authorization-code parameters.
type Config struct {
	AuthorizeURL string
	ClientID     string
	RedirectURI  string
}

// Manager hands out a valid access token, authorizing or refreshing as needed.
// It is not safe for concurrent use.
type Manager struct {
	store      Store
	exchanger  Exchanger
	authorizer Authorizer
	config     Config
	logger     zerolog.Logger
	now        func() time.Time
}

// NewManager creates a manager. authorizer may be nil, in which case a
// missing credentials file is an error.
func NewManager(store Store, exchanger Exchanger, authorizer Authorizer, cfg Config) *Manager {
	return &Manager{
		store:      store,
		exchanger:  exchanger,
		authorizer: authorizer,
		config:     cfg,
		logger:     log.With().Str("component", "auth").Logger(),
		now:        time.Now,
	}
}

// State reports the state of the stored credentials without changing them.
func (m *Manager) State(ctx context.Context) (State, error) {
	creds, err := m.store.Load()
	switch {
	case errors.Is(err, ErrNoCredentials):
		return StateNoCredentials, nil
	case err != nil:
		return "", err
	case creds.Expired(m.now()):
		return StateExpired, nil
	default:
		return StateValid, nil
	}
}

// Token returns a valid access token and its expiry.
func (m *Manager) Token(ctx context.Context) (string, time.Time, error) {
	creds, err := m.store.Load()
	switch {
	case errors.Is(err, ErrNoCredentials):
		creds, err = m.authorize(ctx)
	case err != nil:
		return "", time.Time{}, err
	case creds.Expired(m.now()):
		m.logger.Info().
			Str("state", string(StateExpired)).
			Time("expired_at", creds.ExpiresTime()).
			Msg("Access token expired - refreshing")
		creds, err = m.refresh(ctx, creds)
	}
	if err != nil {
		return "", time.Time{}, err
	}

	tokenExpiry.Set(float64(creds.ExpiresAt))
	return creds.AccessToken, creds.ExpiresTime(), nil
}

func (m *Manager) authorize(ctx context.Context) (*Credentials, error) {
	if m.authorizer == nil {
		return nil, fmt.Errorf("%w and no authorizer configured", ErrNoCredentials)
	}

	authURL, err := AuthorizationURL(m.config.AuthorizeURL, m.config.ClientID, m.config.RedirectURI)
	if err != nil {
		return nil, err
	}

	m.logger.Info().Str("state", string(StateAuthorizing)).Msg("No stored credentials - starting authorization")

	code, err := m.authorizer.Authorize(ctx, authURL)
	if err != nil {
		return nil, fmt.Errorf("authorize: %w", err)
	}

	requestTime := m.now()
	resp, err := m.exchange(GrantAuthorizationCode, func() (*TokenResponse, error) {
		return m.exchanger.ExchangeCode(ctx, code)
	})
	if err != nil {
		return nil, err
	}

	creds := NewCredentials(resp, requestTime)
	if err := m.store.Save(creds); err != nil {
		return nil, fmt.Errorf("save credentials: %w", err)
	}

	m.logger.Info().Time("expires_at", creds.ExpiresTime()).Msg("Authorization complete")
	return creds, nil
}

func (m *Manager) refresh(ctx context.Context, creds *Credentials) (*Credentials, error) {
	requestTime := m.now()
	resp, err := m.exchange(GrantRefreshToken, func() (*TokenResponse, error) {
		return m.exchanger.Refresh(ctx, creds.RefreshToken)
	})
	if err != nil {
		return nil, err
	}

	creds.apply(resp, requestTime)
	if err := m.store.Save(creds); err != nil {
		return nil, fmt.Errorf("save credentials: %w", err)
	}

	m.logger.Info().Time("expires_at", creds.ExpiresTime()).Msg("Access token refreshed")
	return creds, nil
}

// exchange runs one token endpoint call and normalises its failure.
func (m *Manager) exchange(grantType string, call func() (*TokenResponse, error)) (*TokenResponse, error) {
	resp, err := call()
	if err == nil && (resp == nil || resp.AccessToken == "") {
		err = errors.New("response carries no access token")
	}
	if err != nil {
		exchangesTotal.WithLabelValues(grantType, "error").Inc()
		m.logger.Error().Err(err).Str("grant_type", grantType).Msg("Token exchange failed")
		return nil, &ExchangeError{GrantType: grantType, Err: err}
	}

	exchangesTotal.WithLabelValues(grantType, "ok").Inc()
	return resp, nil
}
