package headhunter

import (
	"context"
	"net/url"

	"github.com/Sternrassler/lang-salary-stats/pkg/auth"
	"github.com/Sternrassler/lang-salary-stats/pkg/client"
)

// TokenExchanger implements auth.Exchanger against the OAuth token endpoint.
type TokenExchanger struct {
	Client       *client.Client
	TokenURL     string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

var _ auth.Exchanger = (*TokenExchanger)(nil)

// ExchangeCode trades an authorization code for tokens.
func (e *TokenExchanger) ExchangeCode(ctx context.Context, code string) (*auth.TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", auth.GrantAuthorizationCode)
	form.Set("client_id", e.ClientID)
	form.Set("client_secret", e.ClientSecret)
	form.Set("code", code)
	if e.RedirectURI != "" {
		form.Set("redirect_uri", e.RedirectURI)
	}
	return e.post(ctx, form)
}

// Refresh trades a refresh token for a new token pair.
func (e *TokenExchanger) Refresh(ctx context.Context, refreshToken string) (*auth.TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", auth.GrantRefreshToken)
	form.Set("refresh_token", refreshToken)
	return e.post(ctx, form)
}

func (e *TokenExchanger) post(ctx context.Context, form url.Values) (*auth.TokenResponse, error) {
	var resp auth.TokenResponse
	if err := e.Client.PostForm(ctx, e.TokenURL, form, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
