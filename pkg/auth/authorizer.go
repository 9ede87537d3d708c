package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
)

// Exchanger talks to the provider's token endpoint.
type Exchanger interface {
	ExchangeCode(ctx context.Context, code string) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// Authorizer shows the authorization URL to the user and returns the code
// the provider handed back.
type Authorizer interface {
	Authorize(ctx context.Context, authURL string) (string, error)
}

// AuthorizationURL builds the authorization-code URL for clientID.
func AuthorizationURL(base, clientID, redirectURI string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse authorize url: %w", err)
	}
	if clientID == "" {
		return "", errors.New("client id is required")
	}

	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", clientID)
	if redirectURI != "" {
		q.Set("redirect_uri", redirectURI)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ConsolePrompt is printed before reading the code.
const ConsolePrompt = "Введите код из адресной строки браузера..."

// ConsoleAuthorizer opens the URL in a browser and reads one line with the
// code from In.
type ConsoleAuthorizer struct {
	In  io.Reader
	Out io.Writer

	// OpenURL defaults to browser.OpenURL.
	OpenURL func(string) error
}

// Authorize implements Authorizer.
func (a *ConsoleAuthorizer) Authorize(ctx context.Context, authURL string) (string, error) {
	open := a.OpenURL
	if open == nil {
		open = browser.OpenURL
	}

	fmt.Fprintf(a.Out, "Authorization URL: %s\n", authURL)
	if err := open(authURL); err != nil {
		log.Warn().Err(err).Msg("Could not open browser - open the URL manually")
	}
	fmt.Fprintln(a.Out, ConsolePrompt)

	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(a.In).ReadString('\n')
		if errors.Is(err, io.EOF) && line != "" {
			err = nil
		}
		done <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("read authorization code: %w", r.err)
		}
		code := strings.TrimSpace(r.line)
		if code == "" {
			return "", errors.New("empty authorization code")
		}
		return code, nil
	}
}
