package auth

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestAuthorizationURL(t *testing.T) {
	got, err := AuthorizationURL("https://hh.ru/oauth/authorize", "client-1", "https://example.com/cb")
	if err != nil {
		t.Fatalf("AuthorizationURL() error = %v", err)
	}

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if u.Host != "hh.ru" || u.Path != "/oauth/authorize" {
		t.Errorf("url = %s", got)
	}
	q := u.Query()
	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %q, want code", q.Get("response_type"))
	}
	if q.Get("client_id") != "client-1" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("redirect_uri") != "https://example.com/cb" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	if q.Has("client_secret") {
		t.Error("client secret must not appear in the authorization url")
	}
}

func TestAuthorizationURL_Errors(t *testing.T) {
	if _, err := AuthorizationURL("https://hh.ru/oauth/authorize", "", "x"); err == nil {
		t.Error("expected error for empty client id")
	}
	if _, err := AuthorizationURL("http://[::1", "id", "x"); err == nil {
		t.Error("expected error for malformed base url")
	}
}

func TestConsoleAuthorizer(t *testing.T) {
	var opened string
	var out bytes.Buffer

	a := &ConsoleAuthorizer{
		In:  strings.NewReader("  abc123  \n"),
		Out: &out,
		OpenURL: func(u string) error {
			opened = u
			return nil
		},
	}

	code, err := a.Authorize(context.Background(), "https://hh.ru/oauth/authorize?client_id=x")
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if code != "abc123" {
		t.Errorf("code = %q, want abc123", code)
	}
	if opened != "https://hh.ru/oauth/authorize?client_id=x" {
		t.Errorf("opened = %q", opened)
	}
	if !strings.Contains(out.String(), ConsolePrompt) {
		t.Errorf("output %q lacks prompt", out.String())
	}
}

func TestConsoleAuthorizer_BrowserFailureStillReadsCode(t *testing.T) {
	a := &ConsoleAuthorizer{
		In:      strings.NewReader("xyz"),
		Out:     io.Discard,
		OpenURL: func(string) error { return errors.New("no display") },
	}

	code, err := a.Authorize(context.Background(), "https://hh.ru/oauth/authorize")
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if code != "xyz" {
		t.Errorf("code = %q, want xyz", code)
	}
}

func TestConsoleAuthorizer_EmptyCode(t *testing.T) {
	a := &ConsoleAuthorizer{
		In:      strings.NewReader("\n"),
		Out:     io.Discard,
		OpenURL: func(string) error { return nil },
	}

	if _, err := a.Authorize(context.Background(), "u"); err == nil {
		t.Error("expected error for empty code")
	}
}

func TestConsoleAuthorizer_ContextCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	a := &ConsoleAuthorizer{
		In:      pr,
		Out:     io.Discard,
		OpenURL: func(string) error { return nil },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := a.Authorize(ctx, "u"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Authorize() error = %v, want deadline exceeded", err)
	}
}
