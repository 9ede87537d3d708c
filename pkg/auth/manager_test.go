package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// memStore is an in-memory Store.
type memStore struct {
	creds *Credentials
	saves int
	err   error
}

func (s *memStore) Load() (*Credentials, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.creds == nil {
		return nil, ErrNoCredentials
	}
	c := *s.creds
	return &c, nil
}

func (s *memStore) Save(creds *Credentials) error {
	c := *creds
	s.creds = &c
	s.saves++
	return nil
}

// fakeExchanger counts token endpoint calls.
type fakeExchanger struct {
	codeCalls    int
	refreshCalls int
	gotCode      string
	gotRefresh   string
	resp         *TokenResponse
	err          error
}

func (f *fakeExchanger) ExchangeCode(_ context.Context, code string) (*TokenResponse, error) {
	f.codeCalls++
	f.gotCode = code
	return f.resp, f.err
}

func (f *fakeExchanger) Refresh(_ context.Context, refreshToken string) (*TokenResponse, error) {
	f.refreshCalls++
	f.gotRefresh = refreshToken
	return f.resp, f.err
}

type fakeAuthorizer struct {
	calls  int
	gotURL string
	code   string
}

func (f *fakeAuthorizer) Authorize(_ context.Context, authURL string) (string, error) {
	f.calls++
	f.gotURL = authURL
	return f.code, nil
}

var testNow = time.Unix(1_700_000_000, 0)

func newTestManager(store Store, ex Exchanger, az Authorizer) *Manager {
	m := NewManager(store, ex, az, Config{
		AuthorizeURL: "https://hh.ru/oauth/authorize",
		ClientID:     "client-1",
		RedirectURI:  "https://example.com/cb",
	})
	m.now = func() time.Time { return testNow }
	return m
}

func TestManager_TokenValid(t *testing.T) {
	store := &memStore{creds: &Credentials{AccessToken: "A", RefreshToken: "R", ExpiresAt: testNow.Unix() + 3600}}
	ex := &fakeExchanger{}
	m := newTestManager(store, ex, nil)

	token, expiresAt, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token != "A" {
		t.Errorf("token = %q, want A", token)
	}
	if !expiresAt.Equal(time.Unix(testNow.Unix()+3600, 0)) {
		t.Errorf("expiresAt = %v", expiresAt)
	}
	if ex.refreshCalls != 0 || ex.codeCalls != 0 {
		t.Errorf("exchanges = %d refresh / %d code, want none", ex.refreshCalls, ex.codeCalls)
	}
	if store.saves != 0 {
		t.Errorf("saves = %d, want 0", store.saves)
	}
}

func TestManager_TokenExpiredRefreshesOnce(t *testing.T) {
	store := &memStore{creds: &Credentials{AccessToken: "old", RefreshToken: "R1", ExpiresAt: testNow.Unix() - 1}}
	ex := &fakeExchanger{resp: &TokenResponse{AccessToken: "new", RefreshToken: "R2", ExpiresIn: 1209600}}
	m := newTestManager(store, ex, nil)

	token, expiresAt, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token != "new" {
		t.Errorf("token = %q, want new", token)
	}
	if ex.refreshCalls != 1 {
		t.Errorf("refresh calls = %d, want 1", ex.refreshCalls)
	}
	if ex.gotRefresh != "R1" {
		t.Errorf("refresh token sent = %q, want R1", ex.gotRefresh)
	}
	if want := time.Unix(testNow.Unix()+1209600, 0); !expiresAt.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", expiresAt, want)
	}
	if store.saves != 1 || store.creds.AccessToken != "new" || store.creds.RefreshToken != "R2" {
		t.Errorf("stored = %+v after %d saves", store.creds, store.saves)
	}

	// now valid: a second call must not refresh again
	if _, _, err := m.Token(context.Background()); err != nil {
		t.Fatalf("second Token() error = %v", err)
	}
	if ex.refreshCalls != 1 {
		t.Errorf("refresh calls after second Token() = %d, want 1", ex.refreshCalls)
	}
}

func TestManager_TokenRefreshFails(t *testing.T) {
	store := &memStore{creds: &Credentials{AccessToken: "old", RefreshToken: "R1", ExpiresAt: testNow.Unix() - 1}}
	ex := &fakeExchanger{err: errors.New("400 invalid_grant")}
	m := newTestManager(store, ex, nil)

	_, _, err := m.Token(context.Background())
	if !errors.Is(err, ErrExchangeFailed) {
		t.Fatalf("Token() error = %v, want ErrExchangeFailed", err)
	}
	var exErr *ExchangeError
	if !errors.As(err, &exErr) || exErr.GrantType != GrantRefreshToken {
		t.Errorf("error = %#v, want refresh_token ExchangeError", err)
	}
	if store.saves != 0 {
		t.Errorf("saves = %d, want 0 after failure", store.saves)
	}
}

func TestManager_TokenEmptyAccessToken(t *testing.T) {
	store := &memStore{creds: &Credentials{RefreshToken: "R1", ExpiresAt: 0}}
	ex := &fakeExchanger{resp: &TokenResponse{}}
	m := newTestManager(store, ex, nil)

	if _, _, err := m.Token(context.Background()); !errors.Is(err, ErrExchangeFailed) {
		t.Errorf("Token() error = %v, want ErrExchangeFailed", err)
	}
}

func TestManager_TokenNoCredentialsAuthorizes(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), ".hh_credentials.json"))
	ex := &fakeExchanger{resp: &TokenResponse{AccessToken: "A", RefreshToken: "R", ExpiresIn: 1209600}}
	az := &fakeAuthorizer{code: "CODE"}
	m := newTestManager(store, ex, az)

	state, err := m.State(context.Background())
	if err != nil || state != StateNoCredentials {
		t.Fatalf("State() = %v, %v; want NO_CREDENTIALS", state, err)
	}

	token, _, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token != "A" {
		t.Errorf("token = %q, want A", token)
	}
	if az.calls != 1 || ex.codeCalls != 1 || ex.gotCode != "CODE" {
		t.Errorf("authorize=%d exchange=%d code=%q", az.calls, ex.codeCalls, ex.gotCode)
	}
	if want, _ := AuthorizationURL("https://hh.ru/oauth/authorize", "client-1", "https://example.com/cb"); az.gotURL != want {
		t.Errorf("authorize url = %q, want %q", az.gotURL, want)
	}

	state, err = m.State(context.Background())
	if err != nil || state != StateValid {
		t.Errorf("State() after authorization = %v, %v; want VALID", state, err)
	}
}

func TestManager_TokenNoCredentialsWithoutAuthorizer(t *testing.T) {
	m := newTestManager(&memStore{}, &fakeExchanger{}, nil)

	if _, _, err := m.Token(context.Background()); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("Token() error = %v, want ErrNoCredentials", err)
	}
}

func TestManager_State(t *testing.T) {
	loadErr := errors.New("disk on fire")

	tests := []struct {
		name    string
		store   *memStore
		want    State
		wantErr error
	}{
		{name: "no credentials", store: &memStore{}, want: StateNoCredentials},
		{name: "valid", store: &memStore{creds: &Credentials{AccessToken: "A", ExpiresAt: testNow.Unix() + 1}}, want: StateValid},
		{name: "expired", store: &memStore{creds: &Credentials{AccessToken: "A", ExpiresAt: testNow.Unix()}}, want: StateExpired},
		{name: "load error", store: &memStore{err: loadErr}, wantErr: loadErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(tt.store, &fakeExchanger{}, nil)
			got, err := m.State(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("State() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("State() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("State() = %v, want %v", got, tt.want)
			}
			if tt.store.saves != 0 {
				t.Error("State() must not write credentials")
			}
		})
	}
}
