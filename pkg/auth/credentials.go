// Package auth manages the OAuth access token of the primary job board:
// it authorizes interactively when no credentials are stored, refreshes an
// expired token and persists the result with owner-only permissions.
//
// The credentials file is assumed to have a single writer. Two processes
// refreshing at the same time race on it; no file locking is done.
package auth

import (
	"encoding/json"
	"fmt"
	"time"
)

// Field names with fixed meaning in the persisted JSON object.
const (
	fieldAccessToken  = "access_token"
	fieldRefreshToken = "refresh_token"
	fieldExpiresAt    = "expires_at"
)

// Credentials is the persisted token set. Fields other than the three known
// ones are kept in extra and written back unchanged.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	// ExpiresAt is a unix timestamp in seconds.
	ExpiresAt int64

	extra map[string]json.RawMessage
}

// Expired reports whether the access token is no longer valid at now.
func (c *Credentials) Expired(now time.Time) bool {
	return c.ExpiresAt <= now.Unix()
}

// ExpiresTime returns ExpiresAt as a time.Time.
func (c *Credentials) ExpiresTime() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}

// Extra returns the raw value of a passed-through field.
func (c *Credentials) Extra(name string) (json.RawMessage, bool) {
	v, ok := c.extra[name]
	return v, ok
}

// MarshalJSON writes the known fields plus every passed-through field.
func (c Credentials) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.extra)+3)
	for k, v := range c.extra {
		out[k] = v
	}
	out[fieldAccessToken] = c.AccessToken
	out[fieldRefreshToken] = c.RefreshToken
	out[fieldExpiresAt] = c.ExpiresAt
	return json.Marshal(out)
}

// UnmarshalJSON reads the known fields and keeps the rest verbatim.
func (c *Credentials) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var decoded Credentials
	if err := decodeField(raw, fieldAccessToken, &decoded.AccessToken); err != nil {
		return err
	}
	if err := decodeField(raw, fieldRefreshToken, &decoded.RefreshToken); err != nil {
		return err
	}
	if err := decodeField(raw, fieldExpiresAt, &decoded.ExpiresAt); err != nil {
		return err
	}

	delete(raw, fieldAccessToken)
	delete(raw, fieldRefreshToken)
	delete(raw, fieldExpiresAt)
	if len(raw) > 0 {
		decoded.extra = raw
	}

	*c = decoded
	return nil
}

func decodeField(raw map[string]json.RawMessage, name string, dst any) error {
	v, ok := raw[name]
	if !ok || string(v) == "null" {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("credentials field %s: %w", name, err)
	}
	return nil
}

// TokenResponse is a token endpoint answer. Raw keeps every field of the
// response object.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`

	Raw map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the raw object.
func (r *TokenResponse) UnmarshalJSON(data []byte) error {
	type plain TokenResponse
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &decoded.Raw); err != nil {
		return err
	}
	*r = TokenResponse(decoded)
	return nil
}

// NewCredentials converts a token response received at requestTime.
// expires_in becomes an absolute expires_at; every other response field is
// passed through.
func NewCredentials(resp *TokenResponse, requestTime time.Time) *Credentials {
	creds := &Credentials{}
	creds.apply(resp, requestTime)
	return creds
}

// apply merges resp into c. A response without a refresh token keeps the
// current one.
func (c *Credentials) apply(resp *TokenResponse, requestTime time.Time) {
	if len(resp.Raw) > 0 && c.extra == nil {
		c.extra = make(map[string]json.RawMessage, len(resp.Raw))
	}
	for k, v := range resp.Raw {
		switch k {
		case fieldAccessToken, fieldRefreshToken, fieldExpiresAt:
			continue
		}
		c.extra[k] = v
	}

	c.AccessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		c.RefreshToken = resp.RefreshToken
	}
	c.ExpiresAt = requestTime.Unix() + resp.ExpiresIn
}
