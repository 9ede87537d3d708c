package auth

import (
	"errors"
	"fmt"
)

// ErrExchangeFailed matches every ExchangeError via errors.Is.
var ErrExchangeFailed = errors.New("credential exchange failed")

// Grant types sent to the token endpoint.
const (
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
)

// ExchangeError is returned when the token endpoint did not hand out a token.
type ExchangeError struct {
	GrantType string
	Err       error
}

// Error implements the error interface.
func (e *ExchangeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s exchange failed", e.GrantType)
	}
	return fmt.Sprintf("%s exchange failed: %v", e.GrantType, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrExchangeFailed.
func (e *ExchangeError) Is(target error) bool {
	return target == ErrExchangeFailed
}
