// Package ratelimit paces requests to a single provider.
// It enforces an optional minimum interval between requests and, after the
// provider answers 429 Too Many Requests, holds further requests back until
// the Retry-After period is over. The throttled request itself is not
// repeated.
package ratelimit

import (
	"time"
)

// DefaultCooldown applies when a 429 response carries no usable Retry-After header.
const DefaultCooldown = 5 * time.Second

// MaxCooldown caps a provider-announced Retry-After.
const MaxCooldown = 5 * time.Minute

// State is a snapshot of a provider's pacing state.
type State struct {
	// Provider is the provider name the state belongs to.
	Provider string `json:"provider"`

	// BlockedUntil is when the current cool-down ends (zero if none).
	BlockedUntil time.Time `json:"blocked_until"`

	// NextSlot is the earliest time the next request may start.
	NextSlot time.Time `json:"next_slot"`

	// LastStatus is the last HTTP status observed.
	LastStatus int `json:"last_status"`

	// Cooldowns counts 429 responses seen.
	Cooldowns int `json:"cooldowns"`
}

// IsBlocked reports whether a cool-down is active at now.
func (s *State) IsBlocked(now time.Time) bool {
	return now.Before(s.BlockedUntil)
}

// TimeUntilReset returns the remaining cool-down at now, or 0.
func (s *State) TimeUntilReset(now time.Time) time.Duration {
	d := s.BlockedUntil.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// earliestStart returns the first instant a request may start at or after now.
func (s *State) earliestStart(now time.Time) time.Time {
	start := now
	if s.BlockedUntil.After(start) {
		start = s.BlockedUntil
	}
	if s.NextSlot.After(start) {
		start = s.NextSlot
	}
	return start
}
