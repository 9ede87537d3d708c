package cache

import (
	"net/http"
	"time"
)

// DefaultTTL applies when neither the caller nor the response gives a lifetime.
const DefaultTTL = 5 * time.Minute

// NewEntry builds an entry for body. A positive ttl wins; otherwise the
// Expires response header is used, then DefaultTTL.
func NewEntry(body []byte, headers http.Header, ttl time.Duration) *Entry {
	now := time.Now()
	entry := &Entry{
		Data:     body,
		CachedAt: now,
	}
	if headers != nil {
		entry.ContentType = headers.Get("Content-Type")
	}

	switch {
	case ttl > 0:
		entry.Expires = now.Add(ttl)
	default:
		entry.Expires = parseExpires(headers, now)
	}

	return entry
}

// parseExpires returns the Expires header time, now+DefaultTTL if the header
// is absent or malformed, and now if it lies in the past.
func parseExpires(headers http.Header, now time.Time) time.Time {
	if headers == nil {
		return now.Add(DefaultTTL)
	}

	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return now.Add(DefaultTTL)
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return now.Add(DefaultTTL)
	}

	if expires.Before(now) {
		return now
	}

	return expires
}
