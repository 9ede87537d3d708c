package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix starts every key written by this package.
const KeyPrefix = "jobstats"

// Key identifies a cached provider response.
type Key struct {
	// Provider is the short provider name ("hh", "sj").
	Provider string

	// Endpoint is the request path, e.g. "/areas".
	Endpoint string

	// Query holds the request query parameters.
	Query url.Values
}

// String generates a deterministic key string.
//
// Format: jobstats:provider:endpoint:query1=val1,val2:query2=val
func (k Key) String() string {
	parts := []string{KeyPrefix}

	if k.Provider != "" {
		parts = append(parts, k.Provider)
	}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, strings.Join(k.Query[name], ",")))
		}
	}

	return strings.Join(parts, ":")
}
