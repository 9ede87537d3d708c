package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNilPage is returned when a fetcher reports neither a page nor an error.
var ErrNilPage = errors.New("fetcher returned no page")

// Config holds aggregation settings.
type Config struct {
	// FirstPage is the provider's index of the first page (0 or 1).
	FirstPage int
	// MaxPages stops the aggregation after this many pages (0 = no limit).
	MaxPages int
	// PageDelay is the pause between two consecutive page requests.
	PageDelay time.Duration
	// Label identifies the query in logs.
	Label string
}

// DefaultConfig returns a configuration for 0-based providers without pauses.
func DefaultConfig() Config {
	return Config{
		FirstPage: 0,
		MaxPages:  0,
		PageDelay: 0,
	}
}

// Page is one page of a paginated search, or the merge of all of them.
type Page[T any] struct {
	// Items in provider order.
	Items []T
	// Found is the total number of matches reported by the provider.
	Found int
	// Pages is the total page count reported by the provider (0 if unknown).
	Pages int
	// Index is the page index. For a merged result it is the last page fetched.
	Index int
	// More reports whether the provider has a page after this one.
	More bool
}

// PageFetcher fetches a single page of a query.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, page int) (*Page[T], error)
}

// FetcherFunc adapts a function to PageFetcher.
type FetcherFunc[T any] func(ctx context.Context, page int) (*Page[T], error)

// FetchPage calls f(ctx, page).
func (f FetcherFunc[T]) FetchPage(ctx context.Context, page int) (*Page[T], error) {
	return f(ctx, page)
}

// FetchAll fetches pages starting at cfg.FirstPage until the fetcher reports
// no further page, and merges their items in page order.
func FetchAll[T any](ctx context.Context, fetcher PageFetcher[T], cfg Config) (*Page[T], error) {
	start := time.Now()
	merged := &Page[T]{Index: cfg.FirstPage}
	fetched := 0

	for page := cfg.FirstPage; ; page++ {
		if fetched > 0 && cfg.PageDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.PageDelay):
			}
		}

		p, err := fetcher.FetchPage(ctx, page)
		if err != nil {
			log.Debug().
				Err(err).
				Str("query", cfg.Label).
				Int("page", page).
				Msg("Page fetch failed, aborting aggregation")
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("page %d: %w", page, ErrNilPage)
		}
		fetched++

		merged.Items = append(merged.Items, p.Items...)
		merged.Found = p.Found
		merged.Pages = p.Pages
		merged.Index = page
		merged.More = p.More

		if !p.More {
			break
		}
		if cfg.MaxPages > 0 && fetched >= cfg.MaxPages {
			log.Warn().
				Str("query", cfg.Label).
				Int("max_pages", cfg.MaxPages).
				Msg("Page limit reached before the last page")
			break
		}
	}

	log.Debug().
		Str("query", cfg.Label).
		Int("pages", fetched).
		Int("items", len(merged.Items)).
		Int("found", merged.Found).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return merged, nil
}
