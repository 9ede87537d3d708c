// Package superjob adapts the SuperJob API (api.superjob.ru) to stats.Source.
//
// Search pages are 0-based and the response flag "more" marks the last one.
// Requests authenticate with the X-Api-App-Id header; towns are filtered by
// name, so no area lookup is needed.
package superjob

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/lang-salary-stats/pkg/client"
	"github.com/Sternrassler/lang-salary-stats/pkg/pagination"
	"github.com/Sternrassler/lang-salary-stats/pkg/salary"
	"github.com/Sternrassler/lang-salary-stats/pkg/stats"
)

const (
	// Name is the display name.
	Name = "SuperJob"
	// ProviderID labels requests, metrics and cache keys.
	ProviderID = "sj"
	// Currency is the domestic currency code.
	Currency = "rub"

	DefaultAPIURL = "https://api.superjob.ru/2.0"

	// AppIDHeader carries the application secret key.
	AppIDHeader = "X-Api-App-Id"

	// DefaultCatalogue is the "IT, Internet, telecom" catalogue.
	DefaultCatalogue = 33
	// DefaultCount is the largest page size the API accepts.
	DefaultCount = 100

	vacanciesPath = "/vacancies/"
)

// Header returns the per-request headers for an application key.
func Header(key string) http.Header {
	return http.Header{AppIDHeader: []string{key}}
}

// Config holds Source settings.
type Config struct {
	// Client must send Header(key) with every request.
	Client *client.Client
	// Catalogue defaults to DefaultCatalogue.
	Catalogue int
	// Count defaults to DefaultCount.
	Count int
	// MaxPages caps pages per query (0 = unlimited).
	MaxPages int
}

// Source implements stats.Source for SuperJob.
type Source struct {
	client    *client.Client
	catalogue int
	count     int
	maxPages  int
}

var _ stats.Source = (*Source)(nil)

// New creates a SuperJob source.
func New(cfg Config) *Source {
	s := &Source{
		client:    cfg.Client,
		catalogue: cfg.Catalogue,
		count:     cfg.Count,
		maxPages:  cfg.MaxPages,
	}
	if s.catalogue <= 0 {
		s.catalogue = DefaultCatalogue
	}
	if s.count <= 0 {
		s.count = DefaultCount
	}
	return s
}

// Name implements stats.Source.
func (s *Source) Name() string { return Name }

// Currency implements stats.Source.
func (s *Source) Currency() string { return Currency }

// vacanciesResponse is one page of GET /vacancies/.
type vacanciesResponse struct {
	Objects []vacancy `json:"objects"`
	Total   int       `json:"total"`
	More    bool      `json:"more"`
}

type vacancy struct {
	ID          int    `json:"id"`
	Profession  string `json:"profession"`
	PaymentFrom *int   `json:"payment_from"`
	PaymentTo   *int   `json:"payment_to"`
	Currency    string `json:"currency"`
}

// Search implements stats.Source.
func (s *Source) Search(ctx context.Context, q stats.Query) (*pagination.Page[salary.Range], error) {
	params := url.Values{}
	params.Set("keyword", q.Language)
	params.Set("date_published_from", strconv.FormatInt(q.DateFrom.Unix(), 10))
	params.Set("date_published_to", strconv.FormatInt(q.DateTo.Unix(), 10))
	params.Set("catalogues", strconv.Itoa(s.catalogue))
	params.Set("count", strconv.Itoa(s.count))
	if q.City != "" {
		params.Set("town", q.City)
	}

	fetcher := pagination.FetcherFunc[salary.Range](func(ctx context.Context, page int) (*pagination.Page[salary.Range], error) {
		pageParams := url.Values{}
		for k, v := range params {
			pageParams[k] = v
		}
		pageParams.Set("page", strconv.Itoa(page))

		var resp vacanciesResponse
		if err := s.client.GetJSON(ctx, vacanciesPath, pageParams, &resp); err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}

		items := make([]salary.Range, 0, len(resp.Objects))
		for _, v := range resp.Objects {
			items = append(items, salary.Range{From: v.PaymentFrom, To: v.PaymentTo, Currency: v.Currency})
		}

		return &pagination.Page[salary.Range]{
			Items: items,
			Found: resp.Total,
			Index: page,
			More:  resp.More,
		}, nil
	})

	return pagination.FetchAll[salary.Range](ctx, fetcher, pagination.Config{
		FirstPage: 0,
		MaxPages:  s.maxPages,
		Label:     ProviderID + ":" + q.Language,
	})
}
