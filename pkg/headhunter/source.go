// Package headhunter adapts the HeadHunter API (api.hh.ru) to stats.Source.
//
// Search pages are 0-based and the last one is pages-1. Searches need an
// OAuth access token; the area tree is public.
package headhunter

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/lang-salary-stats/pkg/areas"
	"github.com/Sternrassler/lang-salary-stats/pkg/client"
	"github.com/Sternrassler/lang-salary-stats/pkg/pagination"
	"github.com/Sternrassler/lang-salary-stats/pkg/salary"
	"github.com/Sternrassler/lang-salary-stats/pkg/stats"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// Name is the display name.
	Name = "HeadHunter"
	// ProviderID labels requests, metrics and cache keys.
	ProviderID = "hh"
	// Currency is the domestic currency code.
	Currency = "RUR"

	DefaultAPIURL       = "https://api.hh.ru"
	DefaultAuthorizeURL = "https://hh.ru/oauth/authorize"
	DefaultTokenURL     = "https://hh.ru/oauth/token"

	// DefaultPerPage is the largest page size the API accepts.
	DefaultPerPage = 100
	// DefaultPageDelay is the pause between pages of one query.
	DefaultPageDelay = 3 * time.Second
	// AreasCacheTTL is how long the area tree is cached.
	AreasCacheTTL = 24 * time.Hour

	vacanciesPath = "/vacancies"
	areasPath     = "/areas"
	dateLayout    = "2006-01-02"
)

// Config holds Source settings.
type Config struct {
	// Client talks to the API base URL.
	Client *client.Client
	// Token is the OAuth access token for searches.
	Token string
	// PerPage defaults to DefaultPerPage.
	PerPage int
	// PageDelay is the pause between pages; 0 disables it.
	PageDelay time.Duration
	// MaxPages caps pages per query (0 = unlimited).
	MaxPages int
}

// Source implements stats.Source and stats.CityResolver for HeadHunter.
type Source struct {
	client    *client.Client
	token     string
	perPage   int
	pageDelay time.Duration
	maxPages  int
	logger    zerolog.Logger
}

var (
	_ stats.Source       = (*Source)(nil)
	_ stats.CityResolver = (*Source)(nil)
)

// New creates a HeadHunter source.
func New(cfg Config) *Source {
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return &Source{
		client:    cfg.Client,
		token:     cfg.Token,
		perPage:   perPage,
		pageDelay: cfg.PageDelay,
		maxPages:  cfg.MaxPages,
		logger:    log.With().Str("component", "headhunter").Logger(),
	}
}

// Name implements stats.Source.
func (s *Source) Name() string { return Name }

// Currency implements stats.Source.
func (s *Source) Currency() string { return Currency }

// Areas fetches the area tree. The response is cached when the client has a cache.
func (s *Source) Areas(ctx context.Context) ([]areas.Area, error) {
	var tree []areas.Area
	if err := s.client.GetJSON(ctx, areasPath, nil, &tree, client.WithCacheTTL(AreasCacheTTL)); err != nil {
		return nil, fmt.Errorf("fetch area tree: %w", err)
	}
	return tree, nil
}

// ResolveCity implements stats.CityResolver.
func (s *Source) ResolveCity(ctx context.Context, city string) (int, error) {
	tree, err := s.Areas(ctx)
	if err != nil {
		return areas.NoArea, err
	}

	id := areas.Resolve(tree, city)
	s.logger.Debug().Str("city", city).Int("area_id", id).Msg("City resolved")
	return id, nil
}

// Search implements stats.Source.
func (s *Source) Search(ctx context.Context, q stats.Query) (*pagination.Page[salary.Range], error) {
	params := s.searchParams(q)

	fetcher := pagination.FetcherFunc[salary.Range](func(ctx context.Context, page int) (*pagination.Page[salary.Range], error) {
		return s.fetchPage(ctx, params, page)
	})

	return pagination.FetchAll[salary.Range](ctx, fetcher, pagination.Config{
		FirstPage: 0,
		MaxPages:  s.maxPages,
		PageDelay: s.pageDelay,
		Label:     ProviderID + ":" + q.Language,
	})
}

// searchParams builds the query shared by every page of q.
func (s *Source) searchParams(q stats.Query) url.Values {
	params := url.Values{}
	params.Set("text", q.Language)
	params.Set("per_page", strconv.Itoa(s.perPage))
	params.Set("date_from", q.DateFrom.Format(dateLayout))
	params.Set("date_to", q.DateTo.Format(dateLayout))
	if q.AreaID != areas.NoArea {
		params.Set("area", strconv.Itoa(q.AreaID))
	}
	return params
}

func (s *Source) fetchPage(ctx context.Context, base url.Values, page int) (*pagination.Page[salary.Range], error) {
	params := url.Values{}
	for k, v := range base {
		params[k] = v
	}
	params.Set("page", strconv.Itoa(page))

	var resp vacanciesResponse
	if err := s.client.GetJSON(ctx, vacanciesPath, params, &resp, client.WithBearer(s.token)); err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}

	items := make([]salary.Range, 0, len(resp.Items))
	for _, v := range resp.Items {
		items = append(items, v.salaryRange())
	}

	return &pagination.Page[salary.Range]{
		Items: items,
		Found: resp.Found,
		Pages: resp.Pages,
		Index: page,
		More:  page < resp.Pages-1,
	}, nil
}
