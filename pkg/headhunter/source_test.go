package headhunter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/lang-salary-stats/internal/testutil"
	"github.com/Sternrassler/lang-salary-stats/pkg/client"
	"github.com/Sternrassler/lang-salary-stats/pkg/stats"
)

func newTestSource(t *testing.T, mock *testutil.MockProvider, cfg Config) *Source {
	t.Helper()

	c, err := client.New(client.Config{
		Provider:  ProviderID,
		BaseURL:   mock.URL(),
		UserAgent: "lang-salary-stats-test/1.0",
		Timeout:   5 * time.Second,
	})
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	cfg.Client = c
	return New(cfg)
}

func vacanciesPage(found, pages int, items ...string) testutil.MockResponse {
	return testutil.NewJSONResponse(fmt.Sprintf(`{"items":[%s],"found":%d,"pages":%d}`, strings.Join(items, ","), found, pages))
}

func TestSearch_FetchesAllPagesFromZero(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()

	mock.SetPagedResponse(vacanciesPath, []testutil.MockResponse{
		vacanciesPage(5, 3,
			`{"id":"1","salary":{"from":100,"to":200,"currency":"RUR"}}`,
			`{"id":"2","salary":null}`),
		vacanciesPage(5, 3,
			`{"id":"3","salary":{"from":null,"to":300,"currency":"RUR"}}`,
			`{"id":"4","salary":{"from":50,"to":null,"currency":"USD"}}`),
		vacanciesPage(5, 3,
			`{"id":"5","salary":{"from":400,"to":null,"currency":"RUR","gross":true}}`),
	})

	src := newTestSource(t, mock, Config{Token: "tok"})
	page, err := src.Search(context.Background(), stats.Query{
		Language: "Python",
		DateFrom: time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC),
		DateTo:   time.Date(2026, 3, 31, 1, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(page.Items) != 5 || page.Found != 5 {
		t.Fatalf("merged %d items, found %d; want 5/5", len(page.Items), page.Found)
	}
	if page.Items[1].From != nil || page.Items[1].Currency != "" {
		t.Errorf("null salary decoded as %+v", page.Items[1])
	}
	if *page.Items[2].To != 300 || page.Items[3].Currency != "USD" {
		t.Errorf("items out of order: %+v", page.Items)
	}

	reqs := mock.RequestsTo(vacanciesPath)
	if len(reqs) != 3 {
		t.Fatalf("requests = %d, want 3", len(reqs))
	}
	for i, r := range reqs {
		if got := r.Query.Get("page"); got != fmt.Sprint(i) {
			t.Errorf("request %d page = %s, want %d", i, got, i)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("request %d Authorization = %q", i, r.Header.Get("Authorization"))
		}
	}

	q := reqs[0].Query
	if q.Get("text") != "Python" || q.Get("per_page") != "100" {
		t.Errorf("query = %v", q)
	}
	if q.Get("date_from") != "2026-03-01" || q.Get("date_to") != "2026-03-31" {
		t.Errorf("dates = %s..%s", q.Get("date_from"), q.Get("date_to"))
	}
	if q.Has("area") {
		t.Error("area must be omitted without a resolved city")
	}
}

func TestSearch_SinglePage(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()
	mock.SetPagedResponse(vacanciesPath, []testutil.MockResponse{vacanciesPage(0, 0)})

	src := newTestSource(t, mock, Config{})
	page, err := src.Search(context.Background(), stats.Query{Language: "COBOL", AreaID: 2})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(page.Items) != 0 {
		t.Errorf("items = %d, want 0", len(page.Items))
	}

	reqs := mock.Requests()
	if len(reqs) != 1 {
		t.Errorf("requests = %d, want 1 for pages=0", len(reqs))
	}
	if reqs[0].Query.Get("area") != "2" {
		t.Errorf("area = %q, want 2", reqs[0].Query.Get("area"))
	}
}

func TestSearch_PageErrorAborts(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()
	mock.SetPagedResponse(vacanciesPath, []testutil.MockResponse{
		vacanciesPage(300, 3, `{"id":"1","salary":null}`),
		testutil.NewForbiddenResponse(),
	})

	src := newTestSource(t, mock, Config{})
	page, err := src.Search(context.Background(), stats.Query{Language: "Go"})

	if page != nil {
		t.Errorf("page = %+v, want nil on failure", page)
	}
	if !errors.Is(err, client.ErrRequestFailed) {
		t.Fatalf("error = %v, want ErrRequestFailed", err)
	}
	var reqErr *client.RequestError
	if !errors.As(err, &reqErr) || reqErr.StatusCode != 403 {
		t.Errorf("error = %v, want 403 RequestError", err)
	}
	if !strings.HasPrefix(err.Error(), "fetch page 1: ") {
		t.Errorf("error = %q, want the failing page in the message", err)
	}
	if n := len(mock.Requests()); n != 2 {
		t.Errorf("requests = %d, want 2 (no retry)", n)
	}
}

func TestSearch_PageDelay(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()
	mock.SetPagedResponse(vacanciesPath, []testutil.MockResponse{
		vacanciesPage(2, 2, `{"id":"1"}`),
		vacanciesPage(2, 2, `{"id":"2"}`),
	})

	src := newTestSource(t, mock, Config{PageDelay: 50 * time.Millisecond})

	start := time.Now()
	if _, err := src.Search(context.Background(), stats.Query{Language: "Go"}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("two pages took %v, want at least the page delay", elapsed)
	}
}

func TestResolveCity(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()
	mock.SetResponse(areasPath, testutil.NewJSONResponse(`[
		{"id":"113","parent_id":null,"name":"Россия","areas":[
			{"id":"1","parent_id":"113","name":"Москва","areas":[
				{"id":"2019","parent_id":"1","name":"Зеленоград","areas":[]}
			]}
		]},
		{"id":"16","parent_id":null,"name":"Беларусь","areas":[]}
	]`))

	src := newTestSource(t, mock, Config{})

	tests := []struct {
		city string
		want int
	}{
		{city: "москва", want: 1},
		{city: "Зеленоград", want: 2019},
		{city: "Berlin", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.city, func(t *testing.T) {
			got, err := src.ResolveCity(context.Background(), tt.city)
			if err != nil {
				t.Fatalf("ResolveCity() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveCity(%q) = %d, want %d", tt.city, got, tt.want)
			}
		})
	}

	if reqs := mock.RequestsTo(areasPath); len(reqs) != 3 || reqs[0].Header.Get("Authorization") != "" {
		t.Errorf("areas requests = %d (no cache configured), auth header %q", len(reqs), reqs[0].Header.Get("Authorization"))
	}
}

func TestResolveCity_Error(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()
	mock.SetResponse(areasPath, testutil.NewServerErrorResponse())

	src := newTestSource(t, mock, Config{})
	_, err := src.ResolveCity(context.Background(), "Москва")
	if !errors.Is(err, client.ErrRequestFailed) {
		t.Errorf("ResolveCity() error = %v, want ErrRequestFailed", err)
	}
	if err == nil || !strings.Contains(err.Error(), "fetch area tree: ") {
		t.Errorf("ResolveCity() error = %v, want area tree context", err)
	}
}

func TestSourceIdentity(t *testing.T) {
	src := New(Config{})
	if src.Name() != "HeadHunter" || src.Currency() != "RUR" {
		t.Errorf("Name/Currency = %s/%s", src.Name(), src.Currency())
	}
	if src.perPage != DefaultPerPage {
		t.Errorf("perPage = %d, want %d", src.perPage, DefaultPerPage)
	}
}
