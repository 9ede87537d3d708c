// Package stats computes per-language salary statistics for one job board.
//
// A Collector runs one paginated search per language concurrently, keeps
// the vacancies that publish a salary in the board's domestic currency and
// averages their estimates. Results come back in input order.
package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/lang-salary-stats/pkg/pagination"
	"github.com/Sternrassler/lang-salary-stats/pkg/salary"
)

// Query is one language search.
type Query struct {
	Language string
	// City is the raw city name, empty for no filter.
	City string
	// AreaID is the resolved area id; 0 means no area filter.
	AreaID   int
	DateFrom time.Time
	DateTo   time.Time
}

// Source is one job board.
type Source interface {
	// Name is the display name used in reports and logs.
	Name() string
	// Currency is the domestic currency code as the board spells it.
	Currency() string
	// Search fetches every page of q and returns the merged salary ranges.
	Search(ctx context.Context, q Query) (*pagination.Page[salary.Range], error)
}

// CityResolver is implemented by sources that filter by numeric area id.
type CityResolver interface {
	ResolveCity(ctx context.Context, city string) (int, error)
}

// LanguageStats is the result for one language.
type LanguageStats struct {
	Language           string `json:"language"`
	VacanciesFound     int    `json:"vacancies_found"`
	VacanciesProcessed int    `json:"vacancies_processed"`
	AverageSalary      int    `json:"average_salary"`
}

// Report is the result of one batch.
type Report struct {
	Provider string
	City     string
	Days     int
	// Stats holds one entry per successful language, in input order.
	Stats []LanguageStats
	// Failures is only filled under PolicyPartial.
	Failures []*LanguageError
	Duration time.Duration
}

// LanguageError wraps the failure of one language search.
type LanguageError struct {
	Provider string
	Language string
	Err      error
}

// Error implements the error interface.
func (e *LanguageError) Error() string {
	return fmt.Sprintf("%s: language %q: %v", e.Provider, e.Language, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *LanguageError) Unwrap() error {
	return e.Err
}

// NormalizeLanguages trims every name and drops empty and repeated entries,
// keeping the first occurrence.
func NormalizeLanguages(languages []string) []string {
	out := make([]string, 0, len(languages))
	seen := make(map[string]struct{}, len(languages))
	for _, lang := range languages {
		lang = strings.TrimSpace(lang)
		if lang == "" {
			continue
		}
		if _, dup := seen[lang]; dup {
			continue
		}
		seen[lang] = struct{}{}
		out = append(out, lang)
	}
	return out
}

// Summarize turns the merged ranges of one language into its statistics.
// Only ranges determinate in currency are averaged; the average is floored.
func Summarize(language, currency string, page *pagination.Page[salary.Range]) LanguageStats {
	st := LanguageStats{Language: language}
	if page == nil {
		return st
	}

	sum := 0
	for _, r := range page.Items {
		if !r.Determinate(currency) {
			continue
		}
		sum += salary.EstimateRange(r)
		st.VacanciesProcessed++
	}

	st.VacanciesFound = page.Found
	if st.VacanciesFound < st.VacanciesProcessed {
		st.VacanciesFound = st.VacanciesProcessed
	}
	if st.VacanciesProcessed > 0 {
		st.AverageSalary = sum / st.VacanciesProcessed
	}
	return st
}
