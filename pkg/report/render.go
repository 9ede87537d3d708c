// Package report renders salary statistics for people: a boxed terminal
// table per provider, an optional XLSX workbook and a progress bar for the
// language tasks of a running batch.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/Sternrassler/lang-salary-stats/pkg/stats"
	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
)

// Headers are the column titles of every report table.
var Headers = []string{
	"Язык программирования",
	"Вакансий найдено",
	"Вакансий обработано",
	"Средняя зарплата",
}

// AllCities stands in for the city when no filter is set.
const AllCities = "все города"

// Title builds the table caption, e.g. " HeadHunter. Москва, 30 дней ".
func Title(provider, city string, days int) string {
	if city == "" {
		city = AllCities
	}
	return fmt.Sprintf(" %s. %s, %d дней ", provider, city, days)
}

// FormatSalary formats a rouble amount with thousands separators: 150,000₽.
func FormatSalary(amount int) string {
	return humanize.Comma(int64(amount)) + "₽"
}

// Rows converts stats to table rows, header excluded.
func Rows(rows []stats.LanguageStats) [][]string {
	out := make([][]string, 0, len(rows))
	for _, st := range rows {
		out = append(out, []string{
			st.Language,
			strconv.Itoa(st.VacanciesFound),
			strconv.Itoa(st.VacanciesProcessed),
			FormatSalary(st.AverageSalary),
		})
	}
	return out
}

// Render writes one boxed table with title on its top border.
func Render(w io.Writer, title string, rows []stats.LanguageStats) error {
	data := append([][]string{Headers}, Rows(rows)...)

	table, err := pterm.DefaultTable.
		WithHasHeader().
		WithData(data).
		Srender()
	if err != nil {
		return fmt.Errorf("render table: %w", err)
	}

	box := pterm.DefaultBox.
		WithTitle(title).
		WithTitleTopCenter().
		Sprint(table)

	if _, err := fmt.Fprintln(w, box); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	return nil
}

// RenderReport renders r and lists the languages a partial batch lost.
func RenderReport(w io.Writer, r *stats.Report) error {
	if err := Render(w, Title(r.Provider, r.City, r.Days), r.Stats); err != nil {
		return err
	}

	for _, failure := range r.Failures {
		if _, err := fmt.Fprintf(w, "%s: нет данных (%v)\n", failure.Language, failure.Err); err != nil {
			return fmt.Errorf("write failures: %w", err)
		}
	}
	return nil
}
