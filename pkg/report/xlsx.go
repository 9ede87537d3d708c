package report

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Sternrassler/lang-salary-stats/pkg/stats"
	"github.com/xuri/excelize/v2"
)

// defaultSheet is the sheet excelize creates with every new workbook.
const defaultSheet = "Sheet1"

var sheetNameReplacer = strings.NewReplacer(
	":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")",
)

// ExportXLSX writes one sheet per report to path. Row 1 holds the report
// title, row 2 the headers and the statistics follow.
func ExportXLSX(path string, reports ...*stats.Report) error {
	if len(reports) == 0 {
		return fmt.Errorf("export xlsx: no reports")
	}

	f := excelize.NewFile()
	defer f.Close()

	used := make(map[string]bool, len(reports))
	sheets := make([]string, 0, len(reports))
	for _, r := range reports {
		sheet := uniqueSheetName(SheetName(r.Provider), used)
		if err := writeSheet(f, sheet, r); err != nil {
			return fmt.Errorf("export xlsx: sheet %q: %w", sheet, err)
		}
		sheets = append(sheets, sheet)
	}

	if !used[strings.ToLower(defaultSheet)] {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("export xlsx: %w", err)
		}
	}

	idx, err := f.GetSheetIndex(sheets[0])
	if err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	f.SetActiveSheet(idx)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export xlsx: save %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, r *stats.Report) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{Title(r.Provider, r.City, r.Days)}); err != nil {
		return err
	}

	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A2", &header); err != nil {
		return err
	}

	for i, st := range r.Stats {
		cell, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			return err
		}
		row := []interface{}{st.Language, st.VacanciesFound, st.VacanciesProcessed, st.AverageSalary}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	return f.SetColWidth(sheet, "A", "D", 24)
}

// SheetName makes provider usable as a worksheet name.
func SheetName(provider string) string {
	name := strings.Trim(sheetNameReplacer.Replace(strings.TrimSpace(provider)), "'")
	if name == "" {
		name = "Report"
	}
	for utf8.RuneCountInString(name) > excelize.MaxSheetNameLength {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}

// uniqueSheetName appends a counter when name is taken. Sheet names compare
// case-insensitively.
func uniqueSheetName(name string, used map[string]bool) string {
	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		base := name
		for utf8.RuneCountInString(base)+len(suffix) > excelize.MaxSheetNameLength {
			_, size := utf8.DecodeLastRuneInString(base)
			base = base[:len(base)-size]
		}
		candidate = base + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
