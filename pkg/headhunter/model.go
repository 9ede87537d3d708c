package headhunter

import (
	"github.com/Sternrassler/lang-salary-stats/pkg/salary"
)

// vacanciesResponse is one page of GET /vacancies.
type vacanciesResponse struct {
	Items   []vacancy `json:"items"`
	Found   int       `json:"found"`
	Pages   int       `json:"pages"`
	Page    int       `json:"page"`
	PerPage int       `json:"per_page"`
}

type vacancy struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Salary *salaryObject `json:"salary"`
}

// salaryObject is the nested salary of a vacancy; every field may be null.
type salaryObject struct {
	From     *int   `json:"from"`
	To       *int   `json:"to"`
	Currency string `json:"currency"`
	Gross    *bool  `json:"gross"`
}

// salaryRange converts a vacancy's salary. A missing salary yields an
// empty range, which is never determinate.
func (v vacancy) salaryRange() salary.Range {
	if v.Salary == nil {
		return salary.Range{}
	}
	return salary.Range{
		From:     v.Salary.From,
		To:       v.Salary.To,
		Currency: v.Salary.Currency,
	}
}
