// Package salary estimates a single representative salary from the
// (often partial) ranges published in job vacancies.
package salary

import "math"

// MaxBound caps each bound before estimating. Larger published values are
// treated as MaxBound so the arithmetic below and the per-language sums
// cannot overflow.
const MaxBound = math.MaxInt32

// Range is a salary range as published by a provider.
// Either bound may be nil; a zero bound is treated the same as a missing one.
type Range struct {
	From     *int
	To       *int
	Currency string
}

// Bounds returns the range bounds with missing values reported as 0.
func (r Range) Bounds() (from, to int) {
	if r.From != nil {
		from = *r.From
	}
	if r.To != nil {
		to = *r.To
	}
	return from, to
}

// Determinate reports whether the range carries at least one positive bound
// and is denominated in the given currency.
func (r Range) Determinate(currency string) bool {
	if r.Currency != currency {
		return false
	}
	from, to := r.Bounds()
	return from > 0 || to > 0
}

// Estimate returns the representative salary for the given bounds.
// A bound <= 0 counts as absent and a bound above MaxBound counts as MaxBound.
//
//   - both bounds: the midpoint
//   - only from:   from * 1.2
//   - only to:     to * 0.8
//   - neither:     0
//
// Results are rounded half to even. Integer arithmetic keeps the result
// exact; only the midpoint can land on .5 (e.g. Estimate(1, 4) == 2,
// Estimate(1, 2) == 2, Estimate(3, 4) == 4).
func Estimate(from, to int) int {
	from, to = min(from, MaxBound), min(to, MaxBound)
	hasFrom, hasTo := from > 0, to > 0
	switch {
	case hasFrom && hasTo:
		return halfEven(from + to)
	case hasFrom:
		// round(6f/5); 12f+5 over 10 never ties because 12f is even and 10n+5 is odd.
		return (12*from + 5) / 10
	case hasTo:
		// round(4t/5), same reasoning.
		return (8*to + 5) / 10
	default:
		return 0
	}
}

// halfEven returns sum/2 rounded half to even.
func halfEven(sum int) int {
	q := sum / 2
	if sum%2 == 1 && q%2 == 1 {
		q++
	}
	return q
}

// EstimateRange is Estimate applied to a Range's bounds.
func EstimateRange(r Range) int {
	from, to := r.Bounds()
	return Estimate(from, to)
}
