package income

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/FACorreiaa/loan-affordability/internal/domain/document"
)

// yearPattern matches a plausible 4-digit reporting year.
var yearPattern = regexp.MustCompile(`\b(?:19|20|21)\d{2}\b`)

// maxHeaderRows limits the year scan to the top rows of each page's tables.
const maxHeaderRows = 4

// YearCheck is the per-section outcome of the reporting-year validation.
type YearCheck struct {
	Kind SectionKind `json:"kind"`
	// Found is false when no year token could be extracted; such sections
	// are excluded from the accept/reject decision entirely.
	Found bool `json:"found"`
	Year  int  `json:"year"`
	Valid bool `json:"valid"`
}

// Validation is the document-level year validation result.
type Validation struct {
	Checks map[SectionKind]YearCheck `json:"checks"`
	// Accepted is true when every section that yielded a year is valid.
	Accepted bool `json:"accepted"`
	// Failed lists the sections that yielded an outdated year, sorted for
	// stable messages.
	Failed []SectionKind `json:"failed,omitempty"`
}

// CutoffYear derives the earliest acceptable reporting year from the
// configured "MM-DD" limit date: before this year's limit date the previous
// declaration may not exist yet, so documents from two years back are still
// current.
func CutoffYear(now time.Time, limitDate string) (int, error) {
	md, err := time.Parse("01-02", limitDate)
	if err != nil {
		return 0, fmt.Errorf("invalid limit date %q: %w", limitDate, err)
	}

	limit := time.Date(now.Year(), md.Month(), md.Day(), 0, 0, 0, 0, now.Location())
	if now.Before(limit) {
		return now.Year() - 2, nil
	}
	return now.Year() - 1, nil
}

// validateYears scans the first rows of every classified page for a year
// token (first match per section wins) and compares against the cutoff.
func validateYears(doc *document.Document, kinds map[int]SectionKind, cutoff int) Validation {
	years := make(map[SectionKind]int)

	for _, page := range doc.Pages {
		kind, ok := kinds[page.Number]
		if !ok {
			continue
		}
		if _, done := years[kind]; done {
			continue
		}

		rows := page.Rows
		if len(rows) > maxHeaderRows {
			rows = rows[:maxHeaderRows]
		}
		for _, row := range rows {
			if year, ok := findYear(row); ok {
				years[kind] = year
				break
			}
		}
	}

	v := Validation{Checks: make(map[SectionKind]YearCheck), Accepted: true}
	for _, kind := range []SectionKind{IncomeWithholdings, TaxedCategory, SimplifiedCategory} {
		check := YearCheck{Kind: kind}
		if year, ok := years[kind]; ok {
			check.Found = true
			check.Year = year
			check.Valid = year >= cutoff
			if !check.Valid {
				v.Accepted = false
				v.Failed = append(v.Failed, kind)
			}
		}
		v.Checks[kind] = check
	}

	sort.Slice(v.Failed, func(i, j int) bool { return v.Failed[i] < v.Failed[j] })
	return v
}

func findYear(row document.Row) (int, bool) {
	for _, cell := range row {
		if match := yearPattern.FindString(cell); match != "" {
			year, err := strconv.Atoi(match)
			if err == nil {
				return year, true
			}
		}
	}
	return 0, false
}
