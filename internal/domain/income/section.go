// Package income classifies pages of the tax declaration into their
// income-declaration sections, validates the reporting year, and aggregates
// table rows into per-section and total monthly income.
package income

import (
	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/loan-affordability/internal/domain/document"
	"github.com/FACorreiaa/loan-affordability/pkg/config"
)

// SectionKind tags one of the three income-declaration sections of the tax
// document.
type SectionKind string

const (
	// IncomeWithholdings covers salaried income with amounts withheld at
	// source (gross income, tax, contributions, surtax, union dues).
	IncomeWithholdings SectionKind = "withholdings"
	// TaxedCategory covers business/professional income taxed per
	// three-digit code, each code with its own configured rate.
	TaxedCategory SectionKind = "taxed"
	// SimplifiedCategory covers simplified-regime income declared as plain
	// values.
	SimplifiedCategory SectionKind = "simplified"
)

func (k SectionKind) String() string { return string(k) }

// Classification priorities: when a page matches several section markers the
// lowest number wins.
const (
	prioritySimplified   = 1
	priorityWithholdings = 2
	priorityTaxed        = 3
)

// section holds the per-section matching configuration, pre-normalized.
type section struct {
	kind     SectionKind
	priority int
	// key classifies a page into this section (normalized substring match).
	key string
	// fields marks relevant rows for the withholdings/simplified sections.
	// The taxed section matches rows by code instead.
	fields *ahocorasick.Matcher
}

func newSection(kind SectionKind, priority int, markers config.SectionMarkers) section {
	s := section{
		kind:     kind,
		priority: priority,
		key:      document.Normalize(markers.Key),
	}

	if len(markers.Fields) > 0 {
		patterns := make([]string, 0, len(markers.Fields))
		for _, f := range markers.Fields {
			if norm := document.Normalize(f); norm != "" {
				patterns = append(patterns, norm)
			}
		}
		if len(patterns) > 0 {
			s.fields = ahocorasick.NewStringMatcher(patterns)
		}
	}

	return s
}

// matchesRow reports whether the row text carries any of the section's field
// markers.
func (s section) matchesRow(rowText string) bool {
	if s.fields == nil {
		return false
	}
	return len(s.fields.Match([]byte(document.Normalize(rowText)))) > 0
}
