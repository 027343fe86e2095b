package income

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/loan-affordability/internal/domain/document"
	"github.com/FACorreiaa/loan-affordability/pkg/config"
	"github.com/FACorreiaa/loan-affordability/pkg/money"
)

var twelve = decimal.NewFromInt(12)

// RejectedError is returned when the document fails the reporting-year
// validation. It names the outdated sections; the caller must treat it as
// fatal for the request.
type RejectedError struct {
	Failed []SectionKind
}

func (e *RejectedError) Error() string {
	names := make([]string, len(e.Failed))
	for i, k := range e.Failed {
		names[i] = k.String()
	}
	return fmt.Sprintf("document not accepted, provide a more recent one (outdated sections: %s)",
		strings.Join(names, ", "))
}

// WithholdingRow is one extracted withholdings-section row: up to five
// positional amounts, missing trailing fields defaulting to zero.
type WithholdingRow struct {
	Page          int             `json:"page"`
	Gross         decimal.Decimal `json:"gross"`
	Tax           decimal.Decimal `json:"tax"`
	Contributions decimal.Decimal `json:"contributions"`
	Surtax        decimal.Decimal `json:"surtax"`
	UnionDues     decimal.Decimal `json:"union_dues"`
}

// Net is the row's contribution to income: gross minus everything withheld.
func (r WithholdingRow) Net() decimal.Decimal {
	return r.Gross.Sub(r.Tax).Sub(r.Contributions).Sub(r.Surtax).Sub(r.UnionDues)
}

// TaxedRow is one extracted taxed-category row: the matched code, its
// configured rate and the first amount found in the row.
type TaxedRow struct {
	Page        int             `json:"page"`
	Description string          `json:"description"`
	Code        string          `json:"code"`
	Rate        decimal.Decimal `json:"rate"`
	Value       decimal.Decimal `json:"value"`
}

// SimplifiedRow is one extracted simplified-regime row.
type SimplifiedRow struct {
	Page  int             `json:"page"`
	Value decimal.Decimal `json:"value"`
}

// SectionSummary is the synthetic summary row for one section.
type SectionSummary struct {
	Kind     SectionKind `json:"kind"`
	RowCount int         `json:"row_count"`
	// Valor is the summed raw amount (taxed and simplified sections).
	Valor decimal.Decimal `json:"valor"`
	// Rate stays zero on the taxed summary: each code carries its own rate,
	// so no single rate is meaningful at summary level.
	Rate    decimal.Decimal `json:"rate"`
	Total   decimal.Decimal `json:"total"`
	Monthly decimal.Decimal `json:"monthly"`
}

// Breakdown is the full income extraction result.
type Breakdown struct {
	Validation Validation `json:"validation"`

	Withholdings SectionSummary `json:"withholdings"`
	Taxed        SectionSummary `json:"taxed"`
	Simplified   SectionSummary `json:"simplified"`

	WithholdingRows []WithholdingRow `json:"withholding_rows"`
	TaxedRows       []TaxedRow       `json:"taxed_rows"`
	SimplifiedRows  []SimplifiedRow  `json:"simplified_rows"`

	// TotalMonthly is the applicant's total monthly income across sections.
	TotalMonthly decimal.Decimal `json:"total_monthly"`
}

// Extractor runs the full classification and aggregation pipeline over a tax
// document.
type Extractor struct {
	classifier *Classifier
	taxRates   map[string]decimal.Decimal
	codes      *regexp.Regexp
	limitDate  string
	logger     *slog.Logger

	// now is a clock hook for the year-cutoff tests.
	now func() time.Time
}

// NewExtractor builds the income extractor from the documents config and the
// taxed-category rate table.
func NewExtractor(cfg config.DocumentsConfig, taxRates map[string]decimal.Decimal, logger *slog.Logger) *Extractor {
	return &Extractor{
		classifier: NewClassifier(cfg),
		taxRates:   taxRates,
		codes:      codePattern(taxRates),
		limitDate:  cfg.LimitDate,
		logger:     logger,
		now:        time.Now,
	}
}

// codePattern compiles a whole-token alternation over the configured codes.
func codePattern(rates map[string]decimal.Decimal) *regexp.Regexp {
	codes := make([]string, 0, len(rates))
	for code := range rates {
		codes = append(codes, regexp.QuoteMeta(code))
	}
	sort.Strings(codes)
	return regexp.MustCompile(`\b(?:` + strings.Join(codes, "|") + `)\b`)
}

// Extract classifies pages, validates the reporting year, and aggregates the
// matched rows. It refuses to produce figures for a rejected document.
func (x *Extractor) Extract(doc *document.Document) (*Breakdown, error) {
	kinds := x.classifier.ClassifyDocument(doc)

	cutoff, err := CutoffYear(x.now(), x.limitDate)
	if err != nil {
		return nil, err
	}

	validation := validateYears(doc, kinds, cutoff)
	if !validation.Accepted {
		x.logger.Warn("income document rejected",
			slog.Int("cutoff_year", cutoff),
			slog.Any("failed_sections", validation.Failed))
		return nil, &RejectedError{Failed: validation.Failed}
	}

	b := &Breakdown{Validation: validation}

	for _, page := range doc.Pages {
		kind, ok := kinds[page.Number]
		if !ok {
			continue
		}

		for _, row := range page.Rows {
			switch kind {
			case IncomeWithholdings:
				x.collectWithholding(b, page.Number, row)
			case TaxedCategory:
				x.collectTaxed(b, page.Number, row)
			case SimplifiedCategory:
				x.collectSimplified(b, page.Number, row)
			}
		}
	}

	x.aggregate(b)

	x.logger.Info("income extracted",
		slog.Int("withholding_rows", len(b.WithholdingRows)),
		slog.Int("taxed_rows", len(b.TaxedRows)),
		slog.Int("simplified_rows", len(b.SimplifiedRows)),
		slog.String("total_monthly", b.TotalMonthly.Round(2).String()))

	return b, nil
}

func (x *Extractor) collectWithholding(b *Breakdown, page int, row document.Row) {
	if !x.classifier.section(IncomeWithholdings).matchesRow(row.Text()) {
		return
	}

	values := numbersFromCells(row)
	if len(values) == 0 {
		return
	}

	// Positional fields; missing trailing values default to zero.
	at := func(i int) decimal.Decimal {
		if i < len(values) {
			return values[i]
		}
		return decimal.Zero
	}

	b.WithholdingRows = append(b.WithholdingRows, WithholdingRow{
		Page:          page,
		Gross:         at(0),
		Tax:           at(1),
		Contributions: at(2),
		Surtax:        at(3),
		UnionDues:     at(4),
	})
}

func (x *Extractor) collectTaxed(b *Breakdown, page int, row document.Row) {
	code := x.codes.FindString(row.Text())
	if code == "" {
		return
	}

	value := decimal.Zero
	if values := numbersFromCells(row); len(values) > 0 {
		value = values[0]
	}

	description := ""
	if len(row) > 0 {
		description = strings.TrimSpace(row[0])
	}

	b.TaxedRows = append(b.TaxedRows, TaxedRow{
		Page:        page,
		Description: description,
		Code:        code,
		Rate:        x.taxRates[code],
		Value:       value,
	})
}

func (x *Extractor) collectSimplified(b *Breakdown, page int, row document.Row) {
	if !x.classifier.section(SimplifiedCategory).matchesRow(row.Text()) {
		return
	}

	values := numbersFromCells(row)
	if len(values) == 0 {
		return
	}

	b.SimplifiedRows = append(b.SimplifiedRows, SimplifiedRow{Page: page, Value: values[0]})
}

func (x *Extractor) aggregate(b *Breakdown) {
	w := SectionSummary{Kind: IncomeWithholdings, RowCount: len(b.WithholdingRows)}
	for _, row := range b.WithholdingRows {
		w.Total = w.Total.Add(row.Net())
	}
	w.Monthly = w.Total.Div(twelve)
	b.Withholdings = w

	tx := SectionSummary{Kind: TaxedCategory, RowCount: len(b.TaxedRows)}
	for _, row := range b.TaxedRows {
		tx.Valor = tx.Valor.Add(row.Value)
		tx.Total = tx.Total.Add(row.Rate.Mul(row.Value))
	}
	tx.Monthly = tx.Total.Div(twelve)
	b.Taxed = tx

	s := SectionSummary{Kind: SimplifiedCategory, RowCount: len(b.SimplifiedRows)}
	for _, row := range b.SimplifiedRows {
		s.Valor = s.Valor.Add(row.Value)
	}
	s.Monthly = s.Valor.Div(twelve)
	b.Simplified = s

	b.TotalMonthly = w.Monthly.Add(tx.Monthly).Add(s.Monthly)
}

// numbersFromCells collects the first European-format amount of each cell,
// in left-to-right order. Cells without digits are skipped silently.
func numbersFromCells(row document.Row) []decimal.Decimal {
	var values []decimal.Decimal
	for _, cell := range row {
		if d, ok := money.FirstEuropean(cell); ok {
			values = append(values, d)
		}
	}
	return values
}
