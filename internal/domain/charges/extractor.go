// Package charges extracts monthly bank-charge amounts from the
// credit-registry report.
package charges

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/loan-affordability/internal/domain/document"
	"github.com/FACorreiaa/loan-affordability/pkg/money"
)

// ErrMissingMarker signals that no charge-line marker was configured.
var ErrMissingMarker = errors.New("charge-line marker is not configured")

// Extractor scans report lines for the configured marker and pulls the first
// European-format amount out of each matching line.
type Extractor struct {
	marker string
	logger *slog.Logger
}

// NewExtractor creates a charge-line extractor for the given marker string.
func NewExtractor(marker string, logger *slog.Logger) (*Extractor, error) {
	if marker == "" {
		return nil, ErrMissingMarker
	}
	return &Extractor{marker: document.Normalize(marker), logger: logger}, nil
}

// Extract returns the charge amounts found in the document, in reading order.
// Lines matching the marker but carrying no number are skipped, not errors.
func (e *Extractor) Extract(doc *document.Document) []decimal.Decimal {
	var amounts []decimal.Decimal

	for _, page := range doc.Pages {
		for _, line := range page.Lines() {
			if !containsMarker(line, e.marker) {
				continue
			}
			amount, ok := money.FirstEuropean(line)
			if !ok {
				continue
			}
			amounts = append(amounts, amount)
		}
	}

	e.logger.Debug("charge lines extracted", slog.Int("count", len(amounts)))
	return amounts
}

// MonthlyTotal sums all extracted charge amounts.
func (e *Extractor) MonthlyTotal(doc *document.Document) decimal.Decimal {
	total := decimal.Zero
	for _, a := range e.Extract(doc) {
		total = total.Add(a)
	}
	return total
}

func containsMarker(line, normalizedMarker string) bool {
	return strings.Contains(document.Normalize(line), normalizedMarker)
}
