// Package rates maintains the reference Euribor rates used to validate the
// base rate of an analysis request. The table is scraped from a public source
// and refreshed on a schedule; until the first successful refresh the cache is
// empty and base-rate validation is skipped.
package rates

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/loan-affordability/pkg/money"
)

// Tenors tracked in the reference table.
var tenors = []string{"euribor 3 meses", "euribor 6 meses", "euribor 12 meses"}

var oneHundred = decimal.NewFromInt(100)

// Service scrapes and caches the Euribor reference rates.
type Service struct {
	sourceURL string
	client    *http.Client
	logger    *slog.Logger

	mu    sync.RWMutex
	rates map[string]decimal.Decimal
}

// NewService builds the rates service. sourceURL must carry a %d placeholder
// for the year.
func NewService(sourceURL string, logger *slog.Logger) *Service {
	return &Service{
		sourceURL: sourceURL,
		client:    &http.Client{Timeout: 15 * time.Second},
		logger:    logger,
		rates:     make(map[string]decimal.Decimal),
	}
}

// Refresh fetches the current year's rate table and replaces the cache. The
// previous cache is kept on any failure.
func (s *Service) Refresh(ctx context.Context) error {
	url := fmt.Sprintf(s.sourceURL, time.Now().Year())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building rates request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching rates from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching rates from %s: unexpected status %d", url, resp.StatusCode)
	}

	parsed, err := parseRateTable(resp.Body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.rates = parsed
	s.mu.Unlock()

	s.logger.Info("euribor rates refreshed",
		slog.String("source", url),
		slog.Int("tenors", len(parsed)))
	return nil
}

// parseRateTable extracts the latest rate per tracked tenor from the source
// page. Each tenor row lists its observations left to right, oldest first, so
// the last parseable cell wins.
func parseRateTable(body io.Reader) (map[string]decimal.Decimal, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parsing rates page: %w", err)
	}

	parsed := make(map[string]decimal.Decimal)
	doc.Find("table.table-striped tr").Each(func(_ int, row *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(row.Find("td").First().Text()))

		tenor := ""
		for _, t := range tenors {
			if strings.Contains(label, t) {
				tenor = t
				break
			}
		}
		if tenor == "" {
			return
		}

		row.Find("td").Each(func(i int, cell *goquery.Selection) {
			if i == 0 {
				return
			}
			// Quotes carry three decimals ("2,152 %"), so the cell is parsed
			// whole rather than scanned for a two-decimal amount.
			text := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(cell.Text()), "%"))
			if v, err := money.ParseEuropean(text); err == nil {
				parsed[tenor] = v.Div(oneHundred).Round(5)
			}
		})
	})

	if len(parsed) == 0 {
		return nil, fmt.Errorf("parsing rates page: no tenor rows found")
	}
	return parsed, nil
}

// Known reports whether the rate matches a cached reference rate. An empty
// cache accepts any rate so that analyses keep working before the first
// refresh.
func (s *Service) Known(rate decimal.Decimal) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.rates) == 0 {
		return true
	}
	for _, r := range s.rates {
		if r.Equal(rate) {
			return true
		}
	}
	return false
}

// Rates returns a copy of the cached reference table.
func (s *Service) Rates() map[string]decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]decimal.Decimal, len(s.rates))
	for k, v := range s.rates {
		out[k] = v
	}
	return out
}
