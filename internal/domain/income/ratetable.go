package income

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// rateRow is one line of the code,rate CSV.
type rateRow struct {
	Code string  `csv:"code"`
	Rate float64 `csv:"rate"`
}

// LoadTaxRates reads a taxed-category rate table (CSV with code,rate columns).
func LoadTaxRates(r io.Reader) (map[string]decimal.Decimal, error) {
	var rows []rateRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse tax-rate table: %w", err)
	}

	rates := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		if row.Code == "" {
			continue
		}
		rates[row.Code] = decimal.NewFromFloat(row.Rate)
	}

	if len(rates) == 0 {
		return nil, fmt.Errorf("tax-rate table contains no codes")
	}
	return rates, nil
}

// LoadTaxRatesFile loads the rate table from disk, falling back to the
// built-in defaults when no path is configured.
func LoadTaxRatesFile(path string) (map[string]decimal.Decimal, error) {
	if path == "" {
		return DefaultTaxRates(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tax-rate table: %w", err)
	}
	defer f.Close()

	return LoadTaxRates(f)
}

// DefaultTaxRates returns the built-in code → rate table for the taxed
// category. The 4xx range carries the professional-income coefficient, the
// 45x range the residual one.
func DefaultTaxRates() map[string]decimal.Decimal {
	rates := make(map[string]decimal.Decimal, 30)

	professional := decimal.NewFromFloat(0.75)
	for code := 401; code <= 418; code++ {
		rates[fmt.Sprintf("%d", code)] = professional
	}
	rates["420"] = professional
	rates["421"] = professional

	residual := decimal.NewFromFloat(0.35)
	for code := 451; code <= 459; code++ {
		rates[fmt.Sprintf("%d", code)] = residual
	}

	return rates
}
