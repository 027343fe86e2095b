package income

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTaxRates(t *testing.T) {
	csv := "code,rate\n401,0.75\n451,0.35\n"

	rates, err := LoadTaxRates(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.True(t, rates["401"].Equal(decimal.NewFromFloat(0.75)))
	assert.True(t, rates["451"].Equal(decimal.NewFromFloat(0.35)))
}

func TestLoadTaxRates_Empty(t *testing.T) {
	_, err := LoadTaxRates(strings.NewReader("code,rate\n"))
	assert.Error(t, err)
}

func TestDefaultTaxRates(t *testing.T) {
	rates := DefaultTaxRates()

	// 401..418, 420, 421 and 451..459. Code 419 is deliberately absent.
	assert.Len(t, rates, 29)
	assert.Contains(t, rates, "401")
	assert.Contains(t, rates, "420")
	assert.Contains(t, rates, "459")
	assert.NotContains(t, rates, "419")
}

func TestLoadTaxRatesFile_DefaultFallback(t *testing.T) {
	rates, err := LoadTaxRatesFile("")
	require.NoError(t, err)
	assert.Len(t, rates, 29)
}
