package amortization

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// withinCents asserts |a-b| <= 0.01.
func withinCents(t *testing.T, a, b decimal.Decimal) {
	t.Helper()
	diff := a.Sub(b).Abs()
	assert.True(t, diff.LessThanOrEqual(dec("0.01")), "difference %s between %s and %s", diff, a, b)
}

func TestNominalSchedule(t *testing.T) {
	e := NewEngine(0.03, 0.015)

	s, err := e.Nominal(dec("100000"), dec("0.03"), dec("0.01"), 240)
	require.NoError(t, err)

	assert.Equal(t, 240, s.TermMonths)
	assert.False(t, s.Stressed)
	assert.True(t, s.AnnualRate.Equal(dec("0.04")))
	require.Len(t, s.Periods, 240)

	t.Run("principal portions sum to the loan amount", func(t *testing.T) {
		total := decimal.Zero
		for _, p := range s.Periods {
			total = total.Add(p.Principal)
		}
		withinCents(t, total, dec("100000"))
	})

	t.Run("balance after the last period is zero", func(t *testing.T) {
		last := s.Periods[len(s.Periods)-1]
		withinCents(t, last.Balance, decimal.Zero)
	})

	t.Run("payment is constant and splits into interest plus principal", func(t *testing.T) {
		for _, p := range s.Periods {
			assert.True(t, p.Payment.Equal(s.Payment))
			assert.True(t, p.Interest.Add(p.Principal).Equal(p.Payment))
		}
	})

	t.Run("total paid equals principal plus interest", func(t *testing.T) {
		withinCents(t, s.TotalCost(), dec("100000").Add(s.TotalInterest()))
	})

	t.Run("first period interest is balance times monthly rate", func(t *testing.T) {
		want := dec("100000").Mul(dec("0.04").Div(decimal.NewFromInt(12)))
		assert.True(t, s.Periods[0].Interest.Equal(want))
	})
}

func TestZeroRateSchedule(t *testing.T) {
	e := NewEngine(0, 0)

	s, err := e.Nominal(dec("1200"), decimal.Zero, decimal.Zero, 12)
	require.NoError(t, err)

	assert.True(t, s.Payment.Equal(dec("100")), "payment %s", s.Payment)
	assert.True(t, s.Periods[11].Balance.IsZero())
	for _, p := range s.Periods {
		assert.True(t, p.Interest.IsZero())
	}
}

func TestStressedSchedule(t *testing.T) {
	e := NewEngine(0.03, 0.015)

	nominal, err := e.Nominal(dec("150000"), dec("0.025"), dec("0.01"), 360)
	require.NoError(t, err)
	stressed, err := e.Stressed(dec("150000"), dec("0.025"), dec("0.01"), 360)
	require.NoError(t, err)

	assert.True(t, stressed.Stressed)
	assert.True(t, stressed.AnnualRate.Equal(dec("0.05")))
	assert.True(t, stressed.Payment.GreaterThan(nominal.Payment),
		"stressed payment must exceed nominal")
}

func TestScheduleErrors(t *testing.T) {
	e := NewEngine(0.03, 0)

	_, err := e.Nominal(decimal.Zero, dec("0.03"), dec("0.01"), 120)
	assert.ErrorIs(t, err, ErrInvalidPrincipal)

	_, err = e.Nominal(dec("-5"), dec("0.03"), dec("0.01"), 120)
	assert.ErrorIs(t, err, ErrInvalidPrincipal)

	_, err = e.Nominal(dec("100000"), dec("0.03"), dec("0.01"), 0)
	assert.ErrorIs(t, err, ErrInvalidTerm)
}

func TestWriteXLSX(t *testing.T) {
	e := NewEngine(0.03, 0)
	s, err := e.Nominal(dec("10000"), dec("0.03"), dec("0.01"), 24)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.WriteXLSX(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetCellValue("Schedule", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Period", got)

	rows, err := f.GetRows("Schedule")
	require.NoError(t, err)
	assert.Len(t, rows, 25) // header + 24 periods
}
