// Package amortization computes fixed-rate, equal-installment loan schedules
// under the nominal and stressed rate regimes.
package amortization

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidPrincipal signals a non-positive loan amount. Fatal for the
	// request; never silently defaulted.
	ErrInvalidPrincipal = errors.New("loan principal must be positive")
	// ErrInvalidTerm signals a non-positive term in months.
	ErrInvalidTerm = errors.New("loan term must be at least one month")
)

// Period is one month of the schedule.
type Period struct {
	Number    int
	Payment   decimal.Decimal
	Interest  decimal.Decimal
	Principal decimal.Decimal
	// Balance is the remaining capital after this payment, rounded to
	// 5 decimal places for display.
	Balance decimal.Decimal
}

// Schedule is a full equal-installment amortization plan.
type Schedule struct {
	// Payment is the constant monthly installment at full precision.
	// Round only at presentation.
	Payment decimal.Decimal
	// AnnualRate is the effective annual rate the schedule was built with.
	AnnualRate decimal.Decimal
	TermMonths int
	Stressed   bool
	Periods    []Period
}

// Engine builds schedules using the configured rate constants.
type Engine struct {
	fixedRate  decimal.Decimal
	stressRate decimal.Decimal
}

// NewEngine creates an engine with the bank's fixed rate and stress add-on.
func NewEngine(fixedRate, stressRate float64) *Engine {
	return &Engine{
		fixedRate:  decimal.NewFromFloat(fixedRate),
		stressRate: decimal.NewFromFloat(stressRate),
	}
}

// FixedRate returns the configured fixed annual rate.
func (e *Engine) FixedRate() decimal.Decimal { return e.fixedRate }

// StressRate returns the configured stress add-on.
func (e *Engine) StressRate() decimal.Decimal { return e.stressRate }

// Nominal builds the schedule at base rate + spread.
func (e *Engine) Nominal(principal decimal.Decimal, baseRate, spread decimal.Decimal, termMonths int) (*Schedule, error) {
	return e.build(principal, baseRate.Add(spread), termMonths, false)
}

// Stressed builds the schedule at base rate + spread + stress add-on, the
// conservative scenario used whenever the base rate is not the fixed rate.
func (e *Engine) Stressed(principal decimal.Decimal, baseRate, spread decimal.Decimal, termMonths int) (*Schedule, error) {
	return e.build(principal, baseRate.Add(spread).Add(e.stressRate), termMonths, true)
}

func (e *Engine) build(principal, annualRate decimal.Decimal, termMonths int, stressed bool) (*Schedule, error) {
	if !principal.IsPositive() {
		return nil, ErrInvalidPrincipal
	}
	if termMonths < 1 {
		return nil, ErrInvalidTerm
	}

	one := decimal.NewFromInt(1)
	n := decimal.NewFromInt(int64(termMonths))
	monthly := annualRate.Div(decimal.NewFromInt(12))

	var payment decimal.Decimal
	if monthly.IsZero() {
		payment = principal.Div(n)
	} else {
		// payment = P * r * (1+r)^n / ((1+r)^n - 1)
		pow := one.Add(monthly).Pow(n)
		payment = principal.Mul(monthly).Mul(pow).Div(pow.Sub(one))
	}

	s := &Schedule{
		Payment:    payment,
		AnnualRate: annualRate,
		TermMonths: termMonths,
		Stressed:   stressed,
		Periods:    make([]Period, 0, termMonths),
	}

	balance := principal
	for k := 1; k <= termMonths; k++ {
		interest := balance.Mul(monthly)
		capital := payment.Sub(interest)
		balance = balance.Sub(capital)

		s.Periods = append(s.Periods, Period{
			Number:    k,
			Payment:   payment,
			Interest:  interest,
			Principal: capital,
			Balance:   balance.Round(5),
		})
	}

	return s, nil
}

// TotalInterest is the interest paid over the life of the loan.
func (s *Schedule) TotalInterest() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.Periods {
		total = total.Add(p.Interest)
	}
	return total
}

// TotalCost is payment × term.
func (s *Schedule) TotalCost() decimal.Decimal {
	return s.Payment.Mul(decimal.NewFromInt(int64(s.TermMonths)))
}
