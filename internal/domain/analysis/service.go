// Package analysis orchestrates the affordability decision: loan schedule,
// applicant term policy, extracted charges and income, and the effort-ratio
// verdict.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/loan-affordability/internal/domain/amortization"
	"github.com/FACorreiaa/loan-affordability/internal/domain/charges"
	"github.com/FACorreiaa/loan-affordability/internal/domain/document"
	"github.com/FACorreiaa/loan-affordability/internal/domain/eligibility"
	"github.com/FACorreiaa/loan-affordability/internal/domain/income"
	"github.com/FACorreiaa/loan-affordability/internal/domain/rates"
	"github.com/FACorreiaa/loan-affordability/pkg/config"
	"github.com/FACorreiaa/loan-affordability/pkg/metrics"
	"github.com/FACorreiaa/loan-affordability/pkg/money"
)

// Input carries one affordability request. Document fields are filesystem
// paths; the charges document is optional.
type Input struct {
	Principal  decimal.Decimal
	BaseRate   decimal.Decimal
	Spread     decimal.Decimal
	Status     eligibility.MaritalStatus
	Birthdates []string

	IncomeDocument  string
	ChargesDocument string
}

// LoanTerms echoes the analyzed loan back to the caller.
type LoanTerms struct {
	Principal     decimal.Decimal `json:"principal"`
	BaseRate      string          `json:"base_rate"`
	Spread        string          `json:"spread"`
	EffectiveRate string          `json:"effective_rate"`
	TermMonths    int             `json:"term_months"`
	Stressed      bool            `json:"stressed"`
}

// Result is the full affordability verdict.
type Result struct {
	ID       uuid.UUID `json:"id"`
	Approved bool      `json:"approved"`
	// Message is the human-readable verdict shown to the applicant.
	Message string `json:"message"`

	EffortRatio    string          `json:"effort_ratio"`
	EffortCeiling  string          `json:"effort_ceiling"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	MonthlyCharges decimal.Decimal `json:"monthly_charges"`
	MonthlyIncome  decimal.Decimal `json:"monthly_income"`

	Loan   LoanTerms         `json:"loan"`
	Income *income.Breakdown `json:"income"`

	schedule *amortization.Schedule
}

// Schedule returns the amortization plan backing the verdict.
func (r *Result) Schedule() *amortization.Schedule { return r.schedule }

// Service wires the domain pieces into the affordability pipeline.
type Service struct {
	reader  document.Reader
	engine  *amortization.Engine
	charges *charges.Extractor
	income  *income.Extractor
	rates   *rates.Service
	loan    config.LoanConfig
	logger  *slog.Logger
	tracer  trace.Tracer

	// now feeds the age and term policy; a hook for tests.
	now func() time.Time
}

// NewService builds the analysis service from its collaborators.
func NewService(
	reader document.Reader,
	engine *amortization.Engine,
	chargesExtractor *charges.Extractor,
	incomeExtractor *income.Extractor,
	ratesService *rates.Service,
	loan config.LoanConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		reader:  reader,
		engine:  engine,
		charges: chargesExtractor,
		income:  incomeExtractor,
		rates:   ratesService,
		loan:    loan,
		logger:  logger,
		tracer:  otel.Tracer("analysis"),
		now:     time.Now,
	}
}

// Analyze runs the full pipeline and returns the verdict. A rejected income
// document surfaces as *income.RejectedError; input problems wrap
// ErrInvalidInput.
func (s *Service) Analyze(ctx context.Context, in Input) (*Result, error) {
	_, span := s.tracer.Start(ctx, "analysis.Analyze")
	defer span.End()

	started := time.Now()
	outcome := metrics.OutcomeError
	defer func() { metrics.ObserveAnalysis(outcome, started) }()

	ceiling := decimal.NewFromFloat(s.loan.EffortCeiling)
	if !ceiling.IsPositive() {
		return nil, fmt.Errorf("%w: effort ceiling must be positive", ErrConfiguration)
	}

	if !in.Principal.IsPositive() {
		return nil, fmt.Errorf("%w: principal must be positive", ErrInvalidInput)
	}
	if !s.validSpread(in.Spread) {
		return nil, fmt.Errorf("%w: spread %s is not offered", ErrInvalidInput, money.Percent(in.Spread, 3))
	}
	if !in.BaseRate.Equal(s.engine.FixedRate()) && !s.rates.Known(in.BaseRate) {
		return nil, fmt.Errorf("%w: base rate %s is not a known reference rate",
			ErrInvalidInput, money.Percent(in.BaseRate, 3))
	}

	termMonths, err := eligibility.MaxTermMonths(s.now(), in.Status, in.Birthdates...)
	if err != nil {
		return nil, err
	}

	schedule, err := s.buildSchedule(in, termMonths)
	if err != nil {
		return nil, err
	}

	monthlyCharges, err := s.monthlyCharges(in.ChargesDocument)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.extractIncome(in.IncomeDocument)
	if err != nil {
		var rejected *income.RejectedError
		if errors.As(err, &rejected) {
			outcome = metrics.OutcomeRejectedDocument
		}
		return nil, err
	}
	if !breakdown.TotalMonthly.IsPositive() {
		return nil, fmt.Errorf("%w: document yields no usable income", ErrExtraction)
	}

	payment := schedule.Payment
	ratio := payment.Add(monthlyCharges).Div(breakdown.TotalMonthly)
	approved := ratio.LessThanOrEqual(ceiling)

	if approved {
		outcome = metrics.OutcomeApproved
	} else {
		outcome = metrics.OutcomeRefused
	}

	result := &Result{
		ID:       uuid.New(),
		Approved: approved,
		Message:  verdictMessage(approved, payment.Add(monthlyCharges), breakdown.TotalMonthly, ratio, ceiling),

		EffortRatio:    money.Percent(ratio, 2),
		EffortCeiling:  money.Percent(ceiling, 2),
		MonthlyPayment: money.Round2(payment),
		MonthlyCharges: money.Round2(monthlyCharges),
		MonthlyIncome:  money.Round2(breakdown.TotalMonthly),

		Loan: LoanTerms{
			Principal:     money.Round2(in.Principal),
			BaseRate:      money.Percent(in.BaseRate, 3),
			Spread:        money.Percent(in.Spread, 3),
			EffectiveRate: money.Percent(schedule.AnnualRate, 3),
			TermMonths:    termMonths,
			Stressed:      schedule.Stressed,
		},
		Income:   breakdown,
		schedule: schedule,
	}

	span.SetAttributes(
		attribute.Bool("analysis.approved", approved),
		attribute.Bool("analysis.stressed", schedule.Stressed),
		attribute.Int("analysis.term_months", termMonths),
	)
	s.logger.Info("analysis completed",
		slog.String("id", result.ID.String()),
		slog.Bool("approved", approved),
		slog.String("effort_ratio", result.EffortRatio),
		slog.String("monthly_payment", result.MonthlyPayment.String()),
		slog.String("monthly_income", result.MonthlyIncome.String()),
	)

	return result, nil
}

// BuildSchedule computes the amortization plan for the given terms without the
// document pipeline, for the standalone schedule export.
func (s *Service) BuildSchedule(ctx context.Context, in Input) (*amortization.Schedule, error) {
	_, span := s.tracer.Start(ctx, "analysis.BuildSchedule")
	defer span.End()

	if !in.Principal.IsPositive() {
		return nil, fmt.Errorf("%w: principal must be positive", ErrInvalidInput)
	}
	if !s.validSpread(in.Spread) {
		return nil, fmt.Errorf("%w: spread %s is not offered", ErrInvalidInput, money.Percent(in.Spread, 3))
	}

	termMonths, err := eligibility.MaxTermMonths(s.now(), in.Status, in.Birthdates...)
	if err != nil {
		return nil, err
	}
	return s.buildSchedule(in, termMonths)
}

// buildSchedule selects the regime: the fixed rate runs nominal, any variable
// base rate runs the stressed scenario.
func (s *Service) buildSchedule(in Input, termMonths int) (*amortization.Schedule, error) {
	if in.BaseRate.Equal(s.engine.FixedRate()) {
		return s.engine.Nominal(in.Principal, in.BaseRate, in.Spread, termMonths)
	}
	return s.engine.Stressed(in.Principal, in.BaseRate, in.Spread, termMonths)
}

// verdictMessage phrases the decision for the applicant, with the figures
// that produced it.
func verdictMessage(approved bool, outgoings, income, ratio, ceiling decimal.Decimal) string {
	if approved {
		return fmt.Sprintf(
			"the loan can be granted: monthly outgoings of %s against %s of income keep the effort ratio at %s, within the %s ceiling",
			money.Display(outgoings), money.Display(income),
			money.Percent(ratio, 2), money.Percent(ceiling, 2))
	}
	return fmt.Sprintf(
		"the loan cannot be granted: monthly outgoings of %s against %s of income put the effort ratio at %s, over the %s ceiling",
		money.Display(outgoings), money.Display(income),
		money.Percent(ratio, 2), money.Percent(ceiling, 2))
}

func (s *Service) validSpread(spread decimal.Decimal) bool {
	for _, v := range s.loan.ValidSpreads {
		if decimal.NewFromFloat(v).Equal(spread) {
			return true
		}
	}
	return false
}

func (s *Service) monthlyCharges(path string) (decimal.Decimal, error) {
	if path == "" {
		return decimal.Zero, nil
	}

	doc, err := s.reader.Read(path)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: charges document: %v", ErrExtraction, err)
	}
	metrics.DocumentPages.WithLabelValues("charges").Observe(float64(len(doc.Pages)))

	return s.charges.MonthlyTotal(doc), nil
}

func (s *Service) extractIncome(path string) (*income.Breakdown, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: income document is required", ErrInvalidInput)
	}

	doc, err := s.reader.Read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: income document: %v", ErrExtraction, err)
	}
	metrics.DocumentPages.WithLabelValues("income").Observe(float64(len(doc.Pages)))

	return s.income.Extract(doc)
}
