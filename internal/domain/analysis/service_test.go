package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/loan-affordability/internal/domain/amortization"
	"github.com/FACorreiaa/loan-affordability/internal/domain/charges"
	"github.com/FACorreiaa/loan-affordability/internal/domain/document"
	"github.com/FACorreiaa/loan-affordability/internal/domain/eligibility"
	"github.com/FACorreiaa/loan-affordability/internal/domain/income"
	"github.com/FACorreiaa/loan-affordability/internal/domain/rates"
	"github.com/FACorreiaa/loan-affordability/pkg/config"
)

// fakeReader serves pre-built documents by path.
type fakeReader struct {
	docs map[string]*document.Document
}

func (r *fakeReader) Read(path string) (*document.Document, error) {
	doc, ok := r.docs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", document.ErrUnreadable, path)
	}
	return doc, nil
}

func testDocumentsConfig() config.DocumentsConfig {
	return config.DocumentsConfig{
		LimitDate:    "06-30",
		ChargeMarker: "prestação mensal",
		Withholdings: config.SectionMarkers{
			Key:    "trabalho dependente",
			Fields: []string{"rendimentos do trabalho"},
		},
		Taxed: config.SectionMarkers{
			Key: "rendimentos empresariais e profissionais",
		},
		Simplified: config.SectionMarkers{
			Key:    "regime simplificado",
			Fields: []string{"rendimentos profissionais"},
		},
	}
}

// incomeDoc builds a single withholdings page declaring the given annual gross
// for the current year, which is always on or after the cutoff year.
func incomeDoc(gross string) *document.Document {
	return &document.Document{Pages: []document.Page{{
		Number: 1,
		Text:   "Anexo A - Trabalho Dependente",
		Rows: []document.Row{
			{"Ano dos rendimentos", fmt.Sprintf("%d", time.Now().Year())},
			{"Rendimentos do trabalho", gross},
		},
	}}}
}

func chargesDoc(line string) *document.Document {
	return &document.Document{Pages: []document.Page{{
		Number: 1,
		Text:   line,
	}}}
}

func newTestService(t *testing.T, loan config.LoanConfig, docs map[string]*document.Document) *Service {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	cfg := testDocumentsConfig()

	chargesExtractor, err := charges.NewExtractor(cfg.ChargeMarker, logger)
	require.NoError(t, err)

	s := NewService(
		&fakeReader{docs: docs},
		amortization.NewEngine(loan.FixedRate, loan.StressRate),
		chargesExtractor,
		income.NewExtractor(cfg, income.DefaultTaxRates(), logger),
		rates.NewService("http://localhost/%d/", logger),
		loan,
		logger,
	)
	s.now = func() time.Time { return time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC) }
	return s
}

func defaultLoan() config.LoanConfig {
	return config.LoanConfig{
		FixedRate:     0.03,
		StressRate:    0.015,
		EffortCeiling: 0.35,
		ValidSpreads:  []float64{0.01, 0.0125, 0.015},
	}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAnalyze_Approved(t *testing.T) {
	s := newTestService(t, defaultLoan(), map[string]*document.Document{
		"income.pdf":  incomeDoc("24.000,00"),
		"charges.pdf": chargesDoc("Prestação mensal: 100,00"),
	})

	// Applicant is 28 at the reference date, so the term policy grants 40 years.
	result, err := s.Analyze(context.Background(), Input{
		Principal:       dec("100000"),
		BaseRate:        dec("0.03"),
		Spread:          dec("0.01"),
		Status:          eligibility.Single,
		Birthdates:      []string{"01/01/1998"},
		IncomeDocument:  "income.pdf",
		ChargesDocument: "charges.pdf",
	})
	require.NoError(t, err)

	assert.True(t, result.Approved)
	assert.Contains(t, result.Message, "can be granted")
	assert.Contains(t, result.Message, "€2,000.00")
	assert.Contains(t, result.Message, result.EffortRatio)
	assert.False(t, result.Loan.Stressed)
	assert.Equal(t, 480, result.Loan.TermMonths)
	assert.Equal(t, "4.000%", result.Loan.EffectiveRate)
	assert.True(t, result.MonthlyIncome.Equal(dec("2000")))
	assert.True(t, result.MonthlyCharges.Equal(dec("100")))
	// 100000 over 40 years at 4% is a bit under 420 a month.
	assert.True(t, result.MonthlyPayment.GreaterThan(dec("400")))
	assert.True(t, result.MonthlyPayment.LessThan(dec("440")))
	assert.Len(t, result.Schedule().Periods, 480)
	assert.NotEqual(t, "", result.ID.String())
}

func TestAnalyze_RatioAtCeilingIsApproved(t *testing.T) {
	loan := config.LoanConfig{
		FixedRate:     0,
		EffortCeiling: 0.25,
		ValidSpreads:  []float64{0},
	}
	s := newTestService(t, loan, map[string]*document.Document{
		"income.pdf": incomeDoc("4.800,00"),
	})

	// 48000 over 480 months at zero rate is exactly 100 a month against 400 of
	// income, landing exactly on the 0.25 ceiling.
	result, err := s.Analyze(context.Background(), Input{
		Principal:      dec("48000"),
		BaseRate:       dec("0"),
		Spread:         dec("0"),
		Status:         eligibility.Single,
		Birthdates:     []string{"01/01/1998"},
		IncomeDocument: "income.pdf",
	})
	require.NoError(t, err)

	assert.True(t, result.Approved)
	assert.Equal(t, "25.00%", result.EffortRatio)
}

func TestAnalyze_VariableRateRunsStressed(t *testing.T) {
	s := newTestService(t, defaultLoan(), map[string]*document.Document{
		"income.pdf": incomeDoc("24.000,00"),
	})

	result, err := s.Analyze(context.Background(), Input{
		Principal:      dec("100000"),
		BaseRate:       dec("0.02"),
		Spread:         dec("0.01"),
		Status:         eligibility.Single,
		Birthdates:     []string{"01/01/1998"},
		IncomeDocument: "income.pdf",
	})
	require.NoError(t, err)

	assert.True(t, result.Loan.Stressed)
	// 2% base + 1% spread + 1.5% stress add-on.
	assert.Equal(t, "4.500%", result.Loan.EffectiveRate)
}

func TestAnalyze_Refused(t *testing.T) {
	s := newTestService(t, defaultLoan(), map[string]*document.Document{
		"income.pdf": incomeDoc("6.000,00"),
	})

	result, err := s.Analyze(context.Background(), Input{
		Principal:      dec("200000"),
		BaseRate:       dec("0.03"),
		Spread:         dec("0.01"),
		Status:         eligibility.Single,
		Birthdates:     []string{"01/01/1998"},
		IncomeDocument: "income.pdf",
	})
	require.NoError(t, err)

	assert.False(t, result.Approved)
	assert.Contains(t, result.Message, "cannot be granted")
	assert.Contains(t, result.Message, "over the 35.00% ceiling")
}

func TestAnalyze_InputErrors(t *testing.T) {
	s := newTestService(t, defaultLoan(), map[string]*document.Document{
		"income.pdf": incomeDoc("24.000,00"),
	})

	base := Input{
		Principal:      dec("100000"),
		BaseRate:       dec("0.03"),
		Spread:         dec("0.01"),
		Status:         eligibility.Single,
		Birthdates:     []string{"01/01/1998"},
		IncomeDocument: "income.pdf",
	}

	t.Run("non-positive principal", func(t *testing.T) {
		in := base
		in.Principal = dec("0")
		_, err := s.Analyze(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("unknown spread", func(t *testing.T) {
		in := base
		in.Spread = dec("0.02")
		_, err := s.Analyze(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("missing income document", func(t *testing.T) {
		in := base
		in.IncomeDocument = ""
		_, err := s.Analyze(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("eligibility errors pass through", func(t *testing.T) {
		in := base
		in.Birthdates = []string{"01/01/1998", "02/02/1999"}
		_, err := s.Analyze(context.Background(), in)
		assert.ErrorIs(t, err, eligibility.ErrBirthdateCount)
	})
}

func TestAnalyze_UnknownBaseRateWithWarmCache(t *testing.T) {
	s := newTestService(t, defaultLoan(), map[string]*document.Document{
		"income.pdf": incomeDoc("24.000,00"),
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<table class="table-striped">
			<tr><td>Euribor 12 meses</td><td>2,301 %</td></tr></table>`))
	}))
	t.Cleanup(srv.Close)
	s.rates = rates.NewService(srv.URL+"/%d/", slog.New(slog.DiscardHandler))
	require.NoError(t, s.rates.Refresh(context.Background()))

	in := Input{
		Principal:      dec("100000"),
		BaseRate:       dec("0.09"),
		Spread:         dec("0.01"),
		Status:         eligibility.Single,
		Birthdates:     []string{"01/01/1998"},
		IncomeDocument: "income.pdf",
	}
	_, err := s.Analyze(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// The cached reference rate itself is accepted.
	in.BaseRate = dec("0.02301")
	_, err = s.Analyze(context.Background(), in)
	assert.NoError(t, err)
}

func TestAnalyze_RejectedIncomeDocument(t *testing.T) {
	old := &document.Document{Pages: []document.Page{{
		Number: 1,
		Text:   "Anexo A - Trabalho Dependente",
		Rows: []document.Row{
			{"Ano dos rendimentos", "2000"},
			{"Rendimentos do trabalho", "24.000,00"},
		},
	}}}
	s := newTestService(t, defaultLoan(), map[string]*document.Document{
		"income.pdf": old,
	})

	_, err := s.Analyze(context.Background(), Input{
		Principal:      dec("100000"),
		BaseRate:       dec("0.03"),
		Spread:         dec("0.01"),
		Status:         eligibility.Single,
		Birthdates:     []string{"01/01/1998"},
		IncomeDocument: "income.pdf",
	})

	var rejected *income.RejectedError
	assert.ErrorAs(t, err, &rejected)
}

func TestAnalyze_ExtractionErrors(t *testing.T) {
	s := newTestService(t, defaultLoan(), map[string]*document.Document{
		"empty.pdf": {Pages: []document.Page{{Number: 1, Text: "Página de rosto"}}},
	})

	base := Input{
		Principal:  dec("100000"),
		BaseRate:   dec("0.03"),
		Spread:     dec("0.01"),
		Status:     eligibility.Single,
		Birthdates: []string{"01/01/1998"},
	}

	t.Run("unreadable income document", func(t *testing.T) {
		in := base
		in.IncomeDocument = "missing.pdf"
		_, err := s.Analyze(context.Background(), in)
		assert.ErrorIs(t, err, ErrExtraction)
	})

	t.Run("document with no usable income", func(t *testing.T) {
		in := base
		in.IncomeDocument = "empty.pdf"
		_, err := s.Analyze(context.Background(), in)
		assert.ErrorIs(t, err, ErrExtraction)
	})

	t.Run("unreadable charges document", func(t *testing.T) {
		in := base
		in.IncomeDocument = "empty.pdf"
		in.ChargesDocument = "missing.pdf"
		_, err := s.Analyze(context.Background(), in)
		assert.ErrorIs(t, err, ErrExtraction)
	})
}

func TestBuildSchedule(t *testing.T) {
	s := newTestService(t, defaultLoan(), nil)

	schedule, err := s.BuildSchedule(context.Background(), Input{
		Principal:  dec("100000"),
		BaseRate:   dec("0.02"),
		Spread:     dec("0.01"),
		Status:     eligibility.Married,
		Birthdates: []string{"01/01/1998", "01/01/1990"},
	})
	require.NoError(t, err)

	// The oldest applicant is 36, so the term policy grants 35 years.
	assert.Len(t, schedule.Periods, 420)
	assert.True(t, schedule.Stressed)
}
