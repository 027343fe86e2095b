package main

import (
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/loan-affordability/internal/domain/amortization"
	"github.com/FACorreiaa/loan-affordability/internal/domain/analysis"
	analysishandler "github.com/FACorreiaa/loan-affordability/internal/domain/analysis/handler"
	"github.com/FACorreiaa/loan-affordability/internal/domain/charges"
	"github.com/FACorreiaa/loan-affordability/internal/domain/document"
	"github.com/FACorreiaa/loan-affordability/internal/domain/income"
	"github.com/FACorreiaa/loan-affordability/internal/domain/rates"
	"github.com/FACorreiaa/loan-affordability/pkg/config"
	"github.com/FACorreiaa/loan-affordability/pkg/cron"
	"github.com/FACorreiaa/loan-affordability/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Logger *slog.Logger

	// Services
	Reader           document.Reader
	Engine           *amortization.Engine
	ChargesExtractor *charges.Extractor
	IncomeExtractor  *income.Extractor
	RatesService     *rates.Service
	AnalysisService  *analysis.Service
	Staging          *storage.Store

	// Handlers
	AnalysisHandler *analysishandler.AnalysisHandler

	Scheduler *cron.Scheduler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initServices initializes the document pipeline and the analysis service
func (d *Dependencies) initServices() error {
	d.Reader = document.NewPDFReader(d.Logger)
	d.Engine = amortization.NewEngine(d.Config.Loan.FixedRate, d.Config.Loan.StressRate)

	chargesExtractor, err := charges.NewExtractor(d.Config.Documents.ChargeMarker, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to init charges extractor: %w", err)
	}
	d.ChargesExtractor = chargesExtractor

	taxRates, err := income.LoadTaxRatesFile(d.Config.Documents.TaxRateFile)
	if err != nil {
		return fmt.Errorf("failed to load tax rates: %w", err)
	}
	d.IncomeExtractor = income.NewExtractor(d.Config.Documents, taxRates, d.Logger)

	staging, err := storage.NewStore(d.Config.Documents.StagingDir)
	if err != nil {
		return fmt.Errorf("failed to init upload staging: %w", err)
	}
	d.Staging = staging

	d.RatesService = rates.NewService(d.Config.Rates.SourceURL, d.Logger)
	d.Scheduler = cron.NewScheduler(d.RatesService, d.Config.Rates.RefreshSpec, d.Logger)

	d.AnalysisService = analysis.NewService(
		d.Reader,
		d.Engine,
		d.ChargesExtractor,
		d.IncomeExtractor,
		d.RatesService,
		d.Config.Loan,
		d.Logger,
	)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.AnalysisHandler = analysishandler.NewAnalysisHandler(d.AnalysisService, d.Staging, d.Logger)
	d.Logger.Info("handlers initialized")
}

// Cleanup stops background jobs
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	d.Logger.Info("cleanup completed")
}
