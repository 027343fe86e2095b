package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all application configuration. It is loaded once at startup
// and must be treated as read-only afterwards.
type Config struct {
	Server    ServerConfig
	Loan      LoanConfig
	Documents DocumentsConfig
	Rates     RatesConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	RateLimitPerSecond int
	RateLimitBurst     int
}

// LoanConfig carries the rate constants and the affordability ceiling.
type LoanConfig struct {
	// FixedRate is the bank's fixed annual rate. Any other base rate selects
	// the stressed regime.
	FixedRate float64
	// StressRate is the add-on applied under the stressed regime. Zero only
	// when unset.
	StressRate float64
	// EffortCeiling is the maximum allowed effort ratio (e.g. 0.35).
	EffortCeiling float64
	// ValidSpreads are the spread values the bank offers.
	ValidSpreads []float64
}

// SectionMarkers configures how one income-declaration section is located
// inside the tax document.
type SectionMarkers struct {
	// Key is the phrase that classifies a page into this section.
	Key string
	// Fields are the row labels that mark relevant table rows.
	Fields []string
}

type DocumentsConfig struct {
	// LimitDate is the "MM-DD" filing deadline used to derive the cutoff year.
	LimitDate string
	// ChargeMarker locates charge lines in the credit-registry report.
	ChargeMarker string

	Withholdings SectionMarkers
	Taxed        SectionMarkers
	Simplified   SectionMarkers

	// TaxRateFile optionally points at a code,rate CSV overriding the
	// built-in tax-rate table for the taxed category.
	TaxRateFile string

	// StagingDir is where uploads are staged; empty means the system temp dir.
	StagingDir string
}

type RatesConfig struct {
	// SourceURL is the Euribor table page, with a %d placeholder for the year.
	SourceURL string
	// RefreshSpec is the cron expression for the refresh job.
	RefreshSpec string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 20),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 40),
		},
		Loan: LoanConfig{
			FixedRate:     getEnvAsFloat("LOAN_FIXED_RATE", 0.03),
			StressRate:    getEnvAsFloat("LOAN_STRESS_RATE", 0),
			EffortCeiling: getEnvAsFloat("LOAN_EFFORT_CEILING", 0),
			ValidSpreads:  getEnvAsFloats("LOAN_VALID_SPREADS", []float64{0.01, 0.0125, 0.015}),
		},
		Documents: DocumentsConfig{
			LimitDate:    getEnv("DOC_LIMIT_DATE", "06-30"),
			ChargeMarker: getEnv("DOC_CHARGE_MARKER", "prestação mensal"),
			Withholdings: SectionMarkers{
				Key:    getEnv("DOC_WITHHOLDINGS_KEY", "trabalho dependente"),
				Fields: getEnvAsList("DOC_WITHHOLDINGS_FIELDS", []string{"rendimentos do trabalho"}),
			},
			Taxed: SectionMarkers{
				Key: getEnv("DOC_TAXED_KEY", "rendimentos empresariais e profissionais"),
			},
			Simplified: SectionMarkers{
				Key:    getEnv("DOC_SIMPLIFIED_KEY", "regime simplificado"),
				Fields: getEnvAsList("DOC_SIMPLIFIED_FIELDS", []string{"rendimentos profissionais"}),
			},
			TaxRateFile: getEnv("DOC_TAX_RATE_FILE", ""),
			StagingDir:  getEnv("DOC_STAGING_DIR", ""),
		},
		Rates: RatesConfig{
			SourceURL:   getEnv("RATES_SOURCE_URL", "https://www.euribor-rates.eu/pt/taxas-euribor-por-ano/%d/"),
			RefreshSpec: getEnv("RATES_REFRESH_SPEC", "0 7 * * *"),
		},
	}

	if cfg.Loan.EffortCeiling <= 0 {
		return nil, errors.New("LOAN_EFFORT_CEILING is required and must be positive")
	}

	if _, err := time.Parse("01-02", cfg.Documents.LimitDate); err != nil {
		return nil, fmt.Errorf("DOC_LIMIT_DATE must be MM-DD: %w", err)
	}

	if cfg.Documents.ChargeMarker == "" {
		return nil, errors.New("DOC_CHARGE_MARKER is required")
	}

	for _, key := range []string{
		cfg.Documents.Withholdings.Key,
		cfg.Documents.Taxed.Key,
		cfg.Documents.Simplified.Key,
	} {
		if key == "" {
			return nil, errors.New("section key markers must not be empty")
		}
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloats parses a comma-separated list of floats. A single bad entry
// invalidates the whole value and the default is kept.
func getEnvAsFloats(key string, defaultValue []float64) []float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return defaultValue
		}
		values = append(values, v)
	}
	return values
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	return values
}
