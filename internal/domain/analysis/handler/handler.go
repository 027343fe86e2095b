// Package handler exposes the affordability analysis over HTTP. Documents
// arrive as multipart uploads and are staged on disk for the extraction
// pipeline, then removed when the request finishes.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/loan-affordability/internal/domain/analysis"
	"github.com/FACorreiaa/loan-affordability/internal/domain/eligibility"
	"github.com/FACorreiaa/loan-affordability/internal/domain/income"
	"github.com/FACorreiaa/loan-affordability/pkg/storage"
)

// maxUploadBytes bounds the multipart form held in memory plus temp files.
const maxUploadBytes = 32 << 20

// AnalysisHandler handles the affordability endpoints.
type AnalysisHandler struct {
	service *analysis.Service
	staging *storage.Store
	logger  *slog.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(service *analysis.Service, staging *storage.Store, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
		staging: staging,
		logger:  logger,
	}
}

// Register mounts the analysis routes on the mux.
func (h *AnalysisHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/analyses", h.CreateAnalysis)
	mux.HandleFunc("POST /v1/schedule.xlsx", h.ExportSchedule)
}

// CreateAnalysis runs the full affordability pipeline on the uploaded
// documents and returns the verdict.
func (h *AnalysisHandler) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "request must be multipart/form-data")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	in, err := inputFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	incomePath, cleanupIncome, err := h.stageUpload(r, "income_document", true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanupIncome()
	in.IncomeDocument = incomePath

	chargesPath, cleanupCharges, err := h.stageUpload(r, "charges_document", false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanupCharges()
	in.ChargesDocument = chargesPath

	result, err := h.service.Analyze(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ExportSchedule computes the amortization plan for the posted loan terms and
// streams it as a spreadsheet.
func (h *AnalysisHandler) ExportSchedule(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	in, err := inputFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	schedule, err := h.service.BuildSchedule(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.xlsx"`)
	if err := schedule.WriteXLSX(w); err != nil {
		h.logger.Error("failed to stream schedule spreadsheet", slog.Any("error", err))
	}
}

// inputFromForm parses the loan and applicant fields shared by both endpoints.
func inputFromForm(r *http.Request) (analysis.Input, error) {
	var in analysis.Input

	principal, err := formDecimal(r, "principal")
	if err != nil {
		return in, err
	}
	baseRate, err := formDecimal(r, "base_rate")
	if err != nil {
		return in, err
	}
	spread, err := formDecimal(r, "spread")
	if err != nil {
		return in, err
	}

	in.Principal = principal
	in.BaseRate = baseRate
	in.Spread = spread
	in.Status = eligibility.MaritalStatus(strings.TrimSpace(r.FormValue("marital_status")))

	for _, b := range r.Form["birthdates"] {
		for _, part := range strings.Split(b, ",") {
			if part = strings.TrimSpace(part); part != "" {
				in.Birthdates = append(in.Birthdates, part)
			}
		}
	}

	return in, nil
}

func formDecimal(r *http.Request, field string) (decimal.Decimal, error) {
	value := strings.TrimSpace(r.FormValue(field))
	if value == "" {
		return decimal.Zero, fmt.Errorf("%s is required", field)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a number", field)
	}
	return d, nil
}

// stageUpload stores one uploaded file for the extraction pipeline. The
// cleanup func is always safe to defer; for an absent optional upload it is a
// no-op.
func (h *AnalysisHandler) stageUpload(r *http.Request, field string, required bool) (string, func(), error) {
	noop := func() {}

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && !required {
			return "", noop, nil
		}
		return "", noop, fmt.Errorf("%s upload is required", field)
	}
	defer file.Close()

	staged, err := h.staging.Save(header.Filename, file)
	if err != nil {
		return "", noop, fmt.Errorf("staging %s: %w", field, err)
	}
	cleanup := func() {
		if err := h.staging.Remove(staged); err != nil {
			h.logger.Warn("failed to remove staged upload",
				slog.String("path", staged.Path), slog.Any("error", err))
		}
	}

	h.logger.Debug("upload staged",
		slog.String("field", field),
		slog.String("filename", header.Filename),
		slog.Int64("size", staged.Size))
	return staged.Path, cleanup, nil
}

// respondError maps pipeline errors onto HTTP statuses. Anything the caller
// can fix is 422; unexpected failures stay 500 without leaking detail.
func (h *AnalysisHandler) respondError(w http.ResponseWriter, err error) {
	var rejected *income.RejectedError
	switch {
	case errors.As(err, &rejected):
		writeError(w, http.StatusUnprocessableEntity, rejected.Error())
	case errors.Is(err, analysis.ErrInvalidInput),
		errors.Is(err, analysis.ErrExtraction),
		errors.Is(err, eligibility.ErrInvalidStatus),
		errors.Is(err, eligibility.ErrBirthdateCount),
		errors.Is(err, eligibility.ErrInvalidBirthdate),
		errors.Is(err, eligibility.ErrOverAgeLimit),
		errors.Is(err, eligibility.ErrTermTooShort):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("analysis failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
