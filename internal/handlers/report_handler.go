package handlers

import (
	"net/http"
	"strconv"
	"time"

	"socialsellers/internal/services"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type ReportHandler struct {
	reportService *services.ReportService
	logger        zerolog.Logger
}

func NewReportHandler(reports *services.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reports,
		logger:        logger,
	}
}

func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	from, err := parseTimeParam(r, "desde")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	to, err := parseTimeParam(r, "hasta")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	summary, err := h.reportService.Summary(r.Context(), from, to)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

func (h *ReportHandler) TopProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r, "limite", services.DefaultTopProducts)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	ranking, err := h.reportService.TopProducts(r.Context(), limit)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ranking)
}

func (h *ReportHandler) TopSellers(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r, "limite", services.DefaultTopSellers)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	ranking, err := h.reportService.TopSellers(r.Context(), limit)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ranking)
}

func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.reportService.Dashboard(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, dashboard)
}

func (h *ReportHandler) Commissions(w http.ResponseWriter, r *http.Request) {
	percentage := services.DefaultCommissionPercentage
	if raw := r.URL.Query().Get("porcentaje"); raw != "" {
		p, err := decimal.NewFromString(raw)
		if err != nil {
			respondWithError(w, http.StatusUnprocessableEntity, "validation_error", "porcentaje debe ser numérico")
			return
		}
		percentage = p
	}

	commissions, err := h.reportService.Commissions(r.Context(), percentage)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, commissions)
}

func parseTimeParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return &t, nil
		}
	}
	return nil, &services.ValidationError{Field: name, Message: "fecha inválida, use YYYY-MM-DDTHH:MM:SS"}
}

func parseIntParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &services.ValidationError{Field: name, Message: "debe ser un número entero"}
	}
	return v, nil
}
