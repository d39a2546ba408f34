package handlers

import (
	"net/http"

	"socialsellers/internal/middleware"
	"socialsellers/internal/models"
	"socialsellers/internal/services"

	"github.com/rs/zerolog"
)

type SaleHandler struct {
	salesService *services.SalesService
	logger       zerolog.Logger
}

func NewSaleHandler(sales *services.SalesService, logger zerolog.Logger) *SaleHandler {
	return &SaleHandler{
		salesService: sales,
		logger:       logger,
	}
}

// Register records a sale for the authenticated user at catalog price.
// cantidad defaults to 1 when omitted.
func (h *SaleHandler) Register(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		respondWithServiceError(w, h.logger, services.ErrUnauthenticated)
		return
	}

	req := models.SelfSaleRequest{Quantity: 1}
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sale, err := h.salesService.RecordSelfSale(r.Context(), user, req.ProductID, req.Quantity)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, sale)
}

// CreateForSeller records a sale on behalf of any seller at an explicit unit
// price. Stock is not touched.
func (h *SaleHandler) CreateForSeller(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		respondWithServiceError(w, h.logger, services.ErrUnauthenticated)
		return
	}

	req := models.AdminSaleRequest{Quantity: 1}
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sale, err := h.salesService.RecordAdminSale(r.Context(), user, &req)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, sale)
}

func (h *SaleHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		respondWithServiceError(w, h.logger, services.ErrUnauthenticated)
		return
	}

	sales, err := h.salesService.ListVisible(r.Context(), user)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sales)
}

func (h *SaleHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.salesService.Summary(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}
