package handlers

import (
	"net/http"

	"socialsellers/internal/models"
	"socialsellers/internal/services"

	"github.com/rs/zerolog"
)

type SellerHandler struct {
	sellerService *services.SellerService
	logger        zerolog.Logger
}

func NewSellerHandler(sellers *services.SellerService, logger zerolog.Logger) *SellerHandler {
	return &SellerHandler{
		sellerService: sellers,
		logger:        logger,
	}
}

func (h *SellerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterSellerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	seller, err := h.sellerService.Register(r.Context(), &req)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, seller)
}

func (h *SellerHandler) List(w http.ResponseWriter, r *http.Request) {
	sellers, err := h.sellerService.List(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sellers)
}
