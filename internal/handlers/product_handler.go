package handlers

import (
	"net/http"
	"strconv"

	"socialsellers/internal/models"
	"socialsellers/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type ProductHandler struct {
	productService *services.ProductService
	logger         zerolog.Logger
}

func NewProductHandler(products *services.ProductService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		productService: products,
		logger:         logger,
	}
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProductRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	product, err := h.productService.Create(r.Context(), &req)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.List(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || productID <= 0 {
		respondWithError(w, http.StatusUnprocessableEntity, "invalid_product_id", "ID de producto inválido")
		return
	}

	var req models.UpdateProductRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	product, err := h.productService.UpdatePartial(r.Context(), productID, &req)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}
