package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"socialsellers/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"mensaje"`
}

func respondWithError(w http.ResponseWriter, code int, errorCode, message string) {
	respondWithJSON(w, code, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// It writes the error response itself and reports whether the caller may go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Cuerpo de la solicitud inválido")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "validation_error", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s es obligatorio", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s no es un email válido", field))
		case "gt", "gte", "min", "max", "lt", "lte":
			msgs = append(msgs, fmt.Sprintf("%s no cumple %s=%s", field, fe.Tag(), fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s debe ser uno de: %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s es inválido", field))
		}
	}
	return strings.Join(msgs, "; ")
}

// respondWithServiceError maps service errors onto status codes. Anything
// unrecognised is logged and reported as a 500 without details.
func respondWithServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var (
		validationErr *services.ValidationError
		stockErr      *services.InsufficientStockError
		forbiddenErr  *services.ForbiddenError
	)

	switch {
	case errors.As(err, &validationErr):
		respondWithError(w, http.StatusUnprocessableEntity, "validation_error", validationErr.Error())
	case errors.As(err, &stockErr):
		respondWithError(w, http.StatusBadRequest, "insufficient_stock", stockErr.Error())
	case errors.As(err, &forbiddenErr):
		respondWithError(w, http.StatusForbidden, "forbidden", forbiddenErr.Error())
	case errors.Is(err, services.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", "Bearer")
		respondWithError(w, http.StatusUnauthorized, "unauthorized", services.ErrUnauthenticated.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		respondWithError(w, http.StatusUnauthorized, "authentication_failed", services.ErrInvalidCredentials.Error())
	case errors.Is(err, services.ErrProductNotFound):
		respondWithError(w, http.StatusNotFound, "product_not_found", services.ErrProductNotFound.Error())
	case errors.Is(err, services.ErrSellerNotFound):
		respondWithError(w, http.StatusNotFound, "seller_not_found", services.ErrSellerNotFound.Error())
	case errors.Is(err, services.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, "user_not_found", services.ErrUserNotFound.Error())
	case errors.Is(err, services.ErrDuplicateEmail):
		respondWithError(w, http.StatusBadRequest, "duplicate_email", services.ErrDuplicateEmail.Error())
	case errors.Is(err, services.ErrDuplicateHandle):
		respondWithError(w, http.StatusBadRequest, "duplicate_handle", services.ErrDuplicateHandle.Error())
	case errors.Is(err, services.ErrTransient):
		w.Header().Set("Retry-After", "1")
		respondWithError(w, http.StatusServiceUnavailable, "transient_error", "Conflicto temporal en la base de datos, reintente la operación")
	default:
		logger.Error().Err(err).Msg("Unhandled service error")
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Error interno del servidor")
	}
}
