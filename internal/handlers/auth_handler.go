package handlers

import (
	"encoding/json"
	"mime"
	"net/http"
	"time"

	"socialsellers/internal/middleware"
	"socialsellers/internal/models"
	"socialsellers/internal/services"

	"github.com/rs/zerolog"
)

type AuthHandler struct {
	userService  *services.UserService
	tokenService *services.TokenService
	accessTTL    time.Duration
	logger       zerolog.Logger
}

func NewAuthHandler(users *services.UserService, tokens *services.TokenService, accessTTL time.Duration, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		userService:  users,
		tokenService: tokens,
		accessTTL:    accessTTL,
		logger:       logger,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		h.logger.Warn().Err(err).Str("email", req.Email).Msg("Registration failed")
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, user)
}

// Login accepts either an OAuth2 password form (username, password) or a JSON
// body with email and password.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readCredentials(w, r)
	if !ok {
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Warn().Str("email", req.Email).Msg("Login failed")
		respondWithServiceError(w, h.logger, err)
		return
	}

	token, err := h.tokenService.Issue(user.Email, h.accessTTL)
	if err != nil {
		h.logger.Error().Err(err).Msg("Token generation failed")
		respondWithError(w, http.StatusInternalServerError, "token_generation_failed", "No se pudo generar el token")
		return
	}

	respondWithJSON(w, http.StatusOK, models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		respondWithServiceError(w, h.logger, services.ErrUnauthenticated)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) readCredentials(w http.ResponseWriter, r *http.Request) (models.LoginRequest, bool) {
	var req models.LoginRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil && err != http.ErrNotMultipart {
			respondWithError(w, http.StatusBadRequest, "invalid_request", "Formulario inválido")
			return req, false
		}
		req.Email = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	default:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid_request", "Cuerpo de la solicitud inválido")
			return req, false
		}
	}

	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "validation_error", validationMessage(err))
		return req, false
	}
	return req, true
}
