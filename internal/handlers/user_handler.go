package handlers

import (
	"net/http"

	"socialsellers/internal/services"

	"github.com/rs/zerolog"
)

type UserHandler struct {
	userService *services.UserService
	logger      zerolog.Logger
}

func NewUserHandler(users *services.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		userService: users,
		logger:      logger,
	}
}

// GetUsers lists every account. Admin only, enforced by the router.
func (h *UserHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, users)
}
