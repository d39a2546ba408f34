package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

type SystemHandler struct {
	db     pinger
	logger zerolog.Logger
}

func NewSystemHandler(db pinger, logger zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		db:     db,
		logger: logger,
	}
}

func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "API Social Sellers activa"})
}

// Health reports ok only while the database answers a ping.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("Health check failed")
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
