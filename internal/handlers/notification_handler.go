package handlers

import (
	"net/http"

	"socialsellers/internal/notifier"

	"github.com/rs/zerolog"
)

type NotificationHandler struct {
	notifier *notifier.Notifier
	logger   zerolog.Logger
}

func NewNotificationHandler(n *notifier.Notifier, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifier: n,
		logger:   logger,
	}
}

func (h *NotificationHandler) Test(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.notifier.SendTest(r.Context()))
}

func (h *NotificationHandler) Sale(w http.ResponseWriter, r *http.Request) {
	var req notifier.SaleNotification
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.notifier.NotifySale(r.Context(), req); err != nil {
		h.logger.Error().Err(err).Str("seller", req.SellerEmail).Msg("Sale notification failed")
		respondWithError(w, http.StatusInternalServerError, "notification_failed", "Error al enviar notificaciones de venta")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"mensaje":  "Notificaciones de venta enviadas exitosamente",
		"vendedor": req.SellerName,
		"producto": req.ProductName,
	})
}

func (h *NotificationHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	var req notifier.LowStockNotification
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.notifier.NotifyLowStock(r.Context(), req); err != nil {
		h.logger.Error().Err(err).Str("product", req.ProductName).Msg("Low stock notification failed")
		respondWithError(w, http.StatusInternalServerError, "notification_failed", "Error al enviar notificación de stock bajo")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"mensaje":      "Notificación de stock bajo enviada exitosamente",
		"producto":     req.ProductName,
		"stock_actual": req.CurrentStock,
	})
}
