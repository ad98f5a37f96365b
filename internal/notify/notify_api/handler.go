package notify_api

import (
	"context"
	"encoding/json"
	"net/http"

	"ms-eventpass/internal/auth"
	"ms-eventpass/internal/models"
	"ms-eventpass/internal/utils"

	"github.com/go-chi/chi/v5"
)

type NotifyService interface {
	ListNotifications(ctx context.Context, subject string) ([]models.Notification, error)
	RegisterSubscription(ctx context.Context, subject string, req models.SubscribeRequest) (*models.PushSubscription, error)
}

type Handler struct {
	Notifier NotifyService
}

func NewHandler(notifier NotifyService) *Handler {
	return &Handler{Notifier: notifier}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/notifications", h.ListNotifications)
	r.Post("/api/push/subscriptions", h.Subscribe)
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.Notifier.ListNotifications(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, "Failed to list notifications", err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Notifications retrieved", list))
}

// Subscribe registers a browser push subscription.
// Expected POST body is the browser's PushSubscription JSON: {"endpoint": "...", "keys": {"p256dh": "...", "auth": "..."}}
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req models.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	sub, err := h.Notifier.RegisterSubscription(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		utils.WriteError(w, "Failed to register subscription", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Subscription registered", sub))
}
