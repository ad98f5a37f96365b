package payment_api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"ms-eventpass/internal/auth"
	"ms-eventpass/internal/logger"
	"ms-eventpass/internal/models"
	"ms-eventpass/internal/payment"
	"ms-eventpass/internal/utils"

	"github.com/go-chi/chi/v5"
)

// Stripe rejects webhook payloads above this size.
const maxWebhookBody = 65536

type PaymentService interface {
	CreateIntent(ctx context.Context, subject string, req models.CreateIntentRequest) (*models.CreateIntentResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type Handler struct {
	Payments PaymentService
	Logger   *logger.Logger
}

func NewHandler(payments PaymentService, log *logger.Logger) *Handler {
	return &Handler{Payments: payments, Logger: log}
}

// PublicRoutes mounts the Stripe webhook, which authenticates by signature.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/api/payments/webhook", h.HandleWebhook)
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/payments/intent", h.CreateIntent)
}

// CreateIntent starts a payment for a ticket purchase. The client confirms
// it with the returned client secret, then calls POST /api/tickets/paid.
// Expected POST body: {"event_id", "ticket_type", "price", "currency"}
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	resp, err := h.Payments.CreateIntent(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		if errors.Is(err, payment.ErrStripeAPIError) {
			utils.WriteJSON(w, http.StatusBadGateway, utils.ErrorResponse("Payment processor error", err.Error()))
			return
		}
		utils.WriteError(w, "Failed to create payment intent", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Payment intent created", resp))
}

func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Failed to read request body", err.Error()))
		return
	}

	err = h.Payments.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		var whErr *payment.WebhookError
		if errors.As(err, &whErr) {
			utils.WriteJSON(w, whErr.StatusCode, utils.ErrorResponse(whErr.PublicError, whErr.PublicError))
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Webhook processing error", err.Error()))
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}
