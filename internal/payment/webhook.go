package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// WebhookError carries the status a webhook failure should answer with.
type WebhookError struct {
	StatusCode    int
	PublicError   string
	InternalError string
}

func (e *WebhookError) Error() string { return e.InternalError }

// HandleWebhook verifies a Stripe-signed delivery and records succeeded
// intents as confirmations. Other event types are acknowledged and ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.WebhookSecret == "" {
		return &WebhookError{
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Webhook processing error",
			InternalError: "Stripe webhook secret is not configured",
		}
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		s.Logger.LogSecurity("WEBHOOK", fmt.Sprintf("Signature verification failed: %v", err))
		return &WebhookError{
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid webhook signature",
			InternalError: fmt.Sprintf("signature verification failed: %v", err),
		}
	}

	s.Logger.Info("WEBHOOK", fmt.Sprintf("Processing Stripe webhook event: %s", event.Type))

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return &WebhookError{
				StatusCode:    http.StatusBadRequest,
				PublicError:   "Invalid event data",
				InternalError: fmt.Sprintf("failed to unmarshal payment intent: %v", err),
			}
		}
		if s.Confirmations == nil {
			return nil
		}
		if err := s.Confirmations.Record(ctx, toIntent(&pi)); err != nil {
			s.Logger.Error("WEBHOOK", fmt.Sprintf("Failed to record confirmation for %s: %v", pi.ID, err))
			return &WebhookError{
				StatusCode:    http.StatusInternalServerError,
				PublicError:   "Failed to record payment",
				InternalError: err.Error(),
			}
		}
		s.Logger.Info("WEBHOOK", fmt.Sprintf("Recorded confirmation for %s", pi.ID))
	case stripe.EventTypePaymentIntentPaymentFailed:
		s.Logger.Warn("WEBHOOK", "Payment failed notification received")
	default:
		s.Logger.Debug("WEBHOOK", fmt.Sprintf("Ignoring event type %s", event.Type))
	}
	return nil
}
