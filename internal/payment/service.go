package payment

import (
	"context"
	"fmt"
	"strings"

	"ms-eventpass/internal/apperrors"
	"ms-eventpass/internal/logger"
	"ms-eventpass/internal/models"
	"ms-eventpass/internal/utils"
)

type PaymentService struct {
	Gateway         Gateway
	Confirmations   *ConfirmationCache
	WebhookSecret   string
	DefaultCurrency string
	Logger          *logger.Logger
}

func NewPaymentService(gateway Gateway, confirmations *ConfirmationCache, webhookSecret, defaultCurrency string, log *logger.Logger) *PaymentService {
	return &PaymentService{
		Gateway:         gateway,
		Confirmations:   confirmations,
		WebhookSecret:   webhookSecret,
		DefaultCurrency: strings.ToLower(defaultCurrency),
		Logger:          log,
	}
}

// CreateIntent opens a payment for one ticket. The client confirms it with
// the processor and then asks for the ticket with the returned intent id.
func (s *PaymentService) CreateIntent(ctx context.Context, subject string, req models.CreateIntentRequest) (*models.CreateIntentResponse, error) {
	if req.EventID == "" || req.Price <= 0 {
		return nil, fmt.Errorf("event_id and a positive price are required: %w", apperrors.ErrInvalidRequest)
	}
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = s.DefaultCurrency
	}

	intent, err := s.Gateway.CreateIntent(ctx, utils.MinorUnits(req.Price), currency, map[string]string{
		"event_id":    req.EventID,
		"ticket_type": req.TicketType,
		"subject":     subject,
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("PAYMENT", fmt.Sprintf("Created intent %s for event %s", intent.ID, req.EventID))
	return &models.CreateIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
	}, nil
}

// Verify succeeds only when the intent was opened for eventID and has
// settled for exactly amount minor units of currency. Every other outcome is
// ErrPaymentNotConfirmed.
func (s *PaymentService) Verify(ctx context.Context, intentID, eventID string, amount int64, currency string) error {
	intent, err := s.lookup(ctx, intentID)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPaymentNotConfirmed, err)
	}

	switch {
	case intent.Metadata["event_id"] != eventID:
		return fmt.Errorf("intent %s was not opened for event %s: %w", intentID, eventID, apperrors.ErrPaymentNotConfirmed)
	case intent.Status != models.PaymentIntentSucceeded:
		return fmt.Errorf("intent %s has status %q: %w", intentID, intent.Status, apperrors.ErrPaymentNotConfirmed)
	case intent.Amount != amount:
		return fmt.Errorf("intent %s amount %d does not match %d: %w", intentID, intent.Amount, amount, apperrors.ErrPaymentNotConfirmed)
	case !strings.EqualFold(intent.Currency, currency):
		return fmt.Errorf("intent %s currency %s does not match %s: %w", intentID, intent.Currency, currency, apperrors.ErrPaymentNotConfirmed)
	}
	return nil
}

// lookup prefers a recorded confirmation and falls back to asking the
// processor. Cache failures only cost the shortcut.
func (s *PaymentService) lookup(ctx context.Context, intentID string) (*models.PaymentIntent, error) {
	if s.Confirmations != nil {
		cached, err := s.Confirmations.Get(ctx, intentID)
		if err != nil {
			s.Logger.Warn("PAYMENT", fmt.Sprintf("Confirmation cache read failed for %s: %v", intentID, err))
		} else if cached != nil && cached.Status == models.PaymentIntentSucceeded {
			return cached, nil
		}
	}

	intent, err := s.Gateway.GetIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if intent.Status == models.PaymentIntentSucceeded && s.Confirmations != nil {
		if err := s.Confirmations.Record(ctx, intent); err != nil {
			s.Logger.Warn("PAYMENT", fmt.Sprintf("Failed to cache confirmation for %s: %v", intentID, err))
		}
	}
	return intent, nil
}
