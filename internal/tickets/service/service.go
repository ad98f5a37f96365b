package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-eventpass/internal/apperrors"
	"ms-eventpass/internal/database"
	"ms-eventpass/internal/logger"
	"ms-eventpass/internal/models"
	"ms-eventpass/internal/tickets/qr"
	"ms-eventpass/internal/utils"
)

const maxTokenAttempts = 3

type TicketDBLayer interface {
	CreateTicket(ctx context.Context, ticket *models.Ticket, enforceCapacity bool) error
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	GetTicketByPaymentRef(ctx context.Context, ref string) (*models.Ticket, error)
	GetTicketByToken(ctx context.Context, token string) (*models.Ticket, error)
	GetTicketsByProfile(ctx context.Context, profileID string) ([]models.Ticket, error)
	CancelTicket(ctx context.Context, ticketID, profileID string) error
	CheckInTicket(ctx context.Context, token, eventID string, at time.Time) (*models.CheckinResult, error)
	GetEventByID(ctx context.Context, eventID string) (*models.Event, error)
	GetTotalTicketsCount(ctx context.Context) (int, error)
	GetTicketCountsForEvent(ctx context.Context, eventID string) ([]models.TicketCount, error)
}

// ProfileResolver maps an authenticated subject to its profile.
type ProfileResolver interface {
	Resolve(ctx context.Context, subject string) (*models.Profile, error)
}

// PaymentVerifier confirms with the processor that a payment for eventID
// settled for exactly amount minor units of currency.
type PaymentVerifier interface {
	Verify(ctx context.Context, intentID, eventID string, amount int64, currency string) error
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
}

type CheckinBroadcaster interface {
	EmitCheckin(evt models.TicketCheckedInEvent)
}

type PDFRenderer interface {
	Generate(detail models.TicketDetail, qrPNG []byte) ([]byte, error)
}

type Options struct {
	EnforceCapacity       bool
	RequireEventOnCheckin bool
	PaymentTimeout        time.Duration
	DefaultCurrency       string
	IssuedTopic           string
	CheckedInTopic        string
}

type Dependencies struct {
	DB        TicketDBLayer
	Profiles  ProfileResolver
	Payments  PaymentVerifier
	QR        *qr.QRGenerator
	Publisher Publisher
	Checkins  CheckinBroadcaster
	PDF       PDFRenderer
	Logger    *logger.Logger
}

type TicketService struct {
	DB        TicketDBLayer
	Profiles  ProfileResolver
	Payments  PaymentVerifier
	QR        *qr.QRGenerator
	Publisher Publisher
	Checkins  CheckinBroadcaster
	PDF       PDFRenderer
	Logger    *logger.Logger
	Options   Options

	now func() time.Time
}

func NewTicketService(deps Dependencies, opts Options) *TicketService {
	if opts.PaymentTimeout <= 0 {
		opts.PaymentTimeout = 10 * time.Second
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "usd"
	}
	return &TicketService{
		DB:        deps.DB,
		Profiles:  deps.Profiles,
		Payments:  deps.Payments,
		QR:        deps.QR,
		Publisher: deps.Publisher,
		Checkins:  deps.Checkins,
		PDF:       deps.PDF,
		Logger:    deps.Logger,
		Options:   opts,
		now:       time.Now,
	}
}

// SetClock replaces the time source. Tests use it to force token collisions.
func (s *TicketService) SetClock(now func() time.Time) {
	s.now = now
}

// IssuePaidTicket creates a ticket only after the processor confirms the
// payment server-side. Any ambiguity (timeout, processor error, amount or
// currency mismatch) yields ErrPaymentNotConfirmed and no row. Replaying a
// payment returns the ticket already created for it.
func (s *TicketService) IssuePaidTicket(ctx context.Context, req models.PaidTicketRequest) (*models.Ticket, error) {
	if req.EventID == "" || req.PaymentIntentID == "" || req.Price <= 0 {
		return nil, fmt.Errorf("event_id, payment_intent_id and a positive price are required: %w", apperrors.ErrInvalidRequest)
	}
	if req.TicketType == "" {
		req.TicketType = "General"
	}
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = s.Options.DefaultCurrency
	}

	profile, err := s.Profiles.Resolve(ctx, req.Subject)
	if err != nil {
		return nil, err
	}

	if err := s.verifyPayment(ctx, req.PaymentIntentID, req.EventID, utils.MinorUnits(req.Price), currency); err != nil {
		return nil, err
	}

	existing, err := s.DB.GetTicketByPaymentRef(ctx, req.PaymentIntentID)
	switch {
	case err == nil:
		return s.replay(existing, profile.ID, req.EventID)
	case !errors.Is(err, apperrors.ErrTicketNotFound):
		return nil, err
	}

	ref := req.PaymentIntentID
	return s.issue(ctx, profile.ID, req.EventID, req.TicketType, req.Price, &ref)
}

// IssueFreeTicket creates a zero-priced ticket without a payment step.
func (s *TicketService) IssueFreeTicket(ctx context.Context, req models.FreeTicketRequest) (*models.Ticket, error) {
	if req.EventID == "" {
		return nil, fmt.Errorf("event_id is required: %w", apperrors.ErrInvalidRequest)
	}
	if req.TicketType == "" {
		req.TicketType = models.FreeTicketType
	}

	profile, err := s.Profiles.Resolve(ctx, req.Subject)
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, profile.ID, req.EventID, req.TicketType, 0, nil)
}

func (s *TicketService) verifyPayment(ctx context.Context, intentID, eventID string, amount int64, currency string) error {
	vctx, cancel := context.WithTimeout(ctx, s.Options.PaymentTimeout)
	defer cancel()

	err := s.Payments.Verify(vctx, intentID, eventID, amount, currency)
	if err == nil {
		s.Logger.Info("PAYMENT", fmt.Sprintf("Payment %s confirmed for %d %s", intentID, amount, currency))
		return nil
	}

	s.Logger.Warn("PAYMENT", fmt.Sprintf("Payment %s not confirmed: %v", intentID, err))
	if errors.Is(err, apperrors.ErrPaymentNotConfirmed) {
		return err
	}
	return fmt.Errorf("%w: %v", apperrors.ErrPaymentNotConfirmed, err)
}

func (s *TicketService) replay(existing *models.Ticket, profileID, eventID string) (*models.Ticket, error) {
	if existing.ProfileID != profileID || existing.EventID != eventID {
		s.Logger.LogSecurity("PAYMENT_REPLAY", fmt.Sprintf("payment %s already redeemed by another profile or event", *existing.PaymentRef))
		return nil, fmt.Errorf("payment already redeemed: %w", apperrors.ErrPaymentNotConfirmed)
	}
	s.Logger.LogTicket("REPLAY", existing.ID, "returning ticket already issued for payment")
	return existing, nil
}

// issue generates a token and persists the ticket, regenerating the token
// with a fresh timestamp when it collides with an existing one.
func (s *TicketService) issue(ctx context.Context, profileID, eventID, ticketType string, price float64, paymentRef *string) (*models.Ticket, error) {
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		issuedAt := s.now().UTC().Add(time.Duration(attempt))
		ticket := &models.Ticket{
			ID:          utils.NewID(),
			ProfileID:   profileID,
			EventID:     eventID,
			TicketType:  ticketType,
			Price:       price,
			PurchasedAt: issuedAt,
			QRToken:     s.QR.GenerateToken(eventID, profileID, issuedAt),
			PaymentRef:  paymentRef,
		}

		err := s.DB.CreateTicket(ctx, ticket, s.Options.EnforceCapacity)
		if err == nil {
			s.Logger.LogTicket("ISSUED", ticket.ID, fmt.Sprintf("event=%s type=%s price=%.2f", eventID, ticketType, price))
			s.publish(ctx, s.Options.IssuedTopic, ticket.ID, models.TicketIssuedEvent{
				TicketID:   ticket.ID,
				EventID:    ticket.EventID,
				ProfileID:  ticket.ProfileID,
				TicketType: ticket.TicketType,
				Price:      ticket.Price,
				IssuedAt:   ticket.PurchasedAt,
			})
			return ticket, nil
		}

		switch {
		case database.IsUniqueViolation(err, "qr_token"):
			s.Logger.Warn("TICKET", fmt.Sprintf("Token collision on attempt %d for event %s, regenerating", attempt+1, eventID))
			continue
		case paymentRef != nil && database.IsUniqueViolation(err, "payment_ref"):
			existing, lookupErr := s.DB.GetTicketByPaymentRef(ctx, *paymentRef)
			if lookupErr != nil {
				return nil, lookupErr
			}
			return s.replay(existing, profileID, eventID)
		default:
			s.Logger.Error("TICKET", fmt.Sprintf("Failed to issue ticket for event %s: %v", eventID, err))
			return nil, err
		}
	}
	return nil, fmt.Errorf("token collision after %d attempts: %w", maxTokenAttempts, apperrors.ErrStorage)
}

func (s *TicketService) publish(ctx context.Context, topic, key string, payload interface{}) {
	if s.Publisher == nil || topic == "" {
		return
	}
	if err := s.Publisher.Publish(ctx, topic, key, payload); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish %s for %s: %v", topic, key, err))
	}
}

// ListMyTickets returns the caller's tickets, newest first.
func (s *TicketService) ListMyTickets(ctx context.Context, subject string) ([]models.Ticket, error) {
	profile, err := s.Profiles.Resolve(ctx, subject)
	if err != nil {
		return nil, err
	}
	return s.DB.GetTicketsByProfile(ctx, profile.ID)
}

// ownedTicket loads a ticket and hides it from anyone but its holder.
func (s *TicketService) ownedTicket(ctx context.Context, subject, ticketID string) (*models.Ticket, error) {
	profile, err := s.Profiles.Resolve(ctx, subject)
	if err != nil {
		return nil, err
	}
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.ProfileID != profile.ID {
		return nil, fmt.Errorf("ticket %s: %w", ticketID, apperrors.ErrTicketNotFound)
	}
	return ticket, nil
}

// GetTicketQR renders the scannable QR image of one of the caller's tickets.
func (s *TicketService) GetTicketQR(ctx context.Context, subject, ticketID string) ([]byte, error) {
	ticket, err := s.ownedTicket(ctx, subject, ticketID)
	if err != nil {
		return nil, err
	}
	return s.QR.EncodeForScan(ticket.QRToken)
}

// GetTicketPDF renders a printable ticket with its QR code.
func (s *TicketService) GetTicketPDF(ctx context.Context, subject, ticketID string) ([]byte, error) {
	ticket, err := s.ownedTicket(ctx, subject, ticketID)
	if err != nil {
		return nil, err
	}
	event, err := s.DB.GetEventByID(ctx, ticket.EventID)
	if err != nil {
		return nil, err
	}
	png, err := s.QR.EncodeForScan(ticket.QRToken)
	if err != nil {
		return nil, err
	}

	detail := models.TicketDetail{
		TicketID:    ticket.ID,
		TicketType:  ticket.TicketType,
		PurchasedAt: ticket.PurchasedAt,
		EventID:     event.ID,
		EventName:   event.Name,
		EventDate:   event.EventDate,
		Venue:       event.Venue,
	}
	if ticket.CheckedInAt != nil {
		detail.CheckedInAt = *ticket.CheckedInAt
	}
	return s.PDF.Generate(detail, png)
}

// CancelTicket lets a holder give back an unused ticket.
func (s *TicketService) CancelTicket(ctx context.Context, subject, ticketID string) error {
	profile, err := s.Profiles.Resolve(ctx, subject)
	if err != nil {
		return err
	}
	if err := s.DB.CancelTicket(ctx, ticketID, profile.ID); err != nil {
		return err
	}
	s.Logger.LogTicket("CANCELLED", ticketID, "ticket cancelled by holder")
	return nil
}
