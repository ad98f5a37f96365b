// Package events owns event records: creation, edits that fan out to
// ticket holders, and organizer analytics.
package events

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"ms-eventpass/internal/apperrors"
	"ms-eventpass/internal/logger"
	"ms-eventpass/internal/models"
	"ms-eventpass/internal/utils"
)

type EventDBLayer interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEventByID(ctx context.Context, eventID string) (*models.Event, error)
	ListUpcoming(ctx context.Context, since time.Time) ([]models.Event, error)
	ListByOrganizer(ctx context.Context, organizerID string) ([]models.Event, error)
	UpdateEvent(ctx context.Context, eventID string, update models.EventUpdate, at time.Time) (*models.Event, error)
	GetTicketTypeSales(ctx context.Context, eventID string) ([]models.TypeSales, error)
	GetDailySales(ctx context.Context, eventID string) ([]models.TicketCount, error)
}

type ProfileResolver interface {
	Resolve(ctx context.Context, subject string) (*models.Profile, error)
}

// UpdateNotifier is told about every persisted edit.
type UpdateNotifier interface {
	NotifyUpdate(ctx context.Context, eventID string, update models.EventUpdate) (*models.NotifyResult, error)
}

type Service struct {
	DB       EventDBLayer
	Profiles ProfileResolver
	Notifier UpdateNotifier
	Logger   *logger.Logger

	now func() time.Time
}

func NewService(db EventDBLayer, profiles ProfileResolver, notifier UpdateNotifier, log *logger.Logger) *Service {
	return &Service{DB: db, Profiles: profiles, Notifier: notifier, Logger: log, now: time.Now}
}

func (s *Service) organizer(ctx context.Context, subject string) (*models.Profile, error) {
	profile, err := s.Profiles.Resolve(ctx, subject)
	if err != nil {
		return nil, err
	}
	if profile.Role != models.RoleOrganizer {
		return nil, fmt.Errorf("profile %s is not an organizer: %w", profile.ID, apperrors.ErrForbidden)
	}
	return profile, nil
}

// OwnedEvent loads an event the caller organizes.
func (s *Service) OwnedEvent(ctx context.Context, subject, eventID string) (*models.Event, error) {
	profile, err := s.organizer(ctx, subject)
	if err != nil {
		return nil, err
	}
	event, err := s.DB.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != profile.ID {
		s.Logger.LogSecurity("EVENT", fmt.Sprintf("profile %s tried to manage event %s", profile.ID, eventID))
		return nil, fmt.Errorf("event %s: %w", eventID, apperrors.ErrForbidden)
	}
	return event, nil
}

func (s *Service) CreateEvent(ctx context.Context, subject string, req models.CreateEventRequest) (*models.Event, error) {
	profile, err := s.organizer(ctx, subject)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || req.EventDate.IsZero() {
		return nil, fmt.Errorf("name and event_date are required: %w", apperrors.ErrInvalidRequest)
	}
	if req.MaxCapacity != nil && *req.MaxCapacity <= 0 {
		return nil, fmt.Errorf("max_capacity must be positive: %w", apperrors.ErrInvalidRequest)
	}

	now := s.now().UTC()
	event := &models.Event{
		ID:          utils.NewID(),
		OrganizerID: profile.ID,
		Name:        name,
		Description: req.Description,
		Venue:       req.Venue,
		EventDate:   req.EventDate.UTC(),
		MaxCapacity: req.MaxCapacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.DB.CreateEvent(ctx, event); err != nil {
		return nil, err
	}
	s.Logger.Info("EVENT", fmt.Sprintf("Event %s created by %s", event.ID, profile.ID))
	return event, nil
}

func (s *Service) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	return s.DB.GetEventByID(ctx, eventID)
}

// ListUpcoming lists events that have not started yet.
func (s *Service) ListUpcoming(ctx context.Context) ([]models.Event, error) {
	return s.DB.ListUpcoming(ctx, s.now().UTC())
}

// MyEvents lists the events the caller organizes, latest first.
func (s *Service) MyEvents(ctx context.Context, subject string) ([]models.Event, error) {
	profile, err := s.organizer(ctx, subject)
	if err != nil {
		return nil, err
	}
	return s.DB.ListByOrganizer(ctx, profile.ID)
}

// UpdateEvent persists the edit, then notifies every ticket holder. The
// edit stands even if the fan-out fails; the failure is only logged.
func (s *Service) UpdateEvent(ctx context.Context, subject, eventID string, update models.EventUpdate) (*models.Event, *models.NotifyResult, error) {
	if len(update.ChangedFields()) == 0 && update.Message == "" {
		return nil, nil, fmt.Errorf("nothing to update: %w", apperrors.ErrInvalidRequest)
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, nil, fmt.Errorf("name cannot be empty: %w", apperrors.ErrInvalidRequest)
	}
	if _, err := s.OwnedEvent(ctx, subject, eventID); err != nil {
		return nil, nil, err
	}

	event, err := s.DB.UpdateEvent(ctx, eventID, update, s.now().UTC())
	if err != nil {
		return nil, nil, err
	}
	s.Logger.Info("EVENT", fmt.Sprintf("Event %s updated: %s", eventID, strings.Join(update.ChangedFields(), ", ")))

	if s.Notifier == nil {
		return event, nil, nil
	}
	// every persisted edit is its own update, even one that restores
	// earlier values; only a caller-supplied key dedupes retries
	if update.UpdateKey == "" {
		update.UpdateKey = utils.NewID()
	}
	// the fan-out outlives a client that hangs up
	result, err := s.Notifier.NotifyUpdate(context.WithoutCancel(ctx), eventID, update)
	if err != nil {
		s.Logger.Error("NOTIFY", fmt.Sprintf("Fan-out for event %s failed: %v", eventID, err))
		return event, nil, nil
	}
	return event, result, nil
}

// Analytics summarizes sales and attendance for the event's organizer.
func (s *Service) Analytics(ctx context.Context, subject, eventID string) (*models.EventAnalytics, error) {
	event, err := s.OwnedEvent(ctx, subject, eventID)
	if err != nil {
		return nil, err
	}
	daily, err := s.DB.GetDailySales(ctx, eventID)
	if err != nil {
		return nil, err
	}
	types, err := s.DB.GetTicketTypeSales(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if daily == nil {
		daily = []models.TicketCount{}
	}
	if types == nil {
		types = []models.TypeSales{}
	}

	return &models.EventAnalytics{
		EventID:         event.ID,
		EventName:       event.Name,
		TicketsSold:     event.TicketsSold,
		Revenue:         event.Revenue,
		AttendanceCount: event.AttendanceCount,
		AttendanceRate:  attendanceRate(event.AttendanceCount, event.TicketsSold),
		MaxCapacity:     event.MaxCapacity,
		DailySales:      daily,
		TicketTypes:     types,
	}, nil
}

// attendanceRate is the checked-in share of sold tickets, rounded to 4 places.
func attendanceRate(attended, sold int) float64 {
	if sold == 0 {
		return 0
	}
	return math.Round(float64(attended)/float64(sold)*10000) / 10000
}
