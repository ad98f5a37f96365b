package tickets

import (
	"context"
	"errors"
	"fmt"

	"ms-eventpass/internal/apperrors"
	"ms-eventpass/internal/models"
)

// CheckIn admits the holder of token. The first successful scan of a token
// wins; later scans get ErrAlreadyCheckedIn and unknown tokens (or tokens of
// another event) get ErrTicketNotFound. Storage failures reject the scan.
func (s *TicketService) CheckIn(ctx context.Context, token, eventID string) (*models.CheckinResult, error) {
	if token == "" {
		return nil, fmt.Errorf("token is required: %w", apperrors.ErrInvalidRequest)
	}
	if eventID == "" && s.Options.RequireEventOnCheckin {
		return nil, fmt.Errorf("event_id is required: %w", apperrors.ErrInvalidRequest)
	}

	result, err := s.DB.CheckInTicket(ctx, token, eventID, s.now().UTC())
	if err != nil {
		if errors.Is(err, apperrors.ErrStorage) {
			s.Logger.Error("CHECKIN", fmt.Sprintf("Check-in for event %s failed closed: %v", eventID, err))
		} else {
			s.Logger.Warn("CHECKIN", fmt.Sprintf("Scan rejected for event %s: %v", eventID, err))
		}
		return nil, err
	}

	s.Logger.LogCheckin(result.Ticket.EventID, result.Ticket.TicketID, fmt.Sprintf("admitted, attendance now %d", result.AttendanceCount))

	evt := models.TicketCheckedInEvent{
		TicketID:    result.Ticket.TicketID,
		EventID:     result.Ticket.EventID,
		TicketType:  result.Ticket.TicketType,
		CheckedInAt: result.Ticket.CheckedInAt,
		Attendance:  result.AttendanceCount,
	}
	if s.Checkins != nil {
		s.Checkins.EmitCheckin(evt)
	}
	s.publish(ctx, s.Options.CheckedInTopic, evt.TicketID, evt)

	return result, nil
}

// CheckInAs runs CheckIn for a scanning organizer. Only the organizer of
// the event may admit its attendees. Without an event id the event is taken
// from the ticket holding token, and the scan is then pinned to it.
func (s *TicketService) CheckInAs(ctx context.Context, subject, token, eventID string) (*models.CheckinResult, error) {
	profile, err := s.Profiles.Resolve(ctx, subject)
	if err != nil {
		return nil, err
	}
	if profile.Role != models.RoleOrganizer {
		return nil, fmt.Errorf("only organizers can check in tickets: %w", apperrors.ErrForbidden)
	}
	if token == "" {
		return nil, fmt.Errorf("token is required: %w", apperrors.ErrInvalidRequest)
	}
	if eventID == "" {
		if s.Options.RequireEventOnCheckin {
			return nil, fmt.Errorf("event_id is required: %w", apperrors.ErrInvalidRequest)
		}
		ticket, err := s.DB.GetTicketByToken(ctx, token)
		if err != nil {
			return nil, err
		}
		eventID = ticket.EventID
	}

	event, err := s.DB.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != profile.ID {
		s.Logger.LogSecurity("CHECKIN", fmt.Sprintf("profile %s scanned for event %s it does not organize", profile.ID, eventID))
		return nil, fmt.Errorf("event %s: %w", eventID, apperrors.ErrForbidden)
	}
	return s.CheckIn(ctx, token, eventID)
}
