package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-eventpass/internal/apperrors"
	"ms-eventpass/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// CreateTicket persists a new ticket together with the event's sales
// counters and the daily issuance count, all in one transaction. With
// enforceCapacity the counter update only matches while seats remain.
func (d *DB) CreateTicket(ctx context.Context, ticket *models.Ticket, enforceCapacity bool) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewUpdate().
			Model((*models.Event)(nil)).
			Set("tickets_sold = tickets_sold + 1").
			Set("revenue = revenue + ?", ticket.Price).
			Where("id = ?", ticket.EventID)
		if enforceCapacity {
			q = q.Where("max_capacity IS NULL OR tickets_sold < max_capacity")
		}
		res, err := q.Exec(ctx)
		if err != nil {
			return apperrors.Storage("reserve seat", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			exists, err := tx.NewSelect().Model((*models.Event)(nil)).Where("id = ?", ticket.EventID).Exists(ctx)
			if err != nil {
				return apperrors.Storage("lookup event", err)
			}
			if !exists {
				return fmt.Errorf("event %s: %w", ticket.EventID, apperrors.ErrEventNotFound)
			}
			return fmt.Errorf("event %s: %w", ticket.EventID, apperrors.ErrEventSoldOut)
		}

		if _, err := tx.NewInsert().Model(ticket).Exec(ctx); err != nil {
			return apperrors.Storage("insert ticket", err)
		}

		return incrementDailyCount(ctx, tx, ticket.EventID, ticket.PurchasedAt)
	})
}

func (d *DB) GetTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ticket %s: %w", id, apperrors.ErrTicketNotFound)
	}
	if err != nil {
		return nil, apperrors.Storage("get ticket", err)
	}
	return &ticket, nil
}

// GetTicketByPaymentRef finds the ticket created for a payment intent.
func (d *DB) GetTicketByPaymentRef(ctx context.Context, ref string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("payment_ref = ?", ref).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %s: %w", ref, apperrors.ErrTicketNotFound)
	}
	if err != nil {
		return nil, apperrors.Storage("get ticket by payment", err)
	}
	return &ticket, nil
}

// GetTicketByToken finds the ticket holding a QR token.
func (d *DB) GetTicketByToken(ctx context.Context, token string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("qr_token = ?", token).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("token: %w", apperrors.ErrTicketNotFound)
	}
	if err != nil {
		return nil, apperrors.Storage("get ticket by token", err)
	}
	return &ticket, nil
}

func (d *DB) GetTicketsByProfile(ctx context.Context, profileID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("profile_id = ?", profileID).
		Order("purchased_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, apperrors.Storage("list tickets", err)
	}
	return tickets, nil
}

// CancelTicket deletes an unused ticket owned by profileID and releases its seat.
func (d *DB) CancelTicket(ctx context.Context, ticketID, profileID string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var ticket models.Ticket
		err := tx.NewSelect().Model(&ticket).Where("id = ?", ticketID).Limit(1).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && ticket.ProfileID != profileID) {
			return fmt.Errorf("ticket %s: %w", ticketID, apperrors.ErrTicketNotFound)
		}
		if err != nil {
			return apperrors.Storage("get ticket", err)
		}

		res, err := tx.NewDelete().
			Model((*models.Ticket)(nil)).
			Where("id = ?", ticketID).
			Where("checked_in = ?", false).
			Exec(ctx)
		if err != nil {
			return apperrors.Storage("delete ticket", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("ticket %s: %w", ticketID, apperrors.ErrAlreadyCheckedIn)
		}

		_, err = tx.NewUpdate().
			Model((*models.Event)(nil)).
			Set("tickets_sold = tickets_sold - 1").
			Where("id = ?", ticket.EventID).
			Where("tickets_sold > 0").
			Exec(ctx)
		if err != nil {
			return apperrors.Storage("release seat", err)
		}
		return nil
	})
}

// CheckInTicket admits the ticket holding token. The check-and-set is one
// conditional UPDATE, so of two concurrent scans exactly one matches a row.
// A non-empty eventID restricts the match to tickets of that event.
func (d *DB) CheckInTicket(ctx context.Context, token, eventID string, at time.Time) (*models.CheckinResult, error) {
	var result models.CheckinResult
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewUpdate().
			Model((*models.Ticket)(nil)).
			Set("checked_in = ?", true).
			Set("checked_in_at = ?", at).
			Where("qr_token = ?", token).
			Where("checked_in = ?", false)
		if eventID != "" {
			q = q.Where("event_id = ?", eventID)
		}
		res, err := q.Exec(ctx)
		if err != nil {
			return apperrors.Storage("mark checked in", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return apperrors.Storage("mark checked in", err)
		}
		if n == 0 {
			return classifyRejectedScan(ctx, tx, token, eventID)
		}

		var ticket models.Ticket
		if err := tx.NewSelect().Model(&ticket).Where("qr_token = ?", token).Limit(1).Scan(ctx); err != nil {
			return apperrors.Storage("load ticket", err)
		}

		res, err = tx.NewUpdate().
			Model((*models.Event)(nil)).
			Set("attendance_count = attendance_count + 1").
			Where("id = ?", ticket.EventID).
			Exec(ctx)
		if err != nil {
			return apperrors.Storage("increment attendance", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("event %s: %w", ticket.EventID, apperrors.ErrEventNotFound)
		}

		var event models.Event
		if err := tx.NewSelect().Model(&event).Where("id = ?", ticket.EventID).Limit(1).Scan(ctx); err != nil {
			return apperrors.Storage("load event", err)
		}

		result = models.CheckinResult{
			Ticket: models.TicketDetail{
				TicketID:    ticket.ID,
				TicketType:  ticket.TicketType,
				PurchasedAt: ticket.PurchasedAt,
				EventID:     event.ID,
				EventName:   event.Name,
				EventDate:   event.EventDate,
				Venue:       event.Venue,
				CheckedInAt: at,
			},
			AttendanceCount: event.AttendanceCount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// classifyRejectedScan explains why the conditional update matched nothing.
func classifyRejectedScan(ctx context.Context, tx bun.Tx, token, eventID string) error {
	var ticket models.Ticket
	err := tx.NewSelect().
		Model(&ticket).
		Column("id", "event_id", "checked_in").
		Where("qr_token = ?", token).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.ErrTicketNotFound
	}
	if err != nil {
		return apperrors.Storage("lookup token", err)
	}
	if eventID != "" && ticket.EventID != eventID {
		return fmt.Errorf("ticket is for another event: %w", apperrors.ErrTicketNotFound)
	}
	if ticket.CheckedIn {
		return fmt.Errorf("ticket %s: %w", ticket.ID, apperrors.ErrAlreadyCheckedIn)
	}
	return apperrors.Storage("mark checked in", fmt.Errorf("ticket %s matched no row", ticket.ID))
}

// GetEventByID loads the event a ticket belongs to.
func (d *DB) GetEventByID(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().Model(&event).Where("id = ?", eventID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", eventID, apperrors.ErrEventNotFound)
	}
	if err != nil {
		return nil, apperrors.Storage("get event", err)
	}
	return &event, nil
}
