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

func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	if _, err := d.Bun.NewInsert().Model(event).Exec(ctx); err != nil {
		return apperrors.Storage("insert event", err)
	}
	return nil
}

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

// ListUpcoming returns events from since onwards, soonest first.
func (d *DB) ListUpcoming(ctx context.Context, since time.Time) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Where("event_date >= ?", since).
		Order("event_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, apperrors.Storage("list events", err)
	}
	return events, nil
}

func (d *DB) ListByOrganizer(ctx context.Context, organizerID string) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Where("organizer_id = ?", organizerID).
		Order("event_date DESC").
		Scan(ctx)
	if err != nil {
		return nil, apperrors.Storage("list organizer events", err)
	}
	return events, nil
}

// UpdateEvent writes the fields set on update and bumps updated_at. Sales
// and attendance counters are never touched here.
func (d *DB) UpdateEvent(ctx context.Context, eventID string, update models.EventUpdate, at time.Time) (*models.Event, error) {
	q := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("updated_at = ?", at).
		Where("id = ?", eventID)
	if update.Name != nil {
		q = q.Set("name = ?", *update.Name)
	}
	if update.Description != nil {
		q = q.Set("description = ?", *update.Description)
	}
	if update.Venue != nil {
		q = q.Set("venue = ?", *update.Venue)
	}
	if update.EventDate != nil {
		q = q.Set("event_date = ?", update.EventDate.UTC())
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, apperrors.Storage("update event", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("event %s: %w", eventID, apperrors.ErrEventNotFound)
	}
	return d.GetEventByID(ctx, eventID)
}

// GetTicketTypeSales breaks the event's live tickets down by type.
func (d *DB) GetTicketTypeSales(ctx context.Context, eventID string) ([]models.TypeSales, error) {
	var sales []models.TypeSales
	err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		ColumnExpr("ticket_type").
		ColumnExpr("COUNT(*) AS count").
		ColumnExpr("COALESCE(SUM(price), 0) AS revenue").
		Where("event_id = ?", eventID).
		GroupExpr("ticket_type").
		OrderExpr("ticket_type").
		Scan(ctx, &sales)
	if err != nil {
		return nil, apperrors.Storage("ticket type sales", err)
	}
	return sales, nil
}

func (d *DB) GetDailySales(ctx context.Context, eventID string) ([]models.TicketCount, error) {
	var counts []models.TicketCount
	err := d.Bun.NewSelect().
		Model(&counts).
		Where("event_id = ?", eventID).
		Order("day ASC").
		Scan(ctx)
	if err != nil {
		return nil, apperrors.Storage("daily sales", err)
	}
	return counts, nil
}
