package db

import (
	"context"
	"errors"
	"time"

	"ms-eventpass/internal/apperrors"
	"ms-eventpass/internal/models"
	"ms-eventpass/internal/utils"

	"github.com/uptrace/bun"
)

var errNoCounterRow = errors.New("ticket count row neither updated nor inserted")

// GetTotalTicketsCount returns the total count of tickets in the database
func (d *DB) GetTotalTicketsCount(ctx context.Context) (int, error) {
	count, err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Count(ctx)
	if err != nil {
		return 0, apperrors.Storage("count tickets", err)
	}
	return count, nil
}

// incrementDailyCount bumps the (event, day) counter inside tx. The row is
// created on first use; a concurrent creator wins the insert and the
// increment is retried against its row.
func incrementDailyCount(ctx context.Context, tx bun.Tx, eventID string, ts time.Time) error {
	day := utils.DayKey(ts)

	for attempt := 0; attempt < 2; attempt++ {
		res, err := tx.NewUpdate().
			Model((*models.TicketCount)(nil)).
			Set("issued = issued + 1").
			Where("event_id = ?", eventID).
			Where("day = ?", day).
			Exec(ctx)
		if err != nil {
			return apperrors.Storage("increment ticket count", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}

		res, err = tx.NewInsert().
			Model(&models.TicketCount{EventID: eventID, Day: day, Issued: 1}).
			On("CONFLICT (event_id, day) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return apperrors.Storage("insert ticket count", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
	}
	return apperrors.Storage("increment ticket count", errNoCounterRow)
}

// GetTicketCountsForEvent returns the daily issuance counts of an event, oldest first.
func (d *DB) GetTicketCountsForEvent(ctx context.Context, eventID string) ([]models.TicketCount, error) {
	counts := []models.TicketCount{}
	err := d.Bun.NewSelect().
		Model(&counts).
		Where("event_id = ?", eventID).
		Order("day ASC").
		Scan(ctx)
	if err != nil {
		return nil, apperrors.Storage("list ticket counts", err)
	}
	return counts, nil
}
