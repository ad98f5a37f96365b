package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ms-eventpass/internal/apperrors"
	"ms-eventpass/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
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

// GetHolderProfileIDs returns every profile holding at least one ticket to
// the event, once each.
func (d *DB) GetHolderProfileIDs(ctx context.Context, eventID string) ([]string, error) {
	var ids []string
	err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		ColumnExpr("DISTINCT profile_id").
		Where("event_id = ?", eventID).
		OrderExpr("profile_id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, apperrors.Storage("list holders", err)
	}
	return ids, nil
}

func (d *DB) GetProfilesByIDs(ctx context.Context, ids []string) ([]models.Profile, error) {
	var profiles []models.Profile
	if len(ids) == 0 {
		return profiles, nil
	}
	err := d.Bun.NewSelect().Model(&profiles).Where("id IN (?)", bun.In(ids)).Scan(ctx)
	if err != nil {
		return nil, apperrors.Storage("list profiles", err)
	}
	return profiles, nil
}

// InsertNotification stores n unless the holder was already notified of
// the same update. It reports whether a row was created.
func (d *DB) InsertNotification(ctx context.Context, n *models.Notification) (bool, error) {
	res, err := d.Bun.NewInsert().
		Model(n).
		On("CONFLICT (profile_id, event_id, update_key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, apperrors.Storage("insert notification", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.Storage("insert notification", err)
	}
	return rows == 1, nil
}

// ListNotifications returns a profile's notifications, newest first.
func (d *DB) ListNotifications(ctx context.Context, profileID string) ([]models.Notification, error) {
	var notifications []models.Notification
	err := d.Bun.NewSelect().
		Model(&notifications).
		Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, apperrors.Storage("list notifications", err)
	}
	return notifications, nil
}

// UpsertSubscription registers a push endpoint. Re-registering an endpoint
// moves it to the new owner and keys and clears its failures.
func (d *DB) UpsertSubscription(ctx context.Context, sub *models.PushSubscription) error {
	_, err := d.Bun.NewInsert().
		Model(sub).
		On("CONFLICT (endpoint) DO UPDATE").
		Set("profile_id = EXCLUDED.profile_id").
		Set("key_p256dh = EXCLUDED.key_p256dh").
		Set("key_auth = EXCLUDED.key_auth").
		Set("failure_count = 0").
		Exec(ctx)
	if err != nil {
		return apperrors.Storage("upsert subscription", err)
	}
	return nil
}

func (d *DB) GetSubscriptionsForProfiles(ctx context.Context, profileIDs []string) ([]models.PushSubscription, error) {
	var subs []models.PushSubscription
	if len(profileIDs) == 0 {
		return subs, nil
	}
	err := d.Bun.NewSelect().
		Model(&subs).
		Where("profile_id IN (?)", bun.In(profileIDs)).
		Scan(ctx)
	if err != nil {
		return nil, apperrors.Storage("list subscriptions", err)
	}
	return subs, nil
}

func (d *DB) GetSubscriptionByEndpoint(ctx context.Context, endpoint string) (*models.PushSubscription, error) {
	var sub models.PushSubscription
	err := d.Bun.NewSelect().Model(&sub).Where("endpoint = ?", endpoint).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("endpoint %s: %w", endpoint, apperrors.ErrSubscriptionInvalid)
	}
	if err != nil {
		return nil, apperrors.Storage("get subscription", err)
	}
	return &sub, nil
}

// MarkDelivered clears the failure streak of a subscription.
func (d *DB) MarkDelivered(ctx context.Context, subscriptionID string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.PushSubscription)(nil)).
		Set("failure_count = 0").
		Where("id = ?", subscriptionID).
		Exec(ctx)
	if err != nil {
		return apperrors.Storage("reset failures", err)
	}
	return nil
}

// MarkFailed counts a failed delivery and deletes the subscription once it
// reaches threshold consecutive failures. It reports whether it was deleted.
func (d *DB) MarkFailed(ctx context.Context, subscriptionID string, threshold int) (bool, error) {
	var pruned bool
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().
			Model((*models.PushSubscription)(nil)).
			Set("failure_count = failure_count + 1").
			Where("id = ?", subscriptionID).
			Exec(ctx); err != nil {
			return apperrors.Storage("count failure", err)
		}
		if threshold <= 0 {
			return nil
		}
		res, err := tx.NewDelete().
			Model((*models.PushSubscription)(nil)).
			Where("id = ?", subscriptionID).
			Where("failure_count >= ?", threshold).
			Exec(ctx)
		if err != nil {
			return apperrors.Storage("prune subscription", err)
		}
		n, _ := res.RowsAffected()
		pruned = n > 0
		return nil
	})
	return pruned, err
}

func (d *DB) DeleteSubscription(ctx context.Context, subscriptionID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.PushSubscription)(nil)).
		Where("id = ?", subscriptionID).
		Exec(ctx)
	if err != nil {
		return apperrors.Storage("delete subscription", err)
	}
	return nil
}
