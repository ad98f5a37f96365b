package events_test

import (
	"context"
	"testing"

	"ms-eventpass/internal/database/dbtest"
	"ms-eventpass/internal/events"
	eventsdb "ms-eventpass/internal/events/db"
	"ms-eventpass/internal/models"
	"ms-eventpass/internal/notify"
	notifydb "ms-eventpass/internal/notify/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevertingEditsNotifyEveryTime(t *testing.T) {
	db := dbtest.New(t)
	organizer := dbtest.SeedProfile(t, db, "org", models.RoleOrganizer)
	holder := dbtest.SeedProfile(t, db, "bob", models.RoleAttendee)
	event := dbtest.SeedEvent(t, db, organizer.ID, nil)
	dbtest.SeedTicket(t, db, holder.ID, event.ID)

	profiles := staticProfiles{"org": organizer, "bob": holder}
	notifier := notify.NewNotifier(&notifydb.DB{Bun: db}, profiles, nil, nil, nil, notify.Options{Concurrency: 2})
	svc := events.NewService(&eventsdb.DB{Bun: db}, profiles, notifier, nil)
	ctx := context.Background()

	for i, venue := range []string{"Hall B", "Hall A", "Hall B", "Hall A"} {
		updated, res, err := svc.UpdateEvent(ctx, "org", event.ID, models.EventUpdate{Venue: strPtr(venue)})
		require.NoError(t, err)
		assert.Equal(t, venue, updated.Venue)
		require.NotNil(t, res, "edit %d", i+1)
		assert.Equal(t, 1, res.NotificationsCreated, "edit %d", i+1)
	}

	feed, err := notifier.ListNotifications(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, feed, 4)
}

func TestCallerKeyMakesRetriedEditIdempotent(t *testing.T) {
	db := dbtest.New(t)
	organizer := dbtest.SeedProfile(t, db, "org", models.RoleOrganizer)
	holder := dbtest.SeedProfile(t, db, "bob", models.RoleAttendee)
	event := dbtest.SeedEvent(t, db, organizer.ID, nil)
	dbtest.SeedTicket(t, db, holder.ID, event.ID)

	profiles := staticProfiles{"org": organizer, "bob": holder}
	notifier := notify.NewNotifier(&notifydb.DB{Bun: db}, profiles, nil, nil, nil, notify.Options{Concurrency: 2})
	svc := events.NewService(&eventsdb.DB{Bun: db}, profiles, notifier, nil)
	ctx := context.Background()

	update := models.EventUpdate{Venue: strPtr("Hall B"), UpdateKey: "client-retry-1"}
	_, res, err := svc.UpdateEvent(ctx, "org", event.ID, update)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NotificationsCreated)

	_, res, err = svc.UpdateEvent(ctx, "org", event.ID, update)
	require.NoError(t, err)
	assert.Equal(t, 0, res.NotificationsCreated)
}
