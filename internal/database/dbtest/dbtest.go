// Package dbtest builds in-memory SQLite databases with the service schema
// for store and service tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"ms-eventpass/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var schema = []interface{}{
	(*models.Profile)(nil),
	(*models.Event)(nil),
	(*models.Ticket)(nil),
	(*models.TicketCount)(nil),
	(*models.Notification)(nil),
	(*models.PushSubscription)(nil),
}

// New returns a fresh database. A single connection serializes concurrent
// transactions the way row locks do on Postgres.
func New(t testing.TB) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()
	for _, model := range schema {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func SeedProfile(t testing.TB, db *bun.DB, subject, role string) *models.Profile {
	t.Helper()
	p := &models.Profile{
		ID:          uuid.NewString(),
		AuthSubject: subject,
		Email:       subject + "@example.com",
		DisplayName: subject,
		Role:        role,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := db.NewInsert().Model(p).Exec(context.Background())
	require.NoError(t, err)
	return p
}

func SeedEvent(t testing.TB, db *bun.DB, organizerID string, capacity *int) *models.Event {
	t.Helper()
	now := time.Now().UTC()
	e := &models.Event{
		ID:          uuid.NewString(),
		OrganizerID: organizerID,
		Name:        "Launch Night",
		Description: "Product launch",
		Venue:       "Hall A",
		EventDate:   now.Add(72 * time.Hour).Truncate(time.Second),
		MaxCapacity: capacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := db.NewInsert().Model(e).Exec(context.Background())
	require.NoError(t, err)
	return e
}

func SeedTicket(t testing.TB, db *bun.DB, profileID, eventID string) *models.Ticket {
	t.Helper()
	tk := &models.Ticket{
		ID:          uuid.NewString(),
		ProfileID:   profileID,
		EventID:     eventID,
		TicketType:  models.FreeTicketType,
		PurchasedAt: time.Now().UTC().Truncate(time.Second),
		QRToken:     "tok-" + uuid.NewString(),
	}
	_, err := db.NewInsert().Model(tk).Exec(context.Background())
	require.NoError(t, err)
	return tk
}

func SeedSubscription(t testing.TB, db *bun.DB, profileID, endpoint string) *models.PushSubscription {
	t.Helper()
	s := &models.PushSubscription{
		ID:        uuid.NewString(),
		ProfileID: profileID,
		Endpoint:  endpoint,
		KeyP256dh: "p256dh",
		KeyAuth:   "auth",
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.NewInsert().Model(s).Exec(context.Background())
	require.NoError(t, err)
	return s
}

// IntPtr is a convenience for optional capacities.
func IntPtr(v int) *int { return &v }
