package db_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ms-eventpass/internal/apperrors"
	"ms-eventpass/internal/database"
	"ms-eventpass/internal/database/dbtest"
	"ms-eventpass/internal/models"
	"ms-eventpass/internal/tickets/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type fixture struct {
	store     *db.DB
	bun       *bun.DB
	organizer *models.Profile
	attendee  *models.Profile
	event     *models.Event
}

func setupTestDB(t *testing.T, capacity *int) fixture {
	bunDB := dbtest.New(t)
	organizer := dbtest.SeedProfile(t, bunDB, "org", models.RoleOrganizer)
	attendee := dbtest.SeedProfile(t, bunDB, "alice", models.RoleAttendee)
	event := dbtest.SeedEvent(t, bunDB, organizer.ID, capacity)
	return fixture{
		store:     &db.DB{Bun: bunDB},
		bun:       bunDB,
		organizer: organizer,
		attendee:  attendee,
		event:     event,
	}
}

func newTicket(profileID, eventID string, price float64) *models.Ticket {
	return &models.Ticket{
		ID:          uuid.NewString(),
		ProfileID:   profileID,
		EventID:     eventID,
		TicketType:  "VIP",
		Price:       price,
		PurchasedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		QRToken:     "tok-" + uuid.NewString(),
	}
}

func loadEvent(t *testing.T, bunDB *bun.DB, id string) models.Event {
	t.Helper()
	var ev models.Event
	require.NoError(t, bunDB.NewSelect().Model(&ev).Where("id = ?", id).Scan(context.Background()))
	return ev
}

func countTickets(t *testing.T, bunDB *bun.DB) int {
	t.Helper()
	n, err := bunDB.NewSelect().Model((*models.Ticket)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestCreateTicketUpdatesCounters(t *testing.T) {
	f := setupTestDB(t, nil)
	ctx := context.Background()

	require.NoError(t, f.store.CreateTicket(ctx, newTicket(f.attendee.ID, f.event.ID, 25), true))
	require.NoError(t, f.store.CreateTicket(ctx, newTicket(f.attendee.ID, f.event.ID, 15.5), true))

	ev := loadEvent(t, f.bun, f.event.ID)
	assert.Equal(t, 2, ev.TicketsSold)
	assert.InDelta(t, 40.5, ev.Revenue, 0.001)
	assert.Equal(t, 0, ev.AttendanceCount)

	counts, err := f.store.GetTicketCountsForEvent(ctx, f.event.ID)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, "2025-06-01", counts[0].Day)
	assert.Equal(t, 2, counts[0].Issued)

	total, err := f.store.GetTotalTicketsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestCreateTicketEnforcesCapacity(t *testing.T) {
	f := setupTestDB(t, dbtest.IntPtr(1))
	ctx := context.Background()

	require.NoError(t, f.store.CreateTicket(ctx, newTicket(f.attendee.ID, f.event.ID, 10), true))

	err := f.store.CreateTicket(ctx, newTicket(f.attendee.ID, f.event.ID, 10), true)
	assert.ErrorIs(t, err, apperrors.ErrEventSoldOut)
	assert.Equal(t, 1, countTickets(t, f.bun))
	assert.Equal(t, 1, loadEvent(t, f.bun, f.event.ID).TicketsSold)
}

func TestCreateTicketAdvisoryCapacityNeverRejects(t *testing.T) {
	f := setupTestDB(t, dbtest.IntPtr(1))
	ctx := context.Background()

	require.NoError(t, f.store.CreateTicket(ctx, newTicket(f.attendee.ID, f.event.ID, 10), false))
	require.NoError(t, f.store.CreateTicket(ctx, newTicket(f.attendee.ID, f.event.ID, 10), false))

	assert.Equal(t, 2, loadEvent(t, f.bun, f.event.ID).TicketsSold)
}

func TestCreateTicketUnknownEvent(t *testing.T) {
	f := setupTestDB(t, nil)

	err := f.store.CreateTicket(context.Background(), newTicket(f.attendee.ID, "missing", 10), true)

	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	assert.Equal(t, 0, countTickets(t, f.bun))
}

func TestCreateTicketDuplicateTokenRollsBack(t *testing.T) {
	f := setupTestDB(t, nil)
	ctx := context.Background()

	first := newTicket(f.attendee.ID, f.event.ID, 10)
	require.NoError(t, f.store.CreateTicket(ctx, first, true))

	dup := newTicket(f.attendee.ID, f.event.ID, 10)
	dup.QRToken = first.QRToken
	err := f.store.CreateTicket(ctx, dup, true)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.True(t, database.IsUniqueViolation(err, "qr_token"))
	ev := loadEvent(t, f.bun, f.event.ID)
	assert.Equal(t, 1, ev.TicketsSold)
	assert.InDelta(t, 10, ev.Revenue, 0.001)
}

func TestGetTicketByPaymentRef(t *testing.T) {
	f := setupTestDB(t, nil)
	ctx := context.Background()

	ref := "pi_123"
	tk := newTicket(f.attendee.ID, f.event.ID, 10)
	tk.PaymentRef = &ref
	require.NoError(t, f.store.CreateTicket(ctx, tk, true))

	got, err := f.store.GetTicketByPaymentRef(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, got.ID)

	_, err = f.store.GetTicketByPaymentRef(ctx, "pi_other")
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)

	dup := newTicket(f.attendee.ID, f.event.ID, 10)
	dup.PaymentRef = &ref
	err = f.store.CreateTicket(ctx, dup, true)
	assert.True(t, database.IsUniqueViolation(err, "payment_ref"))
}

func TestGetTicketByToken(t *testing.T) {
	f := setupTestDB(t, nil)
	ctx := context.Background()
	tk := newTicket(f.attendee.ID, f.event.ID, 10)
	require.NoError(t, f.store.CreateTicket(ctx, tk, true))

	got, err := f.store.GetTicketByToken(ctx, tk.QRToken)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, got.ID)
	assert.Equal(t, f.event.ID, got.EventID)

	_, err = f.store.GetTicketByToken(ctx, "forged")
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

func TestCheckInTicket(t *testing.T) {
	f := setupTestDB(t, nil)
	ctx := context.Background()
	tk := newTicket(f.attendee.ID, f.event.ID, 10)
	require.NoError(t, f.store.CreateTicket(ctx, tk, true))
	at := time.Date(2025, 6, 4, 19, 0, 0, 0, time.UTC)

	result, err := f.store.CheckInTicket(ctx, tk.QRToken, f.event.ID, at)
	require.NoError(t, err)

	assert.Equal(t, tk.ID, result.Ticket.TicketID)
	assert.Equal(t, "VIP", result.Ticket.TicketType)
	assert.Equal(t, f.event.Name, result.Ticket.EventName)
	assert.Equal(t, f.event.Venue, result.Ticket.Venue)
	assert.True(t, f.event.EventDate.Equal(result.Ticket.EventDate))
	assert.Equal(t, 1, result.AttendanceCount)

	stored, err := f.store.GetTicketByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.True(t, stored.CheckedIn)
	require.NotNil(t, stored.CheckedInAt)
	assert.True(t, at.Equal(*stored.CheckedInAt))
}

func TestCheckInTicketTwice(t *testing.T) {
	f := setupTestDB(t, nil)
	ctx := context.Background()
	tk := newTicket(f.attendee.ID, f.event.ID, 10)
	require.NoError(t, f.store.CreateTicket(ctx, tk, true))

	_, err := f.store.CheckInTicket(ctx, tk.QRToken, f.event.ID, time.Now().UTC())
	require.NoError(t, err)

	_, err = f.store.CheckInTicket(ctx, tk.QRToken, f.event.ID, time.Now().UTC())
	assert.ErrorIs(t, err, apperrors.ErrAlreadyCheckedIn)
	assert.Equal(t, 1, loadEvent(t, f.bun, f.event.ID).AttendanceCount)
}

func TestCheckInUnknownTokenLeavesAttendance(t *testing.T) {
	f := setupTestDB(t, nil)
	ctx := context.Background()

	_, err := f.store.CheckInTicket(ctx, "no-such-token", f.event.ID, time.Now().UTC())

	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	assert.Equal(t, 0, loadEvent(t, f.bun, f.event.ID).AttendanceCount)
}

func TestCheckInTicketForAnotherEvent(t *testing.T) {
	f := setupTestDB(t, nil)
	ctx := context.Background()
	other := dbtest.SeedEvent(t, f.bun, f.organizer.ID, nil)
	tk := newTicket(f.attendee.ID, f.event.ID, 10)
	require.NoError(t, f.store.CreateTicket(ctx, tk, true))

	_, err := f.store.CheckInTicket(ctx, tk.QRToken, other.ID, time.Now().UTC())
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)

	stored, err := f.store.GetTicketByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.False(t, stored.CheckedIn)
	assert.Equal(t, 0, loadEvent(t, f.bun, other.ID).AttendanceCount)
}

func TestConcurrentCheckInAdmitsOnce(t *testing.T) {
	f := setupTestDB(t, nil)
	ctx := context.Background()
	tk := newTicket(f.attendee.ID, f.event.ID, 10)
	require.NoError(t, f.store.CreateTicket(ctx, tk, true))

	const scanners = 8
	errs := make([]error, scanners)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.store.CheckInTicket(ctx, tk.QRToken, f.event.ID, time.Now().UTC())
		}(i)
	}
	close(start)
	wg.Wait()

	admitted, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, apperrors.ErrAlreadyCheckedIn):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, admitted)
	assert.Equal(t, scanners-1, rejected)
	assert.Equal(t, 1, loadEvent(t, f.bun, f.event.ID).AttendanceCount)
}

func TestCancelTicket(t *testing.T) {
	f := setupTestDB(t, nil)
	ctx := context.Background()
	tk := newTicket(f.attendee.ID, f.event.ID, 10)
	require.NoError(t, f.store.CreateTicket(ctx, tk, true))

	err := f.store.CancelTicket(ctx, tk.ID, f.organizer.ID)
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)

	require.NoError(t, f.store.CancelTicket(ctx, tk.ID, f.attendee.ID))

	_, err = f.store.GetTicketByID(ctx, tk.ID)
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	ev := loadEvent(t, f.bun, f.event.ID)
	assert.Equal(t, 0, ev.TicketsSold)
	assert.InDelta(t, 10, ev.Revenue, 0.001)
}

func TestCancelCheckedInTicketIsRefused(t *testing.T) {
	f := setupTestDB(t, nil)
	ctx := context.Background()
	tk := newTicket(f.attendee.ID, f.event.ID, 10)
	require.NoError(t, f.store.CreateTicket(ctx, tk, true))
	_, err := f.store.CheckInTicket(ctx, tk.QRToken, f.event.ID, time.Now().UTC())
	require.NoError(t, err)

	err = f.store.CancelTicket(ctx, tk.ID, f.attendee.ID)

	assert.ErrorIs(t, err, apperrors.ErrAlreadyCheckedIn)
	assert.Equal(t, 1, countTickets(t, f.bun))
}

func TestGetTicketsByProfileNewestFirst(t *testing.T) {
	f := setupTestDB(t, nil)
	ctx := context.Background()
	older := newTicket(f.attendee.ID, f.event.ID, 10)
	newer := newTicket(f.attendee.ID, f.event.ID, 10)
	newer.PurchasedAt = older.PurchasedAt.Add(time.Hour)
	require.NoError(t, f.store.CreateTicket(ctx, older, true))
	require.NoError(t, f.store.CreateTicket(ctx, newer, true))

	tickets, err := f.store.GetTicketsByProfile(ctx, f.attendee.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, newer.ID, tickets[0].ID)

	none, err := f.store.GetTicketsByProfile(ctx, f.organizer.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}
