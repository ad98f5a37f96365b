package tickets_test

import (
	"context"
	"time"

	"ms-eventpass/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockTicketDBLayer is a mock implementation of the TicketDBLayer interface
type MockTicketDBLayer struct {
	mock.Mock
}

func (m *MockTicketDBLayer) CreateTicket(ctx context.Context, ticket *models.Ticket, enforceCapacity bool) error {
	args := m.Called(ctx, ticket, enforceCapacity)
	return args.Error(0)
}

func (m *MockTicketDBLayer) GetTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockTicketDBLayer) GetTicketByPaymentRef(ctx context.Context, ref string) (*models.Ticket, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockTicketDBLayer) GetTicketByToken(ctx context.Context, token string) (*models.Ticket, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockTicketDBLayer) GetTicketsByProfile(ctx context.Context, profileID string) ([]models.Ticket, error) {
	args := m.Called(ctx, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Ticket), args.Error(1)
}

func (m *MockTicketDBLayer) CancelTicket(ctx context.Context, ticketID, profileID string) error {
	args := m.Called(ctx, ticketID, profileID)
	return args.Error(0)
}

func (m *MockTicketDBLayer) CheckInTicket(ctx context.Context, token, eventID string, at time.Time) (*models.CheckinResult, error) {
	args := m.Called(ctx, token, eventID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckinResult), args.Error(1)
}

func (m *MockTicketDBLayer) GetEventByID(ctx context.Context, eventID string) (*models.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockTicketDBLayer) GetTotalTicketsCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockTicketDBLayer) GetTicketCountsForEvent(ctx context.Context, eventID string) ([]models.TicketCount, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TicketCount), args.Error(1)
}

type MockProfileResolver struct {
	mock.Mock
}

func (m *MockProfileResolver) Resolve(ctx context.Context, subject string) (*models.Profile, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

type MockPaymentVerifier struct {
	mock.Mock
}

func (m *MockPaymentVerifier) Verify(ctx context.Context, intentID, eventID string, amount int64, currency string) error {
	args := m.Called(ctx, intentID, eventID, amount, currency)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	args := m.Called(ctx, topic, key, payload)
	return args.Error(0)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) EmitCheckin(evt models.TicketCheckedInEvent) {
	m.Called(evt)
}
