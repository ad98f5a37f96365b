package ticket_api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ms-eventpass/internal/apperrors"
	"ms-eventpass/internal/auth"
	"ms-eventpass/internal/models"
	"ms-eventpass/internal/tickets/ticket_api"
	"ms-eventpass/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTicketService struct {
	mock.Mock
}

func (m *MockTicketService) IssuePaidTicket(ctx context.Context, req models.PaidTicketRequest) (*models.Ticket, error) {
	args := m.Called(ctx, req)
	t, _ := args.Get(0).(*models.Ticket)
	return t, args.Error(1)
}

func (m *MockTicketService) IssueFreeTicket(ctx context.Context, req models.FreeTicketRequest) (*models.Ticket, error) {
	args := m.Called(ctx, req)
	t, _ := args.Get(0).(*models.Ticket)
	return t, args.Error(1)
}

func (m *MockTicketService) ListMyTickets(ctx context.Context, subject string) ([]models.Ticket, error) {
	args := m.Called(ctx, subject)
	list, _ := args.Get(0).([]models.Ticket)
	return list, args.Error(1)
}

func (m *MockTicketService) GetTicketQR(ctx context.Context, subject, ticketID string) ([]byte, error) {
	args := m.Called(ctx, subject, ticketID)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockTicketService) GetTicketPDF(ctx context.Context, subject, ticketID string) ([]byte, error) {
	args := m.Called(ctx, subject, ticketID)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockTicketService) CancelTicket(ctx context.Context, subject, ticketID string) error {
	return m.Called(ctx, subject, ticketID).Error(0)
}

func (m *MockTicketService) CheckInAs(ctx context.Context, subject, token, eventID string) (*models.CheckinResult, error) {
	args := m.Called(ctx, subject, token, eventID)
	r, _ := args.Get(0).(*models.CheckinResult)
	return r, args.Error(1)
}

func (m *MockTicketService) GetTotalTicketsCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockTicketService) GetDailyTicketCounts(ctx context.Context, eventID string) ([]models.TicketCount, error) {
	args := m.Called(ctx, eventID)
	list, _ := args.Get(0).([]models.TicketCount)
	return list, args.Error(1)
}

func serve(m *MockTicketService, method, path, body string) *httptest.ResponseRecorder {
	h := ticket_api.NewHandler(m, nil)
	r := chi.NewRouter()
	h.PublicRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(auth.WithUserID(req.Context(), "sub-1")))
			})
		})
		h.Routes(r)
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestIssuePaidTicketUsesCallerSubject(t *testing.T) {
	m := new(MockTicketService)
	m.On("IssuePaidTicket", mock.Anything, models.PaidTicketRequest{
		Subject: "sub-1", EventID: "e1", TicketType: "VIP", Price: 25, Currency: "usd", PaymentIntentID: "pi_1",
	}).Return(&models.Ticket{ID: "t1", EventID: "e1", Price: 25}, nil)

	rec := serve(m, http.MethodPost, "/api/tickets/paid",
		`{"subject":"someone-else","event_id":"e1","ticket_type":"VIP","price":25,"currency":"usd","payment_intent_id":"pi_1"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	m.AssertExpectations(t)
}

func TestIssuePaidTicketNotConfirmed(t *testing.T) {
	m := new(MockTicketService)
	m.On("IssuePaidTicket", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("intent pi_1: %w", apperrors.ErrPaymentNotConfirmed))

	rec := serve(m, http.MethodPost, "/api/tickets/paid", `{"event_id":"e1","price":25,"payment_intent_id":"pi_1"}`)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PAYMENT_NOT_CONFIRMED", resp.Code)
}

func TestIssueFreeTicket(t *testing.T) {
	m := new(MockTicketService)
	m.On("IssueFreeTicket", mock.Anything, models.FreeTicketRequest{Subject: "sub-1", EventID: "E42"}).
		Return(&models.Ticket{ID: "t1", EventID: "E42", TicketType: models.FreeTicketType}, nil)

	rec := serve(m, http.MethodPost, "/api/tickets/free", `{"event_id":"E42"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ticket_type":"Free"`)
}

func TestIssueFreeTicketSoldOut(t *testing.T) {
	m := new(MockTicketService)
	m.On("IssueFreeTicket", mock.Anything, mock.Anything).Return(nil, apperrors.ErrEventSoldOut)

	rec := serve(m, http.MethodPost, "/api/tickets/free", `{"event_id":"E42"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListMyTicketsEmpty(t *testing.T) {
	m := new(MockTicketService)
	m.On("ListMyTickets", mock.Anything, "sub-1").Return(nil, nil)

	rec := serve(m, http.MethodGet, "/api/tickets/mine", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestGetTicketQR(t *testing.T) {
	m := new(MockTicketService)
	m.On("GetTicketQR", mock.Anything, "sub-1", "t1").Return([]byte("\x89PNG"), nil)

	rec := serve(m, http.MethodGet, "/api/tickets/t1/qr", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "\x89PNG", rec.Body.String())
}

func TestGetTicketPDFOfAnotherHolder(t *testing.T) {
	m := new(MockTicketService)
	m.On("GetTicketPDF", mock.Anything, "sub-1", "t2").Return(nil, apperrors.ErrTicketNotFound)

	rec := serve(m, http.MethodGet, "/api/tickets/t2/pdf", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTicketPDF(t *testing.T) {
	m := new(MockTicketService)
	m.On("GetTicketPDF", mock.Anything, "sub-1", "t1").Return([]byte("%PDF-1.4"), nil)

	rec := serve(m, http.MethodGet, "/api/tickets/t1/pdf", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "ticket-t1.pdf")
}

func TestDeleteTicket(t *testing.T) {
	m := new(MockTicketService)
	m.On("CancelTicket", mock.Anything, "sub-1", "t1").Return(nil)
	m.On("CancelTicket", mock.Anything, "sub-1", "used").Return(apperrors.ErrAlreadyCheckedIn)

	assert.Equal(t, http.StatusNoContent, serve(m, http.MethodDelete, "/api/tickets/t1", "").Code)
	assert.Equal(t, http.StatusConflict, serve(m, http.MethodDelete, "/api/tickets/used", "").Code)
}

func TestCheckinValid(t *testing.T) {
	m := new(MockTicketService)
	m.On("CheckInAs", mock.Anything, "sub-1", "T1", "E42").Return(&models.CheckinResult{
		Ticket: models.TicketDetail{
			TicketID:    "t1",
			TicketType:  models.FreeTicketType,
			EventID:     "E42",
			EventName:   "Launch Night",
			CheckedInAt: time.Now().UTC(),
		},
		AttendanceCount: 1,
	}, nil)

	rec := serve(m, http.MethodPost, "/api/tickets/checkin", `{"token":"T1","event_id":"E42"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp ticket_api.CheckinResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
	require.NotNil(t, resp.Ticket)
	assert.Equal(t, "Launch Night", resp.Ticket.EventName)
	assert.Equal(t, 1, resp.AttendanceCount)
}

func TestCheckinRejections(t *testing.T) {
	cases := []struct {
		err    error
		status int
		reason string
	}{
		{apperrors.ErrAlreadyCheckedIn, http.StatusConflict, "ALREADY_CHECKED_IN"},
		{apperrors.ErrTicketNotFound, http.StatusNotFound, "TICKET_NOT_FOUND"},
		{apperrors.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{apperrors.Storage("check in", fmt.Errorf("conn reset")), http.StatusInternalServerError, "STORAGE_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.reason, func(t *testing.T) {
			m := new(MockTicketService)
			m.On("CheckInAs", mock.Anything, "sub-1", "T1", "E42").Return(nil, tc.err)

			rec := serve(m, http.MethodPost, "/api/tickets/checkin", `{"token":"T1","event_id":"E42"}`)

			assert.Equal(t, tc.status, rec.Code)
			var resp ticket_api.CheckinResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Valid)
			assert.Equal(t, tc.reason, resp.Reason)
			assert.NotEmpty(t, resp.Message)
			assert.Nil(t, resp.Ticket)
		})
	}
}

func TestCheckinMalformedBody(t *testing.T) {
	rec := serve(new(MockTicketService), http.MethodPost, "/api/tickets/checkin", `{`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":false`)
}

func TestTicketsCountIsPublic(t *testing.T) {
	m := new(MockTicketService)
	m.On("GetTotalTicketsCount", mock.Anything).Return(7, nil)
	m.On("GetDailyTicketCounts", mock.Anything, "e1").Return([]models.TicketCount{{EventID: "e1", Day: "2026-10-01", Issued: 7}}, nil)

	rec := serve(m, http.MethodGet, "/api/tickets/count", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_count":7}`, rec.Body.String())

	rec = serve(m, http.MethodGet, "/api/tickets/count?event_id=e1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"issued":7`)
}
