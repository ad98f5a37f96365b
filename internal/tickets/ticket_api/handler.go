package ticket_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"ms-eventpass/internal/auth"
	"ms-eventpass/internal/logger"
	"ms-eventpass/internal/models"
	"ms-eventpass/internal/utils"

	"github.com/go-chi/chi/v5"
)

// TicketService is implemented by *tickets.TicketService.
type TicketService interface {
	IssuePaidTicket(ctx context.Context, req models.PaidTicketRequest) (*models.Ticket, error)
	IssueFreeTicket(ctx context.Context, req models.FreeTicketRequest) (*models.Ticket, error)
	ListMyTickets(ctx context.Context, subject string) ([]models.Ticket, error)
	GetTicketQR(ctx context.Context, subject, ticketID string) ([]byte, error)
	GetTicketPDF(ctx context.Context, subject, ticketID string) ([]byte, error)
	CancelTicket(ctx context.Context, subject, ticketID string) error
	CheckInAs(ctx context.Context, subject, token, eventID string) (*models.CheckinResult, error)
	GetTotalTicketsCount(ctx context.Context) (int, error)
	GetDailyTicketCounts(ctx context.Context, eventID string) ([]models.TicketCount, error)
}

type Handler struct {
	TicketService TicketService
	Logger        *logger.Logger
}

func NewHandler(ticketService TicketService, log *logger.Logger) *Handler {
	return &Handler{TicketService: ticketService, Logger: log}
}

// PublicRoutes mounts the endpoints that need no token.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Get("/api/tickets/count", h.GetTicketsCount)
}

// Routes mounts the authenticated ticket endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/tickets", func(r chi.Router) {
		r.Post("/paid", h.IssuePaidTicket)
		r.Post("/free", h.IssueFreeTicket)
		r.Get("/mine", h.ListMyTickets)
		r.Post("/checkin", h.CheckinTicket)
		r.Get("/{ticketId}/qr", h.GetTicketQR)
		r.Get("/{ticketId}/pdf", h.GetTicketPDF)
		r.Delete("/{ticketId}", h.DeleteTicket)
	})
}

// IssuePaidTicket issues a ticket for a payment intent the processor has confirmed.
// Expected POST body: {"event_id", "ticket_type", "price", "currency", "payment_intent_id"}
func (h *Handler) IssuePaidTicket(w http.ResponseWriter, r *http.Request) {
	var req models.PaidTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	req.Subject = auth.UserID(r.Context())

	ticket, err := h.TicketService.IssuePaidTicket(r.Context(), req)
	if err != nil {
		utils.WriteError(w, "Failed to issue ticket", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Ticket issued", ticket))
}

// IssueFreeTicket expects POST body: {"event_id", "ticket_type"}
func (h *Handler) IssueFreeTicket(w http.ResponseWriter, r *http.Request) {
	var req models.FreeTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	req.Subject = auth.UserID(r.Context())

	ticket, err := h.TicketService.IssueFreeTicket(r.Context(), req)
	if err != nil {
		utils.WriteError(w, "Failed to issue ticket", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Ticket issued", ticket))
}

func (h *Handler) ListMyTickets(w http.ResponseWriter, r *http.Request) {
	list, err := h.TicketService.ListMyTickets(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, "Failed to fetch tickets", err)
		return
	}
	if list == nil {
		list = []models.Ticket{}
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Tickets retrieved", list))
}

func (h *Handler) GetTicketQR(w http.ResponseWriter, r *http.Request) {
	png, err := h.TicketService.GetTicketQR(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "ticketId"))
	if err != nil {
		utils.WriteError(w, "Failed to render QR code", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *Handler) GetTicketPDF(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")
	pdf, err := h.TicketService.GetTicketPDF(r.Context(), auth.UserID(r.Context()), ticketID)
	if err != nil {
		utils.WriteError(w, "Failed to render ticket", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=ticket-%s.pdf", ticketID))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func (h *Handler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	if err := h.TicketService.CancelTicket(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "ticketId")); err != nil {
		utils.WriteError(w, "Failed to cancel ticket", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
