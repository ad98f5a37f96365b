package event_api

import (
	"context"
	"encoding/json"
	"net/http"

	"ms-eventpass/internal/auth"
	"ms-eventpass/internal/logger"
	"ms-eventpass/internal/models"
	"ms-eventpass/internal/sse"
	"ms-eventpass/internal/utils"

	"github.com/go-chi/chi/v5"
)

type EventService interface {
	CreateEvent(ctx context.Context, subject string, req models.CreateEventRequest) (*models.Event, error)
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	ListUpcoming(ctx context.Context) ([]models.Event, error)
	MyEvents(ctx context.Context, subject string) ([]models.Event, error)
	UpdateEvent(ctx context.Context, subject, eventID string, update models.EventUpdate) (*models.Event, *models.NotifyResult, error)
	Analytics(ctx context.Context, subject, eventID string) (*models.EventAnalytics, error)
	OwnedEvent(ctx context.Context, subject, eventID string) (*models.Event, error)
}

type Handler struct {
	Events   EventService
	Checkins *sse.CheckinEventEmitter
	Logger   *logger.Logger
}

func NewHandler(events EventService, checkins *sse.CheckinEventEmitter, log *logger.Logger) *Handler {
	return &Handler{Events: events, Checkins: checkins, Logger: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/", h.ListEvents)
		r.Get("/mine", h.MyEvents)
		r.Get("/{eventId}", h.GetEvent)
		r.Patch("/{eventId}", h.UpdateEvent)
		r.Get("/{eventId}/analytics", h.GetAnalytics)
		r.Get("/{eventId}/checkins/stream", h.StreamCheckins)
	})
}

type updateEventResponse struct {
	Event  *models.Event        `json:"event"`
	Notify *models.NotifyResult `json:"notify,omitempty"`
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	event, err := h.Events.CreateEvent(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		utils.WriteError(w, "Failed to create event", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Event created", event))
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Events.ListUpcoming(r.Context())
	if err != nil {
		utils.WriteError(w, "Failed to list events", err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Events retrieved", events))
}

func (h *Handler) MyEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Events.MyEvents(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, "Failed to list your events", err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Events retrieved", events))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.Events.GetEvent(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, "Failed to get event", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event retrieved", event))
}

// UpdateEvent applies a partial edit and notifies ticket holders.
// Expected PATCH body: any of {"name", "description", "venue", "event_date"} plus optional "message" and "update_key".
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var update models.EventUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	event, result, err := h.Events.UpdateEvent(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "eventId"), update)
	if err != nil {
		utils.WriteError(w, "Failed to update event", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event updated", updateEventResponse{Event: event, Notify: result}))
}

func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.Events.Analytics(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, "Failed to get analytics", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Analytics retrieved", analytics))
}
