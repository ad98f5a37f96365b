package ticket_api

import (
	"encoding/json"
	"errors"
	"net/http"

	"ms-eventpass/internal/apperrors"
	"ms-eventpass/internal/auth"
	"ms-eventpass/internal/models"
	"ms-eventpass/internal/utils"
)

type CheckinRequest struct {
	Token   string `json:"token"`
	EventID string `json:"event_id"`
}

type CheckinResponse struct {
	Valid           bool                 `json:"valid"`
	Ticket          *models.TicketDetail `json:"ticket,omitempty"`
	AttendanceCount int                  `json:"attendance_count,omitempty"`
	Reason          string               `json:"reason,omitempty"`
	Message         string               `json:"message,omitempty"`
}

// CheckinTicket validates a scanned QR token for an event and admits its
// holder at most once.
// Expected POST body: {"token": "<scanned QR content>", "event_id": "uuid"}
func (h *Handler) CheckinTicket(w http.ResponseWriter, r *http.Request) {
	var req CheckinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, CheckinResponse{
			Reason:  apperrors.Code(apperrors.ErrInvalidRequest),
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	result, err := h.TicketService.CheckInAs(r.Context(), auth.UserID(r.Context()), req.Token, req.EventID)
	if err != nil {
		utils.WriteJSON(w, apperrors.HTTPStatus(err), CheckinResponse{
			Reason:  apperrors.Code(err),
			Message: rejectionMessage(err),
		})
		return
	}

	utils.WriteJSON(w, http.StatusOK, CheckinResponse{
		Valid:           true,
		Ticket:          &result.Ticket,
		AttendanceCount: result.AttendanceCount,
	})
}

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrTicketNotFound):
		return "Ticket not found for this event"
	case errors.Is(err, apperrors.ErrAlreadyCheckedIn):
		return "Ticket has already been used"
	case errors.Is(err, apperrors.ErrStorage):
		return "Check-in unavailable, try again"
	default:
		return err.Error()
	}
}
