package ticket_api

import (
	"net/http"

	"ms-eventpass/internal/models"
	"ms-eventpass/internal/utils"
)

// TicketCountResponse is the response format for the GetTicketsCount endpoint
type TicketCountResponse struct {
	TotalCount int                  `json:"total_count"`
	EventID    string               `json:"event_id,omitempty"`
	Daily      []models.TicketCount `json:"daily,omitempty"`
}

// GetTicketsCount returns the total number of tickets, plus the daily
// issuance of one event when ?event_id= is given.
func (h *Handler) GetTicketsCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.TicketService.GetTotalTicketsCount(r.Context())
	if err != nil {
		utils.WriteError(w, "Error retrieving ticket count", err)
		return
	}
	response := TicketCountResponse{TotalCount: count}

	if eventID := r.URL.Query().Get("event_id"); eventID != "" {
		daily, err := h.TicketService.GetDailyTicketCounts(r.Context(), eventID)
		if err != nil {
			utils.WriteError(w, "Error retrieving daily counts", err)
			return
		}
		response.EventID = eventID
		response.Daily = daily
	}

	utils.WriteJSON(w, http.StatusOK, response)
}
