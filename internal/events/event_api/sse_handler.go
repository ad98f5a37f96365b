package event_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ms-eventpass/internal/auth"
	"ms-eventpass/internal/utils"

	"github.com/go-chi/chi/v5"
)

type streamStatus struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

// StreamCheckins streams the event's check-ins to its organizer as
// Server-Sent Events until the client disconnects.
func (h *Handler) StreamCheckins(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if _, err := h.Events.OwnedEvent(r.Context(), auth.UserID(r.Context()), eventID); err != nil {
		h.Logger.Warn("SSE", fmt.Sprintf("Stream for event %s refused: %v", eventID, err))
		utils.WriteError(w, "Cannot stream check-ins", err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Streaming unsupported", "response writer cannot flush"))
		return
	}

	setupSSEHeaders(w)

	ctx := r.Context()
	eventChan := h.Checkins.SubscribeToEvent(ctx, eventID)

	connected, _ := json.Marshal(streamStatus{Status: "connected", EventID: eventID})
	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", connected)
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Client connected to check-in stream of event %s", eventID))

	for {
		select {
		case evt, ok := <-eventChan:
			if !ok {
				return
			}
			jsonData, err := json.Marshal(evt)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize check-in event: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: checkin\ndata: %s\n\n", jsonData)
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from check-in stream of event %s", eventID))
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
