package sse

import (
	"context"
	"sync"

	"ms-eventpass/internal/models"
)

// CheckinEventEmitter fans check-ins out to the live streams of each event.
type CheckinEventEmitter struct {
	// key: eventID, value: client channels
	eventClients     map[string][]chan models.TicketCheckedInEvent
	eventClientMutex sync.RWMutex
}

func NewCheckinEventEmitter() *CheckinEventEmitter {
	return &CheckinEventEmitter{
		eventClients: make(map[string][]chan models.TicketCheckedInEvent),
	}
}

// SubscribeToEvent registers a client for an event's check-ins. The channel
// is closed once ctx is done.
func (e *CheckinEventEmitter) SubscribeToEvent(ctx context.Context, eventID string) <-chan models.TicketCheckedInEvent {
	clientChan := make(chan models.TicketCheckedInEvent, 10)

	e.eventClientMutex.Lock()
	e.eventClients[eventID] = append(e.eventClients[eventID], clientChan)
	e.eventClientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeEventClient(eventID, clientChan)
	}()

	return clientChan
}

// EmitCheckin broadcasts to every subscriber of the check-in's event.
// Slow clients with a full buffer miss the update.
func (e *CheckinEventEmitter) EmitCheckin(evt models.TicketCheckedInEvent) {
	// Sending under the read lock keeps removeEventClient from closing a
	// channel mid-send.
	e.eventClientMutex.RLock()
	defer e.eventClientMutex.RUnlock()

	for _, clientChan := range e.eventClients[evt.EventID] {
		select {
		case clientChan <- evt:
		default:
		}
	}
}

func (e *CheckinEventEmitter) removeEventClient(eventID string, clientChan chan models.TicketCheckedInEvent) {
	e.eventClientMutex.Lock()
	defer e.eventClientMutex.Unlock()

	clients := e.eventClients[eventID]
	for i, ch := range clients {
		if ch == clientChan {
			e.eventClients[eventID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.eventClients[eventID]) == 0 {
		delete(e.eventClients, eventID)
	}
}

// GetEventClientCount returns the number of clients currently subscribed to an event
func (e *CheckinEventEmitter) GetEventClientCount(eventID string) int {
	e.eventClientMutex.RLock()
	defer e.eventClientMutex.RUnlock()
	return len(e.eventClients[eventID])
}
