package tickets

import (
	"context"

	"ms-eventpass/internal/models"
)

// GetTotalTicketsCount returns the total count of tickets
func (s *TicketService) GetTotalTicketsCount(ctx context.Context) (int, error) {
	return s.DB.GetTotalTicketsCount(ctx)
}

// GetDailyTicketCounts returns the per-day issuance counts of an event
func (s *TicketService) GetDailyTicketCounts(ctx context.Context, eventID string) ([]models.TicketCount, error) {
	return s.DB.GetTicketCountsForEvent(ctx, eventID)
}
