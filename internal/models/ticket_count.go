package models

import "github.com/uptrace/bun"

// TicketCount is the number of tickets issued for an event on one UTC day.
type TicketCount struct {
	bun.BaseModel `bun:"table:ticket_counts"`

	EventID string `bun:"event_id,pk" json:"event_id"`
	Day     string `bun:"day,pk" json:"day"`
	Issued  int    `bun:"issued,notnull" json:"issued"`
}

const DayLayout = "2006-01-02"
