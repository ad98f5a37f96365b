package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID              string    `bun:"id,pk" json:"id"`
	OrganizerID     string    `bun:"organizer_id,notnull" json:"organizer_id"`
	Name            string    `bun:"name,notnull" json:"name"`
	Description     string    `bun:"description" json:"description"`
	Venue           string    `bun:"venue" json:"venue"`
	EventDate       time.Time `bun:"event_date,notnull" json:"event_date"`
	AttendanceCount int       `bun:"attendance_count,notnull" json:"attendance_count"`
	TicketsSold     int       `bun:"tickets_sold,notnull" json:"tickets_sold"`
	Revenue         float64   `bun:"revenue,notnull" json:"revenue"`
	MaxCapacity     *int      `bun:"max_capacity" json:"max_capacity,omitempty"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt       time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

type CreateEventRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Venue       string    `json:"venue"`
	EventDate   time.Time `json:"event_date"`
	MaxCapacity *int      `json:"max_capacity,omitempty"`
}

// EventUpdate carries the changed fields of an event. Nil fields are unchanged.
type EventUpdate struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Venue       *string    `json:"venue,omitempty"`
	EventDate   *time.Time `json:"event_date,omitempty"`
	// UpdateKey identifies one logical update; redelivery with the same key
	// creates no new notifications.
	UpdateKey string `json:"update_key,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ChangedFields lists the names of the fields set on the update.
func (u EventUpdate) ChangedFields() []string {
	var fields []string
	if u.Name != nil {
		fields = append(fields, "name")
	}
	if u.Description != nil {
		fields = append(fields, "description")
	}
	if u.Venue != nil {
		fields = append(fields, "venue")
	}
	if u.EventDate != nil {
		fields = append(fields, "event_date")
	}
	return fields
}

// EventUpdatedMessage is consumed from and published to the events-updated topic.
type EventUpdatedMessage struct {
	EventID string      `json:"event_id"`
	Update  EventUpdate `json:"update"`
}

type EventAnalytics struct {
	EventID         string        `json:"event_id"`
	EventName       string        `json:"event_name"`
	TicketsSold     int           `json:"tickets_sold"`
	Revenue         float64       `json:"revenue"`
	AttendanceCount int           `json:"attendance_count"`
	AttendanceRate  float64       `json:"attendance_rate"`
	MaxCapacity     *int          `json:"max_capacity,omitempty"`
	DailySales      []TicketCount `json:"daily_sales"`
	TicketTypes     []TypeSales   `json:"ticket_types"`
}

type TypeSales struct {
	TicketType string  `json:"ticket_type"`
	Count      int     `json:"count"`
	Revenue    float64 `json:"revenue"`
}
