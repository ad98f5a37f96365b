package models

import (
	"time"

	"github.com/uptrace/bun"
)

const FreeTicketType = "Free"

// Ticket is an admission right for one event. Price, type and event never
// change after creation; CheckedIn only moves from false to true.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID          string     `bun:"id,pk" json:"id"`
	ProfileID   string     `bun:"profile_id,notnull" json:"profile_id"`
	EventID     string     `bun:"event_id,notnull" json:"event_id"`
	TicketType  string     `bun:"ticket_type,notnull" json:"ticket_type"`
	Price       float64    `bun:"price,notnull" json:"price"`
	PurchasedAt time.Time  `bun:"purchased_at,notnull" json:"purchased_at"`
	QRToken     string     `bun:"qr_token,notnull,unique" json:"qr_token"`
	CheckedIn   bool       `bun:"checked_in,notnull" json:"checked_in"`
	CheckedInAt *time.Time `bun:"checked_in_at" json:"checked_in_at,omitempty"`
	PaymentRef  *string    `bun:"payment_ref,unique" json:"-"`
}

// TicketDetail is what a scanner sees after a successful check-in.
type TicketDetail struct {
	TicketID    string    `json:"ticket_id"`
	TicketType  string    `json:"ticket_type"`
	PurchasedAt time.Time `json:"purchase_date"`
	EventID     string    `json:"event_id"`
	EventName   string    `json:"event_name"`
	EventDate   time.Time `json:"event_date"`
	Venue       string    `json:"venue,omitempty"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

type CheckinResult struct {
	Ticket          TicketDetail `json:"ticket"`
	AttendanceCount int          `json:"attendance_count"`
}

type PaidTicketRequest struct {
	Subject         string  `json:"-"`
	EventID         string  `json:"event_id"`
	TicketType      string  `json:"ticket_type"`
	Price           float64 `json:"price"`
	Currency        string  `json:"currency"`
	PaymentIntentID string  `json:"payment_intent_id"`
}

type FreeTicketRequest struct {
	Subject    string `json:"-"`
	EventID    string `json:"event_id"`
	TicketType string `json:"ticket_type"`
}

// TicketIssuedEvent is published after an issuance commits.
type TicketIssuedEvent struct {
	TicketID   string    `json:"ticket_id"`
	EventID    string    `json:"event_id"`
	ProfileID  string    `json:"profile_id"`
	TicketType string    `json:"ticket_type"`
	Price      float64   `json:"price"`
	IssuedAt   time.Time `json:"issued_at"`
}

// TicketCheckedInEvent is published and streamed after a successful check-in.
type TicketCheckedInEvent struct {
	TicketID    string    `json:"ticket_id"`
	EventID     string    `json:"event_id"`
	TicketType  string    `json:"ticket_type"`
	CheckedInAt time.Time `json:"checked_in_at"`
	Attendance  int       `json:"attendance_count"`
}
