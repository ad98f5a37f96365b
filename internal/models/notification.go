package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Notification is an in-app message to one profile about one event update.
// Rows are never mutated.
type Notification struct {
	bun.BaseModel `bun:"table:notifications"`

	ID        string    `bun:"id,pk" json:"id"`
	ProfileID string    `bun:"profile_id,notnull,unique:notification_update" json:"profile_id"`
	EventID   string    `bun:"event_id,notnull,unique:notification_update" json:"event_id"`
	UpdateKey string    `bun:"update_key,notnull,unique:notification_update" json:"-"`
	Message   string    `bun:"message,notnull" json:"message"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

type PushSubscription struct {
	bun.BaseModel `bun:"table:push_subscriptions"`

	ID           string    `bun:"id,pk" json:"id"`
	ProfileID    string    `bun:"profile_id,notnull" json:"profile_id"`
	Endpoint     string    `bun:"endpoint,notnull,unique" json:"endpoint"`
	KeyP256dh    string    `bun:"key_p256dh,notnull" json:"-"`
	KeyAuth      string    `bun:"key_auth,notnull" json:"-"`
	FailureCount int       `bun:"failure_count,notnull" json:"failure_count"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
}

type SubscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// PushMessage is the JSON payload delivered to a browser push subscription.
type PushMessage struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	EventID string `json:"event_id"`
	URL     string `json:"url,omitempty"`
}

// NotifyResult summarizes one fan-out.
type NotifyResult struct {
	Holders              int `json:"holders"`
	NotificationsCreated int `json:"notifications_created"`
	PushAttempted        int `json:"push_attempted"`
	PushDelivered        int `json:"push_delivered"`
	PushFailed           int `json:"push_failed"`
	Pruned               int `json:"pruned"`
	EmailsSent           int `json:"emails_sent"`
}
