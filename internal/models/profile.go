package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	RoleAttendee  = "attendee"
	RoleOrganizer = "organizer"
)

// Profile maps an identity provider subject to an internal id.
type Profile struct {
	bun.BaseModel `bun:"table:profiles"`

	ID          string    `bun:"id,pk" json:"id"`
	AuthSubject string    `bun:"auth_subject,notnull,unique" json:"-"`
	Email       string    `bun:"email" json:"email"`
	DisplayName string    `bun:"display_name" json:"display_name"`
	Role        string    `bun:"role,notnull" json:"role"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
}

type RegisterProfileRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}
