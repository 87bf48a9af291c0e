package models

import (
	"time"
)

type Tenant struct {
	ID          int64     `json:"id" db:"id"`
	MailboxID   int64     `json:"mailbox_id" db:"mailbox_id"`
	Name        string    `json:"name" db:"name"`
	Phone       *string   `json:"phone" db:"phone"`
	Email       *string   `json:"email" db:"email"`
	ContactInfo JSONB     `json:"contact_info" db:"contact_info"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
