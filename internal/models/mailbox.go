package models

import (
	"time"
)

type Mailbox struct {
	ID              int64     `json:"id" db:"id"`
	MailboxNumber   string    `json:"mailbox_number" db:"mailbox_number"`
	DefaultTenantID *int64    `json:"default_tenant_id" db:"default_tenant_id"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	Notes           *string   `json:"notes" db:"notes"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`

	// Read-side fields filled by list/search queries.
	DefaultTenantName *string  `json:"default_tenant_name,omitempty" db:"-"`
	TenantCount       int      `json:"tenant_count" db:"-"`
	PendingPackages   int      `json:"pending_packages" db:"-"`
	Tenants           []Tenant `json:"tenants,omitempty" db:"-"`
}

// MailboxFilter holds the supported list/search options for mailboxes
type MailboxFilter struct {
	Query           string `query:"q"`                // Mailbox number prefix or tenant name fragment
	IncludeInactive bool   `query:"include_inactive"` // Include deactivated mailboxes
	Limit           int    `query:"limit"`
	Offset          int    `query:"offset"`
}
