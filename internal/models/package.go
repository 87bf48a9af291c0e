package models

import (
	"time"
)

// PackageStatus is the lifecycle state of a package.
type PackageStatus string

const (
	StatusReceived         PackageStatus = "received"
	StatusReadyForPickup   PackageStatus = "ready_for_pickup"
	StatusPickedUp         PackageStatus = "picked_up"
	StatusReturnedToSender PackageStatus = "returned_to_sender"
)

// Valid reports whether s is a known status.
func (s PackageStatus) Valid() bool {
	switch s {
	case StatusReceived, StatusReadyForPickup, StatusPickedUp, StatusReturnedToSender:
		return true
	}
	return false
}

// Open reports whether a package in status s can still be picked up or
// moved by a bulk transition.
func (s PackageStatus) Open() bool {
	return s == StatusReceived || s == StatusReadyForPickup
}

var validSizeCategories = map[string]bool{
	"small": true, "medium": true, "large": true, "oversized": true,
}

// ValidSizeCategory reports whether size is an accepted size category.
func ValidSizeCategory(size string) bool {
	return validSizeCategories[size]
}

type Package struct {
	ID             int64         `json:"id" db:"id"`
	MailboxID      int64         `json:"mailbox_id" db:"mailbox_id"`
	TenantID       *int64        `json:"tenant_id" db:"tenant_id"`
	TrackingNumber string        `json:"tracking_number" db:"tracking_number"`
	Status         PackageStatus `json:"status" db:"status"`
	HighValue      bool          `json:"high_value" db:"high_value"`
	Carrier        *string       `json:"carrier" db:"carrier"`
	SizeCategory   *string       `json:"size_category" db:"size_category"`
	Notes          *string       `json:"notes" db:"notes"`
	ReceivedAt     time.Time     `json:"received_at" db:"received_at"`
	PickedUpAt     *time.Time    `json:"picked_up_at" db:"picked_up_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`

	MailboxNumber string  `json:"mailbox_number,omitempty" db:"-"`
	TenantName    *string `json:"tenant_name,omitempty" db:"-"`
}

// PackageFilter holds the supported list options for packages. Every field
// maps to one optional predicate of a fixed query template.
type PackageFilter struct {
	MailboxID *int64         `query:"mailbox_id"`
	TenantID  *int64         `query:"tenant_id"`
	Status    *PackageStatus `query:"status"`
	Carrier   *string        `query:"carrier"`
	HighValue *bool          `query:"high_value"`
	Query     string         `query:"q"` // Tracking number fragment
	Limit     int            `query:"limit"`
	Offset    int            `query:"offset"`
}
