package models

import (
	"time"
)

// PickupRequest is the payload of a batch pickup.
type PickupRequest struct {
	PackageIDs       []int64 `json:"package_ids"`
	MailboxID        int64   `json:"mailbox_id"`
	TenantID         *int64  `json:"tenant_id,omitempty"`
	PickupPersonName string  `json:"pickup_person_name"`
	SignatureData    *string `json:"signature_data,omitempty"`
	StaffInitials    *string `json:"staff_initials,omitempty"`
	Notes            *string `json:"notes,omitempty"`
}

// PickupCandidate is a package loaded for precondition checks.
type PickupCandidate struct {
	ID             int64
	MailboxID      int64
	TenantID       *int64
	TenantName     *string
	TrackingNumber string
	Status         PackageStatus
	HighValue      bool
}

// PickupRecord is what the store persists once preconditions pass.
type PickupRecord struct {
	Packages         []*PickupCandidate
	TenantID         *int64
	PickupPersonName string
	StaffInitials    *string
	Notes            *string
	PickedUpAt       time.Time
}

// PickupRecorded is returned by the store after the status transition
// commits. EventIDs is parallel to the record's packages and empty for the
// legacy layout.
type PickupRecorded struct {
	EventIDs []int64
}

// PickupSummary is the response of a successful pickup.
type PickupSummary struct {
	PackagesPickedUp  int       `json:"packages_picked_up"`
	PackageIDs        []int64   `json:"package_ids"`
	TrackingNumbers   []string  `json:"tracking_numbers"`
	TenantName        *string   `json:"tenant_name,omitempty"`
	TenantCount       int       `json:"tenant_count"`
	CrossTenantPickup bool      `json:"cross_tenant_pickup"`
	SignatureRequired bool      `json:"signature_required"`
	SignatureCaptured bool      `json:"signature_captured"`
	SignatureIDs      []int64   `json:"signature_ids"`
	PickupEventIDs    []int64   `json:"pickup_event_ids,omitempty"`
	PickupPersonName  string    `json:"pickup_person_name"`
	PickedUpAt        time.Time `json:"picked_up_at"`
	Schema            string    `json:"schema"`
}

// PickupEvent is one row of the pickup history.
type PickupEvent struct {
	ID               int64     `json:"id"`
	PackageID        int64     `json:"package_id"`
	TrackingNumber   string    `json:"tracking_number"`
	MailboxID        int64     `json:"mailbox_id"`
	MailboxNumber    string    `json:"mailbox_number"`
	TenantID         *int64    `json:"tenant_id"`
	TenantName       *string   `json:"tenant_name"`
	PickupPersonName string    `json:"pickup_person_name"`
	StaffInitials    *string   `json:"staff_initials"`
	Notes            *string   `json:"notes"`
	HasSignature     bool      `json:"has_signature"`
	SignatureID      *int64    `json:"signature_id"`
	HighValue        bool      `json:"high_value"`
	PickedUpAt       time.Time `json:"picked_up_at"`
}

// PickupFilter holds the supported options of the pickup history listing.
type PickupFilter struct {
	TenantID  *int64 `query:"tenant_id"`
	MailboxID *int64 `query:"mailbox_id"`
	Days      *int   `query:"days"`
	Limit     int    `query:"limit"`
	Offset    int    `query:"offset"`
}

// PickupPage is a page of pickup history.
type PickupPage struct {
	Events []*PickupEvent `json:"pickups"`
	Total  int            `json:"total"`
	Days   int            `json:"days"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// BulkStatusRequest moves open packages to a new status.
type BulkStatusRequest struct {
	PackageIDs []int64       `json:"package_ids"`
	Status     PackageStatus `json:"status"`
	Notes      *string       `json:"notes,omitempty"`
}

// BulkStatusResult reports how much of a bulk transition applied.
type BulkStatusResult struct {
	Updated    int           `json:"updated"`
	Requested  int           `json:"requested"`
	NotUpdated int           `json:"not_updated"`
	Status     PackageStatus `json:"status"`
}
