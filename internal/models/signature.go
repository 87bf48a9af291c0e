package models

import (
	"time"
)

// Signature is a stored pickup signature. Exactly one of PickupEventID and
// PackageID is set, depending on the schema layout.
type Signature struct {
	ID            int64     `json:"id" db:"id"`
	PickupEventID *int64    `json:"pickup_event_id,omitempty" db:"pickup_event_id"`
	PackageID     *int64    `json:"package_id,omitempty" db:"package_id"`
	SignatureData string    `json:"-" db:"signature_data"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`

	Kind string `json:"kind" db:"-"`
}

// SignatureWrite is one signature upsert; OwnerID is a pickup event id or a
// package id depending on the layout.
type SignatureWrite struct {
	OwnerID int64
	Data    string
}
