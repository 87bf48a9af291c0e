package models

import (
	"time"
)

// StatisticsFilter scopes the statistics report.
type StatisticsFilter struct {
	MailboxID *int64 `query:"mailbox_id"`
	Days      int    `query:"days"`
}

type DailyCount struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

type PackageStatistics struct {
	Total            int            `json:"total"`
	ByStatus         map[string]int `json:"by_status"`
	ByCarrier        map[string]int `json:"by_carrier"`
	ReceivedPerDay   []DailyCount   `json:"received_per_day"`
	HighValuePending int            `json:"high_value_pending"`
	Days             int            `json:"days"`
	MailboxID        *int64         `json:"mailbox_id,omitempty"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// AuditFilter scopes the audit trail.
type AuditFilter struct {
	MailboxID *int64 `query:"mailbox_id"`
	Limit     int    `query:"limit"`
	Offset    int    `query:"offset"`
}

// AuditEntry is one intake or pickup event in the audit trail.
type AuditEntry struct {
	EventType      string    `json:"event_type"` // "intake" or "pickup"
	PackageID      int64     `json:"package_id"`
	TrackingNumber string    `json:"tracking_number"`
	MailboxNumber  string    `json:"mailbox_number"`
	TenantName     *string   `json:"tenant_name"`
	Actor          *string   `json:"actor"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type AuditPage struct {
	Entries []*AuditEntry `json:"entries"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

type MailboxSummary struct {
	MailboxID           int64      `json:"mailbox_id"`
	MailboxNumber       string     `json:"mailbox_number"`
	Days                int        `json:"days"`
	Received            int        `json:"received"`
	PickedUp            int        `json:"picked_up"`
	Pending             int        `json:"pending"`
	Returned            int        `json:"returned"`
	HighValue           int        `json:"high_value"`
	DistinctPickupNames int        `json:"distinct_pickup_people"`
	LastActivity        *time.Time `json:"last_activity"`
}

// AgingPackage is a package still open after the aging threshold.
type AgingPackage struct {
	ID             int64     `json:"id"`
	TrackingNumber string    `json:"tracking_number"`
	MailboxNumber  string    `json:"mailbox_number"`
	ReceivedAt     time.Time `json:"received_at"`
}
