package repositories

import (
	"context"
	"errors"
	"fmt"

	"mailroom/internal/models"
	"mailroom/pkg/database"
)

// ErrPickupRace is returned by RecordPickup when fewer packages changed
// status than were requested, meaning a concurrent pickup got there first.
// The transaction has been rolled back.
var ErrPickupRace = errors.New("packages changed status during pickup")

// PickupStore persists pickups and their signatures. One implementation
// exists per schema layout; the server picks one at startup.
type PickupStore interface {
	Variant() database.SchemaVariant
	LoadCandidates(ctx context.Context, ids []int64, mailboxID int64) ([]*models.PickupCandidate, error)
	RecordPickup(ctx context.Context, rec *models.PickupRecord) (*models.PickupRecorded, error)
	SaveSignature(ctx context.Context, sig models.SignatureWrite) (int64, error)
	ListPickups(ctx context.Context, filter models.PickupFilter) ([]*models.PickupEvent, int, error)
	GetSignature(ctx context.Context, id int64) (*models.Signature, error)
	DeleteSignature(ctx context.Context, id int64) (*models.Signature, error)
}

// NewPickupStore returns the store for the given layout.
func NewPickupStore(db database.DB, variant database.SchemaVariant) (PickupStore, error) {
	switch variant {
	case database.SchemaRelational:
		return NewRelationalPickupStore(db), nil
	case database.SchemaLegacy:
		return NewLegacyPickupStore(db), nil
	default:
		return nil, fmt.Errorf("no pickup store for schema variant %q", variant)
	}
}

// candidateLoader is shared by both layouts; the package columns it reads
// exist in each.
type candidateLoader struct {
	db database.DB
}

func (l candidateLoader) LoadCandidates(ctx context.Context, ids []int64, mailboxID int64) ([]*models.PickupCandidate, error) {
	query := `
		SELECT p.id, p.mailbox_id, p.tenant_id, t.name, p.tracking_number, p.status, p.high_value
		FROM packages p
		LEFT JOIN tenants t ON t.id = p.tenant_id
		WHERE p.id = ANY($1) AND p.mailbox_id = $2
		ORDER BY p.id
	`
	rows, err := l.db.Query(ctx, query, ids, mailboxID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := []*models.PickupCandidate{}
	for rows.Next() {
		c := &models.PickupCandidate{}
		if err := rows.Scan(&c.ID, &c.MailboxID, &c.TenantID, &c.TenantName, &c.TrackingNumber, &c.Status, &c.HighValue); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

const markPickedUpSQL = `
	UPDATE packages
	SET status = 'picked_up', picked_up_at = $2, updated_at = $2
	WHERE id = ANY($1) AND status IN ('received', 'ready_for_pickup')
`

func packageIDs(packages []*models.PickupCandidate) []int64 {
	ids := make([]int64, len(packages))
	for i, p := range packages {
		ids[i] = p.ID
	}
	return ids
}

// eventTenant prefers the package's own tenant over the one named in the
// request.
func eventTenant(p *models.PickupCandidate, rec *models.PickupRecord) *int64 {
	if p.TenantID != nil {
		return p.TenantID
	}
	return rec.TenantID
}

// DefaultPickupWindowDays is the history window used when none is given.
const DefaultPickupWindowDays = 30

func windowDays(filter models.PickupFilter) int {
	if filter.Days == nil {
		return DefaultPickupWindowDays
	}
	return *filter.Days
}
