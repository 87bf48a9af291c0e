package repositories

import (
	"context"
	"fmt"

	"mailroom/internal/models"
	"mailroom/pkg/database"

	"github.com/jackc/pgx/v5"
)

type relationalPickupStore struct {
	candidateLoader
	db database.DB
}

// NewRelationalPickupStore stores one pickup_events row per package and keys
// signatures by pickup event.
func NewRelationalPickupStore(db database.DB) PickupStore {
	return &relationalPickupStore{candidateLoader: candidateLoader{db: db}, db: db}
}

func (s *relationalPickupStore) Variant() database.SchemaVariant {
	return database.SchemaRelational
}

func (s *relationalPickupStore) RecordPickup(ctx context.Context, rec *models.PickupRecord) (*models.PickupRecorded, error) {
	ids := packageIDs(rec.Packages)
	result := &models.PickupRecorded{EventIDs: make([]int64, 0, len(ids))}

	insertEvent := `
		INSERT INTO pickup_events (package_id, tenant_id, pickup_person_name, staff_initials, notes, signature_captured, picked_up_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
		RETURNING id
	`

	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, markPickedUpSQL, ids, rec.PickedUpAt)
		if err != nil {
			return fmt.Errorf("mark packages picked up: %w", err)
		}
		if tag.RowsAffected() != int64(len(ids)) {
			return ErrPickupRace
		}

		for _, p := range rec.Packages {
			var eventID int64
			err := tx.QueryRow(ctx, insertEvent, p.ID, eventTenant(p, rec), rec.PickupPersonName, rec.StaffInitials, rec.Notes, rec.PickedUpAt).
				Scan(&eventID)
			if err != nil {
				return fmt.Errorf("insert pickup event for package %d: %w", p.ID, err)
			}
			result.EventIDs = append(result.EventIDs, eventID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SaveSignature upserts the signature of one pickup event and flags the
// event as signed.
func (s *relationalPickupStore) SaveSignature(ctx context.Context, sig models.SignatureWrite) (int64, error) {
	var id int64
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		upsert := `
			INSERT INTO signatures (pickup_event_id, signature_data, created_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (pickup_event_id) DO UPDATE SET signature_data = EXCLUDED.signature_data, created_at = NOW()
			RETURNING id
		`
		if err := tx.QueryRow(ctx, upsert, sig.OwnerID, sig.Data).Scan(&id); err != nil {
			return fmt.Errorf("upsert signature: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE pickup_events SET signature_captured = TRUE WHERE id = $1`, sig.OwnerID); err != nil {
			return fmt.Errorf("flag pickup event signed: %w", err)
		}
		return nil
	})
	return id, err
}

func (s *relationalPickupStore) ListPickups(ctx context.Context, filter models.PickupFilter) ([]*models.PickupEvent, int, error) {
	where := `
		FROM pickup_events e
		JOIN packages p ON p.id = e.package_id
		JOIN mailboxes m ON m.id = p.mailbox_id
		LEFT JOIN tenants t ON t.id = e.tenant_id
		LEFT JOIN signatures s ON s.pickup_event_id = e.id
		WHERE ($1::bigint IS NULL OR e.tenant_id = $1)
		  AND ($2::bigint IS NULL OR p.mailbox_id = $2)
		  AND e.picked_up_at >= NOW() - make_interval(days => $3)
	`

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) `+where, filter.TenantID, filter.MailboxID, windowDays(filter)).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT e.id, e.package_id, p.tracking_number, p.mailbox_id, m.mailbox_number, e.tenant_id, t.name,
			e.pickup_person_name, e.staff_initials, e.notes, s.id, p.high_value, e.picked_up_at
	` + where + `
		ORDER BY e.picked_up_at DESC, e.id DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := s.db.Query(ctx, query, filter.TenantID, filter.MailboxID, windowDays(filter), filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := []*models.PickupEvent{}
	for rows.Next() {
		e := &models.PickupEvent{}
		if err := rows.Scan(&e.ID, &e.PackageID, &e.TrackingNumber, &e.MailboxID, &e.MailboxNumber, &e.TenantID, &e.TenantName,
			&e.PickupPersonName, &e.StaffInitials, &e.Notes, &e.SignatureID, &e.HighValue, &e.PickedUpAt); err != nil {
			return nil, 0, err
		}
		e.HasSignature = e.SignatureID != nil
		events = append(events, e)
	}
	return events, total, rows.Err()
}

func (s *relationalPickupStore) GetSignature(ctx context.Context, id int64) (*models.Signature, error) {
	sig := &models.Signature{ID: id}
	query := `SELECT pickup_event_id, signature_data, created_at FROM signatures WHERE id = $1`
	var eventID int64
	if err := s.db.QueryRow(ctx, query, id).Scan(&eventID, &sig.SignatureData, &sig.CreatedAt); err != nil {
		return nil, err
	}
	sig.PickupEventID = &eventID
	return sig, nil
}

// DeleteSignature removes the signature and clears the owning event's flag
// in one transaction. The deleted row is returned so callers can clean up
// offloaded payloads.
func (s *relationalPickupStore) DeleteSignature(ctx context.Context, id int64) (*models.Signature, error) {
	sig := &models.Signature{ID: id}
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var eventID int64
		err := tx.QueryRow(ctx, `DELETE FROM signatures WHERE id = $1 RETURNING pickup_event_id, signature_data, created_at`, id).
			Scan(&eventID, &sig.SignatureData, &sig.CreatedAt)
		if err != nil {
			return err
		}
		sig.PickupEventID = &eventID
		if _, err := tx.Exec(ctx, `UPDATE pickup_events SET signature_captured = FALSE WHERE id = $1`, eventID); err != nil {
			return fmt.Errorf("clear pickup event signature flag: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sig, nil
}
