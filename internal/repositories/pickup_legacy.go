package repositories

import (
	"context"
	"fmt"

	"mailroom/internal/models"
	"mailroom/pkg/database"

	"github.com/jackc/pgx/v5"
)

type legacyPickupStore struct {
	candidateLoader
	db database.DB
}

// NewLegacyPickupStore keeps pickup metadata on the package row and keys
// signatures by package.
func NewLegacyPickupStore(db database.DB) PickupStore {
	return &legacyPickupStore{candidateLoader: candidateLoader{db: db}, db: db}
}

func (s *legacyPickupStore) Variant() database.SchemaVariant {
	return database.SchemaLegacy
}

func (s *legacyPickupStore) RecordPickup(ctx context.Context, rec *models.PickupRecord) (*models.PickupRecorded, error) {
	ids := packageIDs(rec.Packages)
	query := `
		UPDATE packages
		SET status = 'picked_up', picked_up_at = $2, updated_at = $2,
			pickup_person_name = $3, staff_initials = $4, pickup_notes = $5, signature_captured = FALSE
		WHERE id = ANY($1) AND status IN ('received', 'ready_for_pickup')
	`
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, ids, rec.PickedUpAt, rec.PickupPersonName, rec.StaffInitials, rec.Notes)
		if err != nil {
			return fmt.Errorf("mark packages picked up: %w", err)
		}
		if tag.RowsAffected() != int64(len(ids)) {
			return ErrPickupRace
		}
		// A package returned to the shelf may still carry the previous pickup's signature.
		if _, err := tx.Exec(ctx, `DELETE FROM signatures WHERE package_id = ANY($1)`, ids); err != nil {
			return fmt.Errorf("clear previous signatures: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &models.PickupRecorded{}, nil
}

// SaveSignature upserts the signature of one package and flags the package
// as signed.
func (s *legacyPickupStore) SaveSignature(ctx context.Context, sig models.SignatureWrite) (int64, error) {
	var id int64
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		upsert := `
			INSERT INTO signatures (package_id, signature_data, created_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (package_id) DO UPDATE SET signature_data = EXCLUDED.signature_data, created_at = NOW()
			RETURNING id
		`
		if err := tx.QueryRow(ctx, upsert, sig.OwnerID, sig.Data).Scan(&id); err != nil {
			return fmt.Errorf("upsert signature: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE packages SET signature_captured = TRUE, updated_at = NOW() WHERE id = $1`, sig.OwnerID); err != nil {
			return fmt.Errorf("flag package signed: %w", err)
		}
		return nil
	})
	return id, err
}

// ListPickups derives history rows from picked up packages; the package id
// doubles as the event id.
func (s *legacyPickupStore) ListPickups(ctx context.Context, filter models.PickupFilter) ([]*models.PickupEvent, int, error) {
	where := `
		FROM packages p
		JOIN mailboxes m ON m.id = p.mailbox_id
		LEFT JOIN tenants t ON t.id = p.tenant_id
		LEFT JOIN signatures s ON s.package_id = p.id
		WHERE p.status = 'picked_up' AND p.picked_up_at IS NOT NULL
		  AND ($1::bigint IS NULL OR p.tenant_id = $1)
		  AND ($2::bigint IS NULL OR p.mailbox_id = $2)
		  AND p.picked_up_at >= NOW() - make_interval(days => $3)
	`

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) `+where, filter.TenantID, filter.MailboxID, windowDays(filter)).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT p.id, p.id, p.tracking_number, p.mailbox_id, m.mailbox_number, p.tenant_id, t.name,
			COALESCE(p.pickup_person_name, ''), p.staff_initials, p.pickup_notes, s.id, p.high_value, p.picked_up_at
	` + where + `
		ORDER BY p.picked_up_at DESC, p.id DESC
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

func (s *legacyPickupStore) GetSignature(ctx context.Context, id int64) (*models.Signature, error) {
	sig := &models.Signature{ID: id}
	query := `SELECT package_id, signature_data, created_at FROM signatures WHERE id = $1`
	var packageID int64
	if err := s.db.QueryRow(ctx, query, id).Scan(&packageID, &sig.SignatureData, &sig.CreatedAt); err != nil {
		return nil, err
	}
	sig.PackageID = &packageID
	return sig, nil
}

func (s *legacyPickupStore) DeleteSignature(ctx context.Context, id int64) (*models.Signature, error) {
	sig := &models.Signature{ID: id}
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var packageID int64
		err := tx.QueryRow(ctx, `DELETE FROM signatures WHERE id = $1 RETURNING package_id, signature_data, created_at`, id).
			Scan(&packageID, &sig.SignatureData, &sig.CreatedAt)
		if err != nil {
			return err
		}
		sig.PackageID = &packageID
		if _, err := tx.Exec(ctx, `UPDATE packages SET signature_captured = FALSE, updated_at = NOW() WHERE id = $1`, packageID); err != nil {
			return fmt.Errorf("clear package signature flag: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sig, nil
}
