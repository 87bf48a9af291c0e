package repositories

import (
	"context"
	"fmt"

	"mailroom/internal/models"
	"mailroom/pkg/database"
)

type ReportRepository interface {
	CountByStatus(ctx context.Context, mailboxID *int64, days int) (map[string]int, error)
	CountByCarrier(ctx context.Context, mailboxID *int64, days int) (map[string]int, error)
	ReceivedPerDay(ctx context.Context, mailboxID *int64, days int) ([]models.DailyCount, error)
	HighValuePending(ctx context.Context, mailboxID *int64) (int, error)
	AuditTrail(ctx context.Context, filter models.AuditFilter) ([]*models.AuditEntry, error)
	MailboxSummary(ctx context.Context, mailboxID int64, days int) (*models.MailboxSummary, error)
	AgingPackages(ctx context.Context, olderThanDays, limit int) ([]*models.AgingPackage, error)
}

// reportRepo reads across both schema layouts; pickup facts come from
// pickup_events in the relational layout and from the package row otherwise.
type reportRepo struct {
	db      database.DB
	variant database.SchemaVariant
}

func NewReportRepo(db database.DB, variant database.SchemaVariant) ReportRepository {
	return &reportRepo{db: db, variant: variant}
}

const receivedWindow = `($1::bigint IS NULL OR mailbox_id = $1) AND received_at >= NOW() - make_interval(days => $2)`

func (r *reportRepo) CountByStatus(ctx context.Context, mailboxID *int64, days int) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM packages WHERE ` + receivedWindow + ` GROUP BY status`
	return r.countBy(ctx, query, mailboxID, days)
}

func (r *reportRepo) CountByCarrier(ctx context.Context, mailboxID *int64, days int) (map[string]int, error) {
	query := `SELECT COALESCE(NULLIF(carrier, ''), 'unknown'), COUNT(*) FROM packages WHERE ` + receivedWindow + ` GROUP BY 1`
	return r.countBy(ctx, query, mailboxID, days)
}

func (r *reportRepo) countBy(ctx context.Context, query string, args ...interface{}) (map[string]int, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

func (r *reportRepo) ReceivedPerDay(ctx context.Context, mailboxID *int64, days int) ([]models.DailyCount, error) {
	query := `
		SELECT date_trunc('day', received_at) AS day, COUNT(*)
		FROM packages
		WHERE ` + receivedWindow + `
		GROUP BY 1
		ORDER BY 1
	`
	rows, err := r.db.Query(ctx, query, mailboxID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []models.DailyCount{}
	for rows.Next() {
		var dc models.DailyCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, dc)
	}
	return counts, rows.Err()
}

func (r *reportRepo) HighValuePending(ctx context.Context, mailboxID *int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM packages
		WHERE ($1::bigint IS NULL OR mailbox_id = $1)
		  AND high_value AND status IN ('received', 'ready_for_pickup')
	`
	var n int
	err := r.db.QueryRow(ctx, query, mailboxID).Scan(&n)
	return n, err
}

const intakeAudit = `
	SELECT 'intake' AS event_type, p.id AS package_id, p.tracking_number, m.mailbox_number,
		t.name AS tenant_name, NULL::text AS actor, p.received_at AS occurred_at
	FROM packages p
	JOIN mailboxes m ON m.id = p.mailbox_id
	LEFT JOIN tenants t ON t.id = p.tenant_id
	WHERE ($1::bigint IS NULL OR p.mailbox_id = $1)
`

const relationalPickupAudit = `
	SELECT 'pickup', p.id, p.tracking_number, m.mailbox_number, t.name, e.pickup_person_name, e.picked_up_at
	FROM pickup_events e
	JOIN packages p ON p.id = e.package_id
	JOIN mailboxes m ON m.id = p.mailbox_id
	LEFT JOIN tenants t ON t.id = e.tenant_id
	WHERE ($1::bigint IS NULL OR p.mailbox_id = $1)
`

const legacyPickupAudit = `
	SELECT 'pickup', p.id, p.tracking_number, m.mailbox_number, t.name, p.pickup_person_name, p.picked_up_at
	FROM packages p
	JOIN mailboxes m ON m.id = p.mailbox_id
	LEFT JOIN tenants t ON t.id = p.tenant_id
	WHERE p.status = 'picked_up' AND p.picked_up_at IS NOT NULL
	  AND ($1::bigint IS NULL OR p.mailbox_id = $1)
`

// AuditTrail interleaves intake and pickup events, newest first.
func (r *reportRepo) AuditTrail(ctx context.Context, filter models.AuditFilter) ([]*models.AuditEntry, error) {
	pickups := relationalPickupAudit
	if r.variant == database.SchemaLegacy {
		pickups = legacyPickupAudit
	}
	query := `
		SELECT event_type, package_id, tracking_number, mailbox_number, tenant_name, actor, occurred_at
		FROM (` + intakeAudit + ` UNION ALL ` + pickups + `) audit
		ORDER BY occurred_at DESC, package_id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, filter.MailboxID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*models.AuditEntry{}
	for rows.Next() {
		e := &models.AuditEntry{}
		if err := rows.Scan(&e.EventType, &e.PackageID, &e.TrackingNumber, &e.MailboxNumber, &e.TenantName, &e.Actor, &e.OccurredAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *reportRepo) MailboxSummary(ctx context.Context, mailboxID int64, days int) (*models.MailboxSummary, error) {
	query := `
		SELECT m.id, m.mailbox_number,
			COUNT(p.id) FILTER (WHERE p.received_at >= NOW() - make_interval(days => $2)),
			COUNT(p.id) FILTER (WHERE p.status = 'picked_up' AND p.picked_up_at >= NOW() - make_interval(days => $2)),
			COUNT(p.id) FILTER (WHERE p.status IN ('received', 'ready_for_pickup')),
			COUNT(p.id) FILTER (WHERE p.status = 'returned_to_sender' AND p.updated_at >= NOW() - make_interval(days => $2)),
			COUNT(p.id) FILTER (WHERE p.high_value AND p.received_at >= NOW() - make_interval(days => $2)),
			GREATEST(MAX(p.received_at), MAX(p.picked_up_at))
		FROM mailboxes m
		LEFT JOIN packages p ON p.mailbox_id = m.id
		WHERE m.id = $1
		GROUP BY m.id, m.mailbox_number
	`
	s := &models.MailboxSummary{Days: days}
	err := r.db.QueryRow(ctx, query, mailboxID, days).Scan(&s.MailboxID, &s.MailboxNumber, &s.Received, &s.PickedUp,
		&s.Pending, &s.Returned, &s.HighValue, &s.LastActivity)
	if err != nil {
		return nil, err
	}

	people := `
		SELECT COUNT(DISTINCT LOWER(e.pickup_person_name))
		FROM pickup_events e
		JOIN packages p ON p.id = e.package_id
		WHERE p.mailbox_id = $1 AND e.picked_up_at >= NOW() - make_interval(days => $2)
	`
	if r.variant == database.SchemaLegacy {
		people = `
			SELECT COUNT(DISTINCT LOWER(pickup_person_name))
			FROM packages
			WHERE mailbox_id = $1 AND status = 'picked_up' AND picked_up_at >= NOW() - make_interval(days => $2)
		`
	}
	if err := r.db.QueryRow(ctx, people, mailboxID, days).Scan(&s.DistinctPickupNames); err != nil {
		return nil, fmt.Errorf("count pickup people: %w", err)
	}
	return s, nil
}

// AgingPackages lists open packages received more than olderThanDays ago,
// oldest first.
func (r *reportRepo) AgingPackages(ctx context.Context, olderThanDays, limit int) ([]*models.AgingPackage, error) {
	query := `
		SELECT p.id, p.tracking_number, m.mailbox_number, p.received_at
		FROM packages p
		JOIN mailboxes m ON m.id = p.mailbox_id
		WHERE p.status IN ('received', 'ready_for_pickup')
		  AND p.received_at < NOW() - make_interval(days => $1)
		ORDER BY p.received_at
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, olderThanDays, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	packages := []*models.AgingPackage{}
	for rows.Next() {
		p := &models.AgingPackage{}
		if err := rows.Scan(&p.ID, &p.TrackingNumber, &p.MailboxNumber, &p.ReceivedAt); err != nil {
			return nil, err
		}
		packages = append(packages, p)
	}
	return packages, rows.Err()
}
