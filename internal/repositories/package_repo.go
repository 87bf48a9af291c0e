package repositories

import (
	"context"

	"mailroom/internal/models"
	"mailroom/pkg/database"

	"github.com/jackc/pgx/v5"
)

type PackageRepository interface {
	Create(ctx context.Context, pkg *models.Package) error
	GetByID(ctx context.Context, id int64) (*models.Package, error)
	GetByTracking(ctx context.Context, trackingNumber string) (*models.Package, error)
	Update(ctx context.Context, pkg *models.Package) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter models.PackageFilter) ([]*models.Package, error)
	ResetStatus(ctx context.Context, id int64) error
	BulkUpdateStatus(ctx context.Context, ids []int64, status models.PackageStatus, notes *string) (int64, error)
}

type packageRepo struct {
	db database.DB
}

func NewPackageRepo(db database.DB) PackageRepository {
	return &packageRepo{db: db}
}

const packageSelect = `
	SELECT p.id, p.mailbox_id, p.tenant_id, p.tracking_number, p.status, p.high_value, p.carrier, p.size_category,
		p.notes, p.received_at, p.picked_up_at, p.updated_at, m.mailbox_number, t.name
	FROM packages p
	JOIN mailboxes m ON m.id = p.mailbox_id
	LEFT JOIN tenants t ON t.id = p.tenant_id
`

func scanPackage(row pgx.Row) (*models.Package, error) {
	p := &models.Package{}
	err := row.Scan(&p.ID, &p.MailboxID, &p.TenantID, &p.TrackingNumber, &p.Status, &p.HighValue, &p.Carrier, &p.SizeCategory,
		&p.Notes, &p.ReceivedAt, &p.PickedUpAt, &p.UpdatedAt, &p.MailboxNumber, &p.TenantName)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *packageRepo) Create(ctx context.Context, pkg *models.Package) error {
	query := `
		INSERT INTO packages (mailbox_id, tenant_id, tracking_number, status, high_value, carrier, size_category, notes, received_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, received_at, updated_at
	`
	return r.db.QueryRow(ctx, query, pkg.MailboxID, pkg.TenantID, pkg.TrackingNumber, string(pkg.Status), pkg.HighValue,
		pkg.Carrier, pkg.SizeCategory, pkg.Notes).Scan(&pkg.ID, &pkg.ReceivedAt, &pkg.UpdatedAt)
}

func (r *packageRepo) GetByID(ctx context.Context, id int64) (*models.Package, error) {
	return scanPackage(r.db.QueryRow(ctx, packageSelect+` WHERE p.id = $1`, id))
}

func (r *packageRepo) GetByTracking(ctx context.Context, trackingNumber string) (*models.Package, error) {
	return scanPackage(r.db.QueryRow(ctx, packageSelect+` WHERE p.tracking_number = $1`, trackingNumber))
}

// Update writes every field except status and the timestamps the status
// transitions own.
func (r *packageRepo) Update(ctx context.Context, pkg *models.Package) error {
	query := `
		UPDATE packages
		SET tenant_id = $1, high_value = $2, carrier = $3, size_category = $4, notes = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`
	return r.db.QueryRow(ctx, query, pkg.TenantID, pkg.HighValue, pkg.Carrier, pkg.SizeCategory, pkg.Notes, pkg.ID).
		Scan(&pkg.UpdatedAt)
}

func (r *packageRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM packages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// List runs one fixed statement; an absent filter field disables its
// predicate through a NULL parameter.
func (r *packageRepo) List(ctx context.Context, filter models.PackageFilter) ([]*models.Package, error) {
	query := packageSelect + `
		WHERE ($1::bigint IS NULL OR p.mailbox_id = $1)
		  AND ($2::bigint IS NULL OR p.tenant_id = $2)
		  AND ($3::text IS NULL OR p.status = $3)
		  AND ($4::text IS NULL OR p.carrier ILIKE $4)
		  AND ($5::boolean IS NULL OR p.high_value = $5)
		  AND ($6::text = '' OR p.tracking_number ILIKE '%' || $6 || '%')
		ORDER BY p.received_at DESC, p.id DESC
		LIMIT $7 OFFSET $8
	`
	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}

	rows, err := r.db.Query(ctx, query, filter.MailboxID, filter.TenantID, status, filter.Carrier, filter.HighValue,
		filter.Query, filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	packages := []*models.Package{}
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		packages = append(packages, p)
	}
	return packages, rows.Err()
}

// ResetStatus returns a package to received and clears its pickup time.
func (r *packageRepo) ResetStatus(ctx context.Context, id int64) error {
	query := `UPDATE packages SET status = 'received', picked_up_at = NULL, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// BulkUpdateStatus moves the open packages among ids to status and reports
// how many rows changed. Packages already picked up or returned are left
// alone.
func (r *packageRepo) BulkUpdateStatus(ctx context.Context, ids []int64, status models.PackageStatus, notes *string) (int64, error) {
	query := `
		UPDATE packages
		SET status = $1, notes = COALESCE($2, notes), updated_at = NOW()
		WHERE id = ANY($3) AND status IN ('received', 'ready_for_pickup')
	`
	tag, err := r.db.Exec(ctx, query, string(status), notes, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
