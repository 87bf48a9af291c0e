package repositories

import (
	"context"
	"fmt"

	"mailroom/internal/models"
	"mailroom/pkg/database"

	"github.com/jackc/pgx/v5"
)

type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id int64) (*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) error
	Deactivate(ctx context.Context, id int64) error
	ListByMailbox(ctx context.Context, mailboxID int64, includeInactive bool) ([]*models.Tenant, error)
}

type tenantRepo struct {
	db database.DB
}

func NewTenantRepo(db database.DB) TenantRepository {
	return &tenantRepo{db: db}
}

func (r *tenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	query := `
		INSERT INTO tenants (mailbox_id, name, phone, email, contact_info, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query, tenant.MailboxID, tenant.Name, tenant.Phone, tenant.Email, tenant.ContactInfo, tenant.IsActive).
		Scan(&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt)
}

func (r *tenantRepo) GetByID(ctx context.Context, id int64) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	query := `
		SELECT id, mailbox_id, name, phone, email, contact_info, is_active, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&tenant.ID, &tenant.MailboxID, &tenant.Name, &tenant.Phone, &tenant.Email,
		&tenant.ContactInfo, &tenant.IsActive, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

func (r *tenantRepo) Update(ctx context.Context, tenant *models.Tenant) error {
	query := `
		UPDATE tenants
		SET name = $1, phone = $2, email = $3, contact_info = $4, is_active = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`
	return r.db.QueryRow(ctx, query, tenant.Name, tenant.Phone, tenant.Email, tenant.ContactInfo, tenant.IsActive, tenant.ID).
		Scan(&tenant.UpdatedAt)
}

// Deactivate soft-deletes the tenant and clears any mailbox default pointing
// at it.
func (r *tenantRepo) Deactivate(ctx context.Context, id int64) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE tenants SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("deactivate tenant: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		if _, err := tx.Exec(ctx, `UPDATE mailboxes SET default_tenant_id = NULL, updated_at = NOW() WHERE default_tenant_id = $1`, id); err != nil {
			return fmt.Errorf("clear default tenant: %w", err)
		}
		return nil
	})
}

func (r *tenantRepo) ListByMailbox(ctx context.Context, mailboxID int64, includeInactive bool) ([]*models.Tenant, error) {
	query := `
		SELECT id, mailbox_id, name, phone, email, contact_info, is_active, created_at, updated_at
		FROM tenants
		WHERE mailbox_id = $1 AND ($2::boolean OR is_active)
		ORDER BY name, id
	`
	rows, err := r.db.Query(ctx, query, mailboxID, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tenants := []*models.Tenant{}
	for rows.Next() {
		tenant := &models.Tenant{}
		if err := rows.Scan(&tenant.ID, &tenant.MailboxID, &tenant.Name, &tenant.Phone, &tenant.Email,
			&tenant.ContactInfo, &tenant.IsActive, &tenant.CreatedAt, &tenant.UpdatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}
