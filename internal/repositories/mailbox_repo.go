package repositories

import (
	"context"
	"fmt"

	"mailroom/internal/models"
	"mailroom/pkg/database"

	"github.com/jackc/pgx/v5"
)

type MailboxRepository interface {
	Create(ctx context.Context, mailbox *models.Mailbox) error
	GetByID(ctx context.Context, id int64) (*models.Mailbox, error)
	GetByNumber(ctx context.Context, number string) (*models.Mailbox, error)
	Update(ctx context.Context, mailbox *models.Mailbox) error
	SetDefaultTenant(ctx context.Context, id int64, tenantID *int64) error
	Deactivate(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, filter models.MailboxFilter) ([]*models.Mailbox, error)
}

type mailboxRepo struct {
	db database.DB
}

func NewMailboxRepo(db database.DB) MailboxRepository {
	return &mailboxRepo{db: db}
}

const mailboxColumns = `m.id, m.mailbox_number, m.default_tenant_id, m.is_active, m.notes, m.created_at, m.updated_at`

func (r *mailboxRepo) Create(ctx context.Context, mailbox *models.Mailbox) error {
	query := `
		INSERT INTO mailboxes (mailbox_number, default_tenant_id, is_active, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query, mailbox.MailboxNumber, mailbox.DefaultTenantID, mailbox.IsActive, mailbox.Notes).
		Scan(&mailbox.ID, &mailbox.CreatedAt, &mailbox.UpdatedAt)
}

func (r *mailboxRepo) GetByID(ctx context.Context, id int64) (*models.Mailbox, error) {
	query := `SELECT ` + mailboxColumns + ` FROM mailboxes m WHERE m.id = $1`
	return scanMailbox(r.db.QueryRow(ctx, query, id))
}

func (r *mailboxRepo) GetByNumber(ctx context.Context, number string) (*models.Mailbox, error) {
	query := `SELECT ` + mailboxColumns + ` FROM mailboxes m WHERE m.mailbox_number = $1`
	return scanMailbox(r.db.QueryRow(ctx, query, number))
}

func scanMailbox(row pgx.Row) (*models.Mailbox, error) {
	m := &models.Mailbox{}
	if err := row.Scan(&m.ID, &m.MailboxNumber, &m.DefaultTenantID, &m.IsActive, &m.Notes, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *mailboxRepo) Update(ctx context.Context, mailbox *models.Mailbox) error {
	query := `
		UPDATE mailboxes
		SET mailbox_number = $1, is_active = $2, notes = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`
	return r.db.QueryRow(ctx, query, mailbox.MailboxNumber, mailbox.IsActive, mailbox.Notes, mailbox.ID).Scan(&mailbox.UpdatedAt)
}

// SetDefaultTenant points the mailbox at tenantID, or clears the pointer
// when tenantID is nil.
func (r *mailboxRepo) SetDefaultTenant(ctx context.Context, id int64, tenantID *int64) error {
	query := `UPDATE mailboxes SET default_tenant_id = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Deactivate soft-deletes the mailbox and every tenant under it in one
// transaction.
func (r *mailboxRepo) Deactivate(ctx context.Context, id int64) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE mailboxes SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("deactivate mailbox: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		if _, err := tx.Exec(ctx, `UPDATE tenants SET is_active = FALSE, updated_at = NOW() WHERE mailbox_id = $1`, id); err != nil {
			return fmt.Errorf("deactivate tenants: %w", err)
		}
		return nil
	})
}

// Delete removes the mailbox; tenants and packages go with it through
// ON DELETE CASCADE.
func (r *mailboxRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM mailboxes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Search matches the query against the mailbox number prefix and active
// tenant names. An empty query lists every mailbox.
func (r *mailboxRepo) Search(ctx context.Context, filter models.MailboxFilter) ([]*models.Mailbox, error) {
	query := `
		SELECT ` + mailboxColumns + `,
			dt.name,
			(SELECT COUNT(*) FROM tenants t WHERE t.mailbox_id = m.id AND t.is_active) AS tenant_count,
			(SELECT COUNT(*) FROM packages p WHERE p.mailbox_id = m.id AND p.status IN ('received', 'ready_for_pickup')) AS pending_packages
		FROM mailboxes m
		LEFT JOIN tenants dt ON dt.id = m.default_tenant_id
		WHERE ($1::text = ''
			OR m.mailbox_number LIKE $1 || '%'
			OR EXISTS (SELECT 1 FROM tenants t WHERE t.mailbox_id = m.id AND t.is_active AND t.name ILIKE '%' || $1 || '%'))
		  AND ($2::boolean OR m.is_active)
		ORDER BY LENGTH(m.mailbox_number), m.mailbox_number
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, filter.Query, filter.IncludeInactive, filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mailboxes := []*models.Mailbox{}
	for rows.Next() {
		m := &models.Mailbox{}
		if err := rows.Scan(&m.ID, &m.MailboxNumber, &m.DefaultTenantID, &m.IsActive, &m.Notes, &m.CreatedAt, &m.UpdatedAt,
			&m.DefaultTenantName, &m.TenantCount, &m.PendingPackages); err != nil {
			return nil, err
		}
		mailboxes = append(mailboxes, m)
	}
	return mailboxes, rows.Err()
}
