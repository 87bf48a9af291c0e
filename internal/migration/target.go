package migration

import (
	"context"
	"fmt"
	"strings"

	"mailroom/pkg/database"

	"github.com/jackc/pgx/v5"
)

// Target writes rows into Postgres.
type Target struct {
	db database.DB
}

func NewTarget(db database.DB) *Target {
	return &Target{db: db}
}

// Upsert writes rows in one transaction. Existing ids are overwritten so a
// migration can be rerun.
func (t *Target) Upsert(ctx context.Context, table string, cols []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	query := upsertSQL(table, cols)
	return database.WithTx(ctx, t.db, func(tx pgx.Tx) error {
		for _, row := range rows {
			if _, err := tx.Exec(ctx, query, row...); err != nil {
				return fmt.Errorf("upsert %s id=%v: %w", table, row[0], err)
			}
		}
		return nil
	})
}

// assignment is one deferred column value.
type assignment struct {
	id    int64
	value any
}

// SetColumn applies deferred column values in order.
func (t *Target) SetColumn(ctx context.Context, table, col string, values []assignment) error {
	if len(values) == 0 {
		return nil
	}
	query := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE id = $1`, table, col)
	return database.WithTx(ctx, t.db, func(tx pgx.Tx) error {
		for _, a := range values {
			if _, err := tx.Exec(ctx, query, a.id, a.value); err != nil {
				return fmt.Errorf("set %s.%s id=%d: %w", table, col, a.id, err)
			}
		}
		return nil
	})
}

// ResetSequence moves the table's id sequence past the highest copied id.
func (t *Target) ResetSequence(ctx context.Context, table string) error {
	query := fmt.Sprintf(
		`SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE(MAX(id), 1), MAX(id) IS NOT NULL) FROM %s`,
		table, table,
	)
	if _, err := t.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("reset sequence %s: %w", table, err)
	}
	return nil
}

func upsertSQL(table string, cols []string) string {
	placeholders := make([]string, len(cols))
	var updates []string
	for i, c := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if c != "id" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		}
	}
	conflict := "DO NOTHING"
	if len(updates) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(updates, ", ")
	}
	return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) %s`,
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), conflict)
}
