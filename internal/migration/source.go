package migration

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"mailroom/pkg/database"

	_ "modernc.org/sqlite"
)

// Source reads rows from the SQLite database being migrated.
type Source struct {
	db *sql.DB
}

// OpenSource opens the SQLite file at path read-only.
func OpenSource(path string) (*Source, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("source path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=query_only(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return &Source{db: db}, nil
}

// NewSource wraps an open handle.
func NewSource(db *sql.DB) *Source {
	return &Source{db: db}
}

func (s *Source) Close() error {
	return s.db.Close()
}

// Columns returns the table's column names, or none when the table does not
// exist.
func (s *Source) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var (
			cid       int
			name      string
			declType  sql.NullString
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan table info %s: %w", table, err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Source) Count(ctx context.Context, table string) (int64, error) {
	return s.count(ctx, readPlan{from: table})
}

func (s *Source) count(ctx context.Context, plan readPlan) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %q", plan.from)
	if plan.where != "" {
		query += " WHERE " + plan.where
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", plan.from, err)
	}
	return n, nil
}

// Page returns up to limit rows with id greater than afterID, ordered by id.
// cols[0] must be id.
func (s *Source) Page(ctx context.Context, table string, cols []string, afterID int64, limit int) ([][]any, error) {
	return s.read(ctx, readPlan{from: table, exprs: cols}, afterID, limit)
}

func (s *Source) read(ctx context.Context, plan readPlan, afterID int64, limit int) ([][]any, error) {
	quoted := make([]string, len(plan.exprs))
	for i, c := range plan.exprs {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	filter := "id > $1"
	if plan.where != "" {
		filter = "(" + plan.where + ") AND " + filter
	}
	query := database.Rebind(database.SQLite, fmt.Sprintf(
		`SELECT %s FROM %q WHERE %s ORDER BY id LIMIT $2`,
		strings.Join(quoted, ", "), plan.from, filter,
	))

	rows, err := s.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", plan.from, err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		values := make([]any, len(plan.exprs))
		ptrs := make([]any, len(plan.exprs))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", plan.from, err)
		}
		out = append(out, values)
	}
	return out, rows.Err()
}
