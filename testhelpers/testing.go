// Package testhelpers sets up a real Postgres for tests that need one.
package testhelpers

import (
	"context"
	"os"
	"testing"
	"time"

	"mailroom/pkg/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func()
}

// SetupTestDB connects to TEST_DATABASE_URL, applies the schema and empties
// every table. The test is skipped when the variable is unset.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, connString, database.PoolOptions{
		MaxConns:         8,
		ConnectTimeout:   5 * time.Second,
		StatementTimeout: 10 * time.Second,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("Failed to apply schema: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE signatures, pickup_events, packages, tenants, mailboxes RESTART IDENTITY CASCADE`); err != nil {
		pool.Close()
		t.Fatalf("Failed to reset tables: %v", err)
	}

	db := &TestDB{Pool: pool, Cleanup: pool.Close}
	t.Cleanup(db.Cleanup)
	return db
}

// SeedMailbox inserts an active mailbox and returns its id.
func SeedMailbox(t *testing.T, db *TestDB, number string) int64 {
	t.Helper()
	var id int64
	err := db.Pool.QueryRow(context.Background(),
		`INSERT INTO mailboxes (mailbox_number) VALUES ($1) RETURNING id`, number).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test mailbox: %v", err)
	}
	return id
}

// SeedTenant inserts an active tenant under mailboxID.
func SeedTenant(t *testing.T, db *TestDB, mailboxID int64, name string) int64 {
	t.Helper()
	var id int64
	err := db.Pool.QueryRow(context.Background(),
		`INSERT INTO tenants (mailbox_id, name) VALUES ($1, $2) RETURNING id`, mailboxID, name).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test tenant: %v", err)
	}
	return id
}

// SeedPackage inserts a received package.
func SeedPackage(t *testing.T, db *TestDB, mailboxID int64, tenantID *int64, tracking string, highValue bool) int64 {
	t.Helper()
	var id int64
	err := db.Pool.QueryRow(context.Background(),
		`INSERT INTO packages (mailbox_id, tenant_id, tracking_number, high_value) VALUES ($1, $2, $3, $4) RETURNING id`,
		mailboxID, tenantID, tracking, highValue).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test package: %v", err)
	}
	return id
}

// PackageStatus reads a package's current status.
func PackageStatus(t *testing.T, db *TestDB, id int64) string {
	t.Helper()
	var status string
	if err := db.Pool.QueryRow(context.Background(), `SELECT status FROM packages WHERE id = $1`, id).Scan(&status); err != nil {
		t.Fatalf("Failed to read package %d: %v", id, err)
	}
	return status
}
