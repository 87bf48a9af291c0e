package database

import (
	"context"
	_ "embed"
	"fmt"

	"go.uber.org/zap"
)

// SchemaVariant names which pickup persistence layout the database carries.
type SchemaVariant string

const (
	// SchemaRelational stores pickups in pickup_events with signatures keyed by event.
	SchemaRelational SchemaVariant = "relational"
	// SchemaLegacy stores pickup metadata on the package row with signatures keyed by package.
	SchemaLegacy SchemaVariant = "legacy"
	// SchemaAuto lets DetectSchema decide.
	SchemaAuto SchemaVariant = "auto"
)

//go:embed schema/relational.sql
var relationalSchema string

var relationalChecks = []string{
	`SELECT id, package_id, pickup_person_name, signature_captured, picked_up_at FROM pickup_events LIMIT 0`,
	`SELECT id, pickup_event_id, signature_data FROM signatures LIMIT 0`,
}

// DetectSchema runs read-only queries against the relational tables. An
// undefined table or column error selects the legacy layout; any other error
// is returned as is.
func DetectSchema(ctx context.Context, db DB, logger *zap.Logger) (SchemaVariant, error) {
	for _, check := range relationalChecks {
		rows, err := db.Query(ctx, check)
		if err == nil {
			rows.Close()
			err = rows.Err()
		}
		if err != nil {
			if IsSchemaMissing(err) {
				logger.Warn("relational pickup schema not found, using legacy layout", zap.Error(err))
				return SchemaLegacy, nil
			}
			return "", fmt.Errorf("detect schema: %w", err)
		}
	}
	logger.Info("relational pickup schema detected")
	return SchemaRelational, nil
}

// ResolveSchema honours an explicit variant and only detects for SchemaAuto.
func ResolveSchema(ctx context.Context, db DB, requested SchemaVariant, logger *zap.Logger) (SchemaVariant, error) {
	switch requested {
	case SchemaRelational, SchemaLegacy:
		logger.Info("schema variant forced by configuration", zap.String("variant", string(requested)))
		return requested, nil
	case SchemaAuto, "":
		return DetectSchema(ctx, db, logger)
	default:
		return "", fmt.Errorf("unknown schema variant %q", requested)
	}
}

// EnsureSchema applies the embedded relational DDL. Every statement is
// idempotent so it is safe to run at each start.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, relationalSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
