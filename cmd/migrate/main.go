// Command migrate copies a SQLite package-room database into Postgres.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mailroom/internal/logging"
	"mailroom/internal/migration"
	"mailroom/pkg/database"

	"go.uber.org/zap"
)

func main() {
	var (
		source      string
		target      string
		batchSize   int
		dryRun      bool
		applySchema bool
		logLevel    string
	)
	flag.StringVar(&source, "source", "", "path to the SQLite database")
	flag.StringVar(&target, "target", os.Getenv("DATABASE_URL"), "Postgres connection URL (default $DATABASE_URL)")
	flag.IntVar(&batchSize, "batch", 500, "rows per transaction")
	flag.BoolVar(&dryRun, "dry-run", false, "count source rows without writing")
	flag.BoolVar(&applySchema, "apply-schema", true, "create the relational schema in the target first")
	flag.StringVar(&logLevel, "log-level", "info", "log level")
	flag.Parse()

	logger, err := logging.New(logLevel, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := run(ctx, source, target, batchSize, dryRun, applySchema, logger)
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	}
	if err != nil {
		logger.Error("migration failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, sourcePath, targetURL string, batchSize int, dryRun, applySchema bool, logger *zap.Logger) (*migration.Report, error) {
	src, err := migration.OpenSource(sourcePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	var dst *migration.Target
	if !dryRun {
		if targetURL == "" {
			return nil, fmt.Errorf("-target or DATABASE_URL is required")
		}
		pool, err := database.NewPool(ctx, targetURL, database.PoolOptions{MaxConns: 2, ConnectTimeout: 10 * time.Second}, logger)
		if err != nil {
			return nil, err
		}
		defer pool.Close()

		if applySchema {
			if err := database.EnsureSchema(ctx, pool); err != nil {
				return nil, err
			}
		}
		dst = migration.NewTarget(pool)
	}

	m, err := migration.New(src, dst, migration.Options{BatchSize: batchSize, DryRun: dryRun}, logger)
	if err != nil {
		return nil, err
	}
	return m.Run(ctx)
}
