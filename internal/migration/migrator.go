package migration

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
)

const defaultBatchSize = 500

type Options struct {
	BatchSize int
	// DryRun counts source rows without touching the target.
	DryRun bool
}

// TableResult reports what happened to one table.
type TableResult struct {
	Table string `json:"table"`
	// Source names the source table when it differs from Table.
	Source  string        `json:"source,omitempty"`
	Rows    int64         `json:"rows"`
	Skipped bool          `json:"skipped,omitempty"`
	Reason  string        `json:"reason,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

type Report struct {
	DryRun bool          `json:"dry_run"`
	Tables []TableResult `json:"tables"`
}

// Migrator copies the package-room tables from SQLite into Postgres.
type Migrator struct {
	source *Source
	target *Target
	opts   Options
	logger *zap.Logger
}

// New builds a migrator. target may be nil for a dry run.
func New(source *Source, target *Target, opts Options, logger *zap.Logger) (*Migrator, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if target == nil && !opts.DryRun {
		return nil, errors.New("target database is required unless dry run")
	}
	return &Migrator{source: source, target: target, opts: opts, logger: logger}, nil
}

type pendingColumn struct {
	table  string
	column string
	values []assignment
}

// Run copies every table in dependency order, then applies deferred
// columns and resets id sequences.
func (m *Migrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{DryRun: m.opts.DryRun}
	var pending []*pendingColumn
	var copied []string

	legacy, err := m.legacyLayout(ctx)
	if err != nil {
		return report, err
	}
	if legacy {
		m.logger.Info("source keeps pickups on the package row, deriving pickup events")
	}

	for _, tbl := range tables {
		start := time.Now()
		useLegacy := legacy && tbl.legacy != nil
		from := tbl.name
		if useLegacy {
			from = tbl.legacy.from
		}
		result := TableResult{Table: tbl.name}
		if from != tbl.name {
			result.Source = from
		}

		sourceCols, err := m.source.Columns(ctx, from)
		if err != nil {
			return report, err
		}
		if len(sourceCols) == 0 {
			m.logger.Warn("table missing in source, skipping", zap.String("table", tbl.name))
			result.Skipped, result.Reason = true, "missing in source"
			report.Tables = append(report.Tables, result)
			continue
		}
		var (
			plan    readPlan
			missing []string
		)
		if useLegacy {
			plan, missing = tbl.projectLegacy(sourceCols)
		} else {
			var cols []column
			cols, missing = tbl.project(sourceCols)
			plan = tbl.direct(cols)
		}
		if len(missing) > 0 {
			m.logger.Warn("table incompatible, skipping", zap.String("table", tbl.name), zap.Strings("columns", missing))
			result.Skipped, result.Reason = true, fmt.Sprintf("missing required columns %v", missing)
			report.Tables = append(report.Tables, result)
			continue
		}

		if m.opts.DryRun {
			n, err := m.source.count(ctx, plan)
			if err != nil {
				return report, err
			}
			result.Rows, result.Elapsed = n, time.Since(start)
			report.Tables = append(report.Tables, result)
			m.logger.Info("dry run", zap.String("table", tbl.name), zap.Int64("rows", n))
			continue
		}

		n, deferred, err := m.copyTable(ctx, tbl.name, plan)
		if err != nil {
			return report, err
		}
		pending = append(pending, deferred...)
		copied = append(copied, tbl.name)
		result.Rows, result.Elapsed = n, time.Since(start)
		report.Tables = append(report.Tables, result)
		m.logger.Info("table copied", zap.String("table", tbl.name), zap.String("source", from), zap.Int64("rows", n), zap.Duration("elapsed", time.Since(start)))
	}

	if m.opts.DryRun {
		return report, nil
	}

	for _, p := range pending {
		if err := m.target.SetColumn(ctx, p.table, p.column, p.values); err != nil {
			return report, err
		}
		m.logger.Info("deferred column applied", zap.String("table", p.table), zap.String("column", p.column), zap.Int("rows", len(p.values)))
	}
	for _, name := range copied {
		if err := m.target.ResetSequence(ctx, name); err != nil {
			return report, err
		}
	}
	return report, nil
}

// legacyLayout reports whether the source predates pickup_events and keeps
// pickup details on the package row.
func (m *Migrator) legacyLayout(ctx context.Context) (bool, error) {
	events, err := m.source.Columns(ctx, "pickup_events")
	if err != nil || len(events) > 0 {
		return false, err
	}
	pkgCols, err := m.source.Columns(ctx, "packages")
	if err != nil {
		return false, err
	}
	return slices.Contains(pkgCols, "pickup_person_name"), nil
}

func (m *Migrator) copyTable(ctx context.Context, name string, plan readPlan) (int64, []*pendingColumn, error) {
	cols := plan.columns
	var (
		insertCols []string
		insertIdx  []int
		deferred   []*pendingColumn
		deferIdx   []int
	)
	for i, c := range cols {
		if c.deferred {
			deferred = append(deferred, &pendingColumn{table: name, column: c.name})
			deferIdx = append(deferIdx, i)
			continue
		}
		insertCols = append(insertCols, c.name)
		insertIdx = append(insertIdx, i)
	}

	var (
		total   int64
		afterID int64
	)
	for {
		page, err := m.source.read(ctx, plan, afterID, m.opts.BatchSize)
		if err != nil {
			return total, nil, err
		}
		if len(page) == 0 {
			break
		}

		batch := make([][]any, 0, len(page))
		for _, raw := range page {
			converted, err := convertRow(name, cols, raw)
			if err != nil {
				return total, nil, err
			}
			id := converted[0].(int64)
			afterID = id

			row := make([]any, len(insertIdx))
			for j, idx := range insertIdx {
				row[j] = converted[idx]
			}
			batch = append(batch, row)

			for j, idx := range deferIdx {
				if converted[idx] != nil {
					deferred[j].values = append(deferred[j].values, assignment{id: id, value: converted[idx]})
				}
			}
		}

		if err := m.target.Upsert(ctx, name, insertCols, batch); err != nil {
			return total, nil, err
		}
		total += int64(len(batch))
		if len(page) < m.opts.BatchSize {
			break
		}
	}
	return total, deferred, nil
}

func convertRow(table string, cols []column, raw []any) ([]any, error) {
	out := make([]any, len(cols))
	for i, c := range cols {
		v, err := convert(c.kind, raw[i])
		if err != nil {
			return nil, fmt.Errorf("%s row %v column %s: %w", table, raw[0], c.name, err)
		}
		out[i] = v
	}
	if out[0] == nil {
		return nil, fmt.Errorf("%s row has null id", table)
	}
	return out, nil
}
