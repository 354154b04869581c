// Package postgres stores the cleaned members table in PostgreSQL, with list
// columns as native arrays.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/chingu-voyages/member-demographics/migrations"
	"github.com/chingu-voyages/member-demographics/pkg/adapters/warehouse"
	"github.com/chingu-voyages/member-demographics/pkg/database"
	"github.com/chingu-voyages/member-demographics/pkg/logging"
	"github.com/chingu-voyages/member-demographics/pkg/models"
	sqlpkg "github.com/chingu-voyages/member-demographics/pkg/sql"
)

// Adapter provides PostgreSQL connectivity for the members table.
type Adapter struct {
	config  *Config
	db      *database.DB
	table   sqlpkg.Table
	builder *sqlpkg.Builder
	logger  *zap.Logger
}

// NewAdapter connects to PostgreSQL and, when configured, applies the
// run-history migrations.
func NewAdapter(ctx context.Context, cfg *Config, table sqlpkg.Table, logger *zap.Logger) (*Adapter, error) {
	if table.Schema == "" {
		table.Schema = DefaultSchema
	}

	db, err := database.NewConnection(ctx, &database.Config{URL: cfg.ConnectionString()})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	a := &Adapter{
		config:  cfg,
		db:      db,
		table:   table,
		builder: sqlpkg.NewBuilder(sqlpkg.Postgres{}, table),
		logger:  logger.Named("postgres"),
	}

	if cfg.Migrate {
		if err := db.Migrate(migrations.FS, a.logger); err != nil {
			db.Close()
			return nil, err
		}
	}
	return a, nil
}

// Builder returns the statement builder for the members table.
func (a *Adapter) Builder() *sqlpkg.Builder { return a.builder }

// Target names the members table.
func (a *Adapter) Target() string { return a.table.String() }

// Ping verifies the database is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	if err := a.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (a *Adapter) Close() error {
	a.db.Close()
	return nil
}

// Query runs a parameterized query using $1, $2, ... placeholders.
func (a *Adapter) Query(ctx context.Context, sqlQuery string, args []any) (*warehouse.QueryResult, error) {
	rows, err := a.db.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]warehouse.ColumnInfo, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = warehouse.ColumnInfo{
			Name: fd.Name,
			Type: logicalType(fd.DataTypeOID),
		}
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col.Name] = values[i]
		}
		resultRows = append(resultRows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &warehouse.QueryResult{Columns: columns, Rows: resultRows}, nil
}

// ReplaceMembers creates the table if needed, truncates it and bulk-copies
// members, all in one transaction.
func (a *Adapter) ReplaceMembers(ctx context.Context, members []models.Member) (int64, error) {
	tx, err := a.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			a.logger.Warn("Failed to roll back member load", zap.String("error", logging.SanitizeError(err)))
		}
	}()

	if _, err := tx.Exec(ctx, a.builder.CreateTable()); err != nil {
		return 0, fmt.Errorf("create members table: %w", err)
	}
	if _, err := tx.Exec(ctx, a.builder.ClearTable()); err != nil {
		return 0, fmt.Errorf("clear members table: %w", err)
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{a.table.Schema, a.table.Name},
		models.MemberColumnNames(),
		pgx.CopyFromSlice(len(members), func(i int) ([]any, error) {
			return members[i].Values(), nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy members: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit member load: %w", err)
	}

	a.logger.Info("Replaced members table",
		zap.String("target", a.Target()),
		zap.Int64("rows", copied))
	return copied, nil
}

// RecordRun stores a pipeline run in member_pipeline_runs. Requires the
// embedded migrations to have been applied.
func (a *Adapter) RecordRun(ctx context.Context, run *models.PipelineRun) error {
	report := []byte("{}")
	issues := 0
	if run.Report != nil {
		var err error
		report, err = json.Marshal(run.Report)
		if err != nil {
			return fmt.Errorf("marshal cleaning report: %w", err)
		}
		issues = len(run.Report.Issues)
	}

	_, err := a.db.Exec(ctx, `
		INSERT INTO member_pipeline_runs
			(id, started_at, finished_at, source, input_rows, loaded_rows, target, report, issue_count, snapshot_checksum)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.StartedAt, run.FinishedAt, run.Source,
		int64(run.InputRows), run.LoadedRows, run.Target, report, int64(issues), run.SnapshotChecksum)
	if err != nil {
		return fmt.Errorf("insert pipeline run: %w", err)
	}
	return nil
}

// RecentRuns returns the latest pipeline runs, newest first.
func (a *Adapter) RecentRuns(ctx context.Context, limit int) ([]models.PipelineRun, error) {
	rows, err := a.db.Query(ctx, `
		SELECT id, started_at, finished_at, source, input_rows, loaded_rows, target, report, snapshot_checksum
		FROM member_pipeline_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pipeline runs: %w", err)
	}
	defer rows.Close()

	var runs []models.PipelineRun
	for rows.Next() {
		var (
			run       models.PipelineRun
			inputRows int64
			report    []byte
		)
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Source,
			&inputRows, &run.LoadedRows, &run.Target, &report, &run.SnapshotChecksum); err != nil {
			return nil, fmt.Errorf("scan pipeline run: %w", err)
		}
		run.InputRows = int(inputRows)
		run.Report = &models.CleaningReport{}
		if err := json.Unmarshal(report, run.Report); err != nil {
			return nil, fmt.Errorf("decode cleaning report: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// logicalType maps PostgreSQL type OIDs to warehouse logical types.
// Unknown types return "UNKNOWN".
func logicalType(oid uint32) string {
	switch oid {
	case 16:
		return warehouse.TypeBoolean
	case 20, 21, 23:
		return warehouse.TypeInteger
	case 25, 1042, 1043:
		return warehouse.TypeString
	case 114, 3802:
		return warehouse.TypeJSON
	case 700, 701, 1700:
		return warehouse.TypeFloat
	case 1082:
		return warehouse.TypeDate
	case 1114, 1184:
		return warehouse.TypeTimestamp
	case 1005, 1007, 1016:
		return warehouse.TypeIntegerArray
	case 1009, 1015:
		return warehouse.TypeStringArray
	default:
		return warehouse.TypeUnknown
	}
}

var _ warehouse.Warehouse = (*Adapter)(nil)
