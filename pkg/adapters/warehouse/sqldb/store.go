// Package sqldb implements the warehouse contract on database/sql for
// backends that store list columns as JSON text (SQLite, SQL Server).
package sqldb

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chingu-voyages/member-demographics/pkg/adapters/warehouse"
	"github.com/chingu-voyages/member-demographics/pkg/logging"
	"github.com/chingu-voyages/member-demographics/pkg/models"
	sqlpkg "github.com/chingu-voyages/member-demographics/pkg/sql"
)

// TimestampTextLayout is the layout used when timestamps are stored as text.
const TimestampTextLayout = "2006-01-02T15:04:05Z"

// Options tunes how member rows are encoded for a backend.
type Options struct {
	// TimestampAsText stores timestamps as UTC ISO-8601 text.
	TimestampAsText bool
	// InsertBatchSize bounds rows per INSERT statement. Must keep
	// batch*columns under the driver's parameter limit.
	InsertBatchSize int
	// TypeName maps a driver type name to a warehouse logical type.
	TypeName func(databaseType string) string
}

// Store is a warehouse backed by a *sql.DB.
type Store struct {
	db      *sql.DB
	builder *sqlpkg.Builder
	target  string
	opts    Options
	lists   map[string]models.ColumnType
	logger  *zap.Logger
}

// New wraps an open database handle. The Store owns db and closes it.
func New(db *sql.DB, builder *sqlpkg.Builder, target string, opts Options, logger *zap.Logger) *Store {
	if opts.InsertBatchSize <= 0 {
		opts.InsertBatchSize = 100
	}
	if opts.TypeName == nil {
		opts.TypeName = GenericTypeName
	}
	return &Store{
		db:      db,
		builder: builder,
		target:  target,
		opts:    opts,
		lists:   models.ListColumns(),
		logger:  logger,
	}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Builder returns the statement builder for this store.
func (s *Store) Builder() *sqlpkg.Builder { return s.builder }

// Target names the members table.
func (s *Store) Target() string { return s.target }

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Query runs a parameterized SELECT and materializes the rows. Text values are
// returned as strings and JSON-encoded list columns are decoded.
func (s *Store) Query(ctx context.Context, sqlQuery string, args []any) (*warehouse.QueryResult, error) {
	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}

	columns := make([]warehouse.ColumnInfo, len(columnTypes))
	for i, ct := range columnTypes {
		columns[i] = warehouse.ColumnInfo{
			Name: ct.Name(),
			Type: s.opts.TypeName(ct.DatabaseTypeName()),
		}
		if lt, ok := s.lists[ct.Name()]; ok {
			columns[i].Type = listTypeName(lt)
		}
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col.Name] = s.decode(col.Name, values[i])
		}
		resultRows = append(resultRows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &warehouse.QueryResult{Columns: columns, Rows: resultRows}, nil
}

func (s *Store) decode(column string, v any) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	str, ok := v.(string)
	if !ok {
		return v
	}
	if _, isList := s.lists[column]; !isList || !strings.HasPrefix(strings.TrimSpace(str), "[") {
		return v
	}
	list, err := DecodeList(str)
	if err != nil {
		return v
	}
	return list
}

// ReplaceMembers creates the table if needed and replaces its rows in one
// transaction.
func (s *Store) ReplaceMembers(ctx context.Context, members []models.Member) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			s.logger.Warn("Failed to roll back member load", zap.String("error", logging.SanitizeError(err)))
		}
	}()

	if _, err := tx.ExecContext(ctx, s.builder.CreateTable()); err != nil {
		return 0, fmt.Errorf("create members table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.builder.ClearTable()); err != nil {
		return 0, fmt.Errorf("clear members table: %w", err)
	}

	var written int64
	for start := 0; start < len(members); start += s.opts.InsertBatchSize {
		end := min(start+s.opts.InsertBatchSize, len(members))
		batch := make([][]any, 0, end-start)
		for i := start; i < end; i++ {
			row, err := s.encodeRow(&members[i])
			if err != nil {
				return 0, fmt.Errorf("encode member %d: %w", members[i].ID, err)
			}
			batch = append(batch, row)
		}

		query, args, err := s.builder.InsertRows(batch)
		if err != nil {
			return 0, fmt.Errorf("build insert: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("insert members %d-%d: %w", start+1, end, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = int64(end - start)
		}
		written += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit member load: %w", err)
	}

	s.logger.Info("Replaced members table",
		zap.String("target", s.target),
		zap.Int64("rows", written))
	return written, nil
}

func (s *Store) encodeRow(m *models.Member) ([]any, error) {
	values := m.Values()
	for i, col := range models.MemberColumns {
		switch {
		case col.Type.IsList():
			encoded, err := json.Marshal(values[i])
			if err != nil {
				return nil, err
			}
			values[i] = string(encoded)
		case col.Type == models.ColumnTimestamp && s.opts.TimestampAsText:
			if t, ok := values[i].(time.Time); ok {
				values[i] = t.UTC().Format(TimestampTextLayout)
			}
		}
	}
	return values, nil
}

// DecodeList parses a JSON array, keeping integers as int64.
func DecodeList(s string) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]any, len(raw))
	for i, v := range raw {
		if n, ok := v.(json.Number); ok {
			if iv, err := n.Int64(); err == nil {
				out[i] = iv
				continue
			}
			f, _ := n.Float64()
			out[i] = f
			continue
		}
		out[i] = v
	}
	return out, nil
}

func listTypeName(t models.ColumnType) string {
	if t == models.ColumnIntegerList {
		return warehouse.TypeIntegerArray
	}
	return warehouse.TypeStringArray
}

// GenericTypeName maps common SQL type names to warehouse logical types.
func GenericTypeName(databaseType string) string {
	t := strings.ToUpper(databaseType)
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	switch t {
	case "INTEGER", "INT", "BIGINT", "SMALLINT", "TINYINT":
		return warehouse.TypeInteger
	case "REAL", "FLOAT", "DOUBLE", "NUMERIC", "DECIMAL", "MONEY":
		return warehouse.TypeFloat
	case "TEXT", "CHAR", "NCHAR", "VARCHAR", "NVARCHAR", "NTEXT", "CLOB":
		return warehouse.TypeString
	case "BOOLEAN", "BIT":
		return warehouse.TypeBoolean
	case "DATETIME", "DATETIME2", "DATETIMEOFFSET", "TIMESTAMP", "SMALLDATETIME":
		return warehouse.TypeTimestamp
	case "DATE":
		return warehouse.TypeDate
	}
	return warehouse.TypeUnknown
}
