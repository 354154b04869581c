// Package sql builds the parameterized statements issued against the members
// warehouse. Identifiers come only from the attribute registry and
// configuration and are quoted by a Dialect; values are always bound.
package sql

import (
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/chingu-voyages/member-demographics/pkg/models"
)

// Dialect captures the SQL differences between supported warehouses.
type Dialect interface {
	Name() string
	PlaceholderFormat() sq.PlaceholderFormat
	QuoteIdent(name string) string
	// ListElements renders a row source with one row per element of a list
	// column; the element is exposed as <alias>.value.
	ListElements(column, alias string) string
	// ListJoin renders a join clause that flattens a list column of the
	// queried table, exposing each element as <alias>.value.
	ListJoin(column, alias string) string
	// DateOf truncates a timestamp column to its UTC calendar date.
	DateOf(column string) string
	// DateParam binds a calendar day for comparison with DateOf.
	DateParam(day time.Time) any
	// Paginate renders the result window clause with bound arguments.
	Paginate(limit uint64, offset *uint64) (string, []any)
	// ColumnType is the storage type used for a cleaned-table column.
	ColumnType(t models.ColumnType) string
	// CreateTable renders DDL that creates the table only when it is missing.
	CreateTable(qualified, body string) string
	// ClearTable renders a statement removing every row of the table.
	ClearTable(qualified string) string
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql":
		return Postgres{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "sqlserver", "mssql":
		return SQLServer{}, nil
	}
	return nil, fmt.Errorf("unsupported SQL dialect %q", name)
}

func doubleQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func limitOffset(limit uint64, offset *uint64) (string, []any) {
	if offset == nil {
		return "LIMIT ?", []any{int64(limit)}
	}
	return "LIMIT ? OFFSET ?", []any{int64(limit), int64(*offset)}
}

// Postgres targets PostgreSQL with native array columns.
type Postgres struct{}

func (Postgres) Name() string                            { return "postgres" }
func (Postgres) PlaceholderFormat() sq.PlaceholderFormat { return sq.Dollar }
func (Postgres) QuoteIdent(name string) string           { return doubleQuote(name) }

func (p Postgres) ListElements(column, alias string) string {
	return fmt.Sprintf("unnest(%s) AS %s(value)", p.QuoteIdent(column), alias)
}

func (p Postgres) ListJoin(column, alias string) string {
	return "CROSS JOIN LATERAL " + p.ListElements(column, alias)
}

func (p Postgres) DateOf(column string) string {
	return fmt.Sprintf("(%s AT TIME ZONE 'UTC')::date", p.QuoteIdent(column))
}

func (Postgres) DateParam(day time.Time) any {
	return day.UTC()
}

func (Postgres) Paginate(limit uint64, offset *uint64) (string, []any) {
	return limitOffset(limit, offset)
}

func (Postgres) ColumnType(t models.ColumnType) string {
	switch t {
	case models.ColumnInteger:
		return "BIGINT"
	case models.ColumnText:
		return "TEXT"
	case models.ColumnTimestamp:
		return "TIMESTAMPTZ"
	case models.ColumnIntegerList:
		return "BIGINT[] NOT NULL DEFAULT '{}'"
	case models.ColumnTextList:
		return "TEXT[] NOT NULL DEFAULT '{}'"
	}
	panic(fmt.Sprintf("postgres: unhandled column type %d", t))
}

func (Postgres) CreateTable(qualified, body string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", qualified, body)
}

func (Postgres) ClearTable(qualified string) string {
	return "TRUNCATE TABLE " + qualified
}

// SQLite stores list columns as JSON arrays and timestamps as ISO-8601 text.
type SQLite struct{}

func (SQLite) Name() string                            { return "sqlite" }
func (SQLite) PlaceholderFormat() sq.PlaceholderFormat { return sq.Question }
func (SQLite) QuoteIdent(name string) string           { return doubleQuote(name) }

func (s SQLite) ListElements(column, alias string) string {
	return fmt.Sprintf("json_each(%s) AS %s", s.QuoteIdent(column), alias)
}

func (s SQLite) ListJoin(column, alias string) string {
	return "CROSS JOIN " + s.ListElements(column, alias)
}

func (s SQLite) DateOf(column string) string {
	return fmt.Sprintf("date(%s)", s.QuoteIdent(column))
}

func (SQLite) DateParam(day time.Time) any {
	return day.UTC().Format(time.DateOnly)
}

func (SQLite) Paginate(limit uint64, offset *uint64) (string, []any) {
	return limitOffset(limit, offset)
}

func (SQLite) ColumnType(t models.ColumnType) string {
	switch t {
	case models.ColumnInteger:
		return "INTEGER"
	case models.ColumnText, models.ColumnTimestamp:
		return "TEXT"
	case models.ColumnIntegerList, models.ColumnTextList:
		return "TEXT NOT NULL DEFAULT '[]'"
	}
	panic(fmt.Sprintf("sqlite: unhandled column type %d", t))
}

func (SQLite) CreateTable(qualified, body string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", qualified, body)
}

func (SQLite) ClearTable(qualified string) string {
	return "DELETE FROM " + qualified
}

// SQLServer stores list columns as JSON arrays read back with OPENJSON.
type SQLServer struct{}

func (SQLServer) Name() string                            { return "sqlserver" }
func (SQLServer) PlaceholderFormat() sq.PlaceholderFormat { return sq.AtP }

func (SQLServer) QuoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (s SQLServer) ListElements(column, alias string) string {
	return fmt.Sprintf("OPENJSON(%s) AS %s", s.QuoteIdent(column), alias)
}

func (s SQLServer) ListJoin(column, alias string) string {
	return "CROSS APPLY " + s.ListElements(column, alias)
}

func (s SQLServer) DateOf(column string) string {
	return fmt.Sprintf("CAST(%s AS DATE)", s.QuoteIdent(column))
}

func (SQLServer) DateParam(day time.Time) any {
	return day.UTC().Format(time.DateOnly)
}

// Paginate uses OFFSET/FETCH, which requires an ORDER BY and a positive fetch count.
func (SQLServer) Paginate(limit uint64, offset *uint64) (string, []any) {
	var off int64
	if offset != nil {
		off = int64(*offset)
	}
	return "OFFSET ? ROWS FETCH NEXT ? ROWS ONLY", []any{off, int64(limit)}
}

func (SQLServer) ColumnType(t models.ColumnType) string {
	switch t {
	case models.ColumnInteger:
		return "BIGINT"
	case models.ColumnText:
		return "NVARCHAR(4000)"
	case models.ColumnTimestamp:
		return "DATETIME2"
	case models.ColumnIntegerList, models.ColumnTextList:
		return "NVARCHAR(MAX) NOT NULL DEFAULT '[]'"
	}
	panic(fmt.Sprintf("sqlserver: unhandled column type %d", t))
}

func (SQLServer) CreateTable(qualified, body string) string {
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)",
		strings.ReplaceAll(qualified, "'", "''"), qualified, body)
}

func (SQLServer) ClearTable(qualified string) string {
	return "TRUNCATE TABLE " + qualified
}
