// Package warehouse defines the storage backends holding the cleaned members
// table. Adapters register themselves from init() and are opened by type name.
package warehouse

import (
	"context"

	"github.com/chingu-voyages/member-demographics/pkg/models"
	sqlpkg "github.com/chingu-voyages/member-demographics/pkg/sql"
)

// Logical type names reported in ColumnInfo.Type, shared by every adapter.
const (
	TypeInteger      = "INTEGER"
	TypeFloat        = "FLOAT"
	TypeString       = "STRING"
	TypeBoolean      = "BOOLEAN"
	TypeTimestamp    = "TIMESTAMP"
	TypeDate         = "DATE"
	TypeIntegerArray = "ARRAY<INTEGER>"
	TypeStringArray  = "ARRAY<STRING>"
	TypeJSON         = "JSON"
	TypeUnknown      = "UNKNOWN"
)

// ColumnInfo describes one result column.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult holds a fully materialized result set.
type QueryResult struct {
	Columns []ColumnInfo     `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Querier runs read-only parameterized statements. The SQL must use the
// placeholder format of the adapter's dialect.
type Querier interface {
	Query(ctx context.Context, sqlQuery string, args []any) (*QueryResult, error)
}

// Loader replaces the cleaned members table with a new snapshot.
type Loader interface {
	// ReplaceMembers creates the table if missing and swaps its contents for
	// members inside one transaction. Returns the number of rows written.
	ReplaceMembers(ctx context.Context, members []models.Member) (int64, error)

	// Target names the table being written, for logs and run records.
	Target() string
}

// Warehouse is an open connection to a members table.
type Warehouse interface {
	Querier
	Loader

	// Builder renders statements for this warehouse's dialect and table.
	Builder() *sqlpkg.Builder

	// Ping verifies the warehouse is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}
