// Package sqlite stores the cleaned members table in an embedded SQLite
// database, with list columns as JSON arrays.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/chingu-voyages/member-demographics/pkg/adapters/warehouse"
	"github.com/chingu-voyages/member-demographics/pkg/adapters/warehouse/sqldb"
	sqlpkg "github.com/chingu-voyages/member-demographics/pkg/sql"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Adapter is a SQLite-backed warehouse.
type Adapter struct {
	*sqldb.Store
}

// NewAdapter opens the database file at path. The schema part of table is
// ignored.
func NewAdapter(ctx context.Context, path string, table sqlpkg.Table, logger *zap.Logger) (*Adapter, error) {
	if path == "" {
		path = MemoryPath
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer, and every connection to :memory: is a
	// separate database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection test failed: %w", err)
	}

	table.Schema = ""
	store := sqldb.New(db, sqlpkg.NewBuilder(sqlpkg.SQLite{}, table), path+":"+table.Name,
		sqldb.Options{TimestampAsText: true, InsertBatchSize: 50},
		logger.Named("sqlite"))
	return &Adapter{Store: store}, nil
}

func dsn(path string) string {
	if path == MemoryPath {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

var _ warehouse.Warehouse = (*Adapter)(nil)
