// Package sqlserver stores the cleaned members table in Microsoft SQL Server,
// with list columns as JSON arrays read through OPENJSON.
package sqlserver

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"go.uber.org/zap"

	"github.com/chingu-voyages/member-demographics/pkg/adapters/warehouse"
	"github.com/chingu-voyages/member-demographics/pkg/adapters/warehouse/sqldb"
	sqlpkg "github.com/chingu-voyages/member-demographics/pkg/sql"
)

// insertBatchSize keeps batch*columns below SQL Server's 2100 parameter limit.
const insertBatchSize = 100

// Adapter is a SQL Server-backed warehouse.
type Adapter struct {
	*sqldb.Store
	config *Config
}

// NewAdapter opens and verifies a SQL Server connection.
func NewAdapter(ctx context.Context, cfg *Config, table sqlpkg.Table, logger *zap.Logger) (*Adapter, error) {
	if table.Schema == "" {
		table.Schema = DefaultSchema
	}

	db, err := sql.Open("sqlserver", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("open SQL auth connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection test failed: %w", err)
	}

	store := sqldb.New(db, sqlpkg.NewBuilder(sqlpkg.SQLServer{}, table),
		cfg.Database+"."+table.String(),
		sqldb.Options{InsertBatchSize: insertBatchSize},
		logger.Named("sqlserver"))
	return &Adapter{Store: store, config: cfg}, nil
}

var _ warehouse.Warehouse = (*Adapter)(nil)
