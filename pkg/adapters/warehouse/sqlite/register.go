package sqlite

import (
	"context"

	"go.uber.org/zap"

	"github.com/chingu-voyages/member-demographics/pkg/adapters/warehouse"
)

func init() {
	warehouse.Register(warehouse.Registration{
		Info: warehouse.AdapterInfo{
			Type:        "sqlite",
			DisplayName: "SQLite",
			Description: "Embedded SQLite file or in-memory database for local analysis and tests",
		},
		Aliases: []string{"sqlite3"},
		Factory: func(ctx context.Context, c *warehouse.Config, logger *zap.Logger) (warehouse.Warehouse, error) {
			return NewAdapter(ctx, c.Path, c.TableRef(), logger)
		},
	})
}
