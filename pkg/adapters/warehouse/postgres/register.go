package postgres

import (
	"context"

	"go.uber.org/zap"

	"github.com/chingu-voyages/member-demographics/pkg/adapters/warehouse"
)

func init() {
	warehouse.Register(warehouse.Registration{
		Info: warehouse.AdapterInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
			Description: "PostgreSQL 12+ with native array list columns and run history",
		},
		Aliases: []string{"postgresql"},
		Factory: func(ctx context.Context, c *warehouse.Config, logger *zap.Logger) (warehouse.Warehouse, error) {
			cfg, err := FromConfig(c)
			if err != nil {
				return nil, err
			}
			return NewAdapter(ctx, cfg, c.TableRef(), logger)
		},
	})
}
