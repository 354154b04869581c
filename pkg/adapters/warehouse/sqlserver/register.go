package sqlserver

import (
	"context"

	"go.uber.org/zap"

	"github.com/chingu-voyages/member-demographics/pkg/adapters/warehouse"
)

func init() {
	warehouse.Register(warehouse.Registration{
		Info: warehouse.AdapterInfo{
			Type:        "sqlserver",
			DisplayName: "Microsoft SQL Server",
			Description: "SQL Server 2016+ or Azure SQL Database with JSON list columns",
		},
		Aliases: []string{"mssql"},
		Factory: func(ctx context.Context, c *warehouse.Config, logger *zap.Logger) (warehouse.Warehouse, error) {
			cfg, err := FromConfig(c)
			if err != nil {
				return nil, err
			}
			return NewAdapter(ctx, cfg, c.TableRef(), logger)
		},
	})
}
