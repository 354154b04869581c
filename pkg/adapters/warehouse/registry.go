package warehouse

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// AdapterInfo describes a registered adapter.
type AdapterInfo struct {
	Type        string `json:"type"`         // "postgres", "sqlserver", "sqlite"
	DisplayName string `json:"display_name"` // "PostgreSQL", "Microsoft SQL Server"
	Description string `json:"description"`
}

// Factory opens a warehouse from configuration.
type Factory func(ctx context.Context, cfg *Config, logger *zap.Logger) (Warehouse, error)

// Registration pairs adapter info with its factory.
type Registration struct {
	Info    AdapterInfo
	Aliases []string
	Factory Factory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
	for _, alias := range reg.Aliases {
		registry[alias] = reg
	}
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for key, reg := range registry {
		if key != reg.Info.Type {
			continue
		}
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(warehouseType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[strings.ToLower(warehouseType)]
	return ok
}

// Open creates a warehouse for cfg.Type using the registered factory.
func Open(ctx context.Context, cfg *Config, logger *zap.Logger) (Warehouse, error) {
	registryMu.RLock()
	reg, ok := registry[strings.ToLower(cfg.Type)]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported warehouse type: %s (not compiled in)", cfg.Type)
	}
	if err := cfg.TableRef().Validate(); err != nil {
		return nil, fmt.Errorf("invalid warehouse table: %w", err)
	}
	return reg.Factory(ctx, cfg, logger)
}
