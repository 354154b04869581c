package warehouse

import (
	"fmt"

	sqlpkg "github.com/chingu-voyages/member-demographics/pkg/sql"
)

// Config holds connection settings shared by every adapter. Adapters read the
// fields they need and validate them in their own FromConfig.
type Config struct {
	Type     string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Schema   string
	Table    string

	// Postgres
	SSLMode string

	// SQL Server
	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int

	// SQLite
	Path string

	// MigrateOnOpen applies the embedded migrations when the adapter has any.
	MigrateOnOpen bool
}

// TableRef returns the configured members table.
func (c *Config) TableRef() sqlpkg.Table {
	return sqlpkg.Table{Schema: c.Schema, Name: c.Table}
}

// Describe renders the queried table for status output, e.g. "members.public.chingu_members".
func (c *Config) Describe() string {
	if c.Database == "" {
		return c.TableRef().String()
	}
	return fmt.Sprintf("%s.%s", c.Database, c.TableRef())
}
