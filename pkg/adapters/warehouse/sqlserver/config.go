package sqlserver

import (
	"fmt"
	"net/url"

	"github.com/chingu-voyages/member-demographics/pkg/adapters/warehouse"
)

// Config contains SQL Server-specific connection options. Only SQL
// authentication is supported.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string

	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// DefaultSchema is used when the warehouse table has no schema.
const DefaultSchema = "dbo"

// FromConfig extracts and validates the SQL Server settings of a warehouse config.
func FromConfig(c *warehouse.Config) (*Config, error) {
	cfg := &Config{
		Host:                   c.Host,
		Port:                   c.Port,
		Database:               c.Database,
		Username:               c.User,
		Password:               c.Password,
		Encrypt:                c.Encrypt,
		TrustServerCertificate: c.TrustServerCertificate,
		ConnectionTimeout:      c.ConnectionTimeout,
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort()
	}
	if cfg.ConnectionTimeout == 0 {
		cfg.ConnectionTimeout = DefaultConnectionTimeout()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Username == "" {
		return fmt.Errorf("username is required for SQL authentication")
	}
	if c.Password == "" {
		return fmt.Errorf("password is required for SQL authentication")
	}
	return nil
}

// ConnectionString builds a sqlserver:// URL for SQL authentication.
func (c *Config) ConnectionString() string {
	query := url.Values{}
	query.Add("database", c.Database)

	if c.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}

	if c.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}

	if c.ConnectionTimeout > 0 {
		query.Add("connection timeout", fmt.Sprintf("%d", c.ConnectionTimeout))
	}

	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?%s",
		url.QueryEscape(c.Username),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		query.Encode(),
	)
}
