package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/chingu-voyages/member-demographics/pkg/adapters/warehouse"
	sqlpkg "github.com/chingu-voyages/member-demographics/pkg/sql"
)

// DefaultPath is the config file read by Load.
const DefaultPath = "config.yaml"

// Config holds all configuration for the demographics service and pipeline.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables or a credentials file.
type Config struct {
	// Server configuration
	BindAddr     string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port         string `yaml:"port" env:"PORT" env-default:"8080"`
	Env          string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	IsProduction bool   `yaml:"is_production" env:"IS_PRODUCTION" env-default:"false"`
	LogLevel     string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version      string `yaml:"-"` // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	Warehouse WarehouseConfig `yaml:"warehouse"`
	Cleaning  CleaningConfig  `yaml:"cleaning"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// WarehouseConfig selects and connects the members warehouse.
type WarehouseConfig struct {
	Type string `yaml:"type" env:"WAREHOUSE_TYPE" env-default:"postgres"`
	Host string `yaml:"host" env:"WAREHOUSE_HOST" env-default:"localhost"`
	// Port 0 uses the adapter's default port.
	Port     int    `yaml:"port" env:"WAREHOUSE_PORT" env-default:"0"`
	User     string `yaml:"user" env:"WAREHOUSE_USER" env-default:""`
	Password string `yaml:"-" env:"WAREHOUSE_PASSWORD"` // Secret - not in YAML
	// CredentialsFile holds the password when WAREHOUSE_PASSWORD is unset.
	CredentialsFile string `yaml:"credentials_file" env:"WAREHOUSE_CREDENTIALS_FILE" env-default:""`

	// Project and Dataset name the database and schema holding the table.
	Project string `yaml:"project" env:"WAREHOUSE_PROJECT" env-default:""`
	Dataset string `yaml:"dataset" env:"WAREHOUSE_DATASET" env-default:""`
	Table   string `yaml:"table" env:"WAREHOUSE_TABLE" env-default:"chingu_members"`

	SSLMode                string `yaml:"ssl_mode" env:"WAREHOUSE_SSLMODE" env-default:""`
	Encrypt                bool   `yaml:"encrypt" env:"WAREHOUSE_ENCRYPT" env-default:"true"`
	TrustServerCertificate bool   `yaml:"trust_server_certificate" env:"WAREHOUSE_TRUST_SERVER_CERTIFICATE" env-default:"false"`
	ConnectionTimeout      int    `yaml:"connection_timeout" env:"WAREHOUSE_CONNECTION_TIMEOUT" env-default:"0"`

	// Path is the SQLite database file.
	Path string `yaml:"path" env:"WAREHOUSE_PATH" env-default:"members.db"`

	// Migrate applies the embedded migrations on open (Postgres only).
	Migrate bool `yaml:"migrate" env:"WAREHOUSE_MIGRATE" env-default:"true"`
}

// CleaningConfig configures the batch cleaning pipeline.
type CleaningConfig struct {
	Input  string `yaml:"input" env:"CLEANING_INPUT" env-default:""`
	Output string `yaml:"output" env:"CLEANING_OUTPUT" env-default:""`
	// Workers bounds concurrent row normalization; 0 uses GOMAXPROCS.
	Workers       int    `yaml:"workers" env:"CLEANING_WORKERS" env-default:"0"`
	OverridesFile string `yaml:"overrides_file" env:"CLEANING_OVERRIDES_FILE" env-default:""`
}

// MetricsConfig configures Prometheus exposition for batch runs.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" env:"METRICS_PUSHGATEWAY_URL" env-default:""`
	Job            string `yaml:"job" env:"METRICS_JOB" env-default:"member_cleaning"`
}

// MCPConfig configures the MCP endpoint.
type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"MCP_ENABLED" env-default:"true"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFile(DefaultPath, version)
}

// LoadFile reads configuration from path with environment variable overrides.
// A missing file is an error; use an empty YAML file to rely on the environment.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.Warehouse.readCredentials(); err != nil {
		return nil, fmt.Errorf("invalid warehouse credentials: %w", err)
	}

	if err := cfg.Warehouse.validate(); err != nil {
		return nil, fmt.Errorf("invalid warehouse configuration: %w", err)
	}

	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.BindAddr + ":" + c.Port
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

// readCredentials fills Password from CredentialsFile when the environment
// did not provide one.
func (w *WarehouseConfig) readCredentials() error {
	if w.CredentialsFile == "" || w.Password != "" {
		return nil
	}
	data, err := os.ReadFile(w.CredentialsFile)
	if err != nil {
		return fmt.Errorf("credentials file: %w", err)
	}
	w.Password = strings.TrimSpace(string(data))
	return nil
}

func (w *WarehouseConfig) validate() error {
	if !warehouse.IsRegistered(w.Type) {
		return fmt.Errorf("unknown warehouse type %q", w.Type)
	}
	table := sqlpkg.Table{Schema: w.Dataset, Name: w.Table}
	if err := table.Validate(); err != nil {
		return fmt.Errorf("table: %w", err)
	}
	return nil
}

// WarehouseConfig converts the loaded settings into adapter configuration.
// Loopback hosts are rewritten when running inside Docker.
func (c *Config) WarehouseConfig() *warehouse.Config {
	w := c.Warehouse
	return &warehouse.Config{
		Type:                   strings.ToLower(w.Type),
		Host:                   ResolveHostForDocker(w.Host),
		Port:                   w.Port,
		User:                   w.User,
		Password:               w.Password,
		Database:               w.Project,
		Schema:                 w.Dataset,
		Table:                  w.Table,
		SSLMode:                w.SSLMode,
		Encrypt:                w.Encrypt,
		TrustServerCertificate: w.TrustServerCertificate,
		ConnectionTimeout:      w.ConnectionTimeout,
		Path:                   w.Path,
		MigrateOnOpen:          w.Migrate,
	}
}
