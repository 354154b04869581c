package sqlserver

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chingu-voyages/member-demographics/pkg/adapters/warehouse"
)

func TestFromConfig(t *testing.T) {
	cfg, err := FromConfig(&warehouse.Config{
		Host:     "sql.example.com",
		Database: "chingu",
		User:     "sa",
		Password: "secret",
		Encrypt:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1433, cfg.Port)
	assert.Equal(t, 30, cfg.ConnectionTimeout)
	assert.True(t, cfg.Encrypt)
}

func TestFromConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  warehouse.Config
		want string
	}{
		{"missing host", warehouse.Config{Database: "d", User: "u", Password: "p"}, "host is required"},
		{"missing database", warehouse.Config{Host: "h", User: "u", Password: "p"}, "database is required"},
		{"missing user", warehouse.Config{Host: "h", Database: "d", Password: "p"}, "username is required for SQL authentication"},
		{"missing password", warehouse.Config{Host: "h", Database: "d", User: "u"}, "password is required for SQL authentication"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromConfig(&tt.cfg)
			assert.EqualError(t, err, tt.want)
		})
	}
}

func TestConnectionString(t *testing.T) {
	cfg := &Config{
		Host:                   "sql.example.com",
		Port:                   14330,
		Database:               "chingu",
		Username:               "svc@chingu",
		Password:               "p@ss;word",
		TrustServerCertificate: true,
		ConnectionTimeout:      15,
	}

	u, err := url.Parse(cfg.ConnectionString())
	require.NoError(t, err)
	assert.Equal(t, "sqlserver", u.Scheme)
	assert.Equal(t, "sql.example.com:14330", u.Host)
	assert.Equal(t, "svc@chingu", u.User.Username())
	password, _ := u.User.Password()
	assert.Equal(t, "p@ss;word", password)

	q := u.Query()
	assert.Equal(t, "chingu", q.Get("database"))
	assert.Equal(t, "false", q.Get("encrypt"))
	assert.Equal(t, "true", q.Get("TrustServerCertificate"))
	assert.Equal(t, "15", q.Get("connection timeout"))
}
