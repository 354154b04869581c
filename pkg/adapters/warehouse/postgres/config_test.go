package postgres

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chingu-voyages/member-demographics/pkg/adapters/warehouse"
)

func TestFromConfig_Defaults(t *testing.T) {
	cfg, err := FromConfig(&warehouse.Config{Host: "localhost", User: "chingu", Database: "members"})
	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "require", cfg.SSLMode)
}

func TestFromConfig_RequiredFields(t *testing.T) {
	tests := []struct {
		name string
		cfg  warehouse.Config
		want string
	}{
		{"missing host", warehouse.Config{User: "u", Database: "d"}, "host is required"},
		{"missing user", warehouse.Config{Host: "h", Database: "d"}, "user is required"},
		{"missing database", warehouse.Config{Host: "h", User: "u"}, "database is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromConfig(&tt.cfg)
			assert.EqualError(t, err, tt.want)
		})
	}
}

func TestConnectionString_EscapesCredentials(t *testing.T) {
	cfg := &Config{
		Host:     "db.internal",
		Port:     6543,
		User:     "voyage@admin",
		Password: "p@ss/w#rd?",
		Database: "chingu members",
		SSLMode:  "disable",
	}

	connStr := cfg.ConnectionString()
	u, err := url.Parse(connStr)
	require.NoError(t, err)

	assert.Equal(t, "postgresql", u.Scheme)
	assert.Equal(t, "db.internal:6543", u.Host)
	assert.Equal(t, "voyage@admin", u.User.Username())
	password, _ := u.User.Password()
	assert.Equal(t, "p@ss/w#rd?", password)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}
