package helper

import (
	"net/url"
	"testing"

	"studio/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationURL(t *testing.T) {
	cfg := &config.Config{}
	cfg.DB.Postgres.Prefix = "test_"
	cfg.DB.Postgres.MigrationTable = "studio_migrations"
	cfg.DB.Postgres.Write = config.PostgresNode{
		Host:     "db",
		Port:     "5432",
		Username: "studio",
		Password: "p@ss",
		Name:     "bookings",
		SSLMode:  "disable",
	}

	raw, err := migrationURL(cfg)
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	password, _ := parsed.User.Password()

	assert.Equal(t, "postgres", parsed.Scheme)
	assert.Equal(t, "db:5432", parsed.Host)
	assert.Equal(t, "/test_bookings", parsed.Path)
	assert.Equal(t, "p@ss", password)
	assert.Equal(t, "disable", parsed.Query().Get("sslmode"))
	assert.Equal(t, "studio_migrations", parsed.Query().Get("x-migrations-table"))
}
