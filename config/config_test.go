package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"9090\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 1, cfg.Database.MaxOpenConns)
	assert.Equal(t, 3, cfg.Database.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Database.BackoffStep)
	assert.Equal(t, 5*time.Second, cfg.Database.IdleTimeout)
	assert.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, 4*time.Hour, cfg.Cache.TTL.Hub)
	assert.Equal(t, time.Hour, cfg.Cache.TTL.CheapestNow)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL.SchemaProbe)
	assert.Equal(t, "europe", cfg.Regions.Default)
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: mysql
  slow_query_threshold: 2s
cache:
  ttl:
    hub: 2h
regions:
  default: asia_pacific
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 2*time.Second, cfg.Database.SlowQueryThreshold)
	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL.Hub)
	assert.Equal(t, 4*time.Hour, cfg.Cache.TTL.Route)
	assert.Equal(t, "asia_pacific", cfg.Regions.Default)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/flights")
	t.Setenv("SLOW_QUERY_MS", "250")
	t.Setenv("CRON_SECRET", "s3cret")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@db:5432/flights", cfg.Database.DSN())
	assert.Equal(t, 250*time.Millisecond, cfg.Database.SlowQueryThreshold)
	assert.Equal(t, "s3cret", cfg.Server.CronSecret)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"driver":   "database:\n  driver: sqlite\n",
		"conns":    "database:\n  max_open_conns: 0\n",
		"attempts": "database:\n  max_attempts: 0\n",
		"backend":  "cache:\n  backend: memcached\n",
		"redis":    "cache:\n  backend: redis\n",
		"region":   "regions:\n  default: antarctica\n",
		"duration": "cache:\n  ttl:\n    hub: forever\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	pg := DatabaseConfig{Driver: "postgres", Host: "localhost", Port: "5432", User: "u", Password: "p", DBName: "flights", ConnectTimeout: 5 * time.Second}
	assert.Equal(t, "postgres://u:p@localhost:5432/flights?sslmode=disable&connect_timeout=5", pg.DSN())

	my := DatabaseConfig{Driver: "mysql", Host: "localhost", Port: "3306", User: "u", Password: "p", DBName: "flights", ConnectTimeout: 5 * time.Second}
	assert.Equal(t, "u:p@tcp(localhost:3306)/flights?parseTime=true&timeout=5s", my.DSN())
}

func TestDriverAliases(t *testing.T) {
	for _, alias := range []string{"postgresql", "pq", "MariaDB"} {
		t.Run(alias, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, "database:\n  driver: "+alias+"\n"))
			require.NoError(t, err)
			assert.Equal(t, alias, cfg.Database.Driver)
		})
	}

	maria := DatabaseConfig{Driver: "mariadb", Host: "db", Port: "3306", User: "u", Password: "p", DBName: "flights", ConnectTimeout: time.Second}
	assert.Equal(t, "u:p@tcp(db:3306)/flights?parseTime=true&timeout=1s", maria.DSN())

	_, ok := NormalizeDriver("sqlite")
	assert.False(t, ok)
}
