package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", cfg.TimeZone)
	assert.Equal(t, 8080, cfg.Web.Port)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/pw.db")
	t.Setenv("WEB_PORT", "9090")
	t.Setenv("TIME_ZONE", "UTC")
	t.Setenv("S3_PATH_STYLE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Contains(t, cfg.Database.ConnectionString(), "file:/tmp/pw.db?")
	assert.Equal(t, "localhost:9090", cfg.Address())
	assert.True(t, cfg.S3.PathStyle)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"unknown time zone", "TIME_ZONE", "Mars/Olympus_Mons", `invalid TIME_ZONE "Mars/Olympus_Mons"`},
		{"bad port", "WEB_PORT", "eighty", "parse environment"},
		{"bad flag", "DEBUG", "maybe", "parse environment"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConnectionString(t *testing.T) {
	tests := []struct {
		name string
		opts DatabaseOptions
		want string
	}{
		{
			name: "explicit dsn wins",
			opts: DatabaseOptions{Driver: "postgres", DSN: "postgres://x"},
			want: "postgres://x",
		},
		{
			name: "lib/pq keyword form",
			opts: DatabaseOptions{Driver: "postgres", Host: "db", Port: "5432", User: "u", Password: "p", Name: "n"},
			want: "host=db port=5432 user=u password=p dbname=n sslmode=disable",
		},
		{
			name: "pgx url form",
			opts: DatabaseOptions{Driver: "pgx", Host: "db", Port: "5432", User: "u", Password: "p", Name: "n"},
			want: "postgres://u:p@db:5432/n?sslmode=disable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.ConnectionString())
		})
	}
}

func TestLoadEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("PW_TEST_A=from-file\nPW_TEST_B=from-file\n"), 0o600))
	t.Setenv("PW_TEST_A", "from-env")
	t.Cleanup(func() { os.Unsetenv("PW_TEST_B") })

	n, err := LoadEnv(file, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "from-env", os.Getenv("PW_TEST_A"))
	assert.Equal(t, "from-file", os.Getenv("PW_TEST_B"))
}
