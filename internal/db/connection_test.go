package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tim-schilling/publicworks/internal/config"
	"github.com/tim-schilling/publicworks/internal/store"
)

func TestNewConnectionSQLite(t *testing.T) {
	ctx := context.Background()
	opts := config.DatabaseOptions{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "pw.db")}

	conn, err := NewConnection(ctx, opts)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, store.SQLite, conn.Dialect)

	require.NoError(t, conn.Migrate(ctx))
	// Migrating twice is harmless.
	require.NoError(t, conn.Migrate(ctx))

	counts, err := conn.Store().Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counts[store.TableWorkOrder])
}

func TestNewConnectionUnknownDriver(t *testing.T) {
	_, err := NewConnection(context.Background(), config.DatabaseOptions{Driver: "oracle"})
	assert.Error(t, err)
}

func TestNewConnectionPingFailure(t *testing.T) {
	opts := config.DatabaseOptions{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "missing", "pw.db")}
	_, err := NewConnection(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping database")
}
