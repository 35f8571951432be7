package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-faster/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/tim-schilling/publicworks/internal/config"
	"github.com/tim-schilling/publicworks/internal/store"
)

// Connection holds the database connection
type Connection struct {
	DB      *sql.DB
	Dialect store.Dialect
}

// NewConnection opens and pings the database selected by DB_DRIVER
func NewConnection(ctx context.Context, opts config.DatabaseOptions) (*Connection, error) {
	dialect, err := store.DialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(opts.Driver, opts.ConnectionString())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	// Set connection pool settings
	if dialect == store.SQLite {
		// One writer at a time; extra connections only add lock contention.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(opts.MaxConnections)
		db.SetMaxIdleConns(opts.MaxConnections / 2)
		db.SetConnMaxLifetime(time.Hour)
	}

	return &Connection{DB: db, Dialect: dialect}, nil
}

// Store wraps the connection in the SQL store
func (c *Connection) Store() *store.SQLStore {
	return store.NewSQLStore(c.DB, c.Dialect)
}

// Migrate creates the schema
func (c *Connection) Migrate(ctx context.Context) error {
	return store.Migrate(ctx, c.DB, c.Dialect)
}

// Close closes the database connection
func (c *Connection) Close() error {
	return c.DB.Close()
}
