package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kadirbelkuyu/sqlanymig/internal/config"

	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
)

type Connection struct {
	DB     *sql.DB
	Driver string
}

// OpenSource connects to the SQL Anywhere source through its TDS listener.
func OpenSource(ctx context.Context, cfg *config.Config) (*Connection, error) {
	return open(ctx, cfg.Source.Driver, cfg.Source.DSN)
}

// OpenTarget connects to database on the PostgreSQL target.
func OpenTarget(ctx context.Context, cfg *config.Config, database string) (*Connection, error) {
	return open(ctx, "postgres", cfg.PostgresDSN(database))
}

// Wrap adopts an already opened handle.
func Wrap(db *sql.DB, driver string) *Connection {
	return &Connection{DB: db, Driver: driver}
}

func open(ctx context.Context, driver, dsn string) (*Connection, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to reach %s database: %w", driver, err)
	}

	return Wrap(db, driver), nil
}

func (c *Connection) Close() error {
	return c.DB.Close()
}

// Placeholder returns the bind parameter marker for the n-th argument, starting at 1.
func (c *Connection) Placeholder(n int) string {
	switch c.Driver {
	case "sqlserver", "mssql":
		return fmt.Sprintf("@p%d", n)
	case "postgres", "pgx":
		return fmt.Sprintf("$%d", n)
	default:
		return "?"
	}
}

// InList renders a parenthesized placeholder list for count arguments starting at first.
func (c *Connection) InList(first, count int) string {
	marks := make([]string, count)
	for i := range marks {
		marks[i] = c.Placeholder(first + i)
	}
	return "(" + strings.Join(marks, ", ") + ")"
}
