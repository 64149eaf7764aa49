package unload

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kadirbelkuyu/sqlanymig/internal/schema"
)

// RowSource streams the rows of one table.
type RowSource interface {
	Query(ctx context.Context, table *schema.Table, columns []*schema.Column) (Cursor, error)
}

// Cursor yields one row at a time. Values reports NULL as an invalid NullString.
type Cursor interface {
	Next() bool
	Values() ([]sql.NullString, error)
	Err() error
	Close() error
}

type SQLSource struct {
	db *sql.DB
}

func NewSQLSource(db *sql.DB) *SQLSource {
	return &SQLSource{db: db}
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SelectStatement builds the unload query for table with columns in the given order.
func SelectStatement(table *schema.Table, columns []*schema.Column) string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = quote(c.Name)
	}

	from := quote(table.Name)
	if table.Owner != "" {
		from = quote(table.Owner) + "." + from
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(names, ","), from)
}

func (s *SQLSource) Query(ctx context.Context, table *schema.Table, columns []*schema.Column) (Cursor, error) {
	rows, err := s.db.QueryContext(ctx, SelectStatement(table, columns))
	if err != nil {
		return nil, fmt.Errorf("failed to query source data: %w", err)
	}
	return &sqlCursor{rows: rows, values: make([]sql.NullString, len(columns))}, nil
}

type sqlCursor struct {
	rows   *sql.Rows
	values []sql.NullString
}

func (c *sqlCursor) Next() bool { return c.rows.Next() }

func (c *sqlCursor) Values() ([]sql.NullString, error) {
	ptrs := make([]any, len(c.values))
	for i := range c.values {
		ptrs[i] = &c.values[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}
	return c.values, nil
}

func (c *sqlCursor) Err() error   { return c.rows.Err() }
func (c *sqlCursor) Close() error { return c.rows.Close() }
