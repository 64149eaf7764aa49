package apply

import (
	"context"
	"fmt"
	"strings"

	"github.com/kadirbelkuyu/sqlanymig/internal/database"
	"github.com/kadirbelkuyu/sqlanymig/internal/generator"
	"github.com/kadirbelkuyu/sqlanymig/pkg/logger"
)

// Creator executes a generated script against a live PostgreSQL server.
type Creator struct {
	conn   *database.Connection
	logger *logger.Logger
}

func NewCreator(conn *database.Connection, logger *logger.Logger) *Creator {
	return &Creator{
		conn:   conn,
		logger: logger,
	}
}

// PrepareDatabase runs the role and database sections one statement at a time.
// CREATE DATABASE cannot run inside a transaction, and psql meta-commands are skipped.
func (c *Creator) PrepareDatabase(ctx context.Context, script *generator.Script) error {
	c.logger.Info("Creating roles and database...")

	for _, stmt := range script.Statements(generator.SectionRoles, generator.SectionDatabase) {
		if strings.HasPrefix(stmt, `\`) {
			continue
		}
		if _, err := c.conn.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// CreateSchema runs sequences, tables, foreign keys and indexes in one transaction.
func (c *Creator) CreateSchema(ctx context.Context, script *generator.Script) error {
	c.logger.Info("Creating schema...")

	tx, err := c.conn.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	for _, name := range generator.SchemaSections {
		section, ok := script.Section(name)
		if !ok {
			continue
		}
		for _, stmt := range section.Statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply %s section at %q: %w", section.Name, firstLine(stmt), err)
			}
			count++
		}
		c.logger.Debugf("%s section applied", section.Name)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	c.logger.Infof("%d statements applied successfully", count)
	return nil
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}
