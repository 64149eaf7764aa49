package apply_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/kadirbelkuyu/sqlanymig/internal/apply"
	"github.com/kadirbelkuyu/sqlanymig/internal/database"
	"github.com/kadirbelkuyu/sqlanymig/internal/generator"
	"github.com/kadirbelkuyu/sqlanymig/pkg/logger"
)

func openTarget(t *testing.T) *database.Connection {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "target.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.Wrap(db, "sqlite")
}

func tableExists(t *testing.T, conn *database.Connection, name string) bool {
	t.Helper()
	var n int
	err := conn.DB.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestCreateSchemaRunsSchemaSections(t *testing.T) {
	conn := openTarget(t)
	script := &generator.Script{Sections: []generator.Section{
		{Name: generator.SectionRoles, Statements: []string{"CREATE ROLE nobody"}},
		{Name: generator.SectionTables, Statements: []string{
			"CREATE TABLE Customer (Id INTEGER PRIMARY KEY, Name TEXT)",
			"CREATE TABLE Orders (OrderId INTEGER, CustomerId INTEGER REFERENCES Customer (Id))",
		}},
		{Name: generator.SectionIndexes, Statements: []string{`CREATE INDEX "IdxOrders" ON Orders ( CustomerId ASC )`}},
		{Name: generator.SectionData, Statements: []string{"COPY Orders FROM '/nowhere'"}},
	}}

	require.NoError(t, apply.NewCreator(conn, logger.Discard()).CreateSchema(context.Background(), script))

	assert.True(t, tableExists(t, conn, "Customer"))
	assert.True(t, tableExists(t, conn, "Orders"))
}

func TestCreateSchemaRollsBackOnFailure(t *testing.T) {
	conn := openTarget(t)
	script := &generator.Script{Sections: []generator.Section{
		{Name: generator.SectionTables, Statements: []string{"CREATE TABLE Customer (Id INTEGER)"}},
		{Name: generator.SectionIndexes, Statements: []string{"CREATE INDEX broken ON Missing ( x )"}},
	}}

	err := apply.NewCreator(conn, logger.Discard()).CreateSchema(context.Background(), script)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indexes section")
	assert.False(t, tableExists(t, conn, "Customer"), "failed apply leaves no partial schema")
}

func TestPrepareDatabaseSkipsMetaCommands(t *testing.T) {
	conn := openTarget(t)
	script := &generator.Script{Sections: []generator.Section{
		{Name: generator.SectionRoles, Statements: []string{"CREATE TABLE roles_marker (x INTEGER)"}},
		{Name: generator.SectionDatabase, Statements: []string{"CREATE TABLE db_marker (x INTEGER)", `\connect "Shop"`}},
		{Name: generator.SectionTables, Statements: []string{"CREATE TABLE not_here (x INTEGER)"}},
	}}

	require.NoError(t, apply.NewCreator(conn, logger.Discard()).PrepareDatabase(context.Background(), script))

	assert.True(t, tableExists(t, conn, "roles_marker"))
	assert.True(t, tableExists(t, conn, "db_marker"))
	assert.False(t, tableExists(t, conn, "not_here"))
}
