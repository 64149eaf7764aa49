package catalog_test

import (
	"context"
	"database/sql"
	_ "embed"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/kadirbelkuyu/sqlanymig/internal/catalog"
	"github.com/kadirbelkuyu/sqlanymig/internal/database"
	"github.com/kadirbelkuyu/sqlanymig/internal/migerr"
	"github.com/kadirbelkuyu/sqlanymig/internal/schema"
	"github.com/kadirbelkuyu/sqlanymig/pkg/logger"
)

//go:embed testdata/catalog.sql
var catalogFixture string

func openCatalog(t *testing.T, extra ...string) *database.Connection {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range append(strings.Split(catalogFixture, ";\n"), extra...) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoErrorf(t, err, "fixture statement failed: %s", stmt)
	}

	return database.Wrap(db, "sqlite")
}

func TestExtractTablesAndColumns(t *testing.T) {
	model, err := catalog.NewExtractor(openCatalog(t), logger.Discard(), []string{"dba"}).Extract(context.Background())
	require.NoError(t, err)

	require.Len(t, model.Tables, 2, "views and foreign owners are skipped")

	customer, ok := model.Table("Customer")
	require.True(t, ok)
	assert.Equal(t, 401, customer.ID)
	assert.Equal(t, "dba", customer.Owner)
	assert.Equal(t, "Customers", customer.Comment)
	require.Len(t, customer.Columns, 5)

	id := customer.Columns[0]
	assert.Equal(t, 0, id.Index)
	assert.True(t, id.PrimaryKey)
	assert.True(t, id.AutoIncrement)
	assert.Nil(t, id.Default)
	require.NotNil(t, id.NextValue)
	assert.Equal(t, int64(1001), *id.NextValue)

	name := customer.Columns[1]
	assert.Equal(t, schema.Varchar, name.DataType)
	assert.False(t, name.Nullable)
	assert.False(t, name.PrimaryKey)
	require.NotNil(t, name.Width)
	assert.Equal(t, 40, *name.Width)
	assert.Equal(t, "Display name", name.Comment)

	balance := customer.Columns[2]
	assert.Equal(t, schema.Numeric, balance.DataType)
	assert.True(t, balance.Nullable)
	require.NotNil(t, balance.Scale)
	assert.Equal(t, 2, *balance.Scale)
	require.NotNil(t, balance.Default)
	assert.Equal(t, "0", *balance.Default)

	created := customer.Columns[3]
	assert.Nil(t, created.Width)
	require.NotNil(t, created.Default)
	assert.Equal(t, "current timestamp", *created.Default)

	assert.Equal(t, schema.LongBinary, customer.Columns[4].DataType)

	orders, ok := model.Table("Orders")
	require.True(t, ok)
	assert.Equal(t, []string{"OrderId", "CustomerId"}, []string{orders.Columns[0].Name, orders.Columns[1].Name})
	assert.Equal(t, 1, orders.Columns[1].Index)
}

func TestExtractForeignKeysAndIndexes(t *testing.T) {
	model, err := catalog.NewExtractor(openCatalog(t), logger.Discard(), nil).Extract(context.Background())
	require.NoError(t, err)

	require.Len(t, model.ForeignKeys, 1)
	fk := model.ForeignKeys[0]
	assert.Equal(t, "FK_Orders_Customer", fk.Name)
	assert.Equal(t, "Orders", fk.Table)
	assert.Equal(t, "Customer", fk.RefTable)
	assert.Equal(t, []schema.IndexColumn{{Name: "CustomerId"}}, fk.Columns)
	assert.Equal(t, []string{"Id"}, fk.RefColumns)
	assert.Equal(t, schema.Cascade, fk.OnUpdate)
	assert.Equal(t, schema.SetNull, fk.OnDelete)

	indexes := model.IndexesSorted()
	require.Len(t, indexes, 2)
	assert.Equal(t, "IdxCustomerName", indexes[0].Name)
	assert.True(t, indexes[0].Unique)
	assert.Equal(t, []schema.IndexColumn{{Name: "Name"}, {Name: "Created", Desc: true}}, indexes[0].Columns)
	assert.Equal(t, "IdxOrderCustomer", indexes[1].Name)
	assert.False(t, indexes[1].Unique)

	comment, ok := model.IndexComment("Customer", "IdxCustomerName")
	require.True(t, ok)
	assert.Equal(t, "Lookup by name", comment.Comment)
	_, ok = model.IndexComment("Orders", "IdxOrderCustomer")
	assert.False(t, ok)
}

func TestExtractOwnerFilter(t *testing.T) {
	model, err := catalog.NewExtractor(openCatalog(t), logger.Discard(), []string{"SYS"}).Extract(context.Background())
	require.NoError(t, err)

	require.Len(t, model.Tables, 1)
	_, ok := model.Table("ISYSTHING")
	assert.True(t, ok)
	assert.Empty(t, model.ForeignKeys)
}

func TestExtractUnsupportedDomain(t *testing.T) {
	conn := openCatalog(t,
		"INSERT INTO sysdomain VALUES (9, 'money')",
		"INSERT INTO systabcol VALUES (402, 3, 'Total', 9, 'Y', 8, 4, NULL, NULL, 2012)",
	)

	_, err := catalog.NewExtractor(conn, logger.Discard(), nil).Extract(context.Background())
	require.ErrorIs(t, err, migerr.ErrUnsupportedDatatype)
	assert.Contains(t, err.Error(), "Total")
}

func TestExtractUnsupportedReferentialAction(t *testing.T) {
	conn := openCatalog(t, "UPDATE systrigger SET referential_action = 'D' WHERE event = 'D'")

	_, err := catalog.NewExtractor(conn, logger.Discard(), nil).Extract(context.Background())
	require.ErrorIs(t, err, migerr.ErrUnsupportedAction)
}
