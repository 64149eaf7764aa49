package interactive_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirbelkuyu/sqlanymig/pkg/interactive"
)

var tables = []interactive.TableInfo{
	{Name: "Customer", Owner: "dba", Columns: 6},
	{Name: "Orders", Owner: "dba", Columns: 3},
	{Name: "Invoice", Columns: 2},
}

func TestSelectTables(t *testing.T) {
	var out bytes.Buffer
	selector := interactive.NewTableSelectorWith(strings.NewReader("9\n3, 1,3\n"), &out)

	names, err := selector.SelectTables(tables)
	require.NoError(t, err)
	assert.Equal(t, []string{"Invoice", "Customer"}, names)
	assert.Contains(t, out.String(), "Please enter numbers between 1 and 3.")
	assert.Contains(t, out.String(), "n/a")
}

func TestSelectTablesDefaultsToAll(t *testing.T) {
	selector := interactive.NewTableSelectorWith(strings.NewReader("\n"), &bytes.Buffer{})

	names, err := selector.SelectTables(tables)
	require.NoError(t, err)
	assert.Equal(t, []string{"Customer", "Orders", "Invoice"}, names)
}

func TestSelectTablesEmpty(t *testing.T) {
	_, err := interactive.NewTableSelectorWith(strings.NewReader(""), &bytes.Buffer{}).SelectTables(nil)
	require.Error(t, err)
}

func TestConfirmAction(t *testing.T) {
	assert.True(t, interactive.NewTableSelectorWith(strings.NewReader("yes\n"), &bytes.Buffer{}).ConfirmAction("apply", "Shop"))
	assert.False(t, interactive.NewTableSelectorWith(strings.NewReader("\n"), &bytes.Buffer{}).ConfirmAction("apply", "Shop"))
	assert.False(t, interactive.NewTableSelectorWith(strings.NewReader(""), &bytes.Buffer{}).ConfirmAction("apply", "Shop"))
}
