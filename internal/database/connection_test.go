package database_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/kadirbelkuyu/sqlanymig/internal/database"
)

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		driver string
		expect string
	}{
		{"sqlserver", "(@p2, @p3)"},
		{"postgres", "($2, $3)"},
		{"sqlite", "(?, ?)"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			conn := database.Wrap(nil, tt.driver)
			assert.Equal(t, tt.expect, conn.InList(2, 2))
		})
	}
}

func TestInListQueriesSQLite(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	conn := database.Wrap(db, "sqlite")
	defer conn.Close()

	var n int
	err = conn.DB.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM (SELECT 'dba' AS u UNION ALL SELECT 'sys') WHERE u IN "+conn.InList(1, 2),
		"dba", "other").Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
