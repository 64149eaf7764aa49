package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirbelkuyu/sqlanymig/internal/migerr"
	"github.com/kadirbelkuyu/sqlanymig/internal/schema"
)

func intp(v int) *int { return &v }

func TestTypeSyntax(t *testing.T) {
	tests := []struct {
		dt     schema.DataType
		width  *int
		scale  *int
		expect string
	}{
		{schema.BigInt, nil, nil, "BIGINT"},
		{schema.Binary, nil, nil, "BYTEA"},
		{schema.LongBinary, nil, nil, "BYTEA"},
		{schema.Image, nil, nil, "BYTEA"},
		{schema.Bit, nil, nil, "BOOLEAN"},
		{schema.Char, intp(3), nil, "VARCHAR(3)"},
		{schema.Varchar, intp(40), nil, "VARCHAR(40)"},
		{schema.Varchar, nil, nil, "VARCHAR"},
		{schema.Date, nil, nil, "DATE"},
		{schema.DateTime, nil, nil, "TIMESTAMP"},
		{schema.Timestamp, nil, nil, "TIMESTAMP"},
		{schema.DateTimeOffset, nil, nil, "TIMESTAMP WITH TIME ZONE"},
		{schema.Decimal, nil, nil, "DECIMAL"},
		{schema.Decimal, intp(8), intp(3), "DECIMAL(8, 3)"},
		{schema.Double, nil, nil, "DOUBLE PRECISION"},
		{schema.Float, nil, nil, "DOUBLE PRECISION"},
		{schema.Integer, nil, nil, "INTEGER"},
		{schema.LongVarchar, nil, nil, "text"},
		{schema.Numeric, intp(12), intp(2), "NUMERIC(12, 2)"},
		{schema.Numeric, intp(12), nil, "NUMERIC(12)"},
		{schema.Numeric, nil, nil, "NUMERIC"},
		{schema.SmallInt, nil, nil, "SMALLINT"},
		{schema.TinyInt, nil, nil, "SMALLINT"},
		{schema.UnsignedInt, nil, nil, "NUMERIC(10)"},
		{schema.UnsignedSmallInt, nil, nil, "NUMERIC(5)"},
		{schema.XML, nil, nil, "XML"},
	}

	for _, tt := range tests {
		t.Run(tt.expect, func(t *testing.T) {
			got, err := TypeSyntax(tt.dt, tt.width, tt.scale)
			require.NoError(t, err)
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestTypeSyntaxUnknown(t *testing.T) {
	_, err := TypeSyntax(schema.Unknown, nil, nil)
	require.ErrorIs(t, err, migerr.ErrUnsupportedDatatype)
}

func TestTranslateDefault(t *testing.T) {
	integer := &schema.Column{DataType: schema.Integer}
	varchar := &schema.Column{DataType: schema.Varchar}
	bit := &schema.Column{DataType: schema.Bit}

	tests := []struct {
		name   string
		column *schema.Column
		raw    string
		expect string
		known  bool
	}{
		{"current user", varchar, "current user", "current_user", true},
		{"current user on integer", integer, "CURRENT USER", "CAST(current_user as INTEGER)", true},
		{"timestamp", varchar, "timestamp", "current_timestamp", true},
		{"server timestamp", varchar, "current server timestamp", "current_timestamp", true},
		{"date", varchar, "current date", "current_date", true},
		{"now", varchar, `"now"()`, "now()", true},
		{"dateformat", varchar, `"dateformat"("now"(),'yyyy-mm-dd hh:nn:ss')`, "to_char(current_timestamp, 'YYYY-MM-dd HH24:MI:SS')", true},
		{"string literal", varchar, "'n/a'", "'n/a'", true},
		{"number", integer, "0", "0", true},
		{"bit literal", bit, "0", "FALSE", true},
		{"unknown", varchar, "getdate()", "getdate()", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, known := translateDefault(tt.column, tt.raw)
			assert.Equal(t, tt.expect, got)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestIdent(t *testing.T) {
	assert.Equal(t, "Customer", Ident("Customer"))
	assert.Equal(t, `"Limit"`, Ident("Limit"))
	assert.Equal(t, `"user"`, Ident("user"))
	assert.Equal(t, `"Order Lines"`, Ident("Order Lines"))
	assert.Equal(t, `"a""b"`, Ident(`a"b`))
	assert.Equal(t, `'it''s\nfine'`, Literal("it's\nfine"))
}
