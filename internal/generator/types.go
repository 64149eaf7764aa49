package generator

import (
	"fmt"

	"github.com/kadirbelkuyu/sqlanymig/internal/migerr"
	"github.com/kadirbelkuyu/sqlanymig/internal/schema"
)

// TypeSyntax renders the PostgreSQL declaration of a canonical type.
func TypeSyntax(dt schema.DataType, width, scale *int) (string, error) {
	switch dt {
	case schema.BigInt:
		return "BIGINT", nil
	case schema.Bit:
		return "BOOLEAN", nil
	case schema.Binary, schema.Image, schema.LongBinary:
		return "BYTEA", nil
	case schema.Char, schema.Varchar:
		if width == nil {
			return "VARCHAR", nil
		}
		return fmt.Sprintf("VARCHAR(%d)", *width), nil
	case schema.DateTimeOffset:
		return "TIMESTAMP WITH TIME ZONE", nil
	case schema.Decimal:
		return precision("DECIMAL", width, scale), nil
	case schema.Double, schema.Float:
		return "DOUBLE PRECISION", nil
	case schema.Integer:
		return "INTEGER", nil
	case schema.LongVarchar:
		return "text", nil
	case schema.Numeric:
		return precision("NUMERIC", width, scale), nil
	case schema.Date:
		return "DATE", nil
	case schema.SmallInt, schema.TinyInt:
		return "SMALLINT", nil
	case schema.Timestamp, schema.DateTime:
		return "TIMESTAMP", nil
	case schema.UnsignedInt:
		return "NUMERIC(10)", nil
	case schema.UnsignedSmallInt:
		return "NUMERIC(5)", nil
	case schema.XML:
		return "XML", nil
	default:
		return "", migerr.New(migerr.ErrUnsupportedDatatype, "render datatype").WithSnippet(dt.String())
	}
}

func precision(name string, width, scale *int) string {
	switch {
	case width == nil:
		return name
	case scale == nil:
		return fmt.Sprintf("%s(%d)", name, *width)
	default:
		return fmt.Sprintf("%s(%d, %d)", name, *width, *scale)
	}
}
