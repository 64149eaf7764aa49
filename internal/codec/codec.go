package codec

import (
	"database/sql"
	"encoding/hex"
	"strings"

	"github.com/kadirbelkuyu/sqlanymig/internal/migerr"
	"github.com/kadirbelkuyu/sqlanymig/internal/schema"
)

const DefaultDelimiter = ','

// Escape applies the text escapes shared by both bulk formats: backslash first,
// NUL dropped, then quote, control characters and the field delimiter.
func Escape(s string, delim byte) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case 0:
		case '"':
			b.WriteString(`\"`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c == delim {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Unescape reverses Escape. Unknown escape sequences yield the escaped character.
func Unescape(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// DecodeUnloadValue renders a raw source value in the source unload format.
// Text types are quoted, binary values become x-prefixed hex.
func DecodeUnloadValue(v sql.NullString, col *schema.Column, delim byte) (sql.NullString, error) {
	if !v.Valid {
		return v, nil
	}

	switch col.DataType {
	case schema.Binary, schema.LongBinary:
		return valid("x" + hex.EncodeToString([]byte(v.String))), nil
	case schema.Char, schema.Varchar, schema.LongVarchar:
		return valid(`"` + Escape(v.String, delim) + `"`), nil
	case schema.Integer, schema.Numeric, schema.SmallInt, schema.BigInt, schema.TinyInt:
		return v, nil
	case schema.Timestamp:
		return valid(Escape(v.String, delim)), nil
	default:
		return sql.NullString{}, migerr.New(migerr.ErrDatatypeNotSupportedYet, "decode unload value").
			WithColumn(col.Name).
			WithSnippet(col.DataType.String())
	}
}

// EncodeReloadValue renders a raw source value in the target COPY TEXT format.
// NULL stays NULL; the sentinel is chosen by the writer.
func EncodeReloadValue(v sql.NullString, col *schema.Column, delim byte) sql.NullString {
	if !v.Valid || v.String == "" {
		return v
	}

	switch {
	case col.DataType.IsBinary():
		// COPY TEXT removes one backslash level, bytea then sees \x.
		return valid(`\\x` + hex.EncodeToString([]byte(v.String)))
	case col.DataType.IsNumeric():
		return v
	default:
		return valid(Escape(v.String, delim))
	}
}

// SplitRecord splits an encoded record on delimiters that are not escaped.
// Fields are returned still escaped.
func SplitRecord(line string, delim byte) []string {
	var fields []string
	start := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case delim:
			fields = append(fields, line[start:i])
			start = i + 1
		}
	}
	return append(fields, line[start:])
}

func valid(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}
