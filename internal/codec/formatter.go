package codec

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/kadirbelkuyu/sqlanymig/internal/schema"
)

type Format string

const (
	// FormatTarget writes COPY TEXT records for the target loader.
	FormatTarget Format = "target"
	// FormatSource writes LOAD TABLE records in the source dialect.
	FormatSource Format = "source"
)

const DefaultNull = `\N`

// Formatter turns a row into one delimited record. It is the only place where
// NULL becomes the sentinel token.
type Formatter struct {
	Format    Format
	Delimiter byte
	Null      string
}

func NewFormatter(format Format, delim byte, null string) *Formatter {
	if format == "" {
		format = FormatTarget
	}
	if delim == 0 {
		delim = DefaultDelimiter
	}
	return &Formatter{Format: format, Delimiter: delim, Null: null}
}

func (f *Formatter) FormatRecord(values []sql.NullString, cols []*schema.Column) (string, error) {
	if len(values) != len(cols) {
		return "", fmt.Errorf("record has %d values but %d columns", len(values), len(cols))
	}

	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(f.Delimiter)
		}

		out, err := f.encode(v, cols[i])
		if err != nil {
			return "", err
		}
		if !out.Valid {
			b.WriteString(f.Null)
			continue
		}
		b.WriteString(out.String)
	}
	return b.String(), nil
}

func (f *Formatter) encode(v sql.NullString, col *schema.Column) (sql.NullString, error) {
	if f.Format == FormatSource {
		return DecodeUnloadValue(v, col, f.Delimiter)
	}
	return EncodeReloadValue(v, col, f.Delimiter), nil
}
