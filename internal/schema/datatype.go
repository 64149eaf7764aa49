package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kadirbelkuyu/sqlanymig/internal/migerr"
)

type DataType int

const (
	Unknown DataType = iota
	BigInt
	Binary
	Bit
	Char
	Date
	DateTime
	DateTimeOffset
	Decimal
	Double
	Float
	Image
	Integer
	LongBinary
	LongVarchar
	Numeric
	SmallInt
	Timestamp
	TinyInt
	UnsignedInt
	UnsignedSmallInt
	Varchar
	XML
)

var dataTypeNames = map[DataType]string{
	BigInt:           "BIGINT",
	Binary:           "BINARY",
	Bit:              "BIT",
	Char:             "CHAR",
	Date:             "DATE",
	DateTime:         "DATETIME",
	DateTimeOffset:   "DATETIME_OFFSET",
	Decimal:          "DECIMAL",
	Double:           "DOUBLE",
	Float:            "FLOAT",
	Image:            "IMAGE",
	Integer:          "INTEGER",
	LongBinary:       "LONG_BINARY",
	LongVarchar:      "LONG_VARCHAR",
	Numeric:          "NUMERIC",
	SmallInt:         "SMALLINT",
	Timestamp:        "TIMESTAMP",
	TinyInt:          "TINYINT",
	UnsignedInt:      "UNSIGNED_INT",
	UnsignedSmallInt: "UNSIGNED_SMALLINT",
	Varchar:          "VARCHAR",
	XML:              "XML",
}

func (d DataType) String() string {
	if name, ok := dataTypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int(d))
}

// IsNumeric reports the types whose values pass through the codec untouched.
func (d DataType) IsNumeric() bool {
	switch d {
	case Integer, Numeric, SmallInt, BigInt, TinyInt:
		return true
	}
	return false
}

func (d DataType) IsBinary() bool {
	return d == Binary || d == LongBinary
}

var sourceTypes = map[string]DataType{
	"bit":                      Bit,
	"integer":                  Integer,
	"char":                     Char,
	"varchar":                  Varchar,
	"binary":                   LongBinary,
	"long binary":              LongBinary,
	"long varchar":             LongVarchar,
	"numeric":                  Numeric,
	"timestamp":                Timestamp,
	"date":                     Date,
	"datetime":                 DateTime,
	`"datetime"`:               DateTime,
	"smallint":                 SmallInt,
	"bigint":                   BigInt,
	"decimal":                  Decimal,
	"tinyint":                  TinyInt,
	"unsigned int":             UnsignedInt,
	"unsigned smallint":        UnsignedSmallInt,
	"xml":                      XML,
	"double":                   Double,
	"float":                    Float,
	"image":                    Image,
	"timestamp with time zone": DateTimeOffset,
}

var sourceTypePrefixes = []struct {
	prefix string
	dt     DataType
}{
	{"char(", Char},
	{"varchar(", Varchar},
	{"numeric(", Numeric},
	{"decimal(", Decimal},
	{"binary(", Binary},
}

// ParseSourceType maps a source type token such as "varchar(20)" to its canonical type.
func ParseSourceType(token string) (DataType, error) {
	t := strings.ToLower(strings.TrimSpace(token))
	if dt, ok := sourceTypes[t]; ok {
		return dt, nil
	}
	for _, p := range sourceTypePrefixes {
		if strings.HasPrefix(t, p.prefix) {
			return p.dt, nil
		}
	}
	return Unknown, migerr.New(migerr.ErrUnsupportedDatatype, "parse datatype").WithSnippet(token)
}

var widthScalePattern = regexp.MustCompile(`\((?P<w>\d*)(?:\sCHAR)?,?(?P<s>\d*)\)$`)

// ParseWidthScale reads the trailing "(w[ CHAR][,s])" group of a type token.
func ParseWidthScale(token string) (width, scale *int) {
	m := widthScalePattern.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return nil, nil
	}
	if w, err := strconv.Atoi(m[1]); err == nil {
		width = &w
	}
	if s, err := strconv.Atoi(m[2]); err == nil {
		scale = &s
	}
	return width, scale
}
