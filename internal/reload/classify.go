package reload

import (
	"regexp"

	"github.com/kadirbelkuyu/sqlanymig/internal/schema"
)

type Kind string

const (
	KindCreateTable   Kind = "create table"
	KindColumnComment Kind = "column comment"
	KindTableComment  Kind = "table comment"
	KindUnique        Kind = "unique constraint"
	KindSequence      Kind = "create sequence"
	KindIndex         Kind = "create index"
	KindForeignKey    Kind = "create foreign key"
	KindIndexComment  Kind = "index comment"
	KindLoadTable     Kind = "load table"
	KindResetIdentity Kind = "reset identity"
)

const qualified = `"[^"]*"\."[^"]*"`

type statement struct {
	kind    Kind
	shape   *regexp.Regexp
	extract func(*schema.Model, string) error
}

// statements is evaluated top to bottom and the first matching shape wins.
// Several shapes start with the same keywords, so the order is significant.
var statements = []statement{
	{KindCreateTable, regexp.MustCompile(`^CREATE TABLE\s+` + qualified), extractCreateTable},
	{KindColumnComment, regexp.MustCompile(`^COMMENT ON COLUMN\s+` + qualified + `\."`), extractColumnComment},
	{KindTableComment, regexp.MustCompile(`^COMMENT ON TABLE\s+` + qualified), extractTableComment},
	{KindUnique, regexp.MustCompile(`^ALTER TABLE\s+` + qualified + `\s+ADD\s+(?:CONSTRAINT\s+"[^"]*"\s+)?UNIQUE\b`), extractUnique},
	{KindSequence, regexp.MustCompile(`^CREATE SEQUENCE\s+` + qualified), extractSequence},
	{KindIndex, regexp.MustCompile(`^CREATE\s+(?:UNIQUE\s+)?(?:CLUSTERED\s+)?INDEX\s+"`), extractIndex},
	{KindForeignKey, regexp.MustCompile(`^ALTER TABLE\s+` + qualified + `\s+ADD\s+(?:NOT NULL\s+)?(?:CONSTRAINT\s+"[^"]*"\s+)?FOREIGN KEY\b`), extractForeignKey},
	{KindIndexComment, regexp.MustCompile(`^COMMENT ON INDEX\s+` + qualified + `\."`), extractIndexComment},
	{KindLoadTable, regexp.MustCompile(`^LOAD TABLE\s+` + qualified), extractLoadTable},
	{KindResetIdentity, regexp.MustCompile(`(?i)^call\s+(?:\w+\.)?sa_reset_identity\s*\(`), extractResetIdentity},
}

// Classify returns the kind of the first statement shape matching the section.
func Classify(section string) (Kind, bool) {
	if st, ok := classify(section); ok {
		return st.kind, true
	}
	return "", false
}

func classify(section string) (statement, bool) {
	for _, st := range statements {
		if st.shape.MatchString(section) {
			return st, true
		}
	}
	return statement{}, false
}
