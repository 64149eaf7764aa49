package reload_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/kadirbelkuyu/sqlanymig/internal/reload"
)

var columnTypes = []string{"integer", "varchar(20)", "numeric(10,2)", "long varchar", "timestamp", "bit", "char(3 CHAR)"}

func createTable(types []int) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE \"dba\".\"P\" (\n")
	for i, t := range types {
		sep := " "
		if i > 0 {
			sep = ","
		}
		nullable := "NULL"
		if i%2 == 0 {
			nullable = "NOT NULL"
		}
		fmt.Fprintf(&b, "   %s\"C%d\"                     %s %s\n", sep, i, columnTypes[t], nullable)
	}
	b.WriteString(")\ngo\n\n")
	return b.String()
}

func TestProperty_ColumnOrdinalsAreDense(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("ordinals follow textual order without gaps", prop.ForAll(
		func(types []int) bool {
			if len(types) == 0 {
				types = []int{0}
			}
			model, err := newImporter().Import(createTable(types))
			if err != nil {
				return false
			}
			table, ok := model.Table("P")
			if !ok || len(table.Columns) != len(types) {
				return false
			}
			for i, c := range table.Columns {
				if c.Index != i || c.Name != fmt.Sprintf("C%d", i) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(columnTypes)-1)),
	))

	properties.Property("segmenting without terminators yields nothing", prop.ForAll(
		func(text string) bool {
			for range reload.Sections(strings.ReplaceAll(text, "go", "")) {
				return false
			}
			return true
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
