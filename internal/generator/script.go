package generator

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

type SectionName string

const (
	SectionRoles       SectionName = "roles"
	SectionDatabase    SectionName = "database"
	SectionSequences   SectionName = "sequences"
	SectionTables      SectionName = "tables"
	SectionForeignKeys SectionName = "foreign-keys"
	SectionIndexes     SectionName = "indexes"
	SectionData        SectionName = "data"
)

// SchemaSections are the sections executed against the migrated database itself.
var SchemaSections = []SectionName{SectionSequences, SectionTables, SectionForeignKeys, SectionIndexes}

type Section struct {
	Name       SectionName
	Title      string
	Statements []string
}

// Passthrough records a default expression emitted without translation.
type Passthrough struct {
	Table   string
	Column  string
	Default string
}

type Script struct {
	Sections    []Section
	Passthrough []Passthrough
}

// Section returns the named section, if present.
func (s *Script) Section(name SectionName) (Section, bool) {
	for _, sec := range s.Sections {
		if sec.Name == name {
			return sec, true
		}
	}
	return Section{}, false
}

// Statements returns the statements of the named sections in script order.
func (s *Script) Statements(names ...SectionName) []string {
	want := make(map[SectionName]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	var out []string
	for _, sec := range s.Sections {
		if want[sec.Name] {
			out = append(out, sec.Statements...)
		}
	}
	return out
}

var rule = strings.Repeat("-", 60)

// WriteTo writes the script as a psql-compatible SQL file.
func (s *Script) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}

	for i, sec := range s.Sections {
		if i > 0 {
			fmt.Fprintln(cw)
		}
		fmt.Fprintf(cw, "%s\n-- %s\n%s\n\n", rule, sec.Title, rule)
		for _, stmt := range sec.Statements {
			fmt.Fprintf(cw, "%s\n\n", stmt)
		}
	}

	if cw.err != nil {
		return cw.n, fmt.Errorf("failed to write script: %w", cw.err)
	}
	if err := bw.Flush(); err != nil {
		return cw.n, fmt.Errorf("failed to flush script: %w", err)
	}
	return cw.n, nil
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
