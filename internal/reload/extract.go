package reload

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/kadirbelkuyu/sqlanymig/internal/migerr"
	"github.com/kadirbelkuyu/sqlanymig/internal/schema"
)

var (
	tableNamePattern  = regexp.MustCompile(`^CREATE TABLE\s+"(?P<o>[^"]*)"\."(?P<tn>[^"]*)"`)
	columnPattern     = regexp.MustCompile(`(?m)^[ \t]*,?[ \t]*"(?P<cn>[^"]+)"[ \t]+(?P<datatype>.*?)[ \t]+(?P<nullable>NOT NULL|NULL)(?P<def>[ \t]+DEFAULT[ \t]+)?(?P<dv>.*?)[ \t]*$`)
	primaryKeyPattern = regexp.MustCompile(`(?m)^[ \t]*,?[ \t]*PRIMARY KEY\s*\(\s*"(?P<column>[^"]+)"`)

	columnCommentPattern = regexp.MustCompile(`(?s)^COMMENT ON COLUMN\s+"(?P<o>[^"]*)"\."(?P<tn>[^"]*)"\."(?P<cn>[^"]*)"\s+IS\s+'(?P<comment>.*)'[ \t]*\ngo\n`)
	tableCommentPattern  = regexp.MustCompile(`(?s)^COMMENT ON TABLE\s+"(?P<o>[^"]*)"\."(?P<tn>[^"]*)"\s+IS\s+'(?P<comment>.*)'[ \t]*\ngo\n`)
	indexCommentPattern  = regexp.MustCompile(`(?s)^COMMENT ON INDEX\s+"(?P<o>[^"]*)"\."(?P<tn>[^"]*)"\."(?P<n>[^"]*)"\s+IS\s+'(?P<comment>.*)'[ \t]*\ngo\n`)

	uniquePattern = regexp.MustCompile(`(?s)^ALTER TABLE\s+"(?P<o>[^"]*)"\."(?P<tn>[^"]*)"\s+ADD\s+(?:CONSTRAINT\s+"(?P<name>[^"]*)"\s+)?UNIQUE\s*\((?P<cols>[^)]*)\)`)

	sequenceNamePattern  = regexp.MustCompile(`^CREATE SEQUENCE\s+"(?P<o>[^"]*)"\."(?P<n>[^"]*)"`)
	sequenceMinPattern   = regexp.MustCompile(`\bMINVALUE\s+(-?\d+)`)
	sequenceMaxPattern   = regexp.MustCompile(`\bMAXVALUE\s+(-?\d+)`)
	sequenceStepPattern  = regexp.MustCompile(`\bINCREMENT BY\s+(-?\d+)`)
	sequenceStartPattern = regexp.MustCompile(`\bSTART WITH\s+(-?\d+)`)

	indexPattern       = regexp.MustCompile(`(?s)^CREATE\s+(?P<u>UNIQUE\s+)?(?:CLUSTERED\s+)?INDEX\s+"(?P<n>[^"]*)"\s+ON\s+"(?P<o>[^"]*)"\."(?P<tn>[^"]*)"\s*\((?P<cols>[^)]*)\)`)
	indexColumnPattern = regexp.MustCompile(`"(?P<c>[^"]*)"\s*(?P<order>ASC|DESC)?`)

	foreignKeyPattern = regexp.MustCompile(`(?s)^ALTER TABLE\s+"(?P<o>[^"]*)"\."(?P<tn>[^"]*)"\s+ADD\s+(?:NOT NULL\s+)?(?:CONSTRAINT\s+"(?P<cname>[^"]*)"\s+)?FOREIGN KEY\s*(?:"(?P<name>[^"]*)"\s*)?\((?P<cns>[^)]*)\)\s*REFERENCES\s+"(?P<ro>[^"]*)"\."(?P<rtn>[^"]*)"\s*\((?P<rcns>[^)]*)\)(?P<rest>.*)`)
	onUpdatePattern   = regexp.MustCompile(`\bON UPDATE\s+(SET NULL|SET DEFAULT|NO ACTION|\w+)`)
	onDeletePattern   = regexp.MustCompile(`\bON DELETE\s+(SET NULL|SET DEFAULT|NO ACTION|\w+)`)

	loadTablePattern = regexp.MustCompile(`(?s)^LOAD TABLE\s+"(?P<o>[^"]*)"\."(?P<tn>[^"]*)"\s*\((?P<cols>[^)]*)\)\s*FROM\s+'(?P<file>[^']*)'(?P<rest>.*)`)
	encodingPattern  = regexp.MustCompile(`\bENCODING\s+'(?P<enc>[^']*)'`)

	resetIdentityPattern = regexp.MustCompile(`(?i)^call\s+(?:\w+\.)?sa_reset_identity\s*\(\s*'(?P<tn>[^']*)'\s*,\s*'(?P<o>[^']*)'\s*,\s*(?P<nv>-?\d+)\s*\)`)
)

func extractCreateTable(m *schema.Model, section string) error {
	const op = "create table"

	name := tableNamePattern.FindStringSubmatch(section)
	if name == nil {
		return malformed(op, section)
	}
	table := &schema.Table{Owner: name[1], Name: name[2]}

	for _, col := range columnPattern.FindAllStringSubmatch(section, -1) {
		columnName, datatype, nullable := col[1], col[2], col[3]
		hasDefault, value := col[4] != "", col[5]

		dt, err := schema.ParseSourceType(datatype)
		if err != nil {
			return migerr.New(migerr.ErrUnsupportedDatatype, op).
				WithTable(table.Name).
				WithColumn(columnName).
				WithSnippet(datatype).
				WithCause(err)
		}

		column := &schema.Column{
			Name:     columnName,
			DataType: dt,
			Nullable: nullable != "NOT NULL",
		}
		column.Width, column.Scale = schema.ParseWidthScale(datatype)

		if hasDefault {
			if strings.EqualFold(value, "autoincrement") {
				column.AutoIncrement = true
			} else {
				v := value
				column.Default = &v
			}
		}

		table.AddColumn(column)
	}

	// Only the first column of a primary key clause is kept.
	if pk := primaryKeyPattern.FindStringSubmatch(section); pk != nil {
		column, ok := table.Column(pk[1])
		if !ok {
			return migerr.New(migerr.ErrReferential, op).
				WithTable(table.Name).
				WithColumn(pk[1]).
				WithSnippet(section)
		}
		column.PrimaryKey = true
	}

	m.AddTable(table)
	return nil
}

func extractColumnComment(m *schema.Model, section string) error {
	const op = "column comment"

	match := columnCommentPattern.FindStringSubmatch(section)
	if match == nil {
		return malformed(op, section)
	}

	table, err := m.LookupTable(match[2], op, section)
	if err != nil {
		return err
	}
	column, ok := table.Column(match[3])
	if !ok {
		return migerr.New(migerr.ErrReferential, op).
			WithTable(table.Name).
			WithColumn(match[3]).
			WithSnippet(section)
	}
	column.Comment = unquote(match[4])
	return nil
}

func extractTableComment(m *schema.Model, section string) error {
	const op = "table comment"

	match := tableCommentPattern.FindStringSubmatch(section)
	if match == nil {
		return malformed(op, section)
	}

	table, err := m.LookupTable(match[2], op, section)
	if err != nil {
		return err
	}
	table.Comment = unquote(match[3])
	return nil
}

func extractUnique(m *schema.Model, section string) error {
	const op = "unique constraint"

	match := uniquePattern.FindStringSubmatch(section)
	if match == nil {
		return malformed(op, section)
	}

	table, err := m.LookupTable(match[2], op, section)
	if err != nil {
		return err
	}

	columns := splitNames(match[4])
	for _, name := range columns {
		if _, ok := table.Column(name); !ok {
			return migerr.New(migerr.ErrReferential, op).
				WithTable(table.Name).
				WithColumn(name).
				WithSnippet(section)
		}
	}
	table.AddConstraint(match[3], columns)
	return nil
}

func extractSequence(m *schema.Model, section string) error {
	const op = "create sequence"

	match := sequenceNamePattern.FindStringSubmatch(section)
	if match == nil {
		return malformed(op, section)
	}

	seq := &schema.Sequence{Owner: match[1], Name: match[2], Min: 1, Max: math.MaxInt64, Increment: 1}
	fields := []struct {
		pattern *regexp.Regexp
		target  *int64
	}{
		{sequenceMinPattern, &seq.Min},
		{sequenceMaxPattern, &seq.Max},
		{sequenceStepPattern, &seq.Increment},
		{sequenceStartPattern, &seq.Start},
	}

	startSet := false
	for i, f := range fields {
		v := f.pattern.FindStringSubmatch(section)
		if v == nil {
			continue
		}
		n, err := strconv.ParseInt(v[1], 10, 64)
		if err != nil {
			return migerr.New(migerr.ErrMalformed, op).WithSnippet(section).WithCause(err)
		}
		*f.target = n
		startSet = startSet || i == 3
	}
	if !startSet {
		seq.Start = seq.Min
	}

	m.AddSequence(seq)
	return nil
}

func extractIndex(m *schema.Model, section string) error {
	const op = "create index"

	match := indexPattern.FindStringSubmatch(section)
	if match == nil {
		return malformed(op, section)
	}

	m.AddIndex(&schema.Index{
		Unique:  match[1] != "",
		Name:    match[2],
		Owner:   match[3],
		Table:   match[4],
		Columns: parseIndexColumns(match[5]),
	})
	return nil
}

func extractForeignKey(m *schema.Model, section string) error {
	const op = "create foreign key"

	match := foreignKeyPattern.FindStringSubmatch(section)
	if match == nil {
		return malformed(op, section)
	}

	name := match[foreignKeyPattern.SubexpIndex("name")]
	if name == "" {
		name = match[foreignKeyPattern.SubexpIndex("cname")]
	}

	fk := &schema.ForeignKey{
		Owner:      match[foreignKeyPattern.SubexpIndex("o")],
		Table:      match[foreignKeyPattern.SubexpIndex("tn")],
		Name:       name,
		Columns:    parseIndexColumns(match[foreignKeyPattern.SubexpIndex("cns")]),
		RefOwner:   match[foreignKeyPattern.SubexpIndex("ro")],
		RefTable:   match[foreignKeyPattern.SubexpIndex("rtn")],
		RefColumns: splitNames(match[foreignKeyPattern.SubexpIndex("rcns")]),
	}

	if len(fk.Columns) != len(fk.RefColumns) {
		return migerr.New(migerr.ErrMalformed, op).WithTable(fk.Table).WithIndex(fk.Name).WithSnippet(section)
	}

	rest := match[foreignKeyPattern.SubexpIndex("rest")]
	var err error
	if fk.OnUpdate, err = mapAction(onUpdatePattern, rest); err != nil {
		return unsupportedAction(fk, section, err)
	}
	if fk.OnDelete, err = mapAction(onDeletePattern, rest); err != nil {
		return unsupportedAction(fk, section, err)
	}

	m.AddForeignKey(fk)
	return nil
}

// mapAction accepts CASCADE and SET NULL; a missing clause means no action.
func mapAction(pattern *regexp.Regexp, text string) (schema.RefAction, error) {
	match := pattern.FindStringSubmatch(text)
	if match == nil || strings.TrimSpace(match[1]) == "" {
		return schema.NoAction, nil
	}

	switch match[1] {
	case "CASCADE":
		return schema.Cascade, nil
	case "SET NULL":
		return schema.SetNull, nil
	default:
		return schema.NoAction, fmt.Errorf("action '%s'", match[1])
	}
}

func unsupportedAction(fk *schema.ForeignKey, section string, err error) error {
	return migerr.New(migerr.ErrUnsupportedAction, "create foreign key").
		WithTable(fk.Table).
		WithIndex(fk.Name).
		WithSnippet(section).
		WithCause(err)
}

func extractIndexComment(m *schema.Model, section string) error {
	const op = "index comment"

	match := indexCommentPattern.FindStringSubmatch(section)
	if match == nil {
		return malformed(op, section)
	}

	m.AddIndexComment(&schema.IndexComment{
		Owner:   match[1],
		Table:   match[2],
		Index:   match[3],
		Comment: unquote(match[4]),
	})
	return nil
}

func extractLoadTable(m *schema.Model, section string) error {
	const op = "load table"

	match := loadTablePattern.FindStringSubmatch(section)
	if match == nil {
		return malformed(op, section)
	}

	table, err := m.LookupTable(match[2], op, section)
	if err != nil {
		return err
	}

	columns := splitNames(match[3])
	for _, name := range columns {
		if _, ok := table.Column(name); !ok {
			return migerr.New(migerr.ErrReferential, op).
				WithTable(table.Name).
				WithColumn(name).
				WithSnippet(section)
		}
	}

	content := &schema.TableContent{File: match[4], Columns: columns}
	if enc := encodingPattern.FindStringSubmatch(match[5]); enc != nil {
		content.Encoding = enc[1]
	}
	table.Content = content
	return nil
}

func extractResetIdentity(m *schema.Model, section string) error {
	const op = "reset identity"

	match := resetIdentityPattern.FindStringSubmatch(section)
	if match == nil {
		return malformed(op, section)
	}

	table, err := m.LookupTable(match[1], op, section)
	if err != nil {
		return err
	}

	column, ok := table.AutoIncrementColumn()
	if !ok {
		return migerr.New(migerr.ErrMissingAutoincrement, op).WithTable(table.Name).WithSnippet(section)
	}

	next, err := strconv.ParseInt(match[3], 10, 64)
	if err != nil {
		return migerr.New(migerr.ErrMalformed, op).WithTable(table.Name).WithSnippet(section).WithCause(err)
	}
	column.NextValue = &next
	return nil
}

func parseIndexColumns(list string) []schema.IndexColumn {
	var cols []schema.IndexColumn
	for _, c := range indexColumnPattern.FindAllStringSubmatch(list, -1) {
		cols = append(cols, schema.IndexColumn{Name: c[1], Desc: c[2] == "DESC"})
	}
	return cols
}

func splitNames(list string) []string {
	var names []string
	for _, part := range strings.Split(list, ",") {
		name := strings.TrimSpace(strings.ReplaceAll(part, `"`, ""))
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// unquote collapses doubled single quotes of a SQL string literal.
func unquote(s string) string {
	return strings.ReplaceAll(s, "''", "'")
}

func malformed(op, section string) error {
	return migerr.New(migerr.ErrMalformed, op).WithSnippet(section)
}
