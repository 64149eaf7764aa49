package generator

import (
	"fmt"
	"path"
	"strings"

	"github.com/kadirbelkuyu/sqlanymig/internal/config"
	"github.com/kadirbelkuyu/sqlanymig/internal/schema"
	"github.com/kadirbelkuyu/sqlanymig/internal/textenc"
	"github.com/kadirbelkuyu/sqlanymig/pkg/logger"
)

type Options struct {
	Database       string
	Encoding       string
	CType          string
	Collate        string
	AdminRole      string
	UserRole       string
	BackupRole     string
	RolePassword   string
	LoadPath       string
	SourceEncoding string
	Delimiter      byte
	// Null is the NULL sentinel of the data files; nil or \N emits no NULL option.
	Null *string
}

// OptionsFromConfig copies the generator settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	t := cfg.Target
	return Options{
		Database:       t.Database,
		Encoding:       t.Encoding,
		CType:          t.CType,
		Collate:        t.Collate,
		AdminRole:      t.AdminRole,
		UserRole:       t.UserRole,
		BackupRole:     t.BackupRole,
		RolePassword:   t.RolePassword,
		LoadPath:       t.LoadPath,
		SourceEncoding: cfg.Source.Encoding,
		Delimiter:      cfg.DelimiterByte(),
		Null:           t.NullValue,
	}
}

type Postgres struct {
	opts   Options
	logger *logger.Logger
}

func NewPostgres(opts Options, log *logger.Logger) *Postgres {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.LoadPath == "" {
		opts.LoadPath = "/db_unloaded"
	}
	return &Postgres{opts: opts, logger: log}
}

// Build renders model into an ordered PostgreSQL script.
func (p *Postgres) Build(model *schema.Model) (*Script, error) {
	script := &Script{}

	tables, err := p.tables(model, script)
	if err != nil {
		return nil, err
	}

	script.Sections = []Section{
		{Name: SectionRoles, Title: "Roles", Statements: p.roles()},
		{Name: SectionDatabase, Title: "Database " + p.opts.Database, Statements: p.database()},
		{Name: SectionSequences, Title: "Sequences", Statements: p.sequences(model)},
		{Name: SectionTables, Title: "Tables", Statements: tables},
		{Name: SectionForeignKeys, Title: "Foreign keys", Statements: p.foreignKeys(model)},
		{Name: SectionIndexes, Title: "Indexes", Statements: p.indexes(model)},
	}

	data, err := p.data(model)
	if err != nil {
		return nil, err
	}
	script.Sections = append(script.Sections, Section{Name: SectionData, Title: "Reload data", Statements: data})

	return script, nil
}

func (p *Postgres) roles() []string {
	password := ""
	if p.opts.RolePassword != "" {
		password = " ENCRYPTED PASSWORD " + Literal(p.opts.RolePassword)
	}

	role := func(name, attrs string) string {
		return fmt.Sprintf(
			"DO $$\nBEGIN\n    IF NOT EXISTS (SELECT FROM pg_catalog.pg_roles WHERE rolname = %s) THEN\n        CREATE ROLE %s WITH %s%s;\n    END IF;\nEND\n$$;",
			Literal(name), Quoted(name), attrs, password,
		)
	}

	return []string{
		role(p.opts.AdminRole, "LOGIN NOSUPERUSER INHERIT CREATEDB CREATEROLE NOREPLICATION"),
		role(p.opts.UserRole, "LOGIN NOSUPERUSER INHERIT NOCREATEDB NOCREATEROLE NOREPLICATION"),
		role(p.opts.BackupRole, "LOGIN NOSUPERUSER INHERIT NOCREATEDB NOCREATEROLE REPLICATION"),
	}
}

func (p *Postgres) database() []string {
	db := Quoted(p.opts.Database)
	create := fmt.Sprintf(
		"CREATE DATABASE %s\n    WITH OWNER = %s\n    TEMPLATE = template0\n    ENCODING = %s\n    LC_COLLATE = %s\n    LC_CTYPE = %s\n    CONNECTION LIMIT = -1;",
		db, Quoted(p.opts.UserRole), Literal(p.opts.Encoding), Literal(p.opts.Collate), Literal(p.opts.CType),
	)
	return []string{
		fmt.Sprintf("DROP DATABASE IF EXISTS %s;", db),
		create,
		fmt.Sprintf(`\connect %s`, db),
	}
}

func (p *Postgres) sequences(model *schema.Model) []string {
	var out []string
	for _, seq := range model.SequencesByName() {
		out = append(out, fmt.Sprintf(
			"CREATE SEQUENCE %s AS bigint INCREMENT BY %d MINVALUE %d MAXVALUE %d START WITH %d;",
			Ident(seq.Name), seq.Increment, seq.Min, seq.Max, seq.Start,
		))
	}
	return out
}

// SequenceName is the sequence backing an autoincrement column.
func SequenceName(table, column string) string {
	return Ident(fmt.Sprintf("SEQ_%s__%s", table, column))
}

func (p *Postgres) tables(model *schema.Model, script *Script) ([]string, error) {
	var out []string

	for _, table := range model.TablesByID() {
		name := Ident(table.Name)
		columns := table.OrderedColumns()

		for _, col := range columns {
			if !col.AutoIncrement {
				continue
			}
			start := int64(1)
			if col.NextValue != nil {
				start = *col.NextValue
			}
			out = append(out, fmt.Sprintf("CREATE SEQUENCE %s AS bigint START %d;", SequenceName(table.Name, col.Name), start))
		}

		lines := make([]string, 0, len(columns))
		for _, col := range columns {
			line, err := p.columnLine(table, col, script)
			if err != nil {
				return nil, err
			}
			lines = append(lines, line)
		}
		out = append(out, fmt.Sprintf("CREATE TABLE %s (\n%s\n);", name, strings.Join(lines, ",\n")))

		if table.Comment != "" {
			out = append(out, fmt.Sprintf("COMMENT ON TABLE %s IS %s;", name, Literal(table.Comment)))
		}
		for _, col := range columns {
			if col.Comment != "" {
				out = append(out, fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s;", name, Ident(col.Name), Literal(col.Comment)))
			}
		}

		for _, c := range table.Constraints {
			constraint := ""
			if c.Name != "" {
				constraint = "CONSTRAINT " + Quoted(c.Name) + " "
			}
			out = append(out, fmt.Sprintf("ALTER TABLE %s ADD %sUNIQUE ( %s );", name, constraint, identList(c.Columns)))
		}
	}

	return out, nil
}

func (p *Postgres) columnLine(table *schema.Table, col *schema.Column, script *Script) (string, error) {
	typ, err := TypeSyntax(col.DataType, col.Width, col.Scale)
	if err != nil {
		return "", fmt.Errorf("failed to render %s.%s: %w", table.Name, col.Name, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\t%-24s\t%s", Ident(col.Name), typ)
	if col.Nullable {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	if col.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}

	switch {
	case col.AutoIncrement:
		seq := SequenceName(table.Name, col.Name)
		fmt.Fprintf(&b, " DEFAULT nextval(%s)", Literal(seq))
	case col.Default != nil:
		value, known := translateDefault(col, *col.Default)
		if !known {
			script.Passthrough = append(script.Passthrough, Passthrough{Table: table.Name, Column: col.Name, Default: value})
			p.logger.ForTable(table.Name).Warnf("default %q of column %s has no known translation", value, col.Name)
		}
		b.WriteString(" DEFAULT " + value)
	}

	return b.String(), nil
}

func (p *Postgres) foreignKeys(model *schema.Model) []string {
	var out []string
	for _, fk := range model.ForeignKeys {
		cols := make([]string, len(fk.Columns))
		for i, c := range fk.Columns {
			cols[i] = c.Name
		}

		var b strings.Builder
		fmt.Fprintf(&b, "ALTER TABLE %s\n    ADD CONSTRAINT %s\n    FOREIGN KEY ( %s )\n    REFERENCES %s ( %s )",
			Ident(fk.Table), Quoted(fk.Name), identList(cols), Ident(fk.RefTable), identList(fk.RefColumns))
		if fk.OnDelete != schema.NoAction {
			b.WriteString("\n    ON DELETE " + fk.OnDelete.String())
		}
		if fk.OnUpdate != schema.NoAction {
			b.WriteString("\n    ON UPDATE " + fk.OnUpdate.String())
		}
		b.WriteString(";")
		out = append(out, b.String())
	}
	return out
}

func (p *Postgres) indexes(model *schema.Model) []string {
	sorted := model.IndexesSorted()

	// index names are unique per schema in PostgreSQL, not per table
	owners := make(map[string]int)
	for _, idx := range sorted {
		owners[idx.Name]++
	}

	var out []string
	for _, idx := range sorted {
		name := idx.Name
		if owners[idx.Name] > 1 {
			name = idx.Table + "_" + idx.Name
			p.logger.ForTable(idx.Table).Warnf("index %s renamed to %s to keep it unique", idx.Name, name)
		}

		cols := make([]string, len(idx.Columns))
		for i, c := range idx.Columns {
			order := "ASC"
			if c.Desc {
				order = "DESC"
			}
			cols[i] = Ident(c.Name) + " " + order
		}

		unique := ""
		if idx.Unique {
			unique = "UNIQUE "
		}
		out = append(out, fmt.Sprintf("CREATE %sINDEX %s ON %s ( %s );", unique, Quoted(name), Ident(idx.Table), strings.Join(cols, ", ")))

		if c, ok := model.IndexComment(idx.Table, idx.Name); ok && c.Comment != "" {
			out = append(out, fmt.Sprintf("COMMENT ON INDEX %s IS %s;", Quoted(name), Literal(c.Comment)))
		}
	}
	return out
}

func (p *Postgres) data(model *schema.Model) ([]string, error) {
	var out []string
	for _, table := range model.TablesByID() {
		if table.Content == nil {
			continue
		}

		columns, err := table.ContentColumns()
		if err != nil {
			return nil, err
		}
		names := make([]string, len(columns))
		for i, c := range columns {
			names[i] = c.Name
		}

		encoding := table.Content.Encoding
		if encoding == "" {
			encoding = p.opts.SourceEncoding
		}

		options := []string{
			"FORMAT TEXT",
			"DELIMITER " + Literal(string(p.opts.Delimiter)),
			"ENCODING " + Literal(textenc.PostgresName(encoding)),
		}
		if p.opts.Null != nil && *p.opts.Null != `\N` {
			options = append(options, "NULL "+Literal(*p.opts.Null))
		}

		out = append(out, fmt.Sprintf("COPY %s ( %s )\n    FROM %s\n    ( %s );",
			Ident(table.Name), identList(names), Literal(p.LoadFile(table.Content.File)), strings.Join(options, ", ")))
	}
	return out, nil
}

// LoadFile maps a data file path onto the server-side load directory, keeping
// the file name and its parent directory.
func (p *Postgres) LoadFile(file string) string {
	file = strings.ReplaceAll(file, `\`, "/")
	return path.Join(p.opts.LoadPath, path.Base(path.Dir(file)), path.Base(file))
}
