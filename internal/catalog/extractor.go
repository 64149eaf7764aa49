package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kadirbelkuyu/sqlanymig/internal/database"
	"github.com/kadirbelkuyu/sqlanymig/internal/migerr"
	"github.com/kadirbelkuyu/sqlanymig/internal/schema"
	"github.com/kadirbelkuyu/sqlanymig/pkg/logger"
)

// Extractor reads a schema model from the system catalog of a live SQL Anywhere database.
type Extractor struct {
	conn   *database.Connection
	logger *logger.Logger
	owners []string
}

func NewExtractor(conn *database.Connection, logger *logger.Logger, owners []string) *Extractor {
	if len(owners) == 0 {
		owners = []string{"dba"}
	}
	return &Extractor{
		conn:   conn,
		logger: logger,
		owners: owners,
	}
}

func (e *Extractor) Extract(ctx context.Context) (*schema.Model, error) {
	e.logger.Infof("Reading catalog for owners %s", strings.Join(e.owners, ", "))

	model := schema.NewModel()

	steps := []struct {
		name string
		run  func(context.Context, *schema.Model) error
	}{
		{"tables", e.extractTables},
		{"columns", e.extractColumns},
		{"foreign keys", e.extractForeignKeys},
		{"indexes", e.extractIndexes},
	}
	for _, step := range steps {
		if err := step.run(ctx, model); err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", step.name, err)
		}
	}

	e.logger.Infof("%d tables, %d foreign keys and %d indexes extracted", len(model.Tables), len(model.ForeignKeys), len(model.Indexes))
	return model, nil
}

func (e *Extractor) ownerArgs() []any {
	args := make([]any, len(e.owners))
	for i, o := range e.owners {
		args[i] = o
	}
	return args
}

func (e *Extractor) query(ctx context.Context, query string) (*sql.Rows, error) {
	query = strings.ReplaceAll(query, "{owners}", e.conn.InList(1, len(e.owners)))
	return e.conn.DB.QueryContext(ctx, query, e.ownerArgs()...)
}

func (e *Extractor) extractTables(ctx context.Context, model *schema.Model) error {
	rows, err := e.query(ctx, `
		SELECT t.table_id, t.table_name, u.user_name, r.remarks
		FROM systab AS t
		JOIN sysuser AS u ON t.creator = u.user_id
		LEFT OUTER JOIN sysremark AS r ON t.object_id = r.object_id
		WHERE t.table_type = 1 AND u.user_name IN {owners}
		ORDER BY t.table_id`)
	if err != nil {
		return fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var table schema.Table
		var remarks sql.NullString
		if err := rows.Scan(&table.ID, &table.Name, &table.Owner, &remarks); err != nil {
			return fmt.Errorf("failed to read table metadata: %w", err)
		}
		table.Comment = remarks.String
		model.AddTable(&table)
	}
	return rows.Err()
}

func (e *Extractor) extractColumns(ctx context.Context, model *schema.Model) error {
	rows, err := e.query(ctx, `
		SELECT t.table_name, c.column_name, d.domain_name, c.nulls, c.width, c.scale,
			c."default", c.max_identity, r.remarks,
			CASE WHEN pk.column_id IS NULL THEN 'N' ELSE 'Y' END AS pk
		FROM systabcol AS c
		JOIN systab AS t ON c.table_id = t.table_id
		JOIN sysuser AS u ON t.creator = u.user_id
		JOIN sysdomain AS d ON d.domain_id = c.domain_id
		LEFT OUTER JOIN sysremark AS r ON c.object_id = r.object_id
		LEFT OUTER JOIN sysidxcol AS pk ON pk.table_id = c.table_id AND pk.column_id = c.column_id AND pk.index_id = 0
		WHERE t.table_type = 1 AND u.user_name IN {owners}
		ORDER BY t.table_name, c.column_id`)
	if err != nil {
		return fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tableName, name, domain, nulls, pk string
			width, scale, maxIdentity          sql.NullInt64
			def, remarks                       sql.NullString
		)
		if err := rows.Scan(&tableName, &name, &domain, &nulls, &width, &scale, &def, &maxIdentity, &remarks, &pk); err != nil {
			return fmt.Errorf("failed to read column metadata: %w", err)
		}

		table, err := model.LookupTable(tableName, "extract columns", name)
		if err != nil {
			return err
		}

		dt, err := schema.ParseSourceType(domain)
		if err != nil {
			return migerr.New(migerr.ErrUnsupportedDatatype, "extract columns").
				WithTable(tableName).WithColumn(name).WithSnippet(domain)
		}

		column := &schema.Column{
			Name:       name,
			DataType:   dt,
			Nullable:   strings.EqualFold(nulls, "Y"),
			PrimaryKey: pk == "Y",
			Comment:    remarks.String,
		}

		switch dt {
		case schema.Char, schema.Varchar, schema.Binary:
			column.Width = intPtr(width)
		case schema.Numeric, schema.Decimal:
			column.Width = intPtr(width)
			column.Scale = intPtr(scale)
		}

		if def.Valid && strings.EqualFold(strings.TrimSpace(def.String), "autoincrement") {
			column.AutoIncrement = true
			next := maxIdentity.Int64 + 1
			column.NextValue = &next
		} else if def.Valid {
			value := def.String
			column.Default = &value
		}

		table.AddColumn(column)
	}
	return rows.Err()
}

func (e *Extractor) extractForeignKeys(ctx context.Context, model *schema.Model) error {
	rows, err := e.query(ctx, `
		SELECT i.index_name, ft.table_name, fu.user_name, pt.table_name, pu.user_name,
			fc.column_name, pc.column_name, ic."order",
			(SELECT MAX(tr.referential_action) FROM systrigger AS tr
				WHERE tr.foreign_table_id = fk.foreign_table_id AND tr.foreign_key_id = fk.foreign_index_id AND tr.event = 'C') AS on_update,
			(SELECT MAX(tr.referential_action) FROM systrigger AS tr
				WHERE tr.foreign_table_id = fk.foreign_table_id AND tr.foreign_key_id = fk.foreign_index_id AND tr.event = 'D') AS on_delete
		FROM sysfkey AS fk
		JOIN sysidx AS i ON i.table_id = fk.foreign_table_id AND i.index_id = fk.foreign_index_id
		JOIN systab AS ft ON ft.table_id = fk.foreign_table_id
		JOIN sysuser AS fu ON fu.user_id = ft.creator
		JOIN systab AS pt ON pt.table_id = fk.primary_table_id
		JOIN sysuser AS pu ON pu.user_id = pt.creator
		JOIN sysidxcol AS ic ON ic.table_id = fk.foreign_table_id AND ic.index_id = fk.foreign_index_id
		JOIN systabcol AS fc ON fc.table_id = ic.table_id AND fc.column_id = ic.column_id
		JOIN systabcol AS pc ON pc.table_id = fk.primary_table_id AND pc.column_id = ic.primary_column_id
		WHERE fu.user_name IN {owners}
		ORDER BY ft.table_name, i.index_name, ic.sequence`)
	if err != nil {
		return fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer rows.Close()

	var current *schema.ForeignKey
	for rows.Next() {
		var (
			name, table, owner, refTable, refOwner, column, refColumn string
			order, onUpdate, onDelete                                 sql.NullString
		)
		if err := rows.Scan(&name, &table, &owner, &refTable, &refOwner, &column, &refColumn, &order, &onUpdate, &onDelete); err != nil {
			return fmt.Errorf("failed to read foreign key metadata: %w", err)
		}

		if current == nil || current.Table != table || current.Name != name {
			update, err := referentialAction(onUpdate)
			if err != nil {
				return migerr.New(migerr.ErrUnsupportedAction, "extract foreign keys").WithTable(table).WithIndex(name).WithCause(err)
			}
			del, err := referentialAction(onDelete)
			if err != nil {
				return migerr.New(migerr.ErrUnsupportedAction, "extract foreign keys").WithTable(table).WithIndex(name).WithCause(err)
			}

			current = &schema.ForeignKey{
				Owner:    owner,
				Table:    table,
				Name:     name,
				RefOwner: refOwner,
				RefTable: refTable,
				OnUpdate: update,
				OnDelete: del,
			}
			model.AddForeignKey(current)
		}

		current.Columns = append(current.Columns, schema.IndexColumn{Name: column, Desc: order.String == "D"})
		current.RefColumns = append(current.RefColumns, refColumn)
	}
	return rows.Err()
}

// referentialAction maps systrigger.referential_action codes.
func referentialAction(code sql.NullString) (schema.RefAction, error) {
	if !code.Valid {
		return schema.NoAction, nil
	}
	switch strings.ToUpper(code.String) {
	case "C":
		return schema.Cascade, nil
	case "N":
		return schema.SetNull, nil
	case "R":
		return schema.Restrict, nil
	default:
		return schema.NoAction, fmt.Errorf("referential action code '%s'", code.String)
	}
}

func (e *Extractor) extractIndexes(ctx context.Context, model *schema.Model) error {
	rows, err := e.query(ctx, `
		SELECT t.table_name, u.user_name, i.index_name, i."unique", r.remarks, c.column_name, ic."order"
		FROM sysidx AS i
		JOIN systab AS t ON i.table_id = t.table_id
		JOIN sysuser AS u ON t.creator = u.user_id
		JOIN sysidxcol AS ic ON ic.index_id = i.index_id AND ic.table_id = i.table_id
		JOIN systabcol AS c ON c.column_id = ic.column_id AND c.table_id = ic.table_id
		LEFT OUTER JOIN sysremark AS r ON i.object_id = r.object_id
		WHERE i.index_category = 3 AND u.user_name IN {owners}
		ORDER BY t.table_name, i.index_name, ic.sequence`)
	if err != nil {
		return fmt.Errorf("failed to query indexes: %w", err)
	}
	defer rows.Close()

	var current *schema.Index
	for rows.Next() {
		var (
			table, owner, name, column string
			unique                     int
			remarks, order             sql.NullString
		)
		if err := rows.Scan(&table, &owner, &name, &unique, &remarks, &column, &order); err != nil {
			return fmt.Errorf("failed to read index metadata: %w", err)
		}

		if current == nil || current.Table != table || current.Name != name {
			current = &schema.Index{Owner: owner, Table: table, Name: name, Unique: unique == 2}
			model.AddIndex(current)

			if remarks.String != "" {
				model.AddIndexComment(&schema.IndexComment{Table: table, Index: name, Owner: owner, Comment: remarks.String})
			}
		}

		current.Columns = append(current.Columns, schema.IndexColumn{Name: column, Desc: order.String == "D"})
	}
	return rows.Err()
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
