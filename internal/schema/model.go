package schema

import (
	"slices"
	"sort"
	"strings"

	"github.com/kadirbelkuyu/sqlanymig/internal/migerr"
)

// Model is the canonical description of a source schema. It is built by a single
// importer and treated as read-only once acquisition has finished.
type Model struct {
	Tables        map[string]*Table
	Sequences     map[string]*Sequence
	ForeignKeys   []*ForeignKey
	Indexes       map[IndexKey]*Index
	IndexComments map[IndexKey]*IndexComment

	nextID int
}

func NewModel() *Model {
	return &Model{
		Tables:        make(map[string]*Table),
		Sequences:     make(map[string]*Sequence),
		Indexes:       make(map[IndexKey]*Index),
		IndexComments: make(map[IndexKey]*IndexComment),
	}
}

// AddTable registers a table. Tables without a source id get the next id in
// registration order.
func (m *Model) AddTable(t *Table) {
	if t.ID == 0 {
		m.nextID++
		t.ID = m.nextID
	} else if t.ID > m.nextID {
		m.nextID = t.ID
	}
	m.Tables[t.Name] = t
}

func (m *Model) Table(name string) (*Table, bool) {
	t, ok := m.Tables[name]
	return t, ok
}

// LookupTable returns the named table or a referential error carrying the snippet.
func (m *Model) LookupTable(name, op, snippet string) (*Table, error) {
	t, ok := m.Tables[name]
	if !ok {
		return nil, migerr.New(migerr.ErrReferential, op).WithTable(name).WithSnippet(snippet)
	}
	return t, nil
}

func (m *Model) AddSequence(s *Sequence) {
	m.Sequences[s.Name] = s
}

func (m *Model) AddForeignKey(fk *ForeignKey) {
	m.ForeignKeys = append(m.ForeignKeys, fk)
}

func (m *Model) AddIndex(idx *Index) {
	m.Indexes[IndexKey{Table: idx.Table, Name: idx.Name}] = idx
}

func (m *Model) AddIndexComment(c *IndexComment) {
	m.IndexComments[IndexKey{Table: c.Table, Name: c.Index}] = c
}

func (m *Model) IndexComment(table, index string) (*IndexComment, bool) {
	c, ok := m.IndexComments[IndexKey{Table: table, Name: index}]
	return c, ok
}

// TablesByID orders tables by id with the name as tie breaker.
func (m *Model) TablesByID() []*Table {
	tables := make([]*Table, 0, len(m.Tables))
	for _, t := range m.Tables {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool {
		if tables[i].ID != tables[j].ID {
			return tables[i].ID < tables[j].ID
		}
		return tables[i].Name < tables[j].Name
	})
	return tables
}

func (m *Model) SequencesByName() []*Sequence {
	seqs := make([]*Sequence, 0, len(m.Sequences))
	for _, s := range m.Sequences {
		seqs = append(seqs, s)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i].Name < seqs[j].Name })
	return seqs
}

func (m *Model) IndexesSorted() []*Index {
	indexes := make([]*Index, 0, len(m.Indexes))
	for _, idx := range m.Indexes {
		indexes = append(indexes, idx)
	}
	sort.Slice(indexes, func(i, j int) bool {
		if indexes[i].Table != indexes[j].Table {
			return indexes[i].Table < indexes[j].Table
		}
		return indexes[i].Name < indexes[j].Name
	})
	return indexes
}

// AddColumn appends the column and assigns its ordinal.
func (t *Table) AddColumn(c *Column) {
	c.Index = len(t.Columns)
	t.Columns = append(t.Columns, c)
}

func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// AutoIncrementColumn returns the first column flagged as autoincrement.
func (t *Table) AutoIncrementColumn() (*Column, bool) {
	for _, c := range t.OrderedColumns() {
		if c.AutoIncrement {
			return c, true
		}
	}
	return nil, false
}

func (t *Table) OrderedColumns() []*Column {
	cols := slices.Clone(t.Columns)
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Index < cols[j].Index })
	return cols
}

// ContentColumns returns the columns in load order: the declared content order
// when the table has content, the ordinal order otherwise.
func (t *Table) ContentColumns() ([]*Column, error) {
	if t.Content == nil || len(t.Content.Columns) == 0 {
		return t.OrderedColumns(), nil
	}

	cols := make([]*Column, 0, len(t.Content.Columns))
	for _, name := range t.Content.Columns {
		c, ok := t.Column(name)
		if !ok {
			return nil, migerr.New(migerr.ErrReferential, "content columns").WithTable(t.Name).WithColumn(name)
		}
		cols = append(cols, c)
	}
	return cols, nil
}

func (t *Table) AddConstraint(name string, columns []string) *TableConstraint {
	c := &TableConstraint{Name: name, Columns: uniqueSorted(columns)}
	t.Constraints = append(t.Constraints, c)
	return c
}

func uniqueSorted(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
