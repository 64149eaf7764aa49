package schema

type RefAction int

const (
	NoAction RefAction = iota
	Restrict
	Cascade
	SetNull
)

func (a RefAction) String() string {
	switch a {
	case Restrict:
		return "RESTRICT"
	case Cascade:
		return "CASCADE"
	case SetNull:
		return "SET NULL"
	default:
		return "NO ACTION"
	}
}

type Table struct {
	ID          int
	Name        string
	Owner       string
	Comment     string
	Columns     []*Column
	Constraints []*TableConstraint
	Content     *TableContent
}

type Column struct {
	Index         int
	Name          string
	PrimaryKey    bool
	DataType      DataType
	Default       *string
	AutoIncrement bool
	Nullable      bool
	Comment       string
	Width         *int
	Scale         *int
	NextValue     *int64
}

type IndexColumn struct {
	Name string
	Desc bool
}

type ForeignKey struct {
	Owner      string
	Table      string
	Name       string
	Columns    []IndexColumn
	RefOwner   string
	RefTable   string
	RefColumns []string
	OnUpdate   RefAction
	OnDelete   RefAction
}

type Index struct {
	Owner   string
	Table   string
	Name    string
	Unique  bool
	Columns []IndexColumn
}

// IndexKey scopes index names to their table.
type IndexKey struct {
	Table string
	Name  string
}

type IndexComment struct {
	Table   string
	Index   string
	Owner   string
	Comment string
}

type Sequence struct {
	Owner     string
	Name      string
	Min       int64
	Max       int64
	Increment int64
	Start     int64
}

type TableConstraint struct {
	Name    string
	Columns []string
}

type TableContent struct {
	File     string
	Columns  []string
	Encoding string
}
