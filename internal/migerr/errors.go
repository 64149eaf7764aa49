package migerr

import (
	"errors"
	"fmt"
	"strings"
)

const maxSnippet = 200

var (
	// ErrReferential is returned when a statement references a table, column or index that was not registered before.
	ErrReferential = errors.New("referential violation")

	// ErrUnsupportedDatatype is returned when a source type token has no canonical type.
	ErrUnsupportedDatatype = errors.New("unsupported datatype")

	// ErrUnsupportedAction is returned for foreign key actions other than CASCADE and SET NULL.
	ErrUnsupportedAction = errors.New("unsupported foreign key action")

	// ErrMissingAutoincrement is returned when a reset identity targets a table without autoincrement column.
	ErrMissingAutoincrement = errors.New("missing autoincrement column")

	// ErrDatatypeNotSupportedYet is returned by the unload codec for types it cannot wrap.
	ErrDatatypeNotSupportedYet = errors.New("datatype not supported yet")

	// ErrTableUnload is returned when unloading a single table fails.
	ErrTableUnload = errors.New("table unload failed")

	// ErrMalformed is returned when a section or data record cannot be parsed.
	ErrMalformed = errors.New("malformed input")
)

// Error carries the failure kind plus the identifiers needed to locate the offending input.
type Error struct {
	Kind    error
	Op      string
	Table   string
	Column  string
	Index   string
	Snippet string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString("migration failed")
	}

	var ids []string
	if e.Table != "" {
		ids = append(ids, "table="+e.Table)
	}
	if e.Column != "" {
		ids = append(ids, "column="+e.Column)
	}
	if e.Index != "" {
		ids = append(ids, "index="+e.Index)
	}
	if len(ids) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(ids, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Snippet != "" {
		fmt.Fprintf(&b, "\n%s", truncate(e.Snippet))
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return e.Kind != nil && errors.Is(e.Kind, target)
}

// New creates an Error of the given kind.
func New(kind error, op string) *Error {
	return &Error{Kind: kind, Op: op}
}

func (e *Error) WithTable(name string) *Error {
	e.Table = name
	return e
}

func (e *Error) WithColumn(name string) *Error {
	e.Column = name
	return e
}

func (e *Error) WithIndex(name string) *Error {
	e.Index = name
	return e
}

func (e *Error) WithSnippet(snippet string) *Error {
	e.Snippet = snippet
	return e
}

func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxSnippet {
		return s
	}
	return s[:maxSnippet] + "..."
}
