package interactive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// TableInfo is one row of the table selection menu.
type TableInfo struct {
	Name    string
	Owner   string
	Columns int
}

type TableSelector struct {
	reader *bufio.Reader
	out    io.Writer
}

func NewTableSelector() *TableSelector {
	return NewTableSelectorWith(os.Stdin, os.Stderr)
}

func NewTableSelectorWith(in io.Reader, out io.Writer) *TableSelector {
	return &TableSelector{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// SelectTables asks for a comma separated list of table numbers. An empty
// answer selects every table.
func (ts *TableSelector) SelectTables(tables []TableInfo) ([]string, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables found")
	}

	fmt.Fprintln(ts.out)
	fmt.Fprintln(ts.out, "Available tables:")
	fmt.Fprintln(ts.out, strings.Repeat("=", 60))
	fmt.Fprintf(ts.out, "%-4s %-30s %-15s %-8s\n", "No", "Table", "Owner", "Columns")
	fmt.Fprintln(ts.out, strings.Repeat("-", 60))
	for i, t := range tables {
		fmt.Fprintf(ts.out, "%-4d %-30s %-15s %-8d\n", i+1, t.Name, safeValue(t.Owner, "n/a"), t.Columns)
	}
	fmt.Fprintln(ts.out, strings.Repeat("=", 60))

	for {
		fmt.Fprintf(ts.out, "\nSelect tables (e.g. 1,3) or press enter for all: ")

		input, err := ts.reader.ReadString('\n')
		if err != nil && input == "" {
			return nil, fmt.Errorf("unable to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			names := make([]string, len(tables))
			for i, t := range tables {
				names[i] = t.Name
			}
			return names, nil
		}

		names, ok := ts.parseChoice(input, tables)
		if !ok {
			fmt.Fprintf(ts.out, "Please enter numbers between 1 and %d.\n", len(tables))
			continue
		}
		return names, nil
	}
}

func (ts *TableSelector) parseChoice(input string, tables []TableInfo) ([]string, bool) {
	seen := make(map[int]bool)
	var names []string
	for _, part := range strings.Split(input, ",") {
		choice, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || choice < 1 || choice > len(tables) {
			return nil, false
		}
		if seen[choice] {
			continue
		}
		seen[choice] = true
		names = append(names, tables[choice-1].Name)
	}
	return names, true
}

func (ts *TableSelector) ConfirmAction(action, target string) bool {
	fmt.Fprintf(ts.out, "\nConfirm running %s for %s (y/N): ", action, target)

	input, err := ts.reader.ReadString('\n')
	if err != nil && input == "" {
		return false
	}

	input = strings.ToLower(strings.TrimSpace(input))
	return input == "y" || input == "yes"
}

func safeValue(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
