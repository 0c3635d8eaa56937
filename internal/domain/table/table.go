// Package table is the in-memory tabular model shared by the dataset store
// and the filter/aggregation engines.
//
// A Table is immutable once built. Subsets created with Select or Head share
// the parent's row storage, so taking a subset never copies cell values.
package table

import (
	"errors"
	"fmt"
	"slices"
)

// Sentinel errors for table construction.
var (
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrRowWidth        = errors.New("row width does not match columns")
	ErrColumnKind      = errors.New("value kind does not match column")
)

// Column describes one table column.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Table is an ordered, immutable set of rows over named columns.
type Table struct {
	name    string
	columns []Column
	index   map[string]int
	rows    [][]Value
}

// New builds a table after validating row widths and value kinds. The rows
// slice is owned by the table afterwards and must not be modified.
func New(name string, columns []Column, rows [][]Value) (*Table, error) {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := idx[c.Name]; dup {
			return nil, fmt.Errorf("%s: %w: %q", name, ErrDuplicateColumn, c.Name)
		}
		idx[c.Name] = i
	}
	for r, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%s row %d: %w: got %d want %d", name, r, ErrRowWidth, len(row), len(columns))
		}
		for c, v := range row {
			if v.IsNull() {
				continue
			}
			if v.Kind() != columns[c].Kind {
				return nil, fmt.Errorf("%s row %d column %q: %w: %s in %s column", name, r, columns[c].Name, ErrColumnKind, v.Kind(), columns[c].Kind)
			}
		}
	}
	return &Table{
		name:    name,
		columns: slices.Clone(columns),
		index:   idx,
		rows:    rows,
	}, nil
}

// MustNew is New for statically known tables; it panics on error.
func MustNew(name string, columns []Column, rows [][]Value) *Table {
	t, err := New(name, columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Empty returns a table with the given columns and no rows.
func Empty(name string, columns []Column) *Table {
	return MustNew(name, columns, nil)
}

// Name returns the dataset name the table was built for.
func (t *Table) Name() string { return t.name }

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Columns returns a copy of the column list in table order.
func (t *Table) Columns() []Column {
	if t == nil {
		return nil
	}
	return slices.Clone(t.columns)
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	if t == nil {
		return nil
	}
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Lookup returns the position and definition of a column.
func (t *Table) Lookup(name string) (int, Column, bool) {
	if t == nil {
		return 0, Column{}, false
	}
	i, ok := t.index[name]
	if !ok {
		return 0, Column{}, false
	}
	return i, t.columns[i], true
}

// Value returns the cell at (row, col).
func (t *Table) Value(row, col int) Value {
	return t.rows[row][col]
}

// Row returns a copy of a row.
func (t *Table) Row(i int) []Value {
	return slices.Clone(t.rows[i])
}

// Select returns the rows at the given positions, in the given order.
func (t *Table) Select(positions []int) *Table {
	rows := make([][]Value, len(positions))
	for i, p := range positions {
		rows[i] = t.rows[p]
	}
	return t.derive(rows)
}

// Head returns the first n rows (all rows when n >= Len, none when n <= 0).
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n >= len(t.rows) {
		return t
	}
	return t.derive(t.rows[:n:n])
}

// EmptyLike returns a table with this table's columns and no rows.
func (t *Table) EmptyLike() *Table {
	return t.derive(nil)
}

// Distinct returns the distinct non-null values of a column in first-seen order.
func (t *Table) Distinct(col int) []Value {
	seen := make(map[string]struct{})
	var out []Value
	for _, row := range t.rows {
		v := row[col]
		if v.IsNull() {
			continue
		}
		key := v.Text()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Index maps the text form of a column's values to their row positions.
// Positions within each posting list are ascending.
type Index map[string][]int

// BuildIndex indexes a column by value. Null values are not indexed.
func (t *Table) BuildIndex(col int) Index {
	idx := make(Index)
	for i, row := range t.rows {
		v := row[col]
		if v.IsNull() {
			continue
		}
		key := v.Text()
		idx[key] = append(idx[key], i)
	}
	return idx
}

// WithColumn returns a new table where column col has been replaced by the
// values produced by fn. The original table is untouched.
func (t *Table) WithColumn(col int, kind Kind, fn func(Value) (Value, error)) (*Table, error) {
	columns := slices.Clone(t.columns)
	columns[col].Kind = kind
	rows := make([][]Value, len(t.rows))
	for i, row := range t.rows {
		v, err := fn(row[col])
		if err != nil {
			return nil, fmt.Errorf("%s row %d column %q: %w", t.name, i, columns[col].Name, err)
		}
		next := slices.Clone(row)
		next[col] = v
		rows[i] = next
	}
	return New(t.name, columns, rows)
}

func (t *Table) derive(rows [][]Value) *Table {
	return &Table{
		name:    t.name,
		columns: t.columns,
		index:   t.index,
		rows:    rows,
	}
}
