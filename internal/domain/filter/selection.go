// Package filter narrows the Attributes dataset by categorical selections and
// propagates the match into Measurements through the shared machine id.
package filter

import (
	"maps"
	"slices"
)

// Categorical columns offered for selection, in display order.
const (
	ColumnMachineID  = "machine_id"
	ColumnPartNumber = "part_number"
	ColumnToolNumber = "tool_number"
)

// Columns lists the categorical columns a Selection may constrain.
var Columns = []string{ColumnMachineID, ColumnPartNumber, ColumnToolNumber}

// Constraint is the selection state of one column: either no constraint or
// a set of accepted values.
type Constraint struct {
	values map[string]struct{}
}

// Any imposes no constraint on a column.
func Any() Constraint { return Constraint{} }

// OneOf accepts rows whose column value is one of values. With no values it
// is the same as Any: an empty selection never means "match nothing".
func OneOf(values ...string) Constraint {
	if len(values) == 0 {
		return Any()
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return Constraint{values: set}
}

// Active reports whether the constraint restricts anything.
func (c Constraint) Active() bool { return len(c.values) > 0 }

// Allows reports whether value passes the constraint.
func (c Constraint) Allows(value string) bool {
	if !c.Active() {
		return true
	}
	_, ok := c.values[value]
	return ok
}

// Values returns the accepted values in sorted order.
func (c Constraint) Values() []string {
	return slices.Sorted(maps.Keys(c.values))
}

// Selection holds one Constraint per column. The zero value selects nothing
// in particular (every column unconstrained).
type Selection struct {
	constraints map[string]Constraint
}

// NewSelection builds a selection from per-column values, e.g. parsed query
// parameters. Columns mapped to no values stay unconstrained.
func NewSelection(values map[string][]string) Selection {
	var s Selection
	for col, vals := range values {
		s = s.With(col, OneOf(vals...))
	}
	return s
}

// With returns a copy of s with column constrained by c.
func (s Selection) With(column string, c Constraint) Selection {
	next := make(map[string]Constraint, len(s.constraints)+1)
	maps.Copy(next, s.constraints)
	if c.Active() {
		next[column] = c
	} else {
		delete(next, column)
	}
	return Selection{constraints: next}
}

// Constraint returns the constraint for column (Any when none was set).
func (s Selection) Constraint(column string) Constraint {
	return s.constraints[column]
}

// Active returns the constrained column names in sorted order.
func (s Selection) Active() []string {
	return slices.Sorted(maps.Keys(s.constraints))
}

// IsEmpty reports whether no column is constrained.
func (s Selection) IsEmpty() bool {
	return len(s.constraints) == 0
}

// Values returns every column's accepted values; unconstrained columns from
// Columns map to an empty slice. Used for logging and echoing the request.
func (s Selection) Values() map[string][]string {
	out := make(map[string][]string, len(Columns))
	for _, col := range Columns {
		out[col] = []string{}
	}
	for col, c := range s.constraints {
		out[col] = c.Values()
	}
	return out
}
