package filter

import (
	"slices"

	"github.com/okian/stampview/internal/domain/table"
)

// JoinColumn links Attributes rows to Measurements rows.
const JoinColumn = ColumnMachineID

// Datasets is the read-only view of the dataset store the engine needs.
type Datasets interface {
	Attributes() *table.Table
	Measurements() *table.Table
}

// MachineIndex is implemented by stores that precompute, for each machine id,
// the ascending Measurements row positions carrying it.
type MachineIndex interface {
	MachineRows(id string) []int
}

// Attributes returns the Attributes rows that satisfy every active
// constraint of sel, in source order. Constraints on columns the table does
// not have match no row.
func Attributes(store Datasets, sel Selection) *table.Table {
	attrs := store.Attributes()
	if sel.IsEmpty() {
		return attrs
	}

	type check struct {
		col int
		c   Constraint
	}
	checks := make([]check, 0, len(sel.constraints))
	for _, name := range sel.Active() {
		col, _, ok := attrs.Lookup(name)
		if !ok {
			return attrs.EmptyLike()
		}
		checks = append(checks, check{col: col, c: sel.constraints[name]})
	}

	positions := make([]int, 0, attrs.Len())
	for i := 0; i < attrs.Len(); i++ {
		pass := true
		for _, ch := range checks {
			v := attrs.Value(i, ch.col)
			if v.IsNull() || !ch.c.Allows(v.Text()) {
				pass = false
				break
			}
		}
		if pass {
			positions = append(positions, i)
		}
	}
	return attrs.Select(positions)
}

// Measurements returns every Measurements row whose machine id appears in
// subset, in source order. Only membership is used; no Attributes columns
// are carried over. An empty subset yields an empty table with the
// Measurements columns.
func Measurements(store Datasets, subset *table.Table) *table.Table {
	meas := store.Measurements()
	if subset.Len() == 0 {
		return meas.EmptyLike()
	}
	attrCol, _, ok := subset.Lookup(JoinColumn)
	if !ok {
		return meas.EmptyLike()
	}
	measCol, _, ok := meas.Lookup(JoinColumn)
	if !ok {
		return meas.EmptyLike()
	}

	ids := make(map[string]struct{})
	for _, v := range subset.Distinct(attrCol) {
		ids[v.Text()] = struct{}{}
	}

	if idx, ok := store.(MachineIndex); ok {
		var positions []int
		for id := range ids {
			positions = append(positions, idx.MachineRows(id)...)
		}
		slices.Sort(positions)
		return meas.Select(positions)
	}

	positions := make([]int, 0)
	for i := 0; i < meas.Len(); i++ {
		v := meas.Value(i, measCol)
		if v.IsNull() {
			continue
		}
		if _, ok := ids[v.Text()]; ok {
			positions = append(positions, i)
		}
	}
	return meas.Select(positions)
}
