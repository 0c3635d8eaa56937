// Package response packages a filtered Measurements subset and its time
// series for transport.
package response

import (
	"bytes"
	"encoding/json"

	"github.com/okian/stampview/internal/domain/aggregate"
	"github.com/okian/stampview/internal/domain/table"
)

// RowTimeLayout is the display format for time columns in returned rows.
const RowTimeLayout = "2006-01-02 15:04:05"

// Field is one named cell of a Record.
type Field struct {
	Name  string
	Value any
}

// Record is one output row. It marshals as a JSON object whose keys keep
// the source column order.
type Record []Field

// Get returns the value of the named field.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Payload is the combined result of a query.
type Payload struct {
	Rows    []Record          `json:"rows"`
	Average []aggregate.Point `json:"average"`
}

// Empty returns the payload for a query that matched nothing.
func Empty() Payload {
	return Payload{Rows: []Record{}, Average: []aggregate.Point{}}
}

// Assemble caps subset at rowLimit rows in source order and pairs them with
// the full series. Time columns are rendered with RowTimeLayout; other values
// are passed through, with nulls as JSON null. A negative limit is treated
// as zero.
func Assemble(subset *table.Table, series []aggregate.Point, rowLimit int) Payload {
	out := Empty()
	if series != nil {
		out.Average = series
	}
	if rowLimit <= 0 || subset.Len() == 0 {
		return out
	}

	head := subset.Head(rowLimit)
	cols := head.Columns()
	out.Rows = make([]Record, head.Len())
	for i := range out.Rows {
		rec := make(Record, len(cols))
		for c, col := range cols {
			rec[c] = Field{Name: col.Name, Value: render(head.Value(i, c))}
		}
		out.Rows[i] = rec
	}
	return out
}

func render(v table.Value) any {
	if v.Kind() == table.KindTime && !v.IsNull() {
		return v.Time().Format(RowTimeLayout)
	}
	return v.Interface()
}
