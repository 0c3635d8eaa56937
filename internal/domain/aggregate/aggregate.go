// Package aggregate turns a Measurements subset into a chart-ready series of
// per-timestamp means.
package aggregate

import (
	"math"
	"slices"
	"time"

	"github.com/okian/stampview/internal/domain/table"
)

// Column names the aggregation relies on.
const (
	TimestampColumn = "timestamp"
	ValueColumn     = "value"
)

// Point is the mean of the target column at one timestamp.
type Point struct {
	Timestamp string  `json:"timestamp"`
	Avg       float64 `json:"avg"`
}

// TargetColumn picks the column to average: a numeric column named "value"
// when present, otherwise the first numeric column in column order.
func TargetColumn(t *table.Table) (string, bool) {
	if _, col, ok := t.Lookup(ValueColumn); ok && col.Kind.Numeric() {
		return col.Name, true
	}
	for _, col := range t.Columns() {
		if col.Kind.Numeric() {
			return col.Name, true
		}
	}
	return "", false
}

type bucket struct {
	at    time.Time
	sum   float64
	count int
}

// AverageOverTime groups rows by exact timestamp and averages the target
// column within each group. The result is sorted by timestamp with one point
// per timestamp.
//
// Rows whose target is null, NaN or infinite are left out of their group's
// mean. Rows without a timestamp are dropped, and a group with no usable
// target emits no point. A table that is empty, lacks a time-typed timestamp
// column or has no numeric column yields an empty, non-nil slice.
func AverageOverTime(t *table.Table) []Point {
	points := []Point{}
	if t.Len() == 0 {
		return points
	}
	tsCol, ts, ok := t.Lookup(TimestampColumn)
	if !ok || ts.Kind != table.KindTime {
		return points
	}
	name, ok := TargetColumn(t)
	if !ok {
		return points
	}
	valCol, _, _ := t.Lookup(name)

	// time.Time carries a location pointer, so buckets are keyed by instant.
	type key struct {
		sec  int64
		nsec int
	}
	buckets := make(map[key]*bucket)
	for i := 0; i < t.Len(); i++ {
		tv := t.Value(i, tsCol)
		if tv.IsNull() {
			continue
		}
		f, ok := t.Value(i, valCol).Float()
		if !ok || math.IsInf(f, 0) {
			continue
		}
		at := tv.Time()
		k := key{sec: at.Unix(), nsec: at.Nanosecond()}
		b, found := buckets[k]
		if !found {
			b = &bucket{at: at}
			buckets[k] = b
		}
		b.sum += f
		b.count++
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	slices.SortFunc(ordered, func(a, b *bucket) int { return a.at.Compare(b.at) })

	points = slices.Grow(points, len(ordered))
	for _, b := range ordered {
		points = append(points, Point{
			Timestamp: b.at.Format(time.RFC3339Nano),
			Avg:       b.sum / float64(b.count),
		})
	}
	return points
}
