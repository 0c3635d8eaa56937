package sampledata

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/okian/stampview/internal/domain/table"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(true)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetCenterSeparator("")
	t.SetColumnSeparator("")
	t.SetRowSeparator("")
	t.SetHeaderLine(false)
	t.SetBorder(false)
	t.SetTablePadding("\t")
	t.SetNoWhiteSpace(true)
	return t
}

// WriteDatasetSummary prints one line per table: shape, column kinds and the
// range of its "value" column when it has one.
func WriteDatasetSummary(w io.Writer, ds *Dataset) {
	t := newTable(w, []string{"dataset", "rows", "columns", "value min", "value mean", "value max"})
	for _, tbl := range []*table.Table{ds.Attributes, ds.Measurements, ds.Reference} {
		if tbl == nil {
			continue
		}
		kinds := make([]string, 0, len(tbl.Columns()))
		for _, c := range tbl.Columns() {
			kinds = append(kinds, c.Name+":"+c.Kind.String())
		}
		lo, mean, hi := "-", "-", "-"
		if s, ok := valueStats(tbl); ok {
			lo, mean, hi = FormatFloat(s.min), FormatFloat(s.sum/float64(s.n)), FormatFloat(s.max)
		}
		t.Append([]string{tbl.Name(), strconv.Itoa(tbl.Len()), strings.Join(kinds, " "), lo, mean, hi})
	}
	t.Render()
}

type stats struct {
	min, max, sum float64
	n             int
}

func valueStats(tbl *table.Table) (stats, bool) {
	col, c, ok := tbl.Lookup("value")
	if !ok || !c.Kind.Numeric() {
		return stats{}, false
	}
	s := stats{min: math.Inf(1), max: math.Inf(-1)}
	for i := 0; i < tbl.Len(); i++ {
		f, ok := tbl.Value(i, col).Float()
		if !ok {
			continue
		}
		s.min, s.max = min(s.min, f), max(s.max, f)
		s.sum += f
		s.n++
	}
	return s, s.n > 0
}

// WriteProbeReport prints one line per probe and a caption with totals.
func WriteProbeReport(w io.Writer, r *ProbeReport) {
	t := newTable(w, []string{"selection", "rows", "limit", "points", "latency", "result"})
	t.SetCaption(true, fmt.Sprintf("%d probes, %d failed, elapsed %s", len(r.Results), r.Failed(), r.Duration))
	for _, res := range r.Results {
		result := "ok"
		if res.Err != nil {
			result = res.Err.Error()
		}
		t.Append([]string{
			res.Label(),
			strconv.Itoa(res.Rows),
			strconv.Itoa(res.RowLimit),
			strconv.Itoa(res.Points),
			res.Duration.String(),
			result,
		})
	}
	t.Render()
}
