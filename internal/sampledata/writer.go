package sampledata

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"

	"github.com/okian/stampview/internal/domain/table"
)

// Output formats understood by WriteFile.
const (
	FormatParquet = "parquet"
	FormatCSV     = "csv"
	FormatCSVZstd = "csv.zst"
)

const csvTimeLayout = "2006-01-02 15:04:05.999999999"

// Extension returns the file extension for an output format.
func Extension(format string) (string, error) {
	switch format {
	case FormatParquet, FormatCSV, FormatCSVZstd:
		return "." + format, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteFile writes t to path, choosing the encoding from the extension.
func WriteFile(path string, t *table.Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	p := strings.ToLower(path)
	switch {
	case strings.HasSuffix(p, ".parquet"):
		return WriteParquet(f, t)
	case strings.HasSuffix(p, ".csv.zst"), strings.HasSuffix(p, ".csv.zstd"):
		return WriteCSVZstd(f, t)
	case strings.HasSuffix(p, ".csv"):
		return WriteCSV(f, t)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// WriteParquet encodes t as a flat parquet file with optional columns.
// Parquet groups order columns by name, so the written column order is
// alphabetical.
func WriteParquet(w io.Writer, t *table.Table) error {
	cols := t.Columns()
	group := make(parquet.Group, len(cols))
	for _, c := range cols {
		group[c.Name] = parquet.Optional(parquetNode(c.Kind))
	}
	schema := parquet.NewSchema(t.Name(), group)

	leaf := make(map[string]int, len(cols))
	for i, path := range schema.Columns() {
		leaf[path[0]] = i
	}

	pw := parquet.NewWriter(w, schema)
	rows := make([]parquet.Row, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		row := make(parquet.Row, len(cols))
		for c, col := range cols {
			idx := leaf[col.Name]
			row[idx] = parquetValue(t.Value(i, c), idx)
		}
		rows = append(rows, row)
	}
	if _, err := pw.WriteRows(rows); err != nil {
		return err
	}
	return pw.Close()
}

func parquetNode(k table.Kind) parquet.Node {
	switch k {
	case table.KindInt:
		return parquet.Int(64)
	case table.KindFloat:
		return parquet.Leaf(parquet.DoubleType)
	case table.KindBool:
		return parquet.Leaf(parquet.BooleanType)
	case table.KindTime:
		return parquet.Timestamp(parquet.Microsecond)
	default:
		return parquet.String()
	}
}

func parquetValue(v table.Value, column int) parquet.Value {
	if v.IsNull() {
		return parquet.NullValue().Level(0, 0, column)
	}
	var pv parquet.Value
	switch v.Kind() {
	case table.KindInt:
		pv = parquet.Int64Value(v.Int64())
	case table.KindFloat:
		f, _ := v.Float()
		pv = parquet.DoubleValue(f)
	case table.KindBool:
		pv = parquet.BooleanValue(v.Bool())
	case table.KindTime:
		pv = parquet.Int64Value(v.Time().UnixMicro())
	default:
		pv = parquet.ByteArrayValue([]byte(v.Str()))
	}
	return pv.Level(0, 1, column)
}

// WriteCSV encodes t as CSV with a header row. Nulls are empty cells, times
// use "2006-01-02 15:04:05" with an optional fraction, and floats always
// carry a decimal point so they read back as floats.
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.ColumnNames()); err != nil {
		return err
	}
	record := make([]string, len(t.Columns()))
	for i := 0; i < t.Len(); i++ {
		for c := range record {
			record[c] = csvCell(t.Value(i, c))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvCell(v table.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case table.KindTime:
		return v.Time().UTC().Format(csvTimeLayout)
	case table.KindFloat:
		s := v.Text()
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	default:
		return v.Text()
	}
}

// WriteCSVZstd writes t as zstd-compressed CSV.
func WriteCSVZstd(w io.Writer, t *table.Table) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return err
	}
	if err := WriteCSV(zw, t); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

// Manifest is the data-source document read by the service.
type Manifest struct {
	Attributes   string `json:"d1"`
	Measurements string `json:"d2"`
	Reference    string `json:"d3"`
}

// ManifestName is the default manifest file name.
const ManifestName = "latest_data.json"

// WriteDataset writes the three tables into dir using format and a manifest
// next to them. It returns the manifest path.
func WriteDataset(dir, format string, ds *Dataset) (string, error) {
	ext, err := Extension(format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	m := Manifest{
		Attributes:   "attributes" + ext,
		Measurements: "measurements" + ext,
		Reference:    "reference" + ext,
	}
	for _, f := range []struct {
		name string
		t    *table.Table
	}{
		{m.Attributes, ds.Attributes},
		{m.Measurements, ds.Measurements},
		{m.Reference, ds.Reference},
	} {
		if err := WriteFile(filepath.Join(dir, f.name), f.t); err != nil {
			return "", fmt.Errorf("write %s: %w", f.name, err)
		}
	}

	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// FormatFloat renders f the way summaries print values.
func FormatFloat(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }
