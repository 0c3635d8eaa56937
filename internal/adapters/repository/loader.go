package repository

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"github.com/okian/stampview/internal/config"
	"github.com/okian/stampview/internal/domain/aggregate"
	"github.com/okian/stampview/internal/domain/table"
	"github.com/okian/stampview/pkg/logger"
	"github.com/okian/stampview/pkg/metrics"
)

const defaultParquetBatch = 1024

// Format is a dataset file encoding, derived from the file extension.
type Format int

const (
	FormatUnknown Format = iota
	FormatParquet
	FormatCSV
	FormatCSVZstd
)

// DetectFormat maps a path to its Format.
func DetectFormat(path string) Format {
	p := strings.ToLower(path)
	switch {
	case strings.HasSuffix(p, ".parquet"), strings.HasSuffix(p, ".pq"):
		return FormatParquet
	case strings.HasSuffix(p, ".csv.zst"), strings.HasSuffix(p, ".csv.zstd"):
		return FormatCSVZstd
	case strings.HasSuffix(p, ".csv"):
		return FormatCSV
	default:
		return FormatUnknown
	}
}

// Load reads the three datasets named by sources concurrently and returns an
// immutable store. The Measurements timestamp column is normalized to time
// values. Any failure is returned as a *DataLoadError and nothing is kept.
func Load(ctx context.Context, sources config.DataSources, opts ...LoadOption) (*MemoryStore, error) {
	o := loadOptions{
		log:         logger.Named("repository"),
		parquetRows: defaultParquetBatch,
	}
	for _, opt := range opts {
		opt(&o)
	}

	paths := sources.Paths()
	tables := make([]*table.Table, len(paths))
	digests := make([]uint64, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		name, path := p[0], p[1]
		g.Go(func() error {
			start := time.Now()
			t, digest, err := readDataset(gctx, name, path, o)
			if err == nil && name == config.DatasetMeasurements {
				t, err = normalizeTimestamps(t)
			}
			if err != nil {
				metrics.RecordDatasetLoadError(name)
				return &DataLoadError{Dataset: name, Path: path, Err: err}
			}
			elapsed := time.Since(start)
			metrics.RecordDatasetLoaded(name, t.Len(), len(t.Columns()), float64(elapsed.Microseconds())/1000)
			o.log.Info(gctx, "dataset loaded",
				logger.String("dataset", name),
				logger.String("path", path),
				logger.String("shape", fmt.Sprintf("%d x %d", t.Len(), len(t.Columns()))),
				logger.Any("duration", elapsed),
			)
			tables[i] = t
			digests[i] = digest
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	h := xxhash.New()
	var buf [8]byte
	for _, d := range digests {
		binary.LittleEndian.PutUint64(buf[:], d)
		_, _ = h.Write(buf[:])
	}

	now := time.Now()
	metrics.UpdateDatasetLoadedAt(now)
	return NewMemoryStore(tables[0], tables[1], tables[2],
		WithFingerprint(h.Sum64()),
		WithLoadedAt(now),
	), nil
}

// readDataset decodes one file and returns it with the xxhash of its bytes.
func readDataset(ctx context.Context, name, path string, o loadOptions) (*table.Table, uint64, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = f.Close() }()

	h := xxhash.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return nil, 0, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, 0, err
	}

	var t *table.Table
	switch format {
	case FormatParquet:
		t, err = readParquet(ctx, name, f, size, o.parquetRows)
	case FormatCSV:
		t, err = readCSV(ctx, name, f)
	case FormatCSVZstd:
		var zr *zstd.Decoder
		zr, err = zstd.NewReader(f)
		if err != nil {
			return nil, 0, err
		}
		defer zr.Close()
		t, err = readCSV(ctx, name, zr)
	}
	if err != nil {
		return nil, 0, err
	}
	return t, h.Sum64(), nil
}

// Layouts accepted for textual timestamps. Layouts without a zone parse as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// normalizeTimestamps converts the timestamp column, if any, to time values.
// Strings are parsed with timestampLayouts and integers are Unix nanoseconds.
func normalizeTimestamps(t *table.Table) (*table.Table, error) {
	col, c, ok := t.Lookup(aggregate.TimestampColumn)
	if !ok || c.Kind == table.KindTime {
		return t, nil
	}
	return t.WithColumn(col, table.KindTime, toTime)
}

func toTime(v table.Value) (table.Value, error) {
	if v.IsNull() {
		return table.Null(table.KindTime), nil
	}
	switch v.Kind() {
	case table.KindTime:
		return v, nil
	case table.KindInt:
		return table.Time(time.Unix(0, v.Int64()).UTC()), nil
	case table.KindString:
		ts, err := ParseTimestamp(v.Str())
		if err != nil {
			return table.Value{}, err
		}
		return table.Time(ts), nil
	default:
		return table.Value{}, fmt.Errorf("%w: %s value %q", ErrTimestamp, v.Kind(), v.Text())
	}
}

// ParseTimestamp parses s with the accepted timestamp layouts.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrTimestamp, s)
}
