package repository_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/stampview/internal/adapters/repository"
	"github.com/okian/stampview/internal/config"
	"github.com/okian/stampview/internal/domain/table"
	"github.com/okian/stampview/internal/sampledata"
	"github.com/okian/stampview/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	attributesCSV = `machine_id,part_number,tool_number,line
M1,P-1,10,A
M2,P-1,20,
M3,P-2,10,B
`
	measurementsCSV = `machine_id,timestamp,value,pressure
M1,2024-01-01 10:00:00,10.5,90
M1,2024-01-01 10:00:00,NaN,91
M2,2024-01-01T10:01:00Z,12,
M3,,13.25,93
`
	referenceCSV = `tool_number,tool_name
10,Die A
20,Die B
`
)

func init() {
	// Initialize logging for tests
	if err := logger.InitWithOptions(logger.Options{Writer: io.Discard}); err != nil {
		panic(err)
	}
}

func writeCSVSources(dir string) config.DataSources {
	ds := config.DataSources{
		Attributes:   filepath.Join(dir, "attributes.csv"),
		Measurements: filepath.Join(dir, "measurements.csv"),
		Reference:    filepath.Join(dir, "reference.csv"),
	}
	mustWrite(ds.Attributes, attributesCSV)
	mustWrite(ds.Measurements, measurementsCSV)
	mustWrite(ds.Reference, referenceCSV)
	return ds
}

func mustWrite(path, content string) {
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		panic(err)
	}
}

func kindOf(t *table.Table, name string) table.Kind {
	_, col, ok := t.Lookup(name)
	if !ok {
		panic("missing column " + name)
	}
	return col.Kind
}

func TestLoad_CSV(t *testing.T) {
	Convey("Given CSV datasets", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		sources := writeCSVSources(dir)

		Convey("When loading them", func() {
			store, err := repository.Load(ctx, sources)
			So(err, ShouldBeNil)

			Convey("Then row counts match the files", func() {
				So(store.Count(ctx), ShouldResemble, map[string]int{
					config.DatasetAttributes:   3,
					config.DatasetMeasurements: 4,
					config.DatasetReference:    2,
				})
			})

			Convey("Then column kinds are inferred", func() {
				attrs := store.Attributes()
				So(kindOf(attrs, "tool_number"), ShouldEqual, table.KindInt)
				So(kindOf(attrs, "part_number"), ShouldEqual, table.KindString)
				meas := store.Measurements()
				So(kindOf(meas, "value"), ShouldEqual, table.KindFloat)
				So(kindOf(meas, "pressure"), ShouldEqual, table.KindInt)
			})

			Convey("Then timestamps are normalized to time values", func() {
				meas := store.Measurements()
				So(kindOf(meas, "timestamp"), ShouldEqual, table.KindTime)
				col, _, _ := meas.Lookup("timestamp")
				So(meas.Value(0, col).Time().Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)), ShouldBeTrue)
				So(meas.Value(2, col).Time().Equal(time.Date(2024, 1, 1, 10, 1, 0, 0, time.UTC)), ShouldBeTrue)
				So(meas.Value(3, col).IsNull(), ShouldBeTrue)
			})

			Convey("Then missing cells are null", func() {
				attrs := store.Attributes()
				col, _, _ := attrs.Lookup("line")
				So(attrs.Value(1, col).IsNull(), ShouldBeTrue)
				meas := store.Measurements()
				vcol, _, _ := meas.Lookup("value")
				So(meas.Value(1, vcol).IsNull(), ShouldBeTrue)
			})

			Convey("Then the machine index covers measurements", func() {
				So(store.MachineRows("M1"), ShouldResemble, []int{0, 1})
			})

			Convey("Then the fingerprint is stable and tracks content", func() {
				again, err := repository.Load(ctx, sources)
				So(err, ShouldBeNil)
				So(again.Fingerprint(), ShouldEqual, store.Fingerprint())

				mustWrite(sources.Reference, referenceCSV+"30,Die C\n")
				changed, err := repository.Load(ctx, sources)
				So(err, ShouldBeNil)
				So(changed.Fingerprint(), ShouldNotEqual, store.Fingerprint())
			})
		})
	})
}

func TestLoad_GeneratedFormats(t *testing.T) {
	Convey("Given a generated dataset", t, func() {
		ctx := context.Background()
		cfg := sampledata.DefaultConfig()
		cfg.Machines = 3
		cfg.PointsPerMachine = 5
		ds, err := sampledata.Generate(ctx, cfg)
		So(err, ShouldBeNil)

		for _, format := range []string{sampledata.FormatParquet, sampledata.FormatCSV, sampledata.FormatCSVZstd} {
			Convey("When written as "+format+" and loaded", func() {
				dir := t.TempDir()
				manifest, err := sampledata.WriteDataset(dir, format, ds)
				So(err, ShouldBeNil)
				sources, err := config.LoadDataSources(ctx, manifest)
				So(err, ShouldBeNil)

				store, err := repository.Load(ctx, sources)
				So(err, ShouldBeNil)

				Convey("Then every row is read back", func() {
					So(store.Attributes().Len(), ShouldEqual, ds.Attributes.Len())
					So(store.Measurements().Len(), ShouldEqual, ds.Measurements.Len())
					So(store.Reference().Len(), ShouldEqual, ds.Reference.Len())
				})

				Convey("Then values survive the round trip", func() {
					meas := store.Measurements()
					So(kindOf(meas, "timestamp"), ShouldEqual, table.KindTime)
					So(kindOf(meas, "value"), ShouldEqual, table.KindFloat)
					So(kindOf(meas, "stroke"), ShouldEqual, table.KindInt)

					gotTS, _, _ := meas.Lookup("timestamp")
					wantTS, _, _ := ds.Measurements.Lookup("timestamp")
					gotV, _, _ := meas.Lookup("value")
					wantV, _, _ := ds.Measurements.Lookup("value")
					for i := 0; i < meas.Len(); i++ {
						So(meas.Value(i, gotTS).Time().Equal(ds.Measurements.Value(i, wantTS).Time()), ShouldBeTrue)
						So(table.Compare(meas.Value(i, gotV), ds.Measurements.Value(i, wantV)), ShouldEqual, 0)
					}
				})
			})
		}
	})
}

func TestLoad_Errors(t *testing.T) {
	Convey("Given broken data sources", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		sources := writeCSVSources(dir)

		Convey("When a file is missing", func() {
			sources.Reference = filepath.Join(dir, "missing.csv")
			store, err := repository.Load(ctx, sources)

			Convey("Then a data load error names the dataset", func() {
				So(store, ShouldBeNil)
				So(errors.Is(err, repository.ErrDataLoad), ShouldBeTrue)
				So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
				var lerr *repository.DataLoadError
				So(errors.As(err, &lerr), ShouldBeTrue)
				So(lerr.Dataset, ShouldEqual, config.DatasetReference)
				So(lerr.Path, ShouldEqual, sources.Reference)
			})
		})

		Convey("When a file has an unsupported extension", func() {
			sources.Attributes = filepath.Join(dir, "attributes.xlsx")
			mustWrite(sources.Attributes, "x")
			_, err := repository.Load(ctx, sources)

			Convey("Then the format is rejected", func() {
				So(errors.Is(err, repository.ErrDataLoad), ShouldBeTrue)
				So(errors.Is(err, repository.ErrUnsupportedFormat), ShouldBeTrue)
			})
		})

		Convey("When a timestamp cannot be parsed", func() {
			mustWrite(sources.Measurements, "machine_id,timestamp,value\nM1,yesterday,1.5\n")
			_, err := repository.Load(ctx, sources)

			Convey("Then loading fails", func() {
				So(errors.Is(err, repository.ErrDataLoad), ShouldBeTrue)
				So(errors.Is(err, repository.ErrTimestamp), ShouldBeTrue)
			})
		})

		Convey("When a CSV row is ragged", func() {
			mustWrite(sources.Attributes, "machine_id,part_number\nM1\n")
			_, err := repository.Load(ctx, sources)

			Convey("Then loading fails", func() {
				So(errors.Is(err, repository.ErrDataLoad), ShouldBeTrue)
			})
		})

		Convey("When a CSV file is empty", func() {
			mustWrite(sources.Attributes, "")
			_, err := repository.Load(ctx, sources)

			Convey("Then loading fails", func() {
				So(errors.Is(err, repository.ErrDataLoad), ShouldBeTrue)
			})
		})

		Convey("When a parquet file is corrupt", func() {
			sources.Measurements = filepath.Join(dir, "measurements.parquet")
			mustWrite(sources.Measurements, "not parquet at all")
			_, err := repository.Load(ctx, sources)

			Convey("Then loading fails", func() {
				So(errors.Is(err, repository.ErrDataLoad), ShouldBeTrue)
			})
		})
	})
}

func TestParseTimestamp(t *testing.T) {
	Convey("Given textual timestamps", t, func() {
		want := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)

		Convey("Accepted layouts parse to the same instant", func() {
			for _, s := range []string{
				"2024-02-03 04:05:06",
				"2024-02-03T04:05:06",
				"2024-02-03T04:05:06Z",
				"2024-02-03T05:05:06+01:00",
				" 2024-02-03 04:05:06 ",
			} {
				ts, err := repository.ParseTimestamp(s)
				So(err, ShouldBeNil)
				So(ts.Equal(want), ShouldBeTrue)
			}
		})

		Convey("Fractional seconds are kept", func() {
			ts, err := repository.ParseTimestamp("2024-02-03 04:05:06.250")
			So(err, ShouldBeNil)
			So(ts.Nanosecond(), ShouldEqual, 250_000_000)
		})

		Convey("Dates parse to midnight", func() {
			ts, err := repository.ParseTimestamp("2024-02-03")
			So(err, ShouldBeNil)
			So(ts.Hour(), ShouldEqual, 0)
		})

		Convey("Garbage is rejected", func() {
			_, err := repository.ParseTimestamp("03/02/2024")
			So(err, ShouldWrap, repository.ErrTimestamp)
		})
	})
}

func TestDetectFormat(t *testing.T) {
	Convey("Given file names", t, func() {
		So(repository.DetectFormat("a.parquet"), ShouldEqual, repository.FormatParquet)
		So(repository.DetectFormat("A.CSV"), ShouldEqual, repository.FormatCSV)
		So(repository.DetectFormat("a.csv.zst"), ShouldEqual, repository.FormatCSVZstd)
		So(repository.DetectFormat("a.csv.zstd"), ShouldEqual, repository.FormatCSVZstd)
		So(repository.DetectFormat("a.json"), ShouldEqual, repository.FormatUnknown)
	})
}
