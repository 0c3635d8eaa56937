package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/stampview/internal/adapters/repository"
	service "github.com/okian/stampview/internal/app"
	"github.com/okian/stampview/internal/config"
	"github.com/okian/stampview/internal/domain/filter"
	"github.com/okian/stampview/internal/sampledata"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given generated data files on disk", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cfg := sampledata.DefaultConfig()
		cfg.Machines = 4
		cfg.PointsPerMachine = 30
		ds, err := sampledata.Generate(ctx, cfg)
		So(err, ShouldBeNil)

		for _, format := range []string{sampledata.FormatCSV, sampledata.FormatParquet} {
			manifest, err := sampledata.WriteDataset(t.TempDir(), format, ds)
			So(err, ShouldBeNil)

			svc := service.New(service.WithDataConfig(manifest), service.WithRowLimit(10))
			So(svc.Start(ctx), ShouldBeNil)

			counts, err := svc.Datasets(ctx)
			So(err, ShouldBeNil)
			So(counts[config.DatasetAttributes], ShouldEqual, 4)
			So(counts[config.DatasetMeasurements], ShouldEqual, 4*30)
			So(svc.Fingerprint(), ShouldNotEqual, 0)

			p, err := svc.Query(ctx, filter.NewSelection(map[string][]string{"machine_id": {"M001"}}))
			So(err, ShouldBeNil)
			So(len(p.Rows), ShouldEqual, 10)
			So(len(p.Average), ShouldBeBetweenOrEqual, 29, 30)
			for i := 1; i < len(p.Average); i++ {
				prev, _ := time.Parse(time.RFC3339Nano, p.Average[i-1].Timestamp)
				cur, _ := time.Parse(time.RFC3339Nano, p.Average[i].Timestamp)
				So(prev.Before(cur), ShouldBeTrue)
			}

			values, err := svc.FilterValues(ctx)
			So(err, ShouldBeNil)
			So(values["machine_id"], ShouldResemble, []any{"M001", "M002", "M003", "M004"})

			svc.Stop()
		}
	})

	Convey("Given a missing manifest", t, func() {
		svc := service.New(service.WithDataConfig(filepath.Join(t.TempDir(), "nope.json")))

		Convey("Then start fails with a configuration error", func() {
			err := svc.Start(context.Background())
			So(errors.Is(err, config.ErrConfiguration), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})

	Convey("Given a manifest pointing at a missing file", t, func() {
		dir := t.TempDir()
		manifest := filepath.Join(dir, "latest_data.json")
		So(os.WriteFile(manifest, []byte(`{"d1":"a.csv","d2":"b.csv","d3":"c.csv"}`), 0o644), ShouldBeNil)
		svc := service.New(service.WithDataConfig(manifest))

		Convey("Then start fails with a data load error", func() {
			err := svc.Start(context.Background())
			So(errors.Is(err, repository.ErrDataLoad), ShouldBeTrue)
			So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
		})
	})
}
