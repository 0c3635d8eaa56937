package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/stampview/internal/config"
	"github.com/okian/stampview/internal/sampledata"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerateCommand(t *testing.T) {
	Convey("Given the generate command", t, func() {
		dir := t.TempDir()
		var out bytes.Buffer
		app := newApp()
		app.Writer = &out

		Convey("When generating a small csv dataset", func() {
			err := app.Run(context.Background(), []string{
				"stampctl", "generate", "--out", dir, "--format", "csv",
				"--machines", "2", "--points", "5", "--start", "2024-02-01 08:00:00",
			})

			Convey("Then the files and a loadable manifest are written", func() {
				So(err, ShouldBeNil)
				So(out.String(), ShouldContainSubstring, "manifest:")
				_, err := os.Stat(filepath.Join(dir, "measurements.csv"))
				So(err, ShouldBeNil)
				sources, err := config.LoadDataSources(context.Background(), filepath.Join(dir, sampledata.ManifestName))
				So(err, ShouldBeNil)
				So(sources.Attributes, ShouldEqual, filepath.Join(dir, "attributes.csv"))
			})
		})

		Convey("When the start time is invalid", func() {
			err := app.Run(context.Background(), []string{"stampctl", "generate", "--out", dir, "--start", "yesterday"})

			Convey("Then it fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestProbeCommand(t *testing.T) {
	Convey("Given an unreachable service", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		Convey("Then probe fails", func() {
			err := newApp().Run(context.Background(), []string{"stampctl", "probe", "--url", srv.URL, "--workers", "1"})
			So(errors.Is(err, sampledata.ErrProbeFailed), ShouldBeTrue)
		})
	})
}
