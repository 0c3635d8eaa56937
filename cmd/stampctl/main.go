// Command stampctl generates sample stamping datasets and probes a running
// dashboard service.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/okian/stampview/internal/adapters/repository"
	"github.com/okian/stampview/internal/sampledata"
	"github.com/okian/stampview/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newApp().Run(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "stampctl",
		Usage: "Sample data and smoke tests for the stamping dashboard",
		Commands: []*cli.Command{
			generateCMD(),
			probeCMD(),
		},
	}
}

func setupLogging(verbose bool) error {
	if err := logger.InitWithOptions(logger.Options{Writer: os.Stderr}); err != nil {
		return err
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

func output(c *cli.Command) io.Writer {
	if w := c.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func generateCMD() *cli.Command {
	def := sampledata.DefaultConfig()
	return &cli.Command{
		Name:  "generate",
		Usage: "Writes a deterministic dataset and its latest_data.json manifest",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output directory", Value: "data"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "parquet, csv or csv.zst", Value: sampledata.FormatParquet},
			&cli.IntFlag{Name: "machines", Usage: "number of machines", Value: def.Machines},
			&cli.IntFlag{Name: "parts", Usage: "number of part numbers", Value: def.Parts},
			&cli.IntFlag{Name: "tools", Usage: "number of tool numbers", Value: def.Tools},
			&cli.IntFlag{Name: "points", Usage: "measurements per machine", Value: def.PointsPerMachine},
			&cli.DurationFlag{Name: "interval", Usage: "spacing between measurements", Value: def.Interval},
			&cli.StringFlag{Name: "start", Usage: "first measurement timestamp", Value: def.Start.Format(time.RFC3339)},
			&cli.IntFlag{Name: "seed", Usage: "random seed", Value: int(def.Seed)},
			&cli.BoolFlag{Name: "verbose", Usage: "debug logging"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := setupLogging(c.Bool("verbose")); err != nil {
				return err
			}
			start, err := repository.ParseTimestamp(c.String("start"))
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			cfg := sampledata.Config{
				Machines:         int(c.Int("machines")),
				Parts:            int(c.Int("parts")),
				Tools:            int(c.Int("tools")),
				PointsPerMachine: int(c.Int("points")),
				Interval:         c.Duration("interval"),
				Start:            start,
				Seed:             uint64(c.Int("seed")),
			}
			ds, err := sampledata.Generate(ctx, cfg)
			if err != nil {
				return err
			}
			manifest, err := sampledata.WriteDataset(c.String("out"), c.String("format"), ds)
			if err != nil {
				return err
			}
			w := output(c)
			sampledata.WriteDatasetSummary(w, ds)
			fmt.Fprintf(w, "\nmanifest: %s\n", manifest)
			return nil
		},
	}
}

func probeCMD() *cli.Command {
	return &cli.Command{
		Name:  "probe",
		Usage: "Queries a running service for many selections and checks the responses",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "base URL of the service", Value: "http://127.0.0.1:8500"},
			&cli.IntFlag{Name: "workers", Usage: "concurrent requests", Value: runtime.NumCPU()},
			&cli.DurationFlag{Name: "timeout", Usage: "HTTP request timeout", Value: 10 * time.Second},
			&cli.BoolFlag{Name: "verbose", Usage: "log every request"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := setupLogging(c.Bool("verbose")); err != nil {
				return err
			}
			report, err := sampledata.Probe(ctx, sampledata.ProbeConfig{
				BaseURL: c.String("url"),
				Workers: int(c.Int("workers")),
				Timeout: c.Duration("timeout"),
				Verbose: c.Bool("verbose"),
			})
			if report != nil {
				sampledata.WriteProbeReport(output(c), report)
			}
			return err
		},
	}
}
