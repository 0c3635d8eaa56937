package sampledata

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/stampview/internal/domain/table"
	"github.com/okian/stampview/pkg/logger"
)

// Dataset is one generated set of the three tables.
type Dataset struct {
	Attributes   *table.Table
	Measurements *table.Table
	Reference    *table.Table
}

// Measurement value ranges.
const (
	baseForceKN     = 180.0
	forceSpreadKN   = 40.0
	forceNoiseKN    = 6.0
	basePressureBar = 95.0
	pressureNoise   = 3.5
	nullEvery       = 97 // every nth measurement has a missing value
)

// Generate builds a deterministic dataset. Machines are assigned parts and
// tools round-robin, and every machine gets PointsPerMachine measurements on
// a shared time grid so several machines report at the same timestamps.
func Generate(ctx context.Context, cfg Config) (*Dataset, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	batch := uuid.NewSHA1(uuid.NameSpaceOID, []byte("stampview-sample-"+strconv.FormatUint(cfg.Seed, 10)))

	logger.Get().Info(ctx, "generating sample data",
		logger.Int("machines", cfg.Machines),
		logger.Int("points_per_machine", cfg.PointsPerMachine),
		logger.String("batch_id", batch.String()),
	)

	attrRows := make([][]table.Value, 0, cfg.Machines)
	for m := 0; m < cfg.Machines; m++ {
		attrRows = append(attrRows, []table.Value{
			table.String(machineID(m)),
			table.String(partNumber(m % cfg.Parts)),
			table.Int(int64(toolNumber(m % cfg.Tools))),
			table.String([]string{"A", "B", "C"}[m%3]),
		})
	}
	attributes, err := table.New("attributes", []table.Column{
		{Name: "machine_id", Kind: table.KindString},
		{Name: "part_number", Kind: table.KindString},
		{Name: "tool_number", Kind: table.KindInt},
		{Name: "line", Kind: table.KindString},
	}, attrRows)
	if err != nil {
		return nil, err
	}

	measRows := make([][]table.Value, 0, cfg.Machines*cfg.PointsPerMachine)
	for p := 0; p < cfg.PointsPerMachine; p++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		at := cfg.Start.Add(cfg.Interval * time.Duration(p))
		for m := 0; m < cfg.Machines; m++ {
			center := baseForceKN + forceSpreadKN*math.Sin(float64(m)+float64(p)/30)
			force := table.Float(round2(center + rng.NormFloat64()*forceNoiseKN))
			if (p*cfg.Machines+m)%nullEvery == nullEvery-1 {
				force = table.Null(table.KindFloat)
			}
			measRows = append(measRows, []table.Value{
				table.String(machineID(m)),
				table.Time(at),
				force,
				table.Float(round2(basePressureBar + rng.NormFloat64()*pressureNoise)),
				table.Int(int64(p + 1)),
			})
		}
	}
	measurements, err := table.New("measurements", []table.Column{
		{Name: "machine_id", Kind: table.KindString},
		{Name: "timestamp", Kind: table.KindTime},
		{Name: "value", Kind: table.KindFloat},
		{Name: "pressure", Kind: table.KindFloat},
		{Name: "stroke", Kind: table.KindInt},
	}, measRows)
	if err != nil {
		return nil, err
	}

	refRows := make([][]table.Value, 0, cfg.Tools)
	for t := 0; t < cfg.Tools; t++ {
		refRows = append(refRows, []table.Value{
			table.Int(int64(toolNumber(t))),
			table.String(fmt.Sprintf("Die set %c", 'A'+rune(t%26))),
			table.Int(int64(50_000 + 10_000*rng.IntN(10))),
			table.String(batch.String()),
		})
	}
	reference, err := table.New("reference", []table.Column{
		{Name: "tool_number", Kind: table.KindInt},
		{Name: "tool_name", Kind: table.KindString},
		{Name: "max_strokes", Kind: table.KindInt},
		{Name: "batch_id", Kind: table.KindString},
	}, refRows)
	if err != nil {
		return nil, err
	}

	return &Dataset{Attributes: attributes, Measurements: measurements, Reference: reference}, nil
}

func machineID(i int) string  { return fmt.Sprintf("M%03d", i+1) }
func partNumber(i int) string { return fmt.Sprintf("P-%04d", 1000+i*7) }
func toolNumber(i int) int    { return 100 + i }

func round2(f float64) float64 { return math.Round(f*100) / 100 }
