package aggregate_test

import (
	"math"
	"testing"
	"time"

	"github.com/okian/stampview/internal/domain/aggregate"
	"github.com/okian/stampview/internal/domain/table"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	t1 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	t2 = t1.Add(time.Hour)
	t3 = t1.Add(2 * time.Hour)
)

func measurements(cols []table.Column, rows ...[]table.Value) *table.Table {
	return table.MustNew("measurements", cols, rows)
}

func TestTargetColumn(t *testing.T) {
	Convey("Given measurement tables", t, func() {
		Convey("A numeric value column wins", func() {
			tbl := table.Empty("m", []table.Column{
				{Name: "pressure", Kind: table.KindFloat},
				{Name: "value", Kind: table.KindInt},
			})
			name, ok := aggregate.TargetColumn(tbl)
			So(ok, ShouldBeTrue)
			So(name, ShouldEqual, "value")
		})

		Convey("A non-numeric value column is skipped", func() {
			tbl := table.Empty("m", []table.Column{
				{Name: "value", Kind: table.KindString},
				{Name: "flag", Kind: table.KindBool},
				{Name: "force", Kind: table.KindFloat},
				{Name: "pressure", Kind: table.KindFloat},
			})
			name, ok := aggregate.TargetColumn(tbl)
			So(ok, ShouldBeTrue)
			So(name, ShouldEqual, "force")
		})

		Convey("No numeric column means no target", func() {
			tbl := table.Empty("m", []table.Column{{Name: "machine_id", Kind: table.KindString}})
			_, ok := aggregate.TargetColumn(tbl)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestAverageOverTime(t *testing.T) {
	cols := []table.Column{
		{Name: "machine_id", Kind: table.KindString},
		{Name: "timestamp", Kind: table.KindTime},
		{Name: "value", Kind: table.KindFloat},
	}

	Convey("Given measurements of one machine at T1, T1, T2", t, func() {
		tbl := measurements(cols,
			[]table.Value{table.String("M1"), table.Time(t1), table.Float(10)},
			[]table.Value{table.String("M1"), table.Time(t1), table.Float(20)},
			[]table.Value{table.String("M1"), table.Time(t2), table.Float(30)},
		)

		Convey("Then each timestamp gets its mean", func() {
			points := aggregate.AverageOverTime(tbl)
			So(points, ShouldResemble, []aggregate.Point{
				{Timestamp: "2024-03-01T12:00:00Z", Avg: 15},
				{Timestamp: "2024-03-01T13:00:00Z", Avg: 30},
			})
		})
	})

	Convey("Given a table without a value column", t, func() {
		tbl := measurements([]table.Column{
			{Name: "timestamp", Kind: table.KindTime},
			{Name: "stroke", Kind: table.KindString},
			{Name: "pressure", Kind: table.KindInt},
		},
			[]table.Value{table.Time(t1), table.String("a"), table.Int(4)},
			[]table.Value{table.Time(t1), table.String("b"), table.Int(5)},
		)

		Convey("Then the first numeric column is averaged", func() {
			points := aggregate.AverageOverTime(tbl)
			So(len(points), ShouldEqual, 1)
			So(points[0].Avg, ShouldEqual, 4.5)
		})
	})

	Convey("Given unordered rows with repeated timestamps", t, func() {
		tbl := measurements(cols,
			[]table.Value{table.String("M1"), table.Time(t3), table.Float(1)},
			[]table.Value{table.String("M2"), table.Time(t1), table.Float(2)},
			[]table.Value{table.String("M1"), table.Time(t2), table.Float(0.1)},
			[]table.Value{table.String("M2"), table.Time(t3), table.Float(3)},
			[]table.Value{table.String("M3"), table.Time(t1.In(time.FixedZone("CET", 3600))), table.Float(4)},
		)
		points := aggregate.AverageOverTime(tbl)

		Convey("Then output is strictly ascending with no duplicates", func() {
			So(len(points), ShouldEqual, 3)
			for i := 1; i < len(points); i++ {
				prev, _ := time.Parse(time.RFC3339Nano, points[i-1].Timestamp)
				cur, _ := time.Parse(time.RFC3339Nano, points[i].Timestamp)
				So(prev.Before(cur), ShouldBeTrue)
			}
		})

		Convey("Then equal instants in different zones share a group", func() {
			So(points[0].Avg, ShouldEqual, 3)
		})

		Convey("Then a single-row group keeps its value exactly", func() {
			So(points[1].Avg, ShouldEqual, 0.1)
		})
	})

	Convey("Given nulls in the data", t, func() {
		tbl := measurements(cols,
			[]table.Value{table.String("M1"), table.Time(t1), table.Float(10)},
			[]table.Value{table.String("M1"), table.Time(t1), table.Null(table.KindFloat)},
			[]table.Value{table.String("M1"), table.Time(t1), table.Float(math.NaN())},
			[]table.Value{table.String("M1"), table.Null(table.KindTime), table.Float(99)},
			[]table.Value{table.String("M1"), table.Time(t2), table.Null(table.KindFloat)},
		)
		points := aggregate.AverageOverTime(tbl)

		Convey("Then null targets are excluded and all-null groups emit nothing", func() {
			So(points, ShouldResemble, []aggregate.Point{{Timestamp: "2024-03-01T12:00:00Z", Avg: 10}})
		})
	})

	Convey("Given degenerate inputs", t, func() {
		Convey("An empty table yields an empty series", func() {
			points := aggregate.AverageOverTime(table.Empty("m", cols))
			So(points, ShouldNotBeNil)
			So(points, ShouldBeEmpty)
		})

		Convey("A nil table yields an empty series", func() {
			So(aggregate.AverageOverTime(nil), ShouldBeEmpty)
		})

		Convey("A missing timestamp column yields an empty series", func() {
			tbl := measurements([]table.Column{{Name: "value", Kind: table.KindFloat}},
				[]table.Value{table.Float(1)})
			So(aggregate.AverageOverTime(tbl), ShouldBeEmpty)
		})

		Convey("A string timestamp column yields an empty series", func() {
			tbl := measurements([]table.Column{
				{Name: "timestamp", Kind: table.KindString},
				{Name: "value", Kind: table.KindFloat},
			}, []table.Value{table.String("2024-01-01"), table.Float(1)})
			So(aggregate.AverageOverTime(tbl), ShouldBeEmpty)
		})

		Convey("No numeric column yields an empty series", func() {
			tbl := measurements([]table.Column{
				{Name: "timestamp", Kind: table.KindTime},
				{Name: "machine_id", Kind: table.KindString},
			}, []table.Value{table.Time(t1), table.String("M1")})
			So(aggregate.AverageOverTime(tbl), ShouldBeEmpty)
		})
	})
}
