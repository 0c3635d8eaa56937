package response_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/okian/stampview/internal/domain/aggregate"
	"github.com/okian/stampview/internal/domain/response"
	"github.com/okian/stampview/internal/domain/table"
	. "github.com/smartystreets/goconvey/convey"
)

func subset(n int) *table.Table {
	base := time.Date(2024, 7, 9, 6, 30, 15, 123000000, time.UTC)
	rows := make([][]table.Value, n)
	for i := range rows {
		rows[i] = []table.Value{
			table.String(fmt.Sprintf("M%d", i)),
			table.Time(base.Add(time.Duration(i) * time.Minute)),
			table.Float(float64(i)),
		}
	}
	return table.MustNew("measurements", []table.Column{
		{Name: "machine_id", Kind: table.KindString},
		{Name: "timestamp", Kind: table.KindTime},
		{Name: "value", Kind: table.KindFloat},
	}, rows)
}

func TestAssemble(t *testing.T) {
	Convey("Given a subset of five rows and its series", t, func() {
		tbl := subset(5)
		series := aggregate.AverageOverTime(tbl)

		Convey("When the row limit is two", func() {
			p := response.Assemble(tbl, series, 2)

			Convey("Then the first two rows are returned in order", func() {
				So(len(p.Rows), ShouldEqual, 2)
				id0, _ := p.Rows[0].Get("machine_id")
				id1, _ := p.Rows[1].Get("machine_id")
				So(id0, ShouldEqual, "M0")
				So(id1, ShouldEqual, "M1")
			})

			Convey("Then the series still covers all rows", func() {
				So(len(p.Average), ShouldEqual, 5)
			})

			Convey("Then timestamps use the display layout", func() {
				ts, _ := p.Rows[1].Get("timestamp")
				So(ts, ShouldEqual, "2024-07-09 06:31:15")
			})
		})

		Convey("Row limits never truncate more than needed", func() {
			for _, limit := range []int{0, 1, 4, 5, 6, 400} {
				p := response.Assemble(tbl, series, limit)
				So(len(p.Rows), ShouldBeLessThanOrEqualTo, limit)
				So(len(p.Rows), ShouldEqual, min(limit, 5))
			}
		})

		Convey("A negative limit returns no rows", func() {
			p := response.Assemble(tbl, series, -1)
			So(p.Rows, ShouldNotBeNil)
			So(p.Rows, ShouldBeEmpty)
		})
	})

	Convey("Given a row with nulls and mixed kinds", t, func() {
		tbl := table.MustNew("m", []table.Column{
			{Name: "value", Kind: table.KindFloat},
			{Name: "machine_id", Kind: table.KindString},
			{Name: "count", Kind: table.KindInt},
			{Name: "ok", Kind: table.KindBool},
			{Name: "timestamp", Kind: table.KindTime},
		}, [][]table.Value{{
			table.Float(2.5),
			table.String("M1"),
			table.Int(7),
			table.Bool(true),
			table.Null(table.KindTime),
		}})

		Convey("When marshalled", func() {
			p := response.Assemble(tbl, nil, 10)
			raw, err := json.Marshal(p)

			Convey("Then keys keep column order and nulls stay null", func() {
				So(err, ShouldBeNil)
				So(string(raw), ShouldEqual,
					`{"rows":[{"value":2.5,"machine_id":"M1","count":7,"ok":true,"timestamp":null}],"average":[]}`)
			})
		})
	})

	Convey("Given nothing", t, func() {
		Convey("The empty payload marshals as two empty arrays", func() {
			raw, err := json.Marshal(response.Empty())
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, `{"rows":[],"average":[]}`)
		})

		Convey("A nil subset assembles to the empty payload", func() {
			raw, err := json.Marshal(response.Assemble(nil, nil, 400))
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, `{"rows":[],"average":[]}`)
		})
	})
}
