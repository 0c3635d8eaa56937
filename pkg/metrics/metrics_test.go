package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating a manager with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("prefix_"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithRowBuckets([]float64{1, 10, 100}),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then names and labels follow the options", func() {
				manager.RecordQuery(OutcomeMatched)

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, mf := range families {
					if mf.GetName() == "test_namespace_test_subsystem_prefix_queries_total" {
						found = true
						So(mf.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)
			})
		})

		Convey("When options carry zero values", func() {
			manager := NewManager(
				WithNamespace(""),
				WithRefreshInterval(0),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "stampview")
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(registry))

		Convey("When a dataset is loaded", func() {
			m.RecordDatasetLoaded("measurements", 1200, 4, 35)
			m.RecordDatasetLoadError("reference")

			Convey("Then its shape is exported", func() {
				So(testutil.ToFloat64(m.datasetRows.WithLabelValues("measurements")), ShouldEqual, 1200)
				So(testutil.ToFloat64(m.datasetColumns.WithLabelValues("measurements")), ShouldEqual, 4)
				So(testutil.ToFloat64(m.datasetLoadErrors.WithLabelValues("reference")), ShouldEqual, 1)
			})
		})

		Convey("When queries run", func() {
			m.RecordQuery(OutcomeShortCircuit)
			m.RecordQuery(OutcomeMatched)
			m.RecordQuery(OutcomeMatched)
			m.RecordQueryStage(StageAggregate, 0.4)
			m.RecordQueryResult(2, 40, 40, 12)

			Convey("Then outcomes are counted", func() {
				So(testutil.ToFloat64(m.queries.WithLabelValues(OutcomeMatched)), ShouldEqual, 2)
				So(testutil.ToFloat64(m.queries.WithLabelValues(OutcomeShortCircuit)), ShouldEqual, 1)
				So(testutil.CollectAndCount(m.queryStageLatency), ShouldEqual, 1)
			})
		})

		Convey("When HTTP requests are recorded", func() {
			m.RecordHTTPRequest("/api/data", "GET", "200")
			m.RecordHTTPRequestDuration("/api/data", "GET", "200", 3.5)
			m.RecordErrorByEndpoint("/api/data", "POST", "bad_request")

			Convey("Then the exposition contains them", func() {
				expected := `
# HELP stampview_dashboard_http_requests_total Total number of HTTP requests by endpoint and method
# TYPE stampview_dashboard_http_requests_total counter
stampview_dashboard_http_requests_total{endpoint="/api/data",method="GET",status_code="200"} 1
`
				err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "stampview_dashboard_http_requests_total")
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestGlobalMetrics(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Package helpers should not panic", func() {
			So(func() {
				RecordDatasetLoaded("attributes", 10, 3, 1)
				RecordDatasetLoadError("attributes")
				UpdateDatasetLoadedAt(time.Now())
				RecordQuery(OutcomeNoMatch)
				RecordQueryStage(StageFilterAttributes, 0.1)
				RecordQueryResult(0, 0, 0, 0)
				RecordFilterValuesRequest("ok")
				RecordHTTPRequest("/healthz", "GET", "200")
				RecordHTTPRequestDuration("/healthz", "GET", "200", 0.2)
				RecordErrorByComponent("api", "encode")
				RecordErrorByEndpoint("/api/data", "GET", "bad_request")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})

		Convey("The registry is the custom one", func() {
			So(GetRegistry(), ShouldNotBeNil)
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}
