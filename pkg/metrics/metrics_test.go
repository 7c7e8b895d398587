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
	Convey("Given a manager built with custom options", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(
			WithNamespace("test"),
			WithSubsystem("risk"),
			WithHistogramBuckets([]float64{1, 5, 10}),
			WithRefreshInterval(5*time.Second),
			WithCustomLabels(map[string]string{"env": "test"}),
			WithPrometheusRegistry(registry),
		)

		Convey("Then the options are applied", func() {
			So(m.namespace, ShouldEqual, "test")
			So(m.subsystem, ShouldEqual, "risk")
			So(m.histogramBuckets, ShouldResemble, []float64{1, 5, 10})
			So(m.RefreshInterval(), ShouldEqual, 5*time.Second)
			So(m.Enabled(), ShouldBeTrue)
		})

		Convey("And empty or invalid values keep the defaults", func() {
			d := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(0),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)
			So(d.namespace, ShouldEqual, "fraudrisk")
			So(d.subsystem, ShouldEqual, "scoring")
			So(d.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(registry))

		Convey("When recording assessments", func() {
			m.RecordAssessment("Low", 0.12, 12, 0.4)
			m.RecordAssessment("Low", 0.2, 20, 0.3)
			m.RecordAssessment("High", 0.91, 91, 0.5)

			Convey("Then counts are kept per risk level", func() {
				So(testutil.ToFloat64(m.assessments.WithLabelValues("Low")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.assessments.WithLabelValues("High")), ShouldEqual, 1)
				So(testutil.CollectAndCount(m.fraudProbability), ShouldEqual, 1)
			})
		})

		Convey("When recording numeric anomalies", func() {
			m.RecordNumericAnomaly("normalize", 2)
			m.RecordNumericAnomaly("normalize", 0)
			m.RecordNumericAnomaly("predict", 1)

			Convey("Then only positive counts are added", func() {
				So(testutil.ToFloat64(m.numericAnomalies.WithLabelValues("normalize")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.numericAnomalies.WithLabelValues("predict")), ShouldEqual, 1)
			})
		})

		Convey("When recording HTTP traffic and errors", func() {
			m.RecordHTTPRequest("predict", "POST", "200", 3)
			m.RecordHTTPRequest("predict", "POST", "422", 1)
			m.RecordError("predict", "POST", "client_error", "medium", 1)
			m.RecordRateLimited("predict")
			m.RecordValidationFailure("avg_invoice_hour")

			Convey("Then each series is populated", func() {
				So(testutil.ToFloat64(m.httpRequests.WithLabelValues("predict", "POST", "200")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.errorRateByEndpoint.WithLabelValues("predict", "POST", "client_error")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.rateLimited.WithLabelValues("predict")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.validationFailures.WithLabelValues("avg_invoice_hour")), ShouldEqual, 1)
			})
		})

		Convey("When publishing the model version twice", func() {
			m.SetModelInfo("v1")
			m.SetModelInfo("v2")

			Convey("Then only the latest version is exported", func() {
				So(testutil.CollectAndCount(m.modelInfo), ShouldEqual, 1)
				So(testutil.ToFloat64(m.modelInfo.WithLabelValues("v2")), ShouldEqual, 1)
			})
		})

		Convey("When exposing the registry", func() {
			m.RecordBatchSize(10)
			m.UpdateSystem(1024, 12, 0.5)
			out, err := registry.Gather()

			Convey("Then metric names carry the namespace", func() {
				So(err, ShouldBeNil)
				found := false
				for _, mf := range out {
					if strings.HasPrefix(mf.GetName(), "fraudrisk_scoring_batch_size") {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsDisabled(t *testing.T) {
	Convey("Given a disabled manager", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))

		Convey("When recording", func() {
			m.RecordAssessment("Medium", 0.5, 50, 1)

			Convey("Then nothing is counted", func() {
				So(testutil.ToFloat64(m.assessments.WithLabelValues("Medium")), ShouldEqual, 0)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Then package-level recorders do not panic", func() {
			So(func() {
				RecordAssessment("Low", 0.1, 10, 0.2)
				RecordNumericAnomaly("normalize", 1)
				RecordValidationFailure("total_transactions")
				RecordBatchSize(3)
				SetModelInfo("test")
				RecordHTTPRequest("predict", "POST", "200", 1)
				RecordRateLimited("predict")
				RecordError("predict", "POST", "server_error", "high", 2)
				UpdateSystem(1, 1, 0)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}

func TestGlobalRefreshInterval(t *testing.T) {
	Convey("Given the global manager", t, func() {
		prev := RefreshInterval()
		defer SetRefreshInterval(prev)

		Convey("When the refresh interval is reconfigured", func() {
			SetRefreshInterval(3 * time.Second)

			Convey("Then the new interval is reported", func() {
				So(RefreshInterval(), ShouldEqual, 3*time.Second)
			})

			Convey("And a non-positive interval keeps the previous one", func() {
				SetRefreshInterval(0)
				So(RefreshInterval(), ShouldEqual, 3*time.Second)
			})
		})
	})
}
