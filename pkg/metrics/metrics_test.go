package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered with the options", func() {
				So(manager, ShouldNotBeNil)
				manager.analysesTotal.WithLabelValues("vision").Inc()

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() == "test_unit_analyses_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When an analysis is recorded", func() {
			before := testutil.ToFloat64(globalManager.analysesTotal.WithLabelValues("heuristic"))
			RecordAnalysis("heuristic", 12, 74.5)
			So(testutil.ToFloat64(globalManager.analysesTotal.WithLabelValues("heuristic")), ShouldEqual, before+1)
		})

		Convey("When a vision failure is recorded", func() {
			before := testutil.ToFloat64(globalManager.visionFailures.WithLabelValues("timeout"))
			RecordVisionFailure("timeout")
			So(testutil.ToFloat64(globalManager.visionFailures.WithLabelValues("timeout")), ShouldEqual, before+1)
		})

		Convey("When a signal analysis is recorded", func() {
			RecordSignalAnalysis("audio", true)
			So(testutil.ToFloat64(globalManager.signalAnalyses.WithLabelValues("audio", "true")), ShouldBeGreaterThan, 0)
		})

		Convey("When breaker states are exported", func() {
			So(UpdateBreakerState("vision", BreakerOpen), ShouldBeNil)
			So(testutil.ToFloat64(globalManager.breakerState.WithLabelValues("vision")), ShouldEqual, 2)
			So(UpdateBreakerState("vision", BreakerClosed), ShouldBeNil)
			So(testutil.ToFloat64(globalManager.breakerState.WithLabelValues("vision")), ShouldEqual, 0)

			err := UpdateBreakerState("vision", "melted")
			So(errors.Is(err, ErrObserveFailed), ShouldBeTrue)
		})

		Convey("When queue gauges are updated", func() {
			UpdateQueueSize(7)
			UpdateQueueCapacity(100)
			UpdateQueueUtilization(0.07)
			So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
			So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 100)
		})

		Convey("When the remaining helpers are called", func() {
			So(func() {
				RecordVisionLatency(250)
				RecordMediaFetch("ok", 2048)
				RecordMediaFetch("error", 0)
				RecordHTTPRequest("/analyze/video", "POST", "200")
				RecordHTTPRequestDuration("/analyze/video", "POST", "200", 3.2)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordBatchDuplicate()
				UpdateWorkerCount(4)
				UpdateWorkerActiveCount(1)
				RecordWorkerProcessingLatency(40)
				RecordWorkerError()
				RecordErrorByComponent("api", "bad_request")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)
		})

		Convey("When the registry is gathered", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}
