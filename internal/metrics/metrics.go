// Package metrics exposes detection observability as prometheus
// collectors. Its main job is making per-detector failure rates visible so
// an operator can alert when the ensemble starts running degraded.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements detect.Recorder over a prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	detectorRuns     *prometheus.CounterVec
	detectorFailures *prometheus.CounterVec
	degraded         prometheus.Counter
	duration         prometheus.Histogram
}

// NewRecorder builds a recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		detectorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skygate",
			Name:      "detector_runs_total",
			Help:      "Detector invocations by detector name.",
		}, []string{"detector"}),
		detectorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skygate",
			Name:      "detector_failures_total",
			Help:      "Detector invocations that produced a failed outcome.",
		}, []string{"detector"}),
		degraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skygate",
			Name:      "degraded_detections_total",
			Help:      "Detection requests where every detector failed.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "skygate",
			Name:      "detection_duration_seconds",
			Help:      "Wall-clock duration of full detection requests.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	r.registry.MustRegister(r.detectorRuns, r.detectorFailures, r.degraded, r.duration)
	return r
}

// Registry exposes the underlying prometheus registry for scraping or
// text dumps.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) DetectorRun(name string) {
	r.detectorRuns.WithLabelValues(name).Inc()
}

func (r *Recorder) DetectorFailed(name string) {
	r.detectorFailures.WithLabelValues(name).Inc()
}

func (r *Recorder) DegradedDetection() {
	r.degraded.Inc()
}

func (r *Recorder) DetectionDuration(seconds float64) {
	r.duration.Observe(seconds)
}
