// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline's counters and gauges. One instance per
// process, registered against an injected registry so tests stay
// isolated.
type Metrics struct {
	FramesTotal   prometheus.Counter
	FramesInvalid prometheus.Counter
	BatchesTotal  prometheus.Counter
	PublishErrors prometheus.Counter
	RelayErrors   prometheus.Counter
	SmoothedPower prometheus.Gauge
}

// New creates and registers the pipeline metrics.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teleinfo_frames_total",
			Help: "Frames received on the input stream, valid or not.",
		}),
		FramesInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teleinfo_frames_invalid_total",
			Help: "Lines rejected: undecodable or carrying a bad validity marker.",
		}),
		BatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teleinfo_publish_batches_total",
			Help: "Signal batches emitted to the broker.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teleinfo_publish_errors_total",
			Help: "Batches that failed to publish, in whole or in part.",
		}),
		RelayErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teleinfo_relay_errors_total",
			Help: "UDP relay send failures.",
		}),
		SmoothedPower: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "teleinfo_smoothed_power_va",
			Help: "Current hysteresis filter estimate of apparent power.",
		}),
	}
	reg.MustRegister(
		m.FramesTotal,
		m.FramesInvalid,
		m.BatchesTotal,
		m.PublishErrors,
		m.RelayErrors,
		m.SmoothedPower,
	)
	return m
}
