// Package metrics exposes depthcam device state as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/depthcam-core/internal/device"
)

const namespace = "depthcam"

// Metrics holds the collectors for one device on a private registry.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	open         prometheus.Gauge
	frameNew     prometheus.Gauge
	ticks        prometheus.Counter
	tickDuration prometheus.Histogram
	drawOps      prometheus.Gauge
	sources      prometheus.Gauge
	sourceFrames *prometheus.GaugeVec
	sourceNew    *prometheus.GaugeVec
	events       *prometheus.CounterVec
}

// New creates the collectors, labelled with the device ID, and registers
// them together with the Go runtime and process collectors.
func New(deviceID string) *Metrics {
	labels := prometheus.Labels{"device_id": deviceID}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		open: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "sensor_open",
			Help:        "1 when the sensor is open.",
			ConstLabels: labels,
		}),
		frameNew: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "frame_new",
			Help:        "1 when any source produced a new frame on the last tick.",
			ConstLabels: labels,
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "ticks_total",
			Help:        "Update ticks executed.",
			ConstLabels: labels,
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "tick_duration_seconds",
			Help:        "Wall time of update plus render per tick.",
			ConstLabels: labels,
			Buckets:     []float64{.0005, .001, .0025, .005, .01, .02, .033, .05, .1},
		}),
		drawOps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "draw_ops",
			Help:        "Graphics calls recorded by the last world render.",
			ConstLabels: labels,
		}),
		sources: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "sources",
			Help:        "Registered sources.",
			ConstLabels: labels,
		}),
		sourceFrames: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "source_frames",
			Help:        "Frames received by a source since it was initialised.",
			ConstLabels: labels,
		}, []string{"kind"}),
		sourceNew: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "source_frame_new",
			Help:        "1 when the source produced a new frame on the last tick.",
			ConstLabels: labels,
		}, []string{"kind"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "device_events_total",
			Help:        "Device lifecycle events by type.",
			ConstLabels: labels,
		}, []string{"type"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.open, m.frameNew, m.ticks, m.tickDuration, m.drawOps, m.sources,
		m.sourceFrames, m.sourceNew, m.events,
	)
	return m
}

// ObserveTick records the state after one tick. Sources no longer
// registered disappear from the per-kind series.
func (m *Metrics) ObserveTick(snap device.Snapshot, took time.Duration, drawOps int) {
	m.ticks.Inc()
	m.tickDuration.Observe(took.Seconds())
	m.open.Set(boolFloat(snap.Open))
	m.frameNew.Set(boolFloat(snap.FrameNew))
	m.drawOps.Set(float64(drawOps))
	m.sources.Set(float64(len(snap.Sources)))

	m.sourceFrames.Reset()
	m.sourceNew.Reset()
	for _, st := range snap.Sources {
		kind := st.Kind.String()
		m.sourceFrames.WithLabelValues(kind).Set(float64(st.Frames))
		m.sourceNew.WithLabelValues(kind).Set(boolFloat(st.FrameNew))
	}
}

// RecordEvent counts a lifecycle event. It implements device.EventSink.
func (m *Metrics) RecordEvent(e device.Event) {
	m.events.WithLabelValues(string(e.Type)).Inc()
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
