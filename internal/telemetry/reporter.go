package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/depthcam-core/internal/device"
	"github.com/nerrad567/depthcam-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/depthcam-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/depthcam-core/internal/source"
	"github.com/nerrad567/depthcam-core/internal/tick"
)

const (
	// DefaultQueueSize bounds MQTT messages waiting to be published.
	DefaultQueueSize = 128

	defaultStatsInterval = 5 * time.Second
	commandTimeout       = 5 * time.Second
	shutdownTimeout      = 2 * time.Second
)

// Logger defines the logging interface used by the reporter.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MQTTClient is the subset of mqtt.Client the reporter uses.
type MQTTClient interface {
	PublishJSON(topic string, v any, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// StatsWriter is the subset of influxdb.Client the reporter uses.
type StatsWriter interface {
	WriteSnapshot(deviceID string, snap device.Snapshot, stats influxdb.TickStats, ts time.Time)
	WriteEvent(deviceID string, e device.Event)
}

// Controller executes device commands. *tick.Loop implements it.
type Controller interface {
	Open(ctx context.Context, kinds ...source.Kind) error
	Close(ctx context.Context) error
	InitSource(ctx context.Context, kind source.Kind) error
	SetUseTextures(ctx context.Context, use bool) error
}

// Options configures a Reporter.
type Options struct {
	DeviceID   string
	DeviceName string
	// StatsInterval is how often frame statistics are published and
	// written. 0 uses 5s.
	StatsInterval time.Duration
	QoS           byte
	QueueSize     int
}

type outbound struct {
	topic    string
	payload  any
	retained bool
}

// Reporter fans device state out to MQTT and InfluxDB.
//
// Thread Safety:
//   - ObserveFrame and RecordEvent are called from the tick goroutine and
//     never block.
//   - Run must be called from exactly one goroutine.
//   - SetMQTT, SetStats and SetLogger must be called before Run.
type Reporter struct {
	opts   Options
	topics mqtt.Topics
	mqtt   MQTTClient
	stats  StatsWriter

	queue   chan outbound
	dropped atomic.Uint64

	ctrlMu sync.RWMutex
	ctrl   Controller

	// owned by the tick goroutine
	lastStatus statusKey
	haveStatus bool
	lastStats  time.Time

	logger Logger
}

// New creates a reporter. Until SetMQTT or SetStats is called it publishes
// nothing.
func New(opts Options) *Reporter {
	if opts.StatsInterval <= 0 {
		opts.StatsInterval = defaultStatsInterval
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	return &Reporter{
		opts:   opts,
		topics: mqtt.Topics{DeviceID: opts.DeviceID},
		queue:  make(chan outbound, opts.QueueSize),
		logger: noopLogger{},
	}
}

// SetMQTT sets the MQTT client. Nil disables MQTT.
func (r *Reporter) SetMQTT(c MQTTClient) { r.mqtt = c }

// SetStats sets the InfluxDB writer. Nil disables statistics.
func (r *Reporter) SetStats(w StatsWriter) { r.stats = w }

// SetLogger sets the logger for the reporter.
func (r *Reporter) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.logger = logger
}

// Dropped returns the number of MQTT messages dropped because the queue
// was full.
func (r *Reporter) Dropped() uint64 {
	return r.dropped.Load()
}

// ObserveFrame implements tick.Observer.
func (r *Reporter) ObserveFrame(f tick.Frame) {
	key, kinds := statusOf(f.Snapshot)
	if !r.haveStatus || key != r.lastStatus {
		r.haveStatus = true
		r.lastStatus = key
		r.enqueue(r.topics.DeviceStatus(), StatusMessage{
			DeviceID:    r.opts.DeviceID,
			Name:        r.opts.DeviceName,
			Open:        key.open,
			Sources:     kinds,
			UseTextures: key.textures,
			Timestamp:   timestamp(f.Time),
		}, true)
	}

	if !r.lastStats.IsZero() && f.Time.Sub(r.lastStats) < r.opts.StatsInterval {
		return
	}
	r.lastStats = f.Time

	r.enqueue(r.topics.DeviceFrames(), FramesMessage{
		Seq:       f.Seq,
		FrameNew:  f.Snapshot.FrameNew,
		TickMS:    float64(f.Took) / float64(time.Millisecond),
		DrawOps:   f.DrawOps(),
		Sources:   f.Snapshot.Sources,
		Timestamp: timestamp(f.Time),
	}, false)

	if r.stats != nil {
		r.stats.WriteSnapshot(r.opts.DeviceID, f.Snapshot,
			influxdb.TickStats{Duration: f.Took, DrawOps: f.DrawOps()}, f.Time)
	}
}

// RecordEvent implements device.EventSink.
func (r *Reporter) RecordEvent(e device.Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	r.enqueue(r.topics.DeviceEvent(string(e.Type)), EventMessage{
		Type:      string(e.Type),
		Kind:      e.Kind,
		Detail:    e.Detail,
		Timestamp: timestamp(e.Time),
	}, false)

	if r.stats != nil {
		r.stats.WriteEvent(r.opts.DeviceID, e)
	}
}

func (r *Reporter) enqueue(topic string, payload any, retained bool) {
	if r.mqtt == nil {
		return
	}
	select {
	case r.queue <- outbound{topic: topic, payload: payload, retained: retained}:
	default:
		n := r.dropped.Add(1)
		r.logger.Warn("telemetry queue full, message dropped", "topic", topic, "dropped", n)
	}
}

// Run publishes queued messages until ctx is cancelled, then flushes what
// is left for up to two seconds.
func (r *Reporter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.flush(time.After(shutdownTimeout))
			return nil
		case m := <-r.queue:
			r.publish(m)
		}
	}
}

func (r *Reporter) flush(deadline <-chan time.Time) {
	for {
		select {
		case m := <-r.queue:
			r.publish(m)
		case <-deadline:
			return
		default:
			return
		}
	}
}

func (r *Reporter) publish(m outbound) {
	if err := r.mqtt.PublishJSON(m.topic, m.payload, m.retained); err != nil {
		r.logger.Warn("failed to publish telemetry", "topic", m.topic, "error", err)
	}
}
