package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/depthcam-core/internal/device"
)

const (
	// DefaultQueueSize bounds events waiting to be written.
	DefaultQueueSize = 256

	shutdownWriteTimeout = 5 * time.Second
)

// Logger is the subset of logging.Logger the recorder uses.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder writes device lifecycle events to a Repository. It implements
// device.EventSink.
//
// Thread Safety:
//   - RecordEvent may be called from any goroutine and never blocks.
//   - Run must be called from exactly one goroutine.
type Recorder struct {
	repo     Repository
	deviceID string
	queue    chan device.Event
	dropped  atomic.Uint64

	mu     sync.RWMutex
	logger Logger

	// owned by Run
	current *Session
}

// NewRecorder creates a recorder for one device. A queueSize <= 0 uses
// DefaultQueueSize.
func NewRecorder(repo Repository, deviceID string, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Recorder{
		repo:     repo,
		deviceID: deviceID,
		queue:    make(chan device.Event, queueSize),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for write failures and drops.
func (r *Recorder) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

func (r *Recorder) log() Logger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.logger
}

// RecordEvent queues e for writing. When the queue is full the event is
// dropped and counted.
func (r *Recorder) RecordEvent(e device.Event) {
	select {
	case r.queue <- e:
	default:
		n := r.dropped.Add(1)
		r.log().Warn("session log queue full, event dropped", "type", e.Type, "dropped", n)
	}
}

// Dropped returns the number of events dropped because the queue was full.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Run writes queued events until ctx is cancelled, then writes whatever is
// still queued before returning.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownWriteTimeout)
			defer cancel()
			r.Drain(flushCtx)
			return nil
		case e := <-r.queue:
			r.store(ctx, e)
		}
	}
}

// Drain writes every event currently queued and returns. Do not call it
// concurrently with Run.
func (r *Recorder) Drain(ctx context.Context) {
	for {
		select {
		case e := <-r.queue:
			r.store(ctx, e)
		default:
			return
		}
	}
}

func (r *Recorder) store(ctx context.Context, e device.Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	rec := &Event{
		DeviceID:  r.deviceID,
		Type:      string(e.Type),
		Kind:      e.Kind,
		Detail:    e.Detail,
		CreatedAt: e.Time,
	}
	if err := r.repo.CreateEvent(ctx, rec); err != nil {
		r.log().Error("failed to record device event", "type", e.Type, "error", err)
	}

	switch e.Type {
	case device.EventOpen:
		s := &Session{DeviceID: r.deviceID, OpenedAt: e.Time}
		if err := r.repo.OpenSession(ctx, s); err != nil {
			r.log().Error("failed to open session", "error", err)
			return
		}
		r.current = s

	case device.EventSourceInit:
		if r.current != nil {
			r.current.Sources = append(r.current.Sources, e.Kind)
		}

	case device.EventClose:
		if r.current == nil {
			return
		}
		if err := r.repo.CloseSession(ctx, r.current.ID, e.Time, r.current.Sources); err != nil {
			r.log().Error("failed to close session", "session_id", r.current.ID, "error", err)
		}
		r.current = nil
	}
}
