package process

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/depthcam-core/internal/infrastructure/config"
	"github.com/nerrad567/depthcam-core/internal/tick"
)

// DaemonName identifies the capture daemon in logs and stats.
const DaemonName = "capture-daemon"

// FromDaemonConfig converts the sensor.daemon section into a Config.
// Zero durations fall back to the Manager defaults.
func FromDaemonConfig(cfg config.DaemonConfig) Config {
	c := DefaultConfig(DaemonName, cfg.Binary, cfg.Args)
	c.RestartOnFailure = cfg.RestartOnFailure
	c.MaxRestartAttempts = cfg.MaxRestartAttempts
	if cfg.RestartDelaySeconds > 0 {
		c.RestartDelay = time.Duration(cfg.RestartDelaySeconds) * time.Second
	}
	if cfg.FrameTimeoutSeconds > 0 {
		// check twice per timeout so a stall is noticed promptly
		c.HealthCheckInterval = time.Duration(cfg.FrameTimeoutSeconds) * time.Second / 2
	}
	return c
}

// FrameWatchdog is a tick.Observer that tracks when the device last
// delivered a new frame. Its Check method is a HealthCheckFunc for the
// daemon feeding the sensor.
//
// Thread Safety: ObserveFrame runs on the tick goroutine; Check may be
// called from any goroutine.
type FrameWatchdog struct {
	timeout time.Duration
	now     func() time.Time

	mu       sync.Mutex
	open     bool
	lastNew  time.Time
	openedAt time.Time
}

// NewFrameWatchdog returns a watchdog that fails once the open sensor has
// gone timeout without a new frame.
func NewFrameWatchdog(timeout time.Duration) *FrameWatchdog {
	return &FrameWatchdog{timeout: timeout, now: time.Now}
}

// ObserveFrame implements tick.Observer.
func (w *FrameWatchdog) ObserveFrame(f tick.Frame) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if f.Snapshot.Open && !w.open {
		w.openedAt = f.Time
	}
	w.open = f.Snapshot.Open
	if f.Snapshot.FrameNew {
		w.lastNew = f.Time
	}
}

// Check returns a recoverable HealthError when the sensor is open and no
// frame has arrived within the timeout. A closed sensor is always healthy:
// nobody is waiting for frames.
func (w *FrameWatchdog) Check(_ context.Context) error {
	if w.timeout <= 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.open {
		return nil
	}
	since := w.lastNew
	if since.Before(w.openedAt) {
		since = w.openedAt
	}
	if silent := w.now().Sub(since); silent > w.timeout {
		return &HealthError{
			Check:       "frames",
			Recoverable: true,
			Err:         fmt.Errorf("%w for %s", ErrNoFrames, silent.Round(time.Second)),
		}
	}
	return nil
}

// NewDaemon builds a Manager for the capture daemon. When watchdog is
// non-nil it becomes the health check.
func NewDaemon(cfg config.DaemonConfig, watchdog *FrameWatchdog) *Manager {
	c := FromDaemonConfig(cfg)
	if watchdog != nil {
		c.HealthCheckFunc = watchdog.Check
	}
	return NewManager(c)
}
