package process

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/depthcam-core/internal/device"
	"github.com/nerrad567/depthcam-core/internal/infrastructure/config"
	"github.com/nerrad567/depthcam-core/internal/tick"
)

func TestFromDaemonConfig(t *testing.T) {
	c := FromDaemonConfig(config.DaemonConfig{
		Managed:             true,
		Binary:              "/usr/local/bin/k4a-capture",
		Args:                []string{"--group", "239.0.0.1:5400"},
		RestartOnFailure:    true,
		RestartDelaySeconds: 3,
		MaxRestartAttempts:  4,
		FrameTimeoutSeconds: 8,
	})

	if c.Name != DaemonName {
		t.Errorf("Name = %q, want %q", c.Name, DaemonName)
	}
	if c.Binary != "/usr/local/bin/k4a-capture" || len(c.Args) != 2 {
		t.Errorf("Binary/Args = %q %v", c.Binary, c.Args)
	}
	if c.RestartDelay != 3*time.Second {
		t.Errorf("RestartDelay = %v, want 3s", c.RestartDelay)
	}
	if c.MaxRestartAttempts != 4 {
		t.Errorf("MaxRestartAttempts = %d, want 4", c.MaxRestartAttempts)
	}
	if c.HealthCheckInterval != 4*time.Second {
		t.Errorf("HealthCheckInterval = %v, want 4s", c.HealthCheckInterval)
	}
}

func TestFromDaemonConfig_Defaults(t *testing.T) {
	c := FromDaemonConfig(config.DaemonConfig{Binary: "/bin/true"})

	if c.RestartOnFailure {
		t.Error("RestartOnFailure = true, want config value false")
	}
	if c.RestartDelay != 5*time.Second {
		t.Errorf("RestartDelay = %v, want 5s", c.RestartDelay)
	}
	if c.HealthCheckInterval != 30*time.Second {
		t.Errorf("HealthCheckInterval = %v, want 30s", c.HealthCheckInterval)
	}
}

func TestNewDaemon_UsesWatchdog(t *testing.T) {
	if m := NewDaemon(config.DaemonConfig{Binary: "/bin/true"}, nil); m.config.HealthCheckFunc != nil {
		t.Error("HealthCheckFunc set without a watchdog")
	}
	if m := NewDaemon(config.DaemonConfig{Binary: "/bin/true"}, NewFrameWatchdog(time.Second)); m.config.HealthCheckFunc == nil {
		t.Error("HealthCheckFunc not set from watchdog")
	}
}

func frameAt(ts time.Time, open, frameNew bool) tick.Frame {
	return tick.Frame{Time: ts, Snapshot: device.Snapshot{Open: open, FrameNew: frameNew}}
}

func TestFrameWatchdog(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	wd := NewFrameWatchdog(5 * time.Second)
	wd.now = func() time.Time { return now }
	ctx := context.Background()

	// closed sensor is healthy however long it has been
	now = base.Add(time.Hour)
	if err := wd.Check(ctx); err != nil {
		t.Errorf("Check() on closed sensor = %v, want nil", err)
	}

	// opened, no frames yet, within timeout
	wd.ObserveFrame(frameAt(base, true, false))
	now = base.Add(3 * time.Second)
	if err := wd.Check(ctx); err != nil {
		t.Errorf("Check() within timeout = %v, want nil", err)
	}

	// still no frames past timeout
	now = base.Add(6 * time.Second)
	err := wd.Check(ctx)
	if !errors.Is(err, ErrNoFrames) {
		t.Fatalf("Check() after silence = %v, want ErrNoFrames", err)
	}
	if !IsRecoverable(err) {
		t.Error("frame timeout should be recoverable")
	}

	// a frame arrives
	wd.ObserveFrame(frameAt(base.Add(6*time.Second), true, true))
	if err := wd.Check(ctx); err != nil {
		t.Errorf("Check() after new frame = %v, want nil", err)
	}

	// closing clears the alarm
	wd.ObserveFrame(frameAt(base.Add(7*time.Second), false, false))
	now = base.Add(time.Minute)
	if err := wd.Check(ctx); err != nil {
		t.Errorf("Check() after close = %v, want nil", err)
	}
}

func TestFrameWatchdog_ReopenResetsClock(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	wd := NewFrameWatchdog(5 * time.Second)
	wd.now = func() time.Time { return now }

	wd.ObserveFrame(frameAt(base, true, true))
	wd.ObserveFrame(frameAt(base.Add(time.Second), false, false))
	// reopened much later; the old frame must not count against it
	wd.ObserveFrame(frameAt(base.Add(time.Minute), true, false))

	now = base.Add(time.Minute + 2*time.Second)
	if err := wd.Check(context.Background()); err != nil {
		t.Errorf("Check() after reopen = %v, want nil", err)
	}
}

func TestFrameWatchdog_Disabled(t *testing.T) {
	wd := NewFrameWatchdog(0)
	wd.ObserveFrame(frameAt(time.Unix(0, 0), true, false))
	if err := wd.Check(context.Background()); err != nil {
		t.Errorf("disabled Check() = %v, want nil", err)
	}
}
