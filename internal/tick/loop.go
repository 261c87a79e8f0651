package tick

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/depthcam-core/internal/device"
	"github.com/nerrad567/depthcam-core/internal/gfx"
	"github.com/nerrad567/depthcam-core/internal/source"
)

// defaultInterval is roughly one frame at 30 fps.
const defaultInterval = 33 * time.Millisecond

// Logger defines the logging interface used by the loop.
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

// Options configures a Loop.
type Options struct {
	Interval time.Duration
	// Render records DrawWorld each tick while a depth source exists.
	Render bool
	// GLMajor is reported to the renderer. 0 means no window.
	GLMajor int
}

type command struct {
	fn    func(*device.Device) error
	reply chan error
}

// Loop owns a Device and drives it from a single goroutine.
//
// Thread Safety: Submit, Last and the command helpers are safe for
// concurrent use. AddObserver and SetLogger must be called before Run.
type Loop struct {
	dev  *device.Device
	opts Options
	rec  *gfx.Recorder

	cmds      chan command
	done      chan struct{}
	running   atomic.Bool
	stopOnce  sync.Once
	observers []Observer
	last      atomic.Pointer[Frame]
	seq       uint64

	logger Logger
	now    func() time.Time
}

// New creates a loop for dev. A zero interval uses 33ms.
func New(dev *device.Device, opts Options) *Loop {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	return &Loop{
		dev:    dev,
		opts:   opts,
		rec:    gfx.NewRecorder(opts.GLMajor),
		cmds:   make(chan command),
		done:   make(chan struct{}),
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the loop.
func (l *Loop) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	l.logger = logger
}

// AddObserver registers an observer. Nil observers are ignored.
func (l *Loop) AddObserver(o Observer) {
	if o != nil {
		l.observers = append(l.observers, o)
	}
}

// Last returns the most recent frame, or false before the first tick.
func (l *Loop) Last() (Frame, bool) {
	f := l.last.Load()
	if f == nil {
		return Frame{}, false
	}
	return *f, true
}

// Run ticks until ctx is cancelled, then closes the device and returns nil.
// Commands submitted while the loop runs are executed between ticks.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer l.stop()

	ticker := time.NewTicker(l.opts.Interval)
	defer ticker.Stop()

	l.logger.Info("tick loop started", "interval", l.opts.Interval, "render", l.opts.Render)
	for {
		select {
		case <-ctx.Done():
			l.dev.Close()
			l.logger.Info("tick loop stopped", "ticks", l.seq)
			return nil
		case c := <-l.cmds:
			c.reply <- l.exec(c.fn)
		case <-ticker.C:
			l.step()
		}
	}
}

func (l *Loop) stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// exec runs fn, converting a panic into an error so one bad command cannot
// take the loop down.
func (l *Loop) exec(fn func(*device.Device) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("tick command panic recovered", "panic", r)
			err = fmt.Errorf("tick: command panicked: %v", r)
		}
	}()
	return fn(l.dev)
}

// step runs one tick.
func (l *Loop) step() {
	start := l.now()
	l.dev.Update()

	var scene *gfx.Scene
	if l.opts.Render && l.dev.DepthSource() != nil {
		l.rec.Reset()
		l.dev.DrawWorld(l.rec)
		if err := l.rec.Balanced(); err != nil {
			l.logger.Warn("world render left state pushed", "error", err)
		}
		s := l.rec.Scene()
		scene = &s
	}

	l.seq++
	f := &Frame{
		Seq:      l.seq,
		Time:     start,
		Took:     l.now().Sub(start),
		Snapshot: l.dev.Snapshot(),
		Scene:    scene,
	}
	l.last.Store(f)

	for _, o := range l.observers {
		l.notify(o, *f)
	}
}

func (l *Loop) notify(o Observer, f Frame) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("tick observer panic recovered", "panic", r)
		}
	}()
	o.ObserveFrame(f)
}

// Submit runs fn on the loop goroutine and returns its error.
//
// Parameters:
//   - ctx: Bounds the wait for the loop to pick up and finish the command
//   - fn: Runs with exclusive access to the device
//
// Returns:
//   - error: fn's error, ctx.Err(), or ErrStopped once Run has returned
func (l *Loop) Submit(ctx context.Context, fn func(*device.Device) error) error {
	c := command{fn: fn, reply: make(chan error, 1)}
	select {
	case l.cmds <- c:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Open opens the sensor and initialises kinds in order. Kinds that fail
// to initialise are logged by the device and skipped.
func (l *Loop) Open(ctx context.Context, kinds ...source.Kind) error {
	return l.Submit(ctx, func(d *device.Device) error {
		d.Open()
		if !d.IsOpen() {
			return ErrOpenFailed
		}
		for _, k := range kinds {
			d.InitSource(k)
		}
		return nil
	})
}

// Close closes the sensor and releases all sources.
func (l *Loop) Close(ctx context.Context) error {
	return l.Submit(ctx, func(d *device.Device) error {
		d.Close()
		return nil
	})
}

// InitSource initialises one source. Initialising an existing kind
// succeeds and keeps the existing source.
func (l *Loop) InitSource(ctx context.Context, kind source.Kind) error {
	return l.Submit(ctx, func(d *device.Device) error {
		if !d.IsOpen() {
			return ErrSensorNotOpen
		}
		if d.InitSource(kind) == nil {
			return fmt.Errorf("%w: %s", ErrInitFailed, kind)
		}
		return nil
	})
}

// SetUseTextures toggles texture upload on every textured source.
func (l *Loop) SetUseTextures(ctx context.Context, use bool) error {
	return l.Submit(ctx, func(d *device.Device) error {
		d.SetUseTextures(use)
		return nil
	})
}

// Snapshot reads the device state on the loop goroutine.
func (l *Loop) Snapshot(ctx context.Context) (device.Snapshot, error) {
	var snap device.Snapshot
	err := l.Submit(ctx, func(d *device.Device) error {
		snap = d.Snapshot()
		return nil
	})
	return snap, err
}
