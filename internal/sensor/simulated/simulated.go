// Package simulated is a sensor SDK that renders a deterministic synthetic
// scene: a person-sized sphere swaying in front of a back wall, standing on
// a level floor one metre below the camera.
//
// Frames are produced on demand when a reader is polled and the frame
// period has elapsed, so the backend never starts goroutines.
package simulated

import (
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/depthcam-core/internal/sensor"
)

// ErrNoDevice is returned by DefaultSensor when discovery failure is injected.
var ErrNoDevice = errors.New("simulated: no device attached")

// ErrOpenRefused is returned by Open when open failure is injected.
var ErrOpenRefused = errors.New("simulated: device refused open")

// Config controls frame size, rate and failure injection.
type Config struct {
	FPS          int
	DepthWidth   int
	DepthHeight  int
	ColorWidth   int
	ColorHeight  int
	FailDiscover bool
	FailOpen     bool

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// DefaultConfig returns 30 fps with full depth and half-resolution colour.
func DefaultConfig() Config {
	return Config{
		FPS:         30,
		DepthWidth:  512,
		DepthHeight: 424,
		ColorWidth:  960,
		ColorHeight: 540,
	}
}

// SDK implements sensor.SDK.
type SDK struct {
	cfg Config
}

// New creates a simulated SDK. Zero fields in cfg take DefaultConfig values.
func New(cfg Config) *SDK {
	def := DefaultConfig()
	if cfg.FPS <= 0 {
		cfg.FPS = def.FPS
	}
	if cfg.DepthWidth <= 0 || cfg.DepthHeight <= 0 {
		cfg.DepthWidth, cfg.DepthHeight = def.DepthWidth, def.DepthHeight
	}
	if cfg.ColorWidth <= 0 || cfg.ColorHeight <= 0 {
		cfg.ColorWidth, cfg.ColorHeight = def.ColorWidth, def.ColorHeight
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SDK{cfg: cfg}
}

// DefaultSensor implements sensor.SDK.
func (s *SDK) DefaultSensor() (sensor.Native, error) {
	if s.cfg.FailDiscover {
		return nil, ErrNoDevice
	}
	base := sensor.DefaultCalibration()
	calib := sensor.Calibration{
		Depth:       base.Depth.Scaled(s.cfg.DepthWidth, s.cfg.DepthHeight),
		Color:       base.Color.Scaled(s.cfg.ColorWidth, s.cfg.ColorHeight),
		ColorOffset: base.ColorOffset,
	}
	return &Device{cfg: s.cfg, calib: calib}, nil
}

// Device is a simulated sensor.Native.
type Device struct {
	cfg   Config
	calib sensor.Calibration
	open  bool
	start time.Time
}

// Open implements sensor.Native.
func (d *Device) Open() error {
	if d.cfg.FailOpen {
		return ErrOpenRefused
	}
	d.open = true
	d.start = d.cfg.Now()
	return nil
}

// Close implements sensor.Native.
func (d *Device) Close() error {
	d.open = false
	return nil
}

// IsOpen implements sensor.Native.
func (d *Device) IsOpen() (bool, error) {
	return d.open, nil
}

// Calibration implements sensor.Native.
func (d *Device) Calibration() sensor.Calibration {
	return d.calib
}

// OpenReader implements sensor.Native.
func (d *Device) OpenReader(s sensor.Stream) (sensor.Reader, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", sensor.ErrUnknownStream, s)
	}
	if !d.open {
		return nil, sensor.ErrNotOpen
	}
	return &reader{dev: d, stream: s}, nil
}

func (d *Device) period() time.Duration {
	return time.Second / time.Duration(d.cfg.FPS)
}

// reader emits at most one frame per period.
type reader struct {
	dev    *Device
	stream sensor.Stream
	last   uint64
	closed bool
}

func (r *reader) AcquireLatestFrame() (*sensor.Frame, error) {
	if r.closed || !r.dev.open {
		return nil, sensor.ErrNotOpen
	}

	elapsed := r.dev.cfg.Now().Sub(r.dev.start)
	if elapsed < 0 {
		return nil, sensor.ErrNoFrame
	}
	seq := uint64(elapsed/r.dev.period()) + 1
	if seq <= r.last {
		return nil, sensor.ErrNoFrame
	}
	r.last = seq

	ts := time.Duration(seq-1) * r.dev.period()
	f := r.dev.render(r.stream, ts)
	f.Sequence = seq
	f.Timestamp = ts
	return f, nil
}

func (r *reader) Close() error {
	r.closed = true
	return nil
}
