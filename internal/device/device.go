package device

import (
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/depthcam-core/internal/gfx"
	"github.com/nerrad567/depthcam-core/internal/render"
	"github.com/nerrad567/depthcam-core/internal/sensor"
	"github.com/nerrad567/depthcam-core/internal/source"
)

// Logger defines the logging interface used by the Device.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Device owns one sensor handle and the sources created from it.
type Device struct {
	handle   *sensor.Handle
	sources  *Registry
	frameNew bool

	logger Logger
	events EventSink
	now    func() time.Time
}

// New creates a closed device that discovers its sensor through sdk.
func New(sdk sensor.SDK) *Device {
	return &Device{
		handle:  sensor.NewHandle(sdk),
		sources: NewRegistry(),
		logger:  noopLogger{},
		events:  noopSink{},
		now:     time.Now,
	}
}

// SetLogger sets the logger for the device and its sensor handle.
func (d *Device) SetLogger(logger Logger) {
	d.logger = logger
	d.handle.SetLogger(logger)
}

// SetEventSink sets where lifecycle events are recorded.
func (d *Device) SetEventSink(sink EventSink) {
	if sink == nil {
		sink = noopSink{}
	}
	d.events = sink
}

func (d *Device) emit(t EventType, kind string, detail string) {
	d.events.RecordEvent(Event{Type: t, Kind: kind, Detail: detail, Time: d.now()})
}

// Open discovers and opens the default sensor. Failures are logged and
// leave the device closed. Opening an open device does nothing.
func (d *Device) Open() {
	if d.handle.Native() != nil {
		return
	}

	if err := d.handle.Open(); err != nil {
		msg := "failed to open sensor"
		if errors.Is(err, sensor.ErrNoSensor) {
			msg = "failed to find sensor"
		}
		d.logger.Error(msg, "error", err)
		d.emit(EventOpenFailed, "", err.Error())
		return
	}

	d.logger.Info("sensor opened")
	d.emit(EventOpen, "", "")
}

// Close releases every source, then closes the sensor. Sources must be
// initialised again after the next Open. Closing a closed device does
// nothing.
func (d *Device) Close() {
	if d.handle.Native() == nil {
		return
	}

	for _, s := range d.sources.order {
		if err := s.Close(); err != nil {
			d.logger.Warn("failed to close source", "kind", s.Kind(), "error", err)
		}
	}
	released := d.sources.Len()
	d.sources.Reset()
	d.frameNew = false

	if err := d.handle.Close(); err != nil {
		d.logger.Error("failed to close sensor", "error", err)
	}

	d.logger.Info("sensor closed", "sources_released", released)
	d.emit(EventClose, "", fmt.Sprintf("%d sources released", released))
}

// IsOpen reports whether the sensor is open. An SDK query failure is
// logged and reported as closed.
func (d *Device) IsOpen() bool {
	return d.handle.IsOpen()
}

// Sensor returns the native sensor, or nil when closed.
func (d *Device) Sensor() sensor.Native {
	return d.handle.Native()
}

// Sources returns every source in insertion order.
func (d *Device) Sources() []source.Source {
	return d.sources.All()
}

// InitSource creates and initialises a source of the given kind.
//
// It returns nil when the sensor is not open or initialisation fails,
// leaving the registry unchanged. When a source of that kind already
// exists it logs a warning and returns the existing one.
func (d *Device) InitSource(kind source.Kind) source.Source {
	if !d.IsOpen() {
		d.logger.Error("sensor is not open", "kind", kind, "error", ErrSensorNotOpen)
		d.emit(EventSourceInitFailed, kind.String(), ErrSensorNotOpen.Error())
		return nil
	}

	if existing := d.sources.Lookup(kind); existing != nil {
		d.logger.Warn("source already initialised", "kind", kind)
		d.emit(EventSourceDuplicate, kind.String(), "")
		return existing
	}

	src, err := d.newSource(kind)
	if err != nil {
		d.logger.Error("failed to initialise source", "kind", kind, "error", err)
		d.emit(EventSourceInitFailed, kind.String(), err.Error())
		return nil
	}

	if err := d.sources.Insert(src); err != nil {
		d.logger.Error("failed to register source", "kind", kind, "error", err)
		_ = src.Close() //nolint:errcheck // discarding the source anyway
		return nil
	}

	d.logger.Info("source initialised", "kind", kind)
	d.emit(EventSourceInit, kind.String(), "")
	return src
}

// newSource constructs and initialises a source, converting a panic in the
// source or SDK into an error.
func (d *Device) newSource(kind source.Kind) (src source.Source, err error) {
	defer func() {
		if r := recover(); r != nil {
			src = nil
			err = fmt.Errorf("%w: panic: %v", ErrSourceInitFailed, r)
		}
	}()

	src, err = source.New(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceInitFailed, err)
	}
	if err := src.Initialize(d.handle.Native()); err != nil {
		_ = src.Close() //nolint:errcheck // partially constructed
		return nil, fmt.Errorf("%w: %w", ErrSourceInitFailed, err)
	}
	return src, nil
}

func initAs[T source.Source](d *Device, kind source.Kind) T {
	s, _ := d.InitSource(kind).(T)
	return s
}

// InitDepthSource initialises the depth source. See InitSource.
func (d *Device) InitDepthSource() *source.Depth {
	return initAs[*source.Depth](d, source.KindDepth)
}

// InitColorSource initialises the colour source. See InitSource.
func (d *Device) InitColorSource() *source.Color {
	return initAs[*source.Color](d, source.KindColor)
}

// InitInfraredSource initialises the infrared source. See InitSource.
func (d *Device) InitInfraredSource() *source.Infrared {
	return initAs[*source.Infrared](d, source.KindInfrared)
}

// InitLongExposureInfraredSource initialises the long exposure infrared
// source. See InitSource.
func (d *Device) InitLongExposureInfraredSource() *source.LongExposureInfrared {
	return initAs[*source.LongExposureInfrared](d, source.KindLongExposureInfrared)
}

// InitBodyIndexSource initialises the body index source. See InitSource.
func (d *Device) InitBodyIndexSource() *source.BodyIndex {
	return initAs[*source.BodyIndex](d, source.KindBodyIndex)
}

// InitBodySource initialises the body source. See InitSource.
func (d *Device) InitBodySource() *source.Body {
	return initAs[*source.Body](d, source.KindBody)
}

// Source returns the source of the given kind, or nil.
func (d *Device) Source(kind source.Kind) source.Source {
	return d.sources.Lookup(kind)
}

// DepthSource returns the depth source, or nil.
func (d *Device) DepthSource() *source.Depth {
	return lookupAs[*source.Depth](d.sources, source.KindDepth)
}

// ColorSource returns the colour source, or nil.
func (d *Device) ColorSource() *source.Color {
	return lookupAs[*source.Color](d.sources, source.KindColor)
}

// InfraredSource returns the infrared source, or nil.
func (d *Device) InfraredSource() *source.Infrared {
	return lookupAs[*source.Infrared](d.sources, source.KindInfrared)
}

// LongExposureInfraredSource returns the long exposure infrared source, or nil.
func (d *Device) LongExposureInfraredSource() *source.LongExposureInfrared {
	return lookupAs[*source.LongExposureInfrared](d.sources, source.KindLongExposureInfrared)
}

// BodyIndexSource returns the body index source, or nil.
func (d *Device) BodyIndexSource() *source.BodyIndex {
	return lookupAs[*source.BodyIndex](d.sources, source.KindBodyIndex)
}

// BodySource returns the body source, or nil.
func (d *Device) BodySource() *source.Body {
	return lookupAs[*source.Body](d.sources, source.KindBody)
}

// Update advances every source in insertion order. IsFrameNew afterwards
// is true if any source consumed a frame. A failing source is logged and
// the rest of the batch still runs.
func (d *Device) Update() {
	d.frameNew = false
	for _, s := range d.sources.order {
		d.updateSource(s)
		d.frameNew = d.frameNew || s.IsFrameNew()
	}
}

func (d *Device) updateSource(s source.Source) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("source update panicked", "kind", s.Kind(), "panic", r)
		}
	}()
	if err := s.Update(); err != nil {
		d.logger.Error("failed to update source", "kind", s.Kind(), "error", err)
	}
}

// IsFrameNew reports whether the last Update consumed any new frame.
func (d *Device) IsFrameNew() bool {
	return d.frameNew
}

// SetUseTextures toggles texture upload on every source that has a
// texture. Other sources are skipped.
func (d *Device) SetUseTextures(use bool) {
	for _, s := range d.sources.order {
		if tt, ok := s.(source.TextureToggler); ok {
			tt.SetUseTexture(use)
		}
	}
}

// DrawWorld draws the point cloud, skeletons, floor and camera frustums.
// It reads the device and never changes it.
func (d *Device) DrawWorld(g gfx.Renderer) {
	render.DrawWorld(g, d, d.logger)
}
