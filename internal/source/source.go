package source

import (
	"errors"
	"fmt"

	"github.com/nerrad567/depthcam-core/internal/sensor"
)

// Source is the contract every frame source satisfies.
type Source interface {
	Kind() Kind

	// Initialize acquires a frame reader from an open sensor. It is called
	// once; a failed source is discarded by its owner.
	Initialize(s sensor.Native) error

	// Update consumes at most one frame. IsFrameNew afterwards reports
	// whether it did.
	Update() error
	IsFrameNew() bool

	// FrameCount is the number of frames consumed since Initialize.
	FrameCount() uint64

	// Close releases the frame reader.
	Close() error
}

// TextureToggler is implemented by sources that keep a GPU texture.
type TextureToggler interface {
	SetUseTexture(use bool)
	UseTexture() bool
}

// New returns an uninitialised source of the given kind.
func New(kind Kind) (Source, error) {
	switch kind {
	case KindDepth:
		return NewDepth(), nil
	case KindColor:
		return NewColor(), nil
	case KindInfrared:
		return NewInfrared(), nil
	case KindLongExposureInfrared:
		return NewLongExposureInfrared(), nil
	case KindBodyIndex:
		return NewBodyIndex(), nil
	case KindBody:
		return NewBody(), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
}

// base holds the reader and frame bookkeeping shared by all kinds.
type base struct {
	kind     Kind
	reader   sensor.Reader
	calib    sensor.Calibration
	frame    *sensor.Frame
	frameNew bool
	frames   uint64
}

// Kind implements Source.
func (b *base) Kind() Kind {
	return b.kind
}

// Initialize implements Source.
func (b *base) Initialize(s sensor.Native) error {
	if s == nil {
		return ErrNilSensor
	}
	if b.reader != nil {
		return ErrAlreadyInitialized
	}

	r, err := s.OpenReader(b.kind.Stream())
	if err != nil {
		return fmt.Errorf("opening %s reader: %w", b.kind, err)
	}
	b.reader = r
	b.calib = s.Calibration()
	return nil
}

// IsFrameNew implements Source.
func (b *base) IsFrameNew() bool {
	return b.frameNew
}

// FrameCount implements Source.
func (b *base) FrameCount() uint64 {
	return b.frames
}

// Frame returns the most recent frame, or nil before the first one.
func (b *base) Frame() *sensor.Frame {
	return b.frame
}

// Calibration returns the sensor calibration captured at Initialize.
func (b *base) Calibration() sensor.Calibration {
	return b.calib
}

// Close implements Source.
func (b *base) Close() error {
	b.frameNew = false
	if b.reader == nil {
		return nil
	}
	r := b.reader
	b.reader = nil
	if err := r.Close(); err != nil {
		return fmt.Errorf("closing %s reader: %w", b.kind, err)
	}
	return nil
}

// poll fetches at most one frame and updates the newness flag.
func (b *base) poll() error {
	b.frameNew = false
	if b.reader == nil {
		return ErrNotInitialized
	}

	f, err := b.reader.AcquireLatestFrame()
	if errors.Is(err, sensor.ErrNoFrame) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("acquiring %s frame: %w", b.kind, err)
	}
	if f == nil {
		return nil
	}

	b.frame = f
	b.frameNew = true
	b.frames++
	return nil
}
