// Package sensortest provides in-memory sensor SDK doubles for tests.
package sensortest

import (
	"errors"

	"github.com/nerrad567/depthcam-core/internal/sensor"
)

// SDK is a fake sensor.SDK returning a fixed Native.
type SDK struct {
	Native *Native
	Err    error
	// Panic makes DefaultSensor panic with this value when non-nil.
	Panic any

	Calls int
}

// NewSDK returns an SDK whose sensor opens successfully and serves the
// default calibration.
func NewSDK() *SDK {
	return &SDK{Native: NewNative()}
}

// DefaultSensor implements sensor.SDK.
func (s *SDK) DefaultSensor() (sensor.Native, error) {
	s.Calls++
	if s.Panic != nil {
		panic(s.Panic)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Native == nil {
		return nil, nil
	}
	return s.Native, nil
}

// Native is a fake sensor.Native. Readers are created lazily per stream and
// can be fed frames with Push before or after a source opens them.
type Native struct {
	OpenErr    error
	CloseErr   error
	IsOpenErr  error
	ReaderErrs map[sensor.Stream]error
	Calib      sensor.Calibration

	Opened     bool
	OpenCalls  int
	CloseCalls int

	readers map[sensor.Stream]*Reader
}

// NewNative returns a closed fake sensor.
func NewNative() *Native {
	return &Native{
		ReaderErrs: make(map[sensor.Stream]error),
		Calib:      sensor.DefaultCalibration(),
		readers:    make(map[sensor.Stream]*Reader),
	}
}

// Open implements sensor.Native.
func (n *Native) Open() error {
	n.OpenCalls++
	if n.OpenErr != nil {
		return n.OpenErr
	}
	n.Opened = true
	return nil
}

// Close implements sensor.Native.
func (n *Native) Close() error {
	n.CloseCalls++
	n.Opened = false
	return n.CloseErr
}

// IsOpen implements sensor.Native.
func (n *Native) IsOpen() (bool, error) {
	if n.IsOpenErr != nil {
		return false, n.IsOpenErr
	}
	return n.Opened, nil
}

// OpenReader implements sensor.Native.
func (n *Native) OpenReader(s sensor.Stream) (sensor.Reader, error) {
	if err := n.ReaderErrs[s]; err != nil {
		return nil, err
	}
	if !n.Opened {
		return nil, sensor.ErrNotOpen
	}
	r := n.Reader(s)
	r.Opened = true
	r.Closed = false
	return r, nil
}

// Calibration implements sensor.Native.
func (n *Native) Calibration() sensor.Calibration {
	return n.Calib
}

// Reader returns the fake reader for s, creating it if needed.
func (n *Native) Reader(s sensor.Stream) *Reader {
	r, ok := n.readers[s]
	if !ok {
		r = &Reader{stream: s}
		n.readers[s] = r
	}
	return r
}

// Push queues a frame on the reader for the frame's stream.
func (n *Native) Push(f *sensor.Frame) {
	n.Reader(f.Stream).Push(f)
}

// Reader is a fake sensor.Reader backed by a FIFO of frames.
type Reader struct {
	stream sensor.Stream
	queue  []*sensor.Frame
	seq    uint64

	// Err is returned by the next AcquireLatestFrame call, then cleared.
	Err    error
	Opened bool
	Closed bool
	Polls  int
}

// Push queues a frame. A zero Sequence is filled in.
func (r *Reader) Push(f *sensor.Frame) {
	r.seq++
	if f.Sequence == 0 {
		f.Sequence = r.seq
	}
	f.Stream = r.stream
	r.queue = append(r.queue, f)
}

// AcquireLatestFrame implements sensor.Reader. Like real readers it skips
// to the newest queued frame.
func (r *Reader) AcquireLatestFrame() (*sensor.Frame, error) {
	r.Polls++
	if r.Err != nil {
		err := r.Err
		r.Err = nil
		return nil, err
	}
	if r.Closed {
		return nil, errors.New("sensortest: reader closed")
	}
	if len(r.queue) == 0 {
		return nil, sensor.ErrNoFrame
	}
	f := r.queue[len(r.queue)-1]
	r.queue = r.queue[:0]
	return f, nil
}

// Close implements sensor.Reader.
func (r *Reader) Close() error {
	r.Closed = true
	return nil
}

// DepthFrame returns a w x h depth frame with every sample set to mm.
func DepthFrame(w, h int, mm uint16) *sensor.Frame {
	samples := make([]uint16, w*h)
	for i := range samples {
		samples[i] = mm
	}
	return &sensor.Frame{Stream: sensor.StreamDepth, Width: w, Height: h, Samples: samples}
}

// ColorFrame returns a w x h RGBA frame filled with one colour.
func ColorFrame(w, h int, r, g, b uint8) *sensor.Frame {
	px := make([]byte, w*h*4)
	for i := 0; i < len(px); i += 4 {
		px[i], px[i+1], px[i+2], px[i+3] = r, g, b, 255
	}
	return &sensor.Frame{Stream: sensor.StreamColor, Width: w, Height: h, Pixels: px}
}

// BodyFrame returns a body frame with one tracked skeleton standing on a
// level floor 1 m below the camera.
func BodyFrame() *sensor.Frame {
	var b sensor.Body
	b.TrackingID = 72057594037928000
	b.Tracked = true
	for i := range b.Joints {
		b.Joints[i] = sensor.Joint{
			Position: [3]float64{0, 0.8 - 0.07*float64(i%12), 2.0},
			Tracked:  true,
		}
	}
	return &sensor.Frame{
		Stream:         sensor.StreamBody,
		Bodies:         []sensor.Body{b},
		FloorClipPlane: [4]float64{0, 1, 0, 1},
	}
}
