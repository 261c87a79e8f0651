package sensor

import (
	"fmt"
	"time"
)

// Stream identifies one of the sensor's synchronised frame streams.
type Stream uint8

const (
	StreamDepth Stream = iota
	StreamColor
	StreamInfrared
	StreamLongExposureInfrared
	StreamBodyIndex
	StreamBody
)

// streamNames is indexed by Stream.
var streamNames = [...]string{
	StreamDepth:                "depth",
	StreamColor:                "color",
	StreamInfrared:             "infrared",
	StreamLongExposureInfrared: "long_exposure_infrared",
	StreamBodyIndex:            "body_index",
	StreamBody:                 "body",
}

// Streams returns every stream in declaration order.
func Streams() []Stream {
	return []Stream{
		StreamDepth, StreamColor, StreamInfrared,
		StreamLongExposureInfrared, StreamBodyIndex, StreamBody,
	}
}

// String returns the snake_case stream name.
func (s Stream) String() string {
	if int(s) < len(streamNames) {
		return streamNames[s]
	}
	return fmt.Sprintf("stream(%d)", uint8(s))
}

// Valid reports whether s is a known stream.
func (s Stream) Valid() bool {
	return int(s) < len(streamNames)
}

// SDK discovers sensors. It mirrors the vendor's GetDefaultSensor entry point.
type SDK interface {
	DefaultSensor() (Native, error)
}

// Native is an SDK sensor handle.
type Native interface {
	Open() error
	Close() error
	IsOpen() (bool, error)

	// OpenReader acquires a frame reader for one stream.
	OpenReader(s Stream) (Reader, error)

	// Calibration returns the camera intrinsics and extrinsics.
	Calibration() Calibration
}

// Reader polls one stream for frames.
type Reader interface {
	// AcquireLatestFrame returns the newest frame not yet returned, or
	// ErrNoFrame when none is pending. It never blocks.
	AcquireLatestFrame() (*Frame, error)
	Close() error
}

// Frame is one frame from one stream. Which payload field is set depends on
// the stream:
//
//   - Depth, Infrared, LongExposureInfrared: Samples (16-bit, depth in mm)
//   - Color: Pixels (RGBA)
//   - BodyIndex: Pixels (one byte per pixel, 255 = no body)
//   - Body: Bodies and FloorClipPlane
type Frame struct {
	Stream    Stream
	Sequence  uint64
	Timestamp time.Duration
	Width     int
	Height    int

	Samples []uint16
	Pixels  []byte

	Bodies []Body
	// FloorClipPlane is (a, b, c, d) with a*x + b*y + c*z + d = 0 on the
	// floor and (a, b, c) the upward unit normal, in camera space metres.
	FloorClipPlane [4]float64
}

// NoBody marks body-index pixels that belong to no tracked body.
const NoBody = 0xFF

// JointCount is the number of joints in a skeleton.
const JointCount = 25

// JointType indexes Body.Joints.
type JointType int

// Skeleton joints.
const (
	JointSpineBase JointType = iota
	JointSpineMid
	JointNeck
	JointHead
	JointShoulderLeft
	JointElbowLeft
	JointWristLeft
	JointHandLeft
	JointShoulderRight
	JointElbowRight
	JointWristRight
	JointHandRight
	JointHipLeft
	JointKneeLeft
	JointAnkleLeft
	JointFootLeft
	JointHipRight
	JointKneeRight
	JointAnkleRight
	JointFootRight
	JointSpineShoulder
	JointHandTipLeft
	JointThumbLeft
	JointHandTipRight
	JointThumbRight
)

// Joint is one tracked skeleton joint in camera space metres.
type Joint struct {
	Position [3]float64 `json:"position"`
	Tracked  bool       `json:"tracked"`
}

// Body is one skeleton.
type Body struct {
	TrackingID uint64            `json:"tracking_id"`
	Tracked    bool              `json:"tracked"`
	Joints     [JointCount]Joint `json:"joints"`
}

// Intrinsics describes a pinhole camera.
type Intrinsics struct {
	Width      int     `yaml:"width" json:"width"`
	Height     int     `yaml:"height" json:"height"`
	FocalX     float64 `yaml:"focal_x" json:"focal_x"`
	FocalY     float64 `yaml:"focal_y" json:"focal_y"`
	PrincipalX float64 `yaml:"principal_x" json:"principal_x"`
	PrincipalY float64 `yaml:"principal_y" json:"principal_y"`
	// HFOV and VFOV are the horizontal and vertical fields of view in degrees.
	HFOV float64 `yaml:"hfov" json:"hfov"`
	VFOV float64 `yaml:"vfov" json:"vfov"`
}

// Calibration holds both cameras and the colour camera pose relative to
// the depth camera.
type Calibration struct {
	Depth Intrinsics
	Color Intrinsics
	// ColorOffset is the colour camera position in depth camera space, metres.
	ColorOffset [3]float64
}

// DefaultCalibration returns factory-typical values for a time-of-flight
// depth camera with a 1080p colour camera.
func DefaultCalibration() Calibration {
	return Calibration{
		Depth: Intrinsics{
			Width: 512, Height: 424,
			FocalX: 365.456, FocalY: 365.456,
			PrincipalX: 254.878, PrincipalY: 205.395,
			HFOV: 70.6, VFOV: 60.0,
		},
		Color: Intrinsics{
			Width: 1920, Height: 1080,
			FocalX: 1081.37, FocalY: 1081.37,
			PrincipalX: 959.5, PrincipalY: 539.5,
			HFOV: 84.1, VFOV: 53.8,
		},
		ColorOffset: [3]float64{-0.052, 0, 0},
	}
}

// Scaled returns the intrinsics resized to w x h.
func (in Intrinsics) Scaled(w, h int) Intrinsics {
	if in.Width == 0 || in.Height == 0 {
		return in
	}
	sx := float64(w) / float64(in.Width)
	sy := float64(h) / float64(in.Height)
	out := in
	out.Width, out.Height = w, h
	out.FocalX *= sx
	out.FocalY *= sy
	out.PrincipalX *= sx
	out.PrincipalY *= sy
	return out
}
