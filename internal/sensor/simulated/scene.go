package simulated

import (
	"math"
	"time"

	"github.com/nerrad567/depthcam-core/internal/sensor"
)

// Scene geometry in depth camera space, metres. Y is up.
const (
	floorY       = -1.0
	wallZ        = 4.0
	sphereRadius = 0.35
	sphereZ      = 2.2
	swayAmp      = 0.5
	swayRate     = 0.5 // radians per second
	maxRange     = 8.0
)

type surface int

const (
	surfaceNone surface = iota
	surfaceSphere
	surfaceFloor
	surfaceWall
)

// sphereCenter is where the tracked body stands at time ts.
func sphereCenter(ts time.Duration) [3]float64 {
	x := swayAmp * math.Sin(ts.Seconds()*swayRate)
	return [3]float64{x, 0, sphereZ}
}

// cast intersects the ray (dx, dy, 1) from the origin with the scene and
// returns the hit depth (z) and surface.
func cast(dx, dy float64, center [3]float64) (float64, surface) {
	best, hit := math.Inf(1), surfaceNone

	// sphere: |t*d - c|^2 = r^2
	a := dx*dx + dy*dy + 1
	b := -2 * (dx*center[0] + dy*center[1] + center[2])
	c := center[0]*center[0] + center[1]*center[1] + center[2]*center[2] - sphereRadius*sphereRadius
	if disc := b*b - 4*a*c; disc >= 0 {
		if t := (-b - math.Sqrt(disc)) / (2 * a); t > 0 && t < best {
			best, hit = t, surfaceSphere
		}
	}

	if dy < 0 {
		if t := floorY / dy; t > 0 && t < best {
			best, hit = t, surfaceFloor
		}
	}

	if wallZ < best {
		best, hit = wallZ, surfaceWall
	}

	if best > maxRange {
		return 0, surfaceNone
	}
	return best, hit
}

func (d *Device) render(s sensor.Stream, ts time.Duration) *sensor.Frame {
	switch s {
	case sensor.StreamColor:
		return d.renderColor(ts)
	case sensor.StreamBodyIndex:
		return d.renderBodyIndex(ts)
	case sensor.StreamBody:
		return d.renderBody(ts)
	case sensor.StreamInfrared:
		return d.renderInfrared(ts, 1.0)
	case sensor.StreamLongExposureInfrared:
		return d.renderInfrared(ts, 1.6)
	default:
		return d.renderDepth(ts)
	}
}

// eachDepthPixel calls fn with the cast result for every depth pixel.
func (d *Device) eachDepthPixel(ts time.Duration, fn func(i int, z float64, hit surface)) {
	in := d.calib.Depth
	center := sphereCenter(ts)
	for v := 0; v < in.Height; v++ {
		dy := -(float64(v) - in.PrincipalY) / in.FocalY
		for u := 0; u < in.Width; u++ {
			dx := (float64(u) - in.PrincipalX) / in.FocalX
			z, hit := cast(dx, dy, center)
			fn(v*in.Width+u, z, hit)
		}
	}
}

func (d *Device) renderDepth(ts time.Duration) *sensor.Frame {
	in := d.calib.Depth
	samples := make([]uint16, in.Width*in.Height)
	d.eachDepthPixel(ts, func(i int, z float64, _ surface) {
		samples[i] = uint16(z * 1000)
	})
	return &sensor.Frame{Stream: sensor.StreamDepth, Width: in.Width, Height: in.Height, Samples: samples}
}

func (d *Device) renderInfrared(ts time.Duration, gain float64) *sensor.Frame {
	in := d.calib.Depth
	stream := sensor.StreamInfrared
	if gain > 1 {
		stream = sensor.StreamLongExposureInfrared
	}
	samples := make([]uint16, in.Width*in.Height)
	d.eachDepthPixel(ts, func(i int, z float64, _ surface) {
		if z == 0 {
			return
		}
		samples[i] = uint16(math.Min(65535, gain*20000/(z*z)))
	})
	return &sensor.Frame{Stream: stream, Width: in.Width, Height: in.Height, Samples: samples}
}

func (d *Device) renderBodyIndex(ts time.Duration) *sensor.Frame {
	in := d.calib.Depth
	px := make([]byte, in.Width*in.Height)
	d.eachDepthPixel(ts, func(i int, _ float64, hit surface) {
		if hit == surfaceSphere {
			px[i] = 0
		} else {
			px[i] = sensor.NoBody
		}
	})
	return &sensor.Frame{Stream: sensor.StreamBodyIndex, Width: in.Width, Height: in.Height, Pixels: px}
}

func (d *Device) renderColor(ts time.Duration) *sensor.Frame {
	in := d.calib.Color
	center := sphereCenter(ts)
	off := d.calib.ColorOffset
	// seen from the colour camera the body shifts by the camera offset
	rel := [3]float64{center[0] - off[0], center[1] - off[1], center[2] - off[2]}

	px := make([]byte, in.Width*in.Height*4)
	for v := 0; v < in.Height; v++ {
		dy := -(float64(v) - in.PrincipalY) / in.FocalY
		for u := 0; u < in.Width; u++ {
			dx := (float64(u) - in.PrincipalX) / in.FocalX
			z, hit := cast(dx, dy, rel)
			r, g, b := shade(hit, dx*z, z)
			i := (v*in.Width + u) * 4
			px[i], px[i+1], px[i+2], px[i+3] = r, g, b, 255
		}
	}
	return &sensor.Frame{Stream: sensor.StreamColor, Width: in.Width, Height: in.Height, Pixels: px}
}

// shade colours a hit point: orange body, checkered floor, blue wall.
func shade(hit surface, x, z float64) (uint8, uint8, uint8) {
	switch hit {
	case surfaceSphere:
		return 230, 140, 60
	case surfaceFloor:
		if (int(math.Floor(x*2))+int(math.Floor(z*2)))%2 == 0 {
			return 90, 90, 90
		}
		return 140, 140, 140
	case surfaceWall:
		return 60, 90, uint8(160 + 40*math.Sin(x))
	default:
		return 0, 0, 0
	}
}

// skeleton is a standing pose relative to the body centre.
var skeleton = [sensor.JointCount][3]float64{
	sensor.JointSpineBase:     {0, -0.10, 0},
	sensor.JointSpineMid:      {0, 0.15, 0},
	sensor.JointNeck:          {0, 0.45, 0},
	sensor.JointHead:          {0, 0.60, 0},
	sensor.JointShoulderLeft:  {-0.18, 0.38, 0},
	sensor.JointElbowLeft:     {-0.25, 0.12, 0},
	sensor.JointWristLeft:     {-0.28, -0.10, 0},
	sensor.JointHandLeft:      {-0.29, -0.17, 0},
	sensor.JointShoulderRight: {0.18, 0.38, 0},
	sensor.JointElbowRight:    {0.25, 0.12, 0},
	sensor.JointWristRight:    {0.28, -0.10, 0},
	sensor.JointHandRight:     {0.29, -0.17, 0},
	sensor.JointHipLeft:       {-0.09, -0.14, 0},
	sensor.JointKneeLeft:      {-0.10, -0.55, 0},
	sensor.JointAnkleLeft:     {-0.10, -0.92, 0},
	sensor.JointFootLeft:      {-0.10, -0.98, -0.08},
	sensor.JointHipRight:      {0.09, -0.14, 0},
	sensor.JointKneeRight:     {0.10, -0.55, 0},
	sensor.JointAnkleRight:    {0.10, -0.92, 0},
	sensor.JointFootRight:     {0.10, -0.98, -0.08},
	sensor.JointSpineShoulder: {0, 0.38, 0},
	sensor.JointHandTipLeft:   {-0.30, -0.25, 0},
	sensor.JointThumbLeft:     {-0.27, -0.19, -0.03},
	sensor.JointHandTipRight:  {0.30, -0.25, 0},
	sensor.JointThumbRight:    {0.27, -0.19, -0.03},
}

func (d *Device) renderBody(ts time.Duration) *sensor.Frame {
	center := sphereCenter(ts)
	body := sensor.Body{TrackingID: 72057594037927936, Tracked: true}
	for j, off := range skeleton {
		body.Joints[j] = sensor.Joint{
			Position: [3]float64{center[0] + off[0], center[1] + off[1], center[2] + off[2]},
			Tracked:  true,
		}
	}
	return &sensor.Frame{
		Stream:         sensor.StreamBody,
		Bodies:         []sensor.Body{body},
		FloorClipPlane: [4]float64{0, 1, 0, -floorY},
	}
}
