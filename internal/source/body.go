package source

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/nerrad567/depthcam-core/internal/gfx"
	"github.com/nerrad567/depthcam-core/internal/sensor"
)

const jointRadius = 0.03

// Bones joins skeleton joints into limbs.
var Bones = [...][2]sensor.JointType{
	// torso
	{sensor.JointHead, sensor.JointNeck},
	{sensor.JointNeck, sensor.JointSpineShoulder},
	{sensor.JointSpineShoulder, sensor.JointSpineMid},
	{sensor.JointSpineMid, sensor.JointSpineBase},
	{sensor.JointSpineShoulder, sensor.JointShoulderLeft},
	{sensor.JointSpineShoulder, sensor.JointShoulderRight},
	{sensor.JointSpineBase, sensor.JointHipLeft},
	{sensor.JointSpineBase, sensor.JointHipRight},
	// left arm
	{sensor.JointShoulderLeft, sensor.JointElbowLeft},
	{sensor.JointElbowLeft, sensor.JointWristLeft},
	{sensor.JointWristLeft, sensor.JointHandLeft},
	{sensor.JointHandLeft, sensor.JointHandTipLeft},
	{sensor.JointWristLeft, sensor.JointThumbLeft},
	// right arm
	{sensor.JointShoulderRight, sensor.JointElbowRight},
	{sensor.JointElbowRight, sensor.JointWristRight},
	{sensor.JointWristRight, sensor.JointHandRight},
	{sensor.JointHandRight, sensor.JointHandTipRight},
	{sensor.JointWristRight, sensor.JointThumbRight},
	// legs
	{sensor.JointHipLeft, sensor.JointKneeLeft},
	{sensor.JointKneeLeft, sensor.JointAnkleLeft},
	{sensor.JointAnkleLeft, sensor.JointFootLeft},
	{sensor.JointHipRight, sensor.JointKneeRight},
	{sensor.JointKneeRight, sensor.JointAnkleRight},
	{sensor.JointAnkleRight, sensor.JointFootRight},
}

// Body tracks skeletons and the floor plane. It has no texture.
type Body struct {
	base
}

// NewBody returns an uninitialised body source.
func NewBody() *Body {
	return &Body{base: base{kind: KindBody}}
}

// Update implements Source.
func (s *Body) Update() error {
	return s.poll()
}

// Bodies returns the skeletons from the latest frame.
func (s *Body) Bodies() []sensor.Body {
	if s.frame == nil {
		return nil
	}
	return s.frame.Bodies
}

// FloorClipPlane returns the latest floor plane (a, b, c, d).
func (s *Body) FloorClipPlane() [4]float64 {
	if s.frame == nil {
		return [4]float64{}
	}
	return s.frame.FloorClipPlane
}

// DrawWorld draws every tracked skeleton as bones and joints in depth
// camera space.
func (s *Body) DrawWorld(g gfx.Renderer) {
	for i, b := range s.Bodies() {
		if !b.Tracked {
			continue
		}
		g.PushStyle()
		g.SetColor(bodyPalette[i%len(bodyPalette)])
		for _, bone := range Bones {
			from, to := b.Joints[bone[0]], b.Joints[bone[1]]
			if from.Tracked && to.Tracked {
				g.DrawLine(jointVec(from), jointVec(to))
			}
		}
		for _, j := range b.Joints {
			if j.Tracked {
				g.DrawSphere(jointVec(j), jointRadius)
			}
		}
		g.PopStyle()
	}
}

func jointVec(j sensor.Joint) gfx.Vec3 {
	return gfx.Vec3{X: j.Position[0], Y: j.Position[1], Z: j.Position[2]}
}

// FloorTransform returns the transform that maps the XZ plane at the
// origin onto the floor: +Y is rotated onto the floor normal and the
// origin moved to the floor point nearest the camera. Without a valid
// floor plane it is the identity.
func (s *Body) FloorTransform() gfx.Matrix4 {
	return floorTransform(s.FloorClipPlane())
}

func floorTransform(plane [4]float64) gfx.Matrix4 {
	n := mat.NewVecDense(3, []float64{plane[0], plane[1], plane[2]})
	norm := mat.Norm(n, 2)
	if norm < 1e-9 {
		return gfx.Identity()
	}
	n.ScaleVec(1/norm, n)
	d := plane[3] / norm

	rot := rotationFromY(n)

	var m gfx.Matrix4
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[r*4+c] = rot.At(r, c)
		}
		// the plane point closest to the origin is -d*n
		m[r*4+3] = -d * n.AtVec(r)
	}
	m[15] = 1
	return m
}

// rotationFromY returns the rotation taking +Y onto the unit vector n,
// using Rodrigues' formula R = I + K + K²(1-c)/s².
func rotationFromY(n *mat.VecDense) *mat.Dense {
	y := mat.NewVecDense(3, []float64{0, 1, 0})
	c := mat.Dot(y, n)

	// axis v = y × n
	vx, vy, vz := n.AtVec(2), 0.0, -n.AtVec(0)
	s2 := vx*vx + vy*vy + vz*vz

	rot := mat.NewDense(3, 3, nil)
	if s2 < 1e-18 {
		if c > 0 {
			rot.Copy(identity3())
		} else {
			// upside down: half turn about X
			rot.Copy(mat.NewDense(3, 3, []float64{1, 0, 0, 0, -1, 0, 0, 0, -1}))
		}
		return rot
	}

	k := mat.NewDense(3, 3, []float64{
		0, -vz, vy,
		vz, 0, -vx,
		-vy, vx, 0,
	})
	var k2 mat.Dense
	k2.Mul(k, k)
	k2.Scale((1-c)/s2, &k2)

	rot.Add(identity3(), k)
	rot.Add(rot, &k2)
	return rot
}

func identity3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

// floorHeight is the camera height above the floor for a plane, used by
// status reporting.
func floorHeight(plane [4]float64) float64 {
	norm := math.Sqrt(plane[0]*plane[0] + plane[1]*plane[1] + plane[2]*plane[2])
	if norm == 0 {
		return 0
	}
	return plane[3] / norm
}

// CameraHeight returns the camera's height above the tracked floor in
// metres, or zero before the first body frame.
func (s *Body) CameraHeight() float64 {
	return floorHeight(s.FloorClipPlane())
}
