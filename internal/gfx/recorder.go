package gfx

import (
	"errors"
	"fmt"
)

// Recorded operation names.
const (
	OpPushPointAttrib   = "push_point_attrib"
	OpPopPointAttrib    = "pop_point_attrib"
	OpPointSize         = "point_size"
	OpEnablePointSmooth = "enable_point_smooth"
	OpPushStyle         = "push_style"
	OpPopStyle          = "pop_style"
	OpSetColor          = "set_color"
	OpNoFill            = "no_fill"
	OpSetLineWidth      = "set_line_width"
	OpPushMatrix        = "push_matrix"
	OpPopMatrix         = "pop_matrix"
	OpRotate            = "rotate"
	OpMultMatrix        = "mult_matrix"
	OpDrawGridPlane     = "draw_grid_plane"
	OpDrawLine          = "draw_line"
	OpDrawSphere        = "draw_sphere"
	OpBindTexture       = "bind_texture"
	OpUnbindTexture     = "unbind_texture"
	OpDrawVertices      = "draw_vertices"
	OpDrawWireframe     = "draw_wireframe"
	OpDrawFaces         = "draw_faces"
)

// ErrUnbalanced is returned by Recorder.Balanced when a stack was left
// pushed or popped below zero.
var ErrUnbalanced = errors.New("gfx: unbalanced state stack")

// Call is one recorded drawing call.
//
// Mesh draws record the vertex and face counts as Args; texture calls
// record the texture name as Ref.
type Call struct {
	Op   string    `json:"op"`
	Args []float64 `json:"args,omitempty"`
	Ref  string    `json:"ref,omitempty"`
}

// Scene is the ordered list of calls recorded for one frame.
type Scene struct {
	Calls []Call `json:"calls"`
}

// Ops returns just the operation names, in order.
func (s Scene) Ops() []string {
	ops := make([]string, len(s.Calls))
	for i, c := range s.Calls {
		ops[i] = c.Op
	}
	return ops
}

// Count returns how many times op was recorded.
func (s Scene) Count(op string) int {
	n := 0
	for _, c := range s.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// recorderWindow reports a fixed GL version.
type recorderWindow struct {
	settings WindowSettings
}

func (w recorderWindow) Settings() WindowSettings { return w.settings }

// Recorder is a Renderer that records calls instead of drawing them.
//
// Not safe for concurrent use; take a copy with Scene to share results.
type Recorder struct {
	window Window
	calls  []Call

	styleDepth  int
	matrixDepth int
	pointDepth  int
	underflow   bool
}

// NewRecorder creates a recorder whose window reports the given GL major
// version. A glMajor of 0 or less means no window is current.
func NewRecorder(glMajor int) *Recorder {
	r := &Recorder{}
	if glMajor > 0 {
		r.window = recorderWindow{settings: WindowSettings{GLMajor: glMajor}}
	}
	return r
}

// Reset discards recorded calls and stack depths.
func (r *Recorder) Reset() {
	r.calls = r.calls[:0]
	r.styleDepth, r.matrixDepth, r.pointDepth = 0, 0, 0
	r.underflow = false
}

// Scene returns a copy of the calls recorded since the last Reset.
func (r *Recorder) Scene() Scene {
	calls := make([]Call, len(r.calls))
	copy(calls, r.calls)
	return Scene{Calls: calls}
}

// Balanced reports whether every stack push has been matched by a pop.
func (r *Recorder) Balanced() error {
	if r.underflow {
		return fmt.Errorf("%w: pop without push", ErrUnbalanced)
	}
	if r.styleDepth != 0 || r.matrixDepth != 0 || r.pointDepth != 0 {
		return fmt.Errorf("%w: style=%d matrix=%d point=%d",
			ErrUnbalanced, r.styleDepth, r.matrixDepth, r.pointDepth)
	}
	return nil
}

func (r *Recorder) record(op string, args ...float64) {
	r.calls = append(r.calls, Call{Op: op, Args: args})
}

func (r *Recorder) recordRef(op, ref string) {
	r.calls = append(r.calls, Call{Op: op, Ref: ref})
}

func (r *Recorder) pop(depth *int) {
	*depth--
	if *depth < 0 {
		r.underflow = true
	}
}

// CurrentWindow implements Renderer.
func (r *Recorder) CurrentWindow() Window { return r.window }

// PushPointAttrib implements Renderer.
func (r *Recorder) PushPointAttrib() {
	r.pointDepth++
	r.record(OpPushPointAttrib)
}

// PopPointAttrib implements Renderer.
func (r *Recorder) PopPointAttrib() {
	r.pop(&r.pointDepth)
	r.record(OpPopPointAttrib)
}

// PointSize implements Renderer.
func (r *Recorder) PointSize(size float64) { r.record(OpPointSize, size) }

// EnablePointSmooth implements Renderer.
func (r *Recorder) EnablePointSmooth() { r.record(OpEnablePointSmooth) }

// PushStyle implements Renderer.
func (r *Recorder) PushStyle() {
	r.styleDepth++
	r.record(OpPushStyle)
}

// PopStyle implements Renderer.
func (r *Recorder) PopStyle() {
	r.pop(&r.styleDepth)
	r.record(OpPopStyle)
}

// SetColor implements Renderer.
func (r *Recorder) SetColor(c Color) {
	r.record(OpSetColor, float64(c.R), float64(c.G), float64(c.B), float64(c.A))
}

// NoFill implements Renderer.
func (r *Recorder) NoFill() { r.record(OpNoFill) }

// SetLineWidth implements Renderer.
func (r *Recorder) SetLineWidth(width float64) { r.record(OpSetLineWidth, width) }

// PushMatrix implements Renderer.
func (r *Recorder) PushMatrix() {
	r.matrixDepth++
	r.record(OpPushMatrix)
}

// PopMatrix implements Renderer.
func (r *Recorder) PopMatrix() {
	r.pop(&r.matrixDepth)
	r.record(OpPopMatrix)
}

// Rotate implements Renderer.
func (r *Recorder) Rotate(degrees, x, y, z float64) { r.record(OpRotate, degrees, x, y, z) }

// MultMatrix implements Renderer.
func (r *Recorder) MultMatrix(m Matrix4) { r.record(OpMultMatrix, m[:]...) }

// DrawGridPlane implements Renderer.
func (r *Recorder) DrawGridPlane(step float64) { r.record(OpDrawGridPlane, step) }

// DrawLine implements Renderer.
func (r *Recorder) DrawLine(from, to Vec3) {
	r.record(OpDrawLine, from.X, from.Y, from.Z, to.X, to.Y, to.Z)
}

// DrawSphere implements Renderer.
func (r *Recorder) DrawSphere(center Vec3, radius float64) {
	r.record(OpDrawSphere, center.X, center.Y, center.Z, radius)
}

// BindTexture implements Renderer.
func (r *Recorder) BindTexture(t *Texture) { r.recordRef(OpBindTexture, textureName(t)) }

// UnbindTexture implements Renderer.
func (r *Recorder) UnbindTexture(t *Texture) { r.recordRef(OpUnbindTexture, textureName(t)) }

// DrawVertices implements Renderer.
func (r *Recorder) DrawVertices(m *Mesh) {
	r.record(OpDrawVertices, float64(m.NumVertices()), float64(m.NumFaces()))
}

// DrawWireframe implements Renderer.
func (r *Recorder) DrawWireframe(m *Mesh) {
	r.record(OpDrawWireframe, float64(m.NumVertices()), float64(m.NumFaces()))
}

// DrawFaces implements Renderer.
func (r *Recorder) DrawFaces(m *Mesh) {
	r.record(OpDrawFaces, float64(m.NumVertices()), float64(m.NumFaces()))
}

func textureName(t *Texture) string {
	if t == nil {
		return ""
	}
	return t.Name
}
