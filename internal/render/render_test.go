package render_test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/depthcam-core/internal/gfx"
	"github.com/nerrad567/depthcam-core/internal/render"
	"github.com/nerrad567/depthcam-core/internal/sensor"
	"github.com/nerrad567/depthcam-core/internal/sensor/sensortest"
	"github.com/nerrad567/depthcam-core/internal/source"
)

// scene is a fixed set of sources.
type scene struct {
	depth *source.Depth
	color *source.Color
	body  *source.Body
}

func (s scene) DepthSource() *source.Depth { return s.depth }
func (s scene) ColorSource() *source.Color { return s.color }
func (s scene) BodySource() *source.Body   { return s.body }

type errorLog struct {
	msgs []string
}

func (l *errorLog) Error(msg string, _ ...any) { l.msgs = append(l.msgs, msg) }

// newScene initialises the requested sources on a fake sensor and gives
// each one frame.
func newScene(t *testing.T, depth, color, body bool) scene {
	t.Helper()
	n := sensortest.NewNative()
	require.NoError(t, n.Open())

	var s scene
	if depth {
		s.depth = source.NewDepth()
		require.NoError(t, s.depth.Initialize(n))
		n.Push(sensortest.DepthFrame(8, 6, 1800))
		require.NoError(t, s.depth.Update())
	}
	if color {
		s.color = source.NewColor()
		require.NoError(t, s.color.Initialize(n))
		n.Push(sensortest.ColorFrame(16, 9, 200, 10, 10))
		require.NoError(t, s.color.Update())
	}
	if body {
		s.body = source.NewBody()
		require.NoError(t, s.body.Initialize(n))
		n.Push(sensortest.BodyFrame())
		require.NoError(t, s.body.Update())
	}
	return s
}

func repeat(op string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = op
	}
	return out
}

func frustumOps() []string {
	ops := []string{gfx.OpPushMatrix, gfx.OpMultMatrix}
	ops = append(ops, repeat(gfx.OpDrawLine, 12)...)
	return append(ops, gfx.OpPopMatrix)
}

func bodyOps() []string {
	ops := []string{gfx.OpPushStyle, gfx.OpSetColor}
	ops = append(ops, repeat(gfx.OpDrawLine, len(source.Bones))...)
	ops = append(ops, repeat(gfx.OpDrawSphere, sensor.JointCount)...)
	ops = append(ops, gfx.OpPopStyle)
	return append(ops,
		gfx.OpPushMatrix, gfx.OpRotate, gfx.OpMultMatrix, gfx.OpDrawGridPlane, gfx.OpPopMatrix)
}

func join(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestDrawWorld_DepthOnly(t *testing.T) {
	rec := gfx.NewRecorder(3)
	render.DrawWorld(rec, newScene(t, true, false, false), nil)

	want := join(
		[]string{
			gfx.OpPushStyle,
			gfx.OpDrawVertices,
			gfx.OpSetColor, gfx.OpDrawWireframe,
			gfx.OpSetColor, gfx.OpDrawFaces,
			gfx.OpPopStyle,
			gfx.OpPushStyle, gfx.OpNoFill, gfx.OpSetLineWidth, gfx.OpSetColor,
		},
		frustumOps(),
		[]string{gfx.OpPopStyle},
	)
	if diff := cmp.Diff(want, rec.Scene().Ops()); diff != "" {
		t.Errorf("DrawWorld() ops mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, rec.Balanced())

	scene := rec.Scene()
	assert.Zero(t, scene.Count(gfx.OpBindTexture), "no colour source, no texture")
	assert.Zero(t, scene.Count(gfx.OpDrawGridPlane))
}

func TestDrawWorld_CallArguments(t *testing.T) {
	rec := gfx.NewRecorder(3)
	render.DrawWorld(rec, newScene(t, true, true, true), nil)

	var colors [][]float64
	for _, c := range rec.Scene().Calls {
		switch c.Op {
		case gfx.OpSetColor:
			colors = append(colors, c.Args)
		case gfx.OpRotate:
			assert.Equal(t, []float64{90, 0, 0, 1}, c.Args)
		case gfx.OpDrawGridPlane:
			assert.Equal(t, []float64{5}, c.Args)
		case gfx.OpSetLineWidth:
			assert.Equal(t, []float64{2}, c.Args)
		case gfx.OpDrawVertices, gfx.OpDrawWireframe, gfx.OpDrawFaces:
			// 8x6 samples, 7x5 cells with two triangles each
			assert.Equal(t, []float64{48, 70}, c.Args)
		}
	}

	want := [][]float64{
		{255, 255, 255, 150},
		{255, 255, 255, 50},
		{230, 140, 60, 255}, // first body
		{100, 200, 100, 255},
		{200, 100, 100, 255},
	}
	if diff := cmp.Diff(want, colors); diff != "" {
		t.Errorf("SetColor args mismatch (-want +got):\n%s", diff)
	}
}

func TestDrawWorld_ColorTexture(t *testing.T) {
	rec := gfx.NewRecorder(3)
	render.DrawWorld(rec, newScene(t, true, true, false), nil)

	want := join(
		[]string{
			gfx.OpPushStyle,
			gfx.OpBindTexture,
			gfx.OpDrawVertices,
			gfx.OpSetColor, gfx.OpDrawWireframe,
			gfx.OpSetColor, gfx.OpDrawFaces,
			gfx.OpUnbindTexture,
			gfx.OpPopStyle,
			gfx.OpPushStyle, gfx.OpNoFill, gfx.OpSetLineWidth, gfx.OpSetColor,
		},
		frustumOps(),
		[]string{gfx.OpSetColor},
		frustumOps(),
		[]string{gfx.OpPopStyle},
	)
	if diff := cmp.Diff(want, rec.Scene().Ops()); diff != "" {
		t.Errorf("DrawWorld() ops mismatch (-want +got):\n%s", diff)
	}

	for _, c := range rec.Scene().Calls {
		if c.Op == gfx.OpBindTexture || c.Op == gfx.OpUnbindTexture {
			assert.Equal(t, "color", c.Ref)
		}
	}
}

func TestDrawWorld_BodyAndFloor(t *testing.T) {
	rec := gfx.NewRecorder(3)
	s := newScene(t, true, false, true)
	render.DrawWorld(rec, s, nil)

	want := join(
		[]string{
			gfx.OpPushStyle,
			gfx.OpDrawVertices,
			gfx.OpSetColor, gfx.OpDrawWireframe,
			gfx.OpSetColor, gfx.OpDrawFaces,
			gfx.OpPopStyle,
		},
		bodyOps(),
		[]string{gfx.OpPushStyle, gfx.OpNoFill, gfx.OpSetLineWidth, gfx.OpSetColor},
		frustumOps(),
		[]string{gfx.OpPopStyle},
	)
	if diff := cmp.Diff(want, rec.Scene().Ops()); diff != "" {
		t.Errorf("DrawWorld() ops mismatch (-want +got):\n%s", diff)
	}

	floor := s.body.FloorTransform()
	for _, c := range rec.Scene().Calls {
		if c.Op == gfx.OpMultMatrix && c.Args[7] != 0 {
			assert.Equal(t, floor[:], c.Args)
		}
	}
}

func TestDrawWorld_PointAttributes(t *testing.T) {
	tests := []struct {
		glMajor int
		want    bool
	}{
		{glMajor: 0, want: false}, // no window
		{glMajor: 1, want: true},
		{glMajor: 2, want: true},
		{glMajor: 3, want: false},
		{glMajor: 4, want: false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("gl%d", tt.glMajor), func(t *testing.T) {
			rec := gfx.NewRecorder(tt.glMajor)
			render.DrawWorld(rec, newScene(t, true, false, false), nil)
			require.NoError(t, rec.Balanced())

			ops := rec.Scene().Ops()
			if !tt.want {
				assert.Zero(t, rec.Scene().Count(gfx.OpPushPointAttrib))
				assert.Equal(t, gfx.OpPushStyle, ops[0])
				return
			}
			assert.Equal(t, []string{gfx.OpPushPointAttrib, gfx.OpPointSize, gfx.OpEnablePointSmooth, gfx.OpPushStyle}, ops[:4])
			assert.Equal(t, []float64{5}, rec.Scene().Calls[1].Args)
			// popped straight after the point cloud style
			assert.Equal(t, gfx.OpPopPointAttrib, ops[10])
		})
	}
}

func TestDrawWorld_NoDepth(t *testing.T) {
	for _, withColor := range []bool{false, true} {
		t.Run(fmt.Sprintf("color=%v", withColor), func(t *testing.T) {
			rec := gfx.NewRecorder(2)
			log := &errorLog{}
			render.DrawWorld(rec, newScene(t, false, withColor, withColor), log)

			assert.Empty(t, rec.Scene().Calls)
			assert.Equal(t, []string{"no depth source initialised"}, log.msgs)
		})
	}
}

func TestDrawWorld_BalancedOnEveryPath(t *testing.T) {
	for mask := 0; mask < 8; mask++ {
		for _, gl := range []int{0, 2, 3} {
			depth, color, body := mask&1 != 0, mask&2 != 0, mask&4 != 0
			name := fmt.Sprintf("depth=%v/color=%v/body=%v/gl%d", depth, color, body, gl)
			t.Run(name, func(t *testing.T) {
				rec := gfx.NewRecorder(gl)
				render.DrawWorld(rec, newScene(t, depth, color, body), &errorLog{})
				assert.NoError(t, rec.Balanced())

				scene := rec.Scene()
				assert.Equal(t, scene.Count(gfx.OpPushStyle), scene.Count(gfx.OpPopStyle))
				assert.Equal(t, scene.Count(gfx.OpPushMatrix), scene.Count(gfx.OpPopMatrix))
				assert.Equal(t, scene.Count(gfx.OpPushPointAttrib), scene.Count(gfx.OpPopPointAttrib))
				assert.Equal(t, scene.Count(gfx.OpBindTexture), scene.Count(gfx.OpUnbindTexture))
			})
		}
	}
}

func TestDrawWorld_DoesNotTouchSources(t *testing.T) {
	s := newScene(t, true, true, true)
	before := []bool{s.depth.IsFrameNew(), s.color.IsFrameNew(), s.body.IsFrameNew()}
	frames := []uint64{s.depth.FrameCount(), s.color.FrameCount(), s.body.FrameCount()}

	render.DrawWorld(gfx.NewRecorder(2), s, nil)

	assert.Equal(t, before, []bool{s.depth.IsFrameNew(), s.color.IsFrameNew(), s.body.IsFrameNew()})
	assert.Equal(t, frames, []uint64{s.depth.FrameCount(), s.color.FrameCount(), s.body.FrameCount()})
}
