// Package render composes the 3-D world view from a device's depth, colour
// and body sources.
package render

import (
	"github.com/nerrad567/depthcam-core/internal/gfx"
	"github.com/nerrad567/depthcam-core/internal/source"
)

// Drawing constants.
const (
	pointSize      = 5.0
	wireAlpha      = 150
	faceAlpha      = 50
	gridStep       = 5.0
	frustumWidth   = 2.0
	floorRotateDeg = 90.0
)

var (
	depthFrustumColor = gfx.RGB(100, 200, 100)
	colorFrustumColor = gfx.RGB(200, 100, 100)
)

// Scene is the read-only view of a device the renderer needs. Any getter
// may return nil.
type Scene interface {
	DepthSource() *source.Depth
	ColorSource() *source.Color
	BodySource() *source.Body
}

// Logger is the logging interface used by DrawWorld.
type Logger interface {
	Error(msg string, args ...any)
}

// DrawWorld draws the textured point cloud, skeletons with the floor grid,
// and the camera frustums.
//
// The depth source is required: without it DrawWorld logs and draws
// nothing. Colour and body are optional. Every push is matched by a pop
// on every path, and DrawWorld never modifies the scene.
func DrawWorld(g gfx.Renderer, scene Scene, logger Logger) {
	depth := scene.DepthSource()
	color := scene.ColorSource()
	body := scene.BodySource()

	if depth == nil {
		if logger != nil {
			logger.Error("no depth source initialised")
		}
		return
	}

	drawPointCloud(g, depth, color)

	if body != nil {
		body.DrawWorld(g)

		g.PushMatrix()
		g.Rotate(floorRotateDeg, 0, 0, 1)
		g.MultMatrix(body.FloorTransform())
		g.DrawGridPlane(gridStep)
		g.PopMatrix()
	}

	g.PushStyle()
	g.NoFill()
	g.SetLineWidth(frustumWidth)
	g.SetColor(depthFrustumColor)
	depth.DrawFrustum(g)
	if color != nil {
		g.SetColor(colorFrustumColor)
		color.DrawFrustum(g)
	}
	g.PopStyle()
}

// drawPointCloud draws the depth mesh three times: points, a faint
// wireframe and fainter faces, textured from the colour camera when
// available.
func drawPointCloud(g gfx.Renderer, depth *source.Depth, color *source.Color) {
	fixedFunction := usesFixedFunction(g)
	if fixedFunction {
		g.PushPointAttrib()
		g.PointSize(pointSize)
		g.EnablePointSmooth()
	}

	g.PushStyle()

	if color != nil {
		g.BindTexture(color.Texture())
	}

	mesh := depth.Mesh(source.PointCloudOptions{
		StitchFaces: true,
		TexCoords:   source.TexCoordsColorCamera,
	})

	g.DrawVertices(mesh)
	g.SetColor(gfx.Gray(255, wireAlpha))
	g.DrawWireframe(mesh)
	g.SetColor(gfx.Gray(255, faceAlpha))
	g.DrawFaces(mesh)

	if color != nil {
		g.UnbindTexture(color.Texture())
	}

	g.PopStyle()

	if fixedFunction {
		g.PopPointAttrib()
	}
}

// usesFixedFunction reports whether the current context is GL 2 or older,
// where point size is pipeline state rather than set in shaders. With no
// window it reports false.
func usesFixedFunction(g gfx.Renderer) bool {
	w := g.CurrentWindow()
	if w == nil {
		return false
	}
	return w.Settings().GLMajor <= 2
}
