package gfx

// WindowSettings describes the host window's graphics context.
type WindowSettings struct {
	GLMajor int
	GLMinor int
}

// Window is the host window currently being drawn into.
type Window interface {
	Settings() WindowSettings
}

// Renderer is the immediate-mode drawing surface supplied by the host.
//
// Push and pop calls nest: every PushStyle must be matched by PopStyle,
// every PushMatrix by PopMatrix and every PushPointAttrib by PopPointAttrib.
// Style covers colour, fill and line width. Point attributes cover point
// size and smoothing and only exist on fixed-function (GL 2 and older)
// contexts.
type Renderer interface {
	// CurrentWindow returns the active window, or nil when there is none.
	CurrentWindow() Window

	PushPointAttrib()
	PopPointAttrib()
	PointSize(size float64)
	EnablePointSmooth()

	PushStyle()
	PopStyle()
	SetColor(c Color)
	NoFill()
	SetLineWidth(width float64)

	PushMatrix()
	PopMatrix()
	// Rotate rotates by degrees around the axis (x, y, z).
	Rotate(degrees, x, y, z float64)
	MultMatrix(m Matrix4)

	// DrawGridPlane draws a grid in the YZ plane with the given step size.
	DrawGridPlane(step float64)
	DrawLine(from, to Vec3)
	DrawSphere(center Vec3, radius float64)

	BindTexture(t *Texture)
	UnbindTexture(t *Texture)

	DrawVertices(m *Mesh)
	DrawWireframe(m *Mesh)
	DrawFaces(m *Mesh)
}
