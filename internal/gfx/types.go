package gfx

// Color is an 8-bit RGBA colour.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// RGB returns an opaque colour.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 255}
}

// Gray returns a grey level with the given alpha.
func Gray(level, alpha uint8) Color {
	return Color{R: level, G: level, B: level, A: alpha}
}

// White is opaque white.
var White = RGB(255, 255, 255)

// Vec2 is a 2-D point, used for texture coordinates.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec3 is a 3-D point in metres.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Matrix4 is a 4x4 affine transform stored row-major. Points are column
// vectors, so the translation lives in elements 3, 7 and 11.
type Matrix4 [16]float64

// Identity returns the identity transform.
func Identity() Matrix4 {
	return Matrix4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translation returns a pure translation transform.
func Translation(v Vec3) Matrix4 {
	m := Identity()
	m[3], m[7], m[11] = v.X, v.Y, v.Z
	return m
}

// Apply transforms the point p.
func (m Matrix4) Apply(p Vec3) Vec3 {
	return Vec3{
		X: m[0]*p.X + m[1]*p.Y + m[2]*p.Z + m[3],
		Y: m[4]*p.X + m[5]*p.Y + m[6]*p.Z + m[7],
		Z: m[8]*p.X + m[9]*p.Y + m[10]*p.Z + m[11],
	}
}

// PrimitiveMode selects how a mesh's indices are interpreted.
type PrimitiveMode int

const (
	// ModePoints draws each vertex as a point; indices are ignored.
	ModePoints PrimitiveMode = iota
	// ModeTriangles treats every three indices as one triangle.
	ModeTriangles
)

// Mesh is a vertex buffer with optional per-vertex colours and texture
// coordinates. When Colors or TexCoords are set they have one entry per
// vertex.
type Mesh struct {
	Mode      PrimitiveMode
	Vertices  []Vec3
	Colors    []Color
	TexCoords []Vec2
	Indices   []uint32
}

// NumVertices returns the vertex count.
func (m *Mesh) NumVertices() int {
	if m == nil {
		return 0
	}
	return len(m.Vertices)
}

// NumFaces returns the triangle count for triangle meshes.
func (m *Mesh) NumFaces() int {
	if m == nil || m.Mode != ModeTriangles {
		return 0
	}
	return len(m.Indices) / 3
}

// Texture is a CPU-side RGBA image that the host uploads and binds. A
// texture with Allocated false has no pixels and binding it is a no-op on
// real renderers.
type Texture struct {
	Name      string
	Width     int
	Height    int
	Pixels    []byte
	Allocated bool
}

// Allocate sizes the texture for w*h RGBA pixels, reusing the buffer when
// the size is unchanged.
func (t *Texture) Allocate(w, h int) {
	n := w * h * 4
	if cap(t.Pixels) < n {
		t.Pixels = make([]byte, n)
	}
	t.Pixels = t.Pixels[:n]
	t.Width, t.Height = w, h
	t.Allocated = true
}

// Clear releases the pixel buffer.
func (t *Texture) Clear() {
	t.Pixels = nil
	t.Width, t.Height = 0, 0
	t.Allocated = false
}
