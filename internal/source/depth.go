package source

import (
	"math"

	"github.com/nerrad567/depthcam-core/internal/gfx"
)

// defaultFacesMaxLength is the largest depth jump, in metres, a stitched
// triangle may span before it is treated as an occlusion edge.
const defaultFacesMaxLength = 0.3

// TexCoordSpace selects what mesh texture coordinates index into.
type TexCoordSpace int

const (
	// TexCoordsNone emits no texture coordinates.
	TexCoordsNone TexCoordSpace = iota
	// TexCoordsDepthCamera emits depth image pixel coordinates.
	TexCoordsDepthCamera
	// TexCoordsColorCamera projects each vertex into the colour image.
	TexCoordsColorCamera
)

// PointCloudOptions controls Depth.Mesh.
type PointCloudOptions struct {
	// StitchFaces joins neighbouring samples into triangles.
	StitchFaces bool
	// Steps is the pixel stride. Values below 1 mean every pixel.
	Steps int
	// FacesMaxLength is the largest depth difference within one triangle.
	// Zero means 0.3 m.
	FacesMaxLength float64
	TexCoords      TexCoordSpace
}

// Depth is the depth image, in millimetres per pixel.
type Depth struct {
	base
	image
}

// NewDepth returns an uninitialised depth source.
func NewDepth() *Depth {
	return &Depth{base: base{kind: KindDepth}, image: newImage(KindDepth)}
}

// Update implements Source.
func (s *Depth) Update() error {
	if err := s.poll(); err != nil {
		return err
	}
	if s.frameNew {
		s.fillGray(s.frame, depthLevel)
	}
	return nil
}

// Mesh back-projects the latest depth frame into a point cloud in depth
// camera space, metres, Y up. Pixels without a depth reading are skipped.
// Before the first frame the mesh is empty.
func (s *Depth) Mesh(opts PointCloudOptions) *gfx.Mesh {
	mesh := &gfx.Mesh{Mode: gfx.ModePoints}
	if opts.StitchFaces {
		mesh.Mode = gfx.ModeTriangles
	}

	f := s.frame
	if f == nil || len(f.Samples) < f.Width*f.Height {
		return mesh
	}

	step := max(opts.Steps, 1)
	maxLen := opts.FacesMaxLength
	if maxLen <= 0 {
		maxLen = defaultFacesMaxLength
	}

	in := s.calib.Depth.Scaled(f.Width, f.Height)
	colorIn := s.calib.Color
	off := s.calib.ColorOffset

	cols := (f.Width + step - 1) / step
	rows := (f.Height + step - 1) / step
	grid := make([]int32, cols*rows)

	for r := 0; r < rows; r++ {
		v := r * step
		for c := 0; c < cols; c++ {
			u := c * step
			mm := f.Samples[v*f.Width+u]
			if mm == 0 {
				grid[r*cols+c] = -1
				continue
			}

			z := float64(mm) / 1000
			p := gfx.Vec3{
				X: (float64(u) - in.PrincipalX) * z / in.FocalX,
				Y: -(float64(v) - in.PrincipalY) * z / in.FocalY,
				Z: z,
			}
			grid[r*cols+c] = int32(len(mesh.Vertices))
			mesh.Vertices = append(mesh.Vertices, p)

			switch opts.TexCoords {
			case TexCoordsDepthCamera:
				mesh.TexCoords = append(mesh.TexCoords, gfx.Vec2{X: float64(u), Y: float64(v)})
			case TexCoordsColorCamera:
				cx, cy, cz := p.X-off[0], p.Y-off[1], p.Z-off[2]
				mesh.TexCoords = append(mesh.TexCoords, gfx.Vec2{
					X: colorIn.FocalX*cx/cz + colorIn.PrincipalX,
					Y: colorIn.PrincipalY - colorIn.FocalY*cy/cz,
				})
			}
		}
	}

	if opts.StitchFaces {
		stitch(mesh, grid, cols, rows, maxLen)
	}
	return mesh
}

// stitch emits two triangles per grid cell whose corners all have depth
// and whose depth spread stays under maxLen.
func stitch(mesh *gfx.Mesh, grid []int32, cols, rows int, maxLen float64) {
	ok := func(idx ...int32) bool {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, i := range idx {
			if i < 0 {
				return false
			}
			z := mesh.Vertices[i].Z
			lo, hi = math.Min(lo, z), math.Max(hi, z)
		}
		return hi-lo < maxLen
	}

	for r := 0; r+1 < rows; r++ {
		for c := 0; c+1 < cols; c++ {
			tl := grid[r*cols+c]
			tr := grid[r*cols+c+1]
			bl := grid[(r+1)*cols+c]
			br := grid[(r+1)*cols+c+1]
			if ok(tl, tr, bl) {
				mesh.Indices = append(mesh.Indices, uint32(tl), uint32(bl), uint32(tr))
			}
			if ok(tr, br, bl) {
				mesh.Indices = append(mesh.Indices, uint32(tr), uint32(bl), uint32(br))
			}
		}
	}
}

// DrawFrustum draws the depth camera's viewing volume at the origin.
func (s *Depth) DrawFrustum(g gfx.Renderer) {
	drawFrustum(g, s.calib.Depth, gfx.Vec3{})
}
