package source

import (
	"github.com/nerrad567/depthcam-core/internal/gfx"
)

// Color is the RGBA colour camera image.
type Color struct {
	base
	image
}

// NewColor returns an uninitialised colour source.
func NewColor() *Color {
	return &Color{base: base{kind: KindColor}, image: newImage(KindColor)}
}

// Update implements Source.
func (s *Color) Update() error {
	if err := s.poll(); err != nil {
		return err
	}
	if !s.frameNew || !s.useTexture {
		return nil
	}

	f := s.frame
	s.texture.Allocate(f.Width, f.Height)
	copy(s.texture.Pixels, f.Pixels)
	return nil
}

// DrawFrustum draws the colour camera's viewing volume at its offset from
// the depth camera.
func (s *Color) DrawFrustum(g gfx.Renderer) {
	off := s.calib.ColorOffset
	drawFrustum(g, s.calib.Color, gfx.Vec3{X: off[0], Y: off[1], Z: off[2]})
}
