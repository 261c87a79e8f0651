package source

import (
	"github.com/nerrad567/depthcam-core/internal/gfx"
	"github.com/nerrad567/depthcam-core/internal/sensor"
)

// depthRange is the far end of the grey ramp for depth textures, in mm.
const depthRange = 8000

// image is the texture shared by every image-producing source.
type image struct {
	texture    gfx.Texture
	useTexture bool
}

func newImage(kind Kind) image {
	return image{texture: gfx.Texture{Name: kind.String()}, useTexture: true}
}

// SetUseTexture implements TextureToggler. Disabling releases the pixels.
func (i *image) SetUseTexture(use bool) {
	i.useTexture = use
	if !use {
		i.texture.Clear()
	}
}

// UseTexture implements TextureToggler.
func (i *image) UseTexture() bool {
	return i.useTexture
}

// Texture returns the source texture. It is never nil but may be
// unallocated.
func (i *image) Texture() *gfx.Texture {
	return &i.texture
}

// fillGray writes one grey RGBA pixel per 16-bit sample.
func (i *image) fillGray(f *sensor.Frame, level func(uint16) uint8) {
	if !i.useTexture || f == nil {
		return
	}
	i.texture.Allocate(f.Width, f.Height)
	px := i.texture.Pixels
	for n, s := range f.Samples[:visible(f, len(f.Samples))] {
		l := level(s)
		o := n * 4
		px[o], px[o+1], px[o+2], px[o+3] = l, l, l, 255
	}
}

// visible is how many of n per-pixel values fit the frame's declared size.
func visible(f *sensor.Frame, n int) int {
	return max(0, min(n, f.Width*f.Height))
}

func depthLevel(mm uint16) uint8 {
	if mm == 0 || mm >= depthRange {
		return 0
	}
	return uint8(255 - int(mm)*255/depthRange)
}

func infraredLevel(v uint16) uint8 {
	return uint8(v >> 8)
}

// Infrared is the active infrared image.
type Infrared struct {
	base
	image
}

// NewInfrared returns an uninitialised infrared source.
func NewInfrared() *Infrared {
	return &Infrared{base: base{kind: KindInfrared}, image: newImage(KindInfrared)}
}

// Update implements Source.
func (s *Infrared) Update() error {
	if err := s.poll(); err != nil {
		return err
	}
	if s.frameNew {
		s.fillGray(s.frame, infraredLevel)
	}
	return nil
}

// LongExposureInfrared is the long exposure infrared image.
type LongExposureInfrared struct {
	base
	image
}

// NewLongExposureInfrared returns an uninitialised long exposure infrared
// source.
func NewLongExposureInfrared() *LongExposureInfrared {
	return &LongExposureInfrared{
		base:  base{kind: KindLongExposureInfrared},
		image: newImage(KindLongExposureInfrared),
	}
}

// Update implements Source.
func (s *LongExposureInfrared) Update() error {
	if err := s.poll(); err != nil {
		return err
	}
	if s.frameNew {
		s.fillGray(s.frame, infraredLevel)
	}
	return nil
}

// bodyPalette colours body-index pixels by body slot.
var bodyPalette = [...]gfx.Color{
	gfx.RGB(230, 140, 60),
	gfx.RGB(80, 170, 230),
	gfx.RGB(120, 200, 90),
	gfx.RGB(220, 90, 160),
	gfx.RGB(240, 220, 80),
	gfx.RGB(150, 110, 230),
}

// BodyIndex maps each depth pixel to the body occupying it.
type BodyIndex struct {
	base
	image
}

// NewBodyIndex returns an uninitialised body index source.
func NewBodyIndex() *BodyIndex {
	return &BodyIndex{base: base{kind: KindBodyIndex}, image: newImage(KindBodyIndex)}
}

// Update implements Source.
func (s *BodyIndex) Update() error {
	if err := s.poll(); err != nil {
		return err
	}
	if !s.frameNew || !s.useTexture {
		return nil
	}

	f := s.frame
	s.texture.Allocate(f.Width, f.Height)
	px := s.texture.Pixels
	for n, idx := range f.Pixels[:visible(f, len(f.Pixels))] {
		var c gfx.Color
		if int(idx) < len(bodyPalette) {
			c = bodyPalette[idx]
		}
		o := n * 4
		px[o], px[o+1], px[o+2], px[o+3] = c.R, c.G, c.B, c.A
	}
	return nil
}

// BodyAt returns the body slot at pixel (x, y) and whether one is there.
func (s *BodyIndex) BodyAt(x, y int) (int, bool) {
	f := s.frame
	if f == nil || x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0, false
	}
	i := y*f.Width + x
	if i >= len(f.Pixels) {
		return 0, false
	}
	idx := f.Pixels[i]
	if idx == sensor.NoBody {
		return 0, false
	}
	return int(idx), true
}
