package source

import (
	"math"

	"github.com/nerrad567/depthcam-core/internal/gfx"
	"github.com/nerrad567/depthcam-core/internal/sensor"
)

// Frustum depth limits in metres, matching the sensor's working range.
const (
	frustumNear = 0.5
	frustumFar  = 4.5
)

// drawFrustum draws a camera's viewing volume as a wireframe placed at
// origin, looking down +Z. The caller owns the style.
func drawFrustum(g gfx.Renderer, in sensor.Intrinsics, origin gfx.Vec3) {
	tx := math.Tan(in.HFOV / 2 * math.Pi / 180)
	ty := math.Tan(in.VFOV / 2 * math.Pi / 180)

	corners := func(z float64) [4]gfx.Vec3 {
		return [4]gfx.Vec3{
			{X: -tx * z, Y: ty * z, Z: z},
			{X: tx * z, Y: ty * z, Z: z},
			{X: tx * z, Y: -ty * z, Z: z},
			{X: -tx * z, Y: -ty * z, Z: z},
		}
	}
	near, far := corners(frustumNear), corners(frustumFar)

	g.PushMatrix()
	g.MultMatrix(gfx.Translation(origin))
	for i := range far {
		next := (i + 1) % len(far)
		g.DrawLine(near[i], far[i])
		g.DrawLine(far[i], far[next])
		g.DrawLine(near[i], near[next])
	}
	g.PopMatrix()
}
