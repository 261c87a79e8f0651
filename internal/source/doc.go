// Package source implements the per-stream frame sources a device owns.
//
// Every source satisfies the Source contract: Initialize acquires a frame
// reader from an open sensor, Update polls it for at most one frame and
// IsFrameNew reports whether that poll consumed one.
//
// # Kinds
//
//	Kind                  Texture  Extras
//	Depth                 yes      Mesh, DrawFrustum
//	Color                 yes      DrawFrustum
//	Infrared              yes
//	LongExposureInfrared  yes
//	BodyIndex             yes
//	Body                  no       DrawWorld, FloorTransform
//
// Sources with a texture implement TextureToggler. Turning textures off
// releases the pixel buffer and skips the per-frame conversion.
//
// # Thread Safety
//
// Sources are not safe for concurrent use. They are owned by a device and
// driven from its tick goroutine.
package source
