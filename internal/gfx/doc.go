// Package gfx defines the immediate-mode graphics surface used to draw the
// depth camera world view.
//
// The host application owns the real graphics context (window, GL state,
// matrix stacks). This package only describes what the drawing code needs
// from it as the Renderer interface, plus the value types that cross that
// boundary: colours, vectors, 4x4 matrices, meshes and textures.
//
// # Recorder
//
// Recorder is a Renderer that records every call into a Scene instead of
// drawing. The service uses it headless to publish the composed draw list
// over the API, and tests use it to assert call ordering and that every
// push is matched by a pop:
//
//	rec := gfx.NewRecorder(3)
//	dev.DrawWorld(rec)
//	if err := rec.Balanced(); err != nil {
//	    // style, matrix or point-attribute stack left unbalanced
//	}
//
// # Thread Safety
//
// Renderer implementations are driven from a single thread. Recorder.Scene
// returns a copy and is safe to hand to other goroutines.
package gfx
