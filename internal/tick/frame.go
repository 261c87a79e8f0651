package tick

import (
	"time"

	"github.com/nerrad567/depthcam-core/internal/device"
	"github.com/nerrad567/depthcam-core/internal/gfx"
)

// Frame is the result of one tick.
type Frame struct {
	Seq      uint64          `json:"seq"`
	Time     time.Time       `json:"time"`
	Took     time.Duration   `json:"took"`
	Snapshot device.Snapshot `json:"snapshot"`
	// Scene is nil when rendering is disabled or no depth source exists.
	Scene *gfx.Scene `json:"scene,omitempty"`
}

// DrawOps returns the number of recorded drawing calls.
func (f Frame) DrawOps() int {
	if f.Scene == nil {
		return 0
	}
	return len(f.Scene.Calls)
}

// Observer receives every frame on the loop goroutine. ObserveFrame must
// not block; slow work belongs on the observer's own goroutine.
type Observer interface {
	ObserveFrame(f Frame)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(f Frame)

// ObserveFrame calls fn(f).
func (fn ObserverFunc) ObserveFrame(f Frame) { fn(f) }
