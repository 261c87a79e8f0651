// Package sensor wraps the depth camera SDK behind a small set of interfaces
// and owns the native sensor handle.
//
// # Backends
//
// An SDK discovers the default sensor and hands back a Native handle. Two
// backends ship with depthcam-core:
//
//   - simulated: deterministic synthetic frames, used for demos and tests
//   - netstream: frames received as zstd-compressed UDP multicast datagrams
//     from an external capture daemon
//
// # Handle lifecycle
//
// Handle starts with no native sensor. Open discovers and opens one; any
// failure (including a panic inside the SDK) leaves the handle empty. Close
// is idempotent. IsOpen is conservative: when the SDK cannot answer the
// query the handle reports closed and logs the failure.
//
//	h := sensor.NewHandle(sdk)
//	if err := h.Open(); err != nil {
//	    log.Error("sensor unavailable", "error", err)
//	}
//	defer h.Close()
//
// # Frame readers
//
// Readers are polled, never waited on. AcquireLatestFrame returns ErrNoFrame
// when nothing new arrived since the previous call, so a tick never blocks
// on the camera.
//
// # Thread Safety
//
// Handle is not safe for concurrent use. It is driven from the same single
// tick goroutine as the device and its sources.
package sensor
