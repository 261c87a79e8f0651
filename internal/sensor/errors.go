package sensor

import "errors"

// Sentinel errors for sensor operations.
//
// Check with errors.Is():
//
//	if errors.Is(err, sensor.ErrNoFrame) {
//	    // nothing new this tick
//	}
var (
	// ErrNoSensor is returned when the SDK finds no default sensor.
	ErrNoSensor = errors.New("sensor: failed to find sensor")

	// ErrOpenFailed is returned when the native Open call fails.
	ErrOpenFailed = errors.New("sensor: failed to open sensor")

	// ErrNotOpen is returned when an operation needs an open sensor.
	ErrNotOpen = errors.New("sensor: not open")

	// ErrNoFrame is returned by readers when no new frame is pending.
	ErrNoFrame = errors.New("sensor: no frame pending")

	// ErrUnknownStream is returned when a stream value is not recognised.
	ErrUnknownStream = errors.New("sensor: unknown stream")

	// ErrSDKPanic wraps a panic raised inside an SDK call.
	ErrSDKPanic = errors.New("sensor: sdk panic")
)
