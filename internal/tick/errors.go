package tick

import "errors"

var (
	// ErrAlreadyStarted is returned by Run on a loop that has run before.
	ErrAlreadyStarted = errors.New("tick: loop already started")

	// ErrStopped is returned by Submit once the loop has exited.
	ErrStopped = errors.New("tick: loop stopped")

	// ErrSensorNotOpen is returned when a command needs an open sensor.
	ErrSensorNotOpen = errors.New("tick: sensor not open")

	// ErrOpenFailed is returned by Open when the sensor stayed closed.
	ErrOpenFailed = errors.New("tick: sensor failed to open")

	// ErrInitFailed is returned by InitSource when no source was created.
	ErrInitFailed = errors.New("tick: source initialisation failed")
)
