package device

import "errors"

// Errors logged by the device. They never cross the public Device surface
// but are returned by Registry and recorded in events.
//
//	if errors.Is(err, device.ErrSourceExists) {
//	    // duplicate init
//	}
var (
	// ErrSourceExists is returned when inserting a second source of a kind.
	ErrSourceExists = errors.New("device: source already initialised")

	// ErrSensorNotOpen is logged when a source is requested before Open.
	ErrSensorNotOpen = errors.New("device: sensor is not open")

	// ErrSourceInitFailed wraps a failed source construction or Initialize.
	ErrSourceInitFailed = errors.New("device: source init failed")
)
