package source

import "errors"

// Sentinel errors for source operations.
var (
	// ErrNilSensor is returned by Initialize when given no sensor.
	ErrNilSensor = errors.New("source: sensor is nil")

	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("source: already initialised")

	// ErrNotInitialized is returned by Update before Initialize succeeded.
	ErrNotInitialized = errors.New("source: not initialised")

	// ErrUnknownKind is returned when a kind name cannot be parsed.
	ErrUnknownKind = errors.New("source: unknown kind")
)
