package telemetry

import "errors"

var (
	// ErrUnknownCommand is returned for a command topic with no handler.
	ErrUnknownCommand = errors.New("telemetry: unknown command")

	// ErrInvalidPayload is returned when a command payload cannot be decoded.
	ErrInvalidPayload = errors.New("telemetry: invalid command payload")

	// ErrNoController is returned when commands arrive before a controller is set.
	ErrNoController = errors.New("telemetry: no device controller")
)
