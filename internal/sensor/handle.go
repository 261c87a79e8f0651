package sensor

import (
	"fmt"
)

// Logger defines the logging interface used by Handle.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Handle owns the native sensor obtained from an SDK.
//
// The native handle is non-nil only between a successful Open and the next
// Close. Every failure path inside Open leaves it nil.
type Handle struct {
	sdk    SDK
	native Native
	logger Logger
}

// NewHandle creates a closed handle that discovers sensors through sdk.
func NewHandle(sdk SDK) *Handle {
	return &Handle{
		sdk:    sdk,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the handle.
func (h *Handle) SetLogger(logger Logger) {
	h.logger = logger
}

// Open acquires the default sensor and opens it.
//
// On failure the handle stays closed and the returned error wraps
// ErrNoSensor, ErrOpenFailed or ErrSDKPanic. Opening an already open
// handle is a no-op.
func (h *Handle) Open() (err error) {
	if h.native != nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			h.native = nil
			err = fmt.Errorf("%w: %v", ErrSDKPanic, r)
		}
	}()

	if h.sdk == nil {
		return ErrNoSensor
	}

	native, err := h.sdk.DefaultSensor()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoSensor, err)
	}
	if native == nil {
		return ErrNoSensor
	}

	if err := native.Open(); err != nil {
		return fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	h.native = native
	return nil
}

// Close closes the native sensor and forgets it. Calling Close on a closed
// handle does nothing. The handle is always closed afterwards, even when
// the SDK reports an error.
func (h *Handle) Close() error {
	if h.native == nil {
		return nil
	}

	native := h.native
	h.native = nil

	if err := native.Close(); err != nil {
		return fmt.Errorf("closing sensor: %w", err)
	}
	return nil
}

// IsOpen reports whether the sensor is open. It returns false when there
// is no native handle, and also when the SDK query itself fails.
func (h *Handle) IsOpen() bool {
	if h.native == nil {
		return false
	}

	open, err := h.native.IsOpen()
	if err != nil {
		h.logger.Error("failed to check if sensor is open", "error", err)
		return false
	}
	return open
}

// Native returns the native sensor, or nil when closed.
func (h *Handle) Native() Native {
	return h.native
}
