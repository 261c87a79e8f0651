package process

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is returned by Start while the process is up.
	ErrAlreadyRunning = errors.New("process: already running")

	// ErrNoFrames means the sensor is open but the daemon has stopped
	// delivering frames.
	ErrNoFrames = errors.New("process: no frames received")
)

// HealthError is a failed health check that knows whether a restart can
// fix it.
type HealthError struct {
	// Check names the check that failed.
	Check string
	// Recoverable reports whether restarting the daemon might help.
	Recoverable bool
	Err         error
}

func (e *HealthError) Error() string {
	return fmt.Sprintf("%s health check failed: %v", e.Check, e.Err)
}

func (e *HealthError) Unwrap() error {
	return e.Err
}

// IsRecoverable implements RecoverableError.
func (e *HealthError) IsRecoverable() bool {
	return e.Recoverable
}
