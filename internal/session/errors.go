package session

import "errors"

var (
	// ErrSessionNotFound is returned when closing a session that does not
	// exist or is already closed.
	ErrSessionNotFound = errors.New("session: session not found")
)
