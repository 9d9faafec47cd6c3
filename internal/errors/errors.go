package errors

import (
	"errors"
)

// Sentinel errors for the engine's failure categories
var (
	// ErrNotFound - routine, quest or reward does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput - rejected input (bad edit fields, malformed import document)
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict - the request contradicts current state (e.g. duplicate routine id)
	ErrConflict = errors.New("conflict")

	// ErrSessionActive - a focus session is already running; only one may exist
	ErrSessionActive = errors.New("session already active")

	// ErrNoSession - a session control was used while no session exists
	ErrNoSession = errors.New("no active session")

	// ErrNoShields - the shield bank is empty
	ErrNoShields = errors.New("no shields available")

	// ErrTransient - storage or network hiccup, safe to retry
	ErrTransient = errors.New("transient error")

	// ErrInternal - anything else
	ErrInternal = errors.New("internal error")
)
