package countdown

import "errors"

// ErrInvalidTarget is returned when a target time cannot be parsed into a valid instant
var ErrInvalidTarget = errors.New("invalid countdown target")

// ErrEngineStopped is returned when an engine is used after teardown
var ErrEngineStopped = errors.New("countdown engine stopped")

// ErrCompletionCallback wraps failures raised by a configured completion callback
var ErrCompletionCallback = errors.New("completion callback failed")
