package domain

import (
	"fmt"
	"time"
)

// SetupError is the domain error contract for setup operations. Anything the
// retry loop should reason about (recoverability, suggested delay, conflict
// metadata) must be carried here; errors outside this contract are treated as
// programming errors and never retried.
type SetupError struct {
	Op          string
	Message     string
	Recoverable bool
	RetryAfter  time.Duration // operation-suggested delay, 0 = none
	Conflict    *ConflictCause
	Err         error
}

func (e *SetupError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// ExhaustedError is returned when all configured attempts failed with
// recoverable errors and no conflict resolution succeeded.
type ExhaustedError struct {
	Key      string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted after %d attempts for key %q: %v", e.Attempts, e.Key, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}
