package slide

import (
	"errors"
	"fmt"
)

var (
	// ErrGestureActive is returned when an operation that is only legal while
	// no gesture is in progress is attempted mid-gesture.
	ErrGestureActive = errors.New("gesture in progress")

	// ErrAlreadyAttached is returned when a surface is attached to a host a
	// second time.
	ErrAlreadyAttached = errors.New("already attached")

	// ErrInvalidConfig is returned for configuration values that are out of
	// range.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ConfigError reports misuse of the configuration or lifecycle API. These
// errors indicate programmer mistakes and shouldn't be ignored.
type ConfigError struct {
	Op  string // Operation that failed (e.g. "set tracking edge", "attach")
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("slideback: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("slideback: %s", e.Op)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var cerr *ConfigError
	return errors.As(err, &cerr)
}
