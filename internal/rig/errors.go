package rig

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState indicates the motor state went NaN or Inf.
	ErrInvalidState = errors.New("rig: invalid state (NaN or Inf detected)")

	// ErrUnstable indicates the shaft speed left the plausible range.
	ErrUnstable = errors.New("rig: loop unstable (velocity diverged)")
)

// StepError wraps an error with the cycle it happened in.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4fs): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
