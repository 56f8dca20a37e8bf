package foc

import "errors"

var (
	// ErrInvalidResolution indicates a counts/pulses per revolution value <= 0.
	ErrInvalidResolution = errors.New("foc: resolution must be positive")

	// ErrReadOnlySource indicates SetAngle on a source that cannot be written.
	ErrReadOnlySource = errors.New("foc: position source is read-only")

	// ErrUnknownParam indicates SetParam with a name the component does not own.
	ErrUnknownParam = errors.New("foc: unknown parameter")
)
