package griddeck

import "errors"

var (
	// ErrNotOpen is returned for any operation on a closed handle,
	// including handles invalidated by an earlier transport failure.
	ErrNotOpen = errors.New("device not open")

	// ErrInvalidKey is returned for key indices outside the model's range.
	ErrInvalidKey = errors.New("key index out of range")

	// ErrInvalidDial is returned for dial indices outside the model's range.
	ErrInvalidDial = errors.New("dial index out of range")

	// ErrInvalidBrightness is returned for brightness values outside [0,100].
	ErrInvalidBrightness = errors.New("brightness out of range")

	// ErrInvalidRect is returned for a touchscreen rectangle outside the
	// surface.
	ErrInvalidRect = errors.New("rectangle outside surface")

	// ErrUnsupported is returned when the model lacks the addressed
	// capability, checked against the capability table before any I/O.
	ErrUnsupported = errors.New("not supported on this model")

	// ErrMonitorRunning is returned by Monitor.Start while a poll loop is
	// already active.
	ErrMonitorRunning = errors.New("monitor already running")
)
