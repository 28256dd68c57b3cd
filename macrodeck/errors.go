package macrodeck

import "errors"

var (
	// ErrNoBoard is returned by board operations before a board exists.
	ErrNoBoard = errors.New("board not created")

	// ErrOutOfRange is returned for board positions outside the grid and
	// other indices outside their valid range.
	ErrOutOfRange = errors.New("out of range")

	// ErrBoardShape is returned when board dimensions do not match the
	// device key grid.
	ErrBoardShape = errors.New("board does not match the key grid")

	// ErrStopped cancels blocking waits when the macro loop is stopped.
	ErrStopped = errors.New("macro loop stopped")

	// ErrLoopRunning is returned when a second macro loop is started.
	ErrLoopRunning = errors.New("macro loop already running")
)
