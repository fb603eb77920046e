package terminal

import "errors"

// Sentinel errors for the terminal package.
var (
	// ErrRelayClosed is returned when input is queued on a stopped relay.
	ErrRelayClosed = errors.New("terminal relay is closed")

	// ErrPTYNotSupported is returned on platforms without /dev/ptmx.
	ErrPTYNotSupported = errors.New("PTY not supported on this platform")
)
