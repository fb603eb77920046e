package terminal

import (
	"io"
	"time"
)

// Conn is the relay's view of a terminal endpoint.
type Conn interface {
	io.ReadWriteCloser

	// Poll reports whether a read would not block, waiting at most timeout.
	Poll(timeout time.Duration) (bool, error)

	// Name is the tty path handed to the debugger.
	Name() string
}
