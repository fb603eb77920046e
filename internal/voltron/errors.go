package voltron

import (
	"errors"
	"fmt"
	"strings"
)

// Literal error messages the sync server uses for the two recoverable
// target conditions.
const (
	MessageTargetBusy = "Target busy"
	MessageNoTarget   = "No such target"
)

// Sentinel errors for the voltron package.
var (
	// ErrTargetBusy is returned when the debuggee is running or blocked and
	// cannot be inspected right now.
	ErrTargetBusy = errors.New("target busy")

	// ErrNoTarget is returned when no debuggee is attached, usually because
	// it exited or was never started.
	ErrNoTarget = errors.New("no such target")

	// ErrUnsupportedVersion is returned when the server's API version is
	// outside the supported range.
	ErrUnsupportedVersion = errors.New("unsupported voltron API version")

	// ErrMalformedResponse is returned when a response cannot be decoded.
	ErrMalformedResponse = errors.New("malformed response")
)

// ProtocolError is a failed response from the sync server.
type ProtocolError struct {
	// Kind is the request kind that failed.
	Kind RequestKind

	// Code is the server error code, zero when absent.
	Code int64

	// Message is the server supplied message.
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("voltron %s request failed (code 0x%x): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("voltron %s request failed: %s", e.Kind, e.Message)
}

// Is reports whether the failure matches ErrTargetBusy or ErrNoTarget.
func (e *ProtocolError) Is(target error) bool {
	msg := strings.TrimSpace(e.Message)
	switch target {
	case ErrTargetBusy:
		return strings.EqualFold(msg, MessageTargetBusy)
	case ErrNoTarget:
		return strings.EqualFold(msg, MessageNoTarget)
	}
	return false
}

// IsTransient reports whether err is a condition that clears on its own
// once the debuggee stops again.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTargetBusy)
}
