package stack

import "errors"

// Sentinel errors for the stack package.
var (
	// ErrNoSuchProcess is returned when no process matches the debuggee name.
	ErrNoSuchProcess = errors.New("no such process")

	// ErrNoStackMapping is returned when the process has no [stack] mapping,
	// typically because it is tearing down.
	ErrNoStackMapping = errors.New("no stack mapping")

	// ErrStackPointerOutside is returned when the stack pointer lies
	// outside the stack mapping.
	ErrStackPointerOutside = errors.New("stack pointer outside stack mapping")

	// ErrInvalidRange is returned for a malformed "<low>-<high>" range.
	ErrInvalidRange = errors.New("invalid address range")
)
