package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrQuit signals that the application should exit normally.
	ErrQuit = errors.New("quit requested")

	// ErrUnknownCommand is returned for a control loop command that does
	// not exist.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUsage is returned when a command has the wrong arguments.
	ErrUsage = errors.New("bad arguments")

	// ErrNoTerminal is returned when debuggee input is sent without a
	// terminal relay.
	ErrNoTerminal = errors.New("no debuggee terminal")
)

// InitError reports a component that failed to start.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("init %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// CommandError reports a failed control loop command.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
