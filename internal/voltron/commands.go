package voltron

import (
	"fmt"
	"strings"
)

// Debugger identifies the host debugger behind the sync server.
type Debugger string

// Supported debuggers.
const (
	GDB  Debugger = "gdb"
	LLDB Debugger = "lldb"
)

// ParseDebugger parses a debugger name.
func ParseDebugger(s string) (Debugger, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gdb":
		return GDB, nil
	case "lldb":
		return LLDB, nil
	}
	return "", fmt.Errorf("unknown debugger %q (must be gdb or lldb)", s)
}

// DebuggerFromHost guesses the debugger from a host version string.
func DebuggerFromHost(host string) (Debugger, bool) {
	h := strings.ToLower(host)
	switch {
	case strings.Contains(h, "lldb"):
		return LLDB, true
	case strings.Contains(h, "gdb"):
		return GDB, true
	}
	return "", false
}

// Action is a debugger control action.
type Action int

const (
	// ActionNone issues no command; the cycle only refreshes state.
	ActionNone Action = iota
	// ActionRun starts the debuggee.
	ActionRun
	// ActionStepInto executes one instruction.
	ActionStepInto
	// ActionStepOver executes one instruction, stepping over calls.
	ActionStepOver
	// ActionStepOut runs until the current frame returns.
	ActionStepOut
	// ActionContinue runs to the next breakpoint.
	ActionContinue
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionRun:
		return "run"
	case ActionStepInto:
		return "step-into"
	case ActionStepOver:
		return "step-over"
	case ActionStepOut:
		return "step-out"
	case ActionContinue:
		return "continue"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ParseAction maps the short command names used on the control loop.
func ParseAction(s string) (Action, bool) {
	switch s {
	case "run", "r":
		return ActionRun, true
	case "si", "step", "stepi":
		return ActionStepInto, true
	case "ni", "next", "nexti":
		return ActionStepOver, true
	case "finish", "out":
		return ActionStepOut, true
	case "continue", "c":
		return ActionContinue, true
	case "sync", "refresh":
		return ActionNone, true
	}
	return ActionNone, false
}

// ControlCommand returns the debugger command for a control action, or
// the empty string for ActionNone.
func (d Debugger) ControlCommand(a Action) string {
	switch a {
	case ActionRun:
		if d == LLDB {
			return "process launch"
		}
		return "run"
	case ActionStepInto:
		return "si"
	case ActionStepOver:
		return "ni"
	case ActionStepOut:
		return "finish"
	case ActionContinue:
		return "continue"
	}
	return ""
}

// BreakpointCommand returns the command setting a breakpoint at addr.
func (d Debugger) BreakpointCommand(addr uint64) string {
	if d == LLDB {
		return fmt.Sprintf("breakpoint set --address 0x%x", addr)
	}
	return fmt.Sprintf("break *0x%x", addr)
}

// ArgsCommand returns the command setting the debuggee's run arguments.
func (d Debugger) ArgsCommand(args string) string {
	if d == LLDB {
		return "settings set target.run-args " + args
	}
	return "set args " + args
}

// TTYCommands returns the commands binding the debuggee's terminal to tty.
func (d Debugger) TTYCommands(tty string) []string {
	if d == LLDB {
		return []string{
			"settings set target.input-path " + tty,
			"settings set target.output-path " + tty,
		}
	}
	return []string{"tty " + tty}
}
