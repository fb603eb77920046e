// Package session holds the context of one debugging session and runs the
// steps that establish it: syncing with the debugger, breaking on main and
// binding the debuggee terminal.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/voltlive/internal/register"
	"github.com/dshills/voltlive/internal/voltron"
)

// Sentinel errors.
var (
	// ErrSyncFailed is returned when the debugger never answered a sync.
	ErrSyncFailed = errors.New("could not sync with voltron")
)

// Session is the explicit context of one debugging session.
type Session struct {
	ID       uuid.UUID
	Debugger voltron.Debugger
	Arch     register.Arch

	// Target is the debuggee executable path.
	Target string

	// ProcessName is the name the debuggee runs under.
	ProcessName string

	// Segments are the tracked memory segments, "stack" first.
	Segments []string

	// SecondarySection is the image section fetched after the stack.
	SecondarySection string

	// HostVersion is the debugger's self-reported version.
	HostVersion string

	resync atomic.Bool
}

// New creates a session for target.
func New(d voltron.Debugger, arch register.Arch, target, procName string, segments []string) *Session {
	return &Session{
		ID:          uuid.New(),
		Debugger:    d,
		Arch:        arch,
		Target:      target,
		ProcessName: procName,
		Segments:    append([]string(nil), segments...),
	}
}

// ArmResync subscribes to the next successful sync. It reports false when
// a subscription is already pending, so arming twice still yields one.
func (s *Session) ArmResync() bool {
	return s.resync.CompareAndSwap(false, true)
}

// ResyncArmed reports whether a subscription is pending.
func (s *Session) ResyncArmed() bool {
	return s.resync.Load()
}

// ConsumeResync takes the pending subscription. Only one caller observes
// true per arming.
func (s *Session) ConsumeResync() bool {
	return s.resync.Swap(false)
}

// SetDebugger switches the debugger kind used for command spellings.
func (s *Session) SetDebugger(d voltron.Debugger) {
	s.Debugger = d
}

func (s *Session) String() string {
	return fmt.Sprintf("session %s (%s, %s, %s)", s.ID, s.Debugger, s.Arch, s.Target)
}

// LaunchCommand returns the shell command line starting d on target.
func LaunchCommand(d voltron.Debugger, target string) string {
	if d == voltron.LLDB {
		return "lldb " + shellQuote(target)
	}
	return "gdb -q " + shellQuote(target)
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`!*?[]{}()<>|&;#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
