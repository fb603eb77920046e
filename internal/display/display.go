// Package display renders session state: the register list, memory dumps,
// the call stack and the debuggee terminal transcript.
//
// Two implementations are provided. Text writes plain sections to an
// io.Writer and suits headless use and logs. TUI draws a full-screen
// terminal interface with tcell and turns key presses into loop commands.
package display

import (
	"github.com/dshills/voltlive/internal/backtrace"
	"github.com/dshills/voltlive/internal/memory"
	"github.com/dshills/voltlive/internal/register"
)

// Display receives state pushes. Pushes are buffered until Repaint.
type Display interface {
	ShowRegisters(rows []register.Row, flags []register.Flag)
	ShowMemory(segment string, base uint64, rows []memory.Row)
	// ShowFrames receives frames in render order, outermost first.
	ShowFrames(frames []backtrace.Frame)
	ShowReturnAddress(addr uint64)
	Repaint()
	FocusTerminal()
	AppendTranscript(line string)
}

// Notifier surfaces status messages and alerts to the user.
type Notifier interface {
	Info(msg string)
	Alert(msg string)
}

// MaxTranscript bounds the kept transcript lines.
const MaxTranscript = 500

type segmentView struct {
	name string
	base uint64
	rows []memory.Row
}

// state is the last pushed model, shared by both renderers.
type state struct {
	registers  []register.Row
	flags      []register.Flag
	segments   []segmentView
	frames     []backtrace.Frame
	ret        uint64
	hasRet     bool
	transcript []string
	status     string
	alert      bool
}

func (s *state) setMemory(name string, base uint64, rows []memory.Row) {
	for i := range s.segments {
		if s.segments[i].name == name {
			s.segments[i] = segmentView{name, base, rows}
			return
		}
	}
	s.segments = append(s.segments, segmentView{name, base, rows})
}

func (s *state) appendTranscript(line string) {
	s.transcript = append(s.transcript, line)
	if n := len(s.transcript) - MaxTranscript; n > 0 {
		s.transcript = append(s.transcript[:0], s.transcript[n:]...)
	}
}
