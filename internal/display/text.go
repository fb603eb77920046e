package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dshills/voltlive/internal/backtrace"
	"github.com/dshills/voltlive/internal/memory"
	"github.com/dshills/voltlive/internal/register"
)

// Text is a Display and Notifier that writes plain text.
type Text struct {
	mu      sync.Mutex
	w       io.Writer
	st      state
	focused int
}

// NewText creates a text renderer writing to w.
func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

func (t *Text) ShowRegisters(rows []register.Row, flags []register.Flag) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.registers = rows
	t.st.flags = flags
}

func (t *Text) ShowMemory(segment string, base uint64, rows []memory.Row) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.setMemory(segment, base, rows)
}

func (t *Text) ShowFrames(frames []backtrace.Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.frames = frames
}

func (t *Text) ShowReturnAddress(addr uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.ret, t.st.hasRet = addr, true
}

// FocusTerminal counts focus requests; text output has no focus.
func (t *Text) FocusTerminal() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.focused++
}

// Focused returns how many times the terminal was focused.
func (t *Text) Focused() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.focused
}

// AppendTranscript writes a debuggee output line immediately.
func (t *Text) AppendTranscript(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.appendTranscript(line)
	fmt.Fprintf(t.w, "| %s\n", line)
}

func (t *Text) Info(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "[info] %s\n", msg)
}

func (t *Text) Alert(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "[alert] %s\n", msg)
}

// Repaint writes every section in one write.
func (t *Text) Repaint() {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	b.WriteString("== registers ==\n")
	for _, r := range t.st.registers {
		mark := " "
		if r.Dirty {
			mark = "*"
		}
		fmt.Fprintf(&b, "%s %-8s %s\n", mark, r.Name, r.Text)
	}
	if len(t.st.flags) > 0 {
		b.WriteString("  flags    ")
		for _, f := range t.st.flags {
			b.WriteString(flagText(f))
			b.WriteByte(' ')
		}
		b.WriteByte('\n')
	}

	for _, seg := range t.st.segments {
		fmt.Fprintf(&b, "== %s @ 0x%x ==\n", seg.name, seg.base)
		for _, row := range seg.rows {
			fmt.Fprintf(&b, "%016x  %-47s  |%s|\n", row.Addr, row.Hex(), row.ASCII())
		}
	}

	b.WriteString("== backtrace ==\n")
	for _, f := range t.st.frames {
		fmt.Fprintf(&b, "#%-3d 0x%016x %s\n", f.Index, f.Addr, f.Name)
	}
	if t.st.hasRet {
		fmt.Fprintf(&b, "ret  0x%016x\n", t.st.ret)
	}
	io.WriteString(t.w, b.String())
}

// flagText renders a flag as its letter, upper case when set and
// bracketed while highlighted.
func flagText(f register.Flag) string {
	s := f.Name
	if f.Set {
		s = strings.ToUpper(s)
	}
	if f.JustChanged {
		s = "[" + s + "]"
	}
	return s
}
