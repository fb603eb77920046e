package display

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/voltlive/internal/backtrace"
	"github.com/dshills/voltlive/internal/memory"
	"github.com/dshills/voltlive/internal/register"
)

var (
	_ Display  = (*Text)(nil)
	_ Notifier = (*Text)(nil)
	_ Display  = (*TUI)(nil)
	_ Notifier = (*TUI)(nil)
)

func sampleRows() []memory.Row {
	return []memory.Row{{
		Addr:  0x7ffffffde000,
		Cells: []memory.Cell{{Value: 'A'}, {Value: 0, Highlight: "red"}},
	}}
}

func TestTextRepaint(t *testing.T) {
	var buf bytes.Buffer
	d := NewText(&buf)

	d.ShowRegisters(
		[]register.Row{{Name: "rip", Text: "0x0000000000401000", Dirty: true}, {Name: "rax", Text: "0x0000000000000000"}},
		[]register.Flag{{Name: "z", Set: true, JustChanged: true}, {Name: "c"}},
	)
	d.ShowMemory("stack", 0x7ffffffde000, sampleRows())
	d.ShowFrames([]backtrace.Frame{{Index: 1, Addr: 0x401000, Name: "main"}, {Index: 0, Addr: 0x401100, Name: "inner"}})
	d.ShowReturnAddress(0x1000)
	assert.Empty(t, buf.String(), "pushes are buffered until repaint")

	d.Repaint()
	out := buf.String()
	assert.Contains(t, out, "* rip      0x0000000000401000")
	assert.Contains(t, out, "  rax")
	assert.Contains(t, out, "[Z] c")
	assert.Contains(t, out, "== stack @ 0x7ffffffde000 ==")
	assert.Contains(t, out, "41 00")
	assert.Contains(t, out, "|A.|")
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "ret  0x0000000000001000")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("main")), bytes.Index(buf.Bytes(), []byte("inner")))
}

func TestTextNotifier(t *testing.T) {
	var buf bytes.Buffer
	d := NewText(&buf)
	d.Info("Syncing with debugger")
	d.Alert("process has probably exited")
	d.AppendTranscript("hello")
	d.FocusTerminal()

	assert.Equal(t, "[info] Syncing with debugger\n[alert] process has probably exited\n| hello\n", buf.String())
	assert.Equal(t, 1, d.Focused())
}

func TestTranscriptBounded(t *testing.T) {
	var st state
	for i := 0; i < MaxTranscript+10; i++ {
		st.appendTranscript(fmt.Sprint(i))
	}
	assert.Len(t, st.transcript, MaxTranscript)
	assert.Equal(t, "10", st.transcript[0])
}

func TestSetMemoryReplacesSegment(t *testing.T) {
	var st state
	st.setMemory("stack", 1, nil)
	st.setMemory("bss", 2, nil)
	st.setMemory("stack", 3, nil)
	assert.Len(t, st.segments, 2)
	assert.Equal(t, uint64(3), st.segments[0].base)
}
