package display

import (
	"context"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/voltlive/internal/backtrace"
	"github.com/dshills/voltlive/internal/memory"
	"github.com/dshills/voltlive/internal/register"
)

// Function key bindings for the debugger actions.
var keyCommands = map[tcell.Key]string{
	tcell.KeyF5:  "continue",
	tcell.KeyF6:  "run",
	tcell.KeyF7:  "si",
	tcell.KeyF8:  "ni",
	tcell.KeyF9:  "finish",
	tcell.KeyF10: "sync",
}

const registerColumn = 34

var (
	styleDefault = tcell.StyleDefault
	styleTitle   = tcell.StyleDefault.Bold(true).Underline(true)
	styleDirty   = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleFlagHot = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleAlert   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorDarkRed)
	styleStatus  = tcell.StyleDefault.Reverse(true)
)

// TUI is a full-screen Display and Notifier.
type TUI struct {
	mu     sync.Mutex
	screen tcell.Screen
	st     state

	input    []rune
	terminal bool
}

// NewTUI wraps screen. A nil screen opens the controlling terminal.
func NewTUI(screen tcell.Screen) (*TUI, error) {
	if screen == nil {
		s, err := tcell.NewScreen()
		if err != nil {
			return nil, fmt.Errorf("open screen: %w", err)
		}
		screen = s
	}
	return &TUI{screen: screen}, nil
}

// Init takes over the terminal.
func (t *TUI) Init() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.screen.Init(); err != nil {
		return err
	}
	t.screen.EnablePaste()
	t.screen.Clear()
	return nil
}

// Fini restores the terminal. Run returns once the screen is finalised.
func (t *TUI) Fini() {
	t.screen.Fini()
}

func (t *TUI) ShowRegisters(rows []register.Row, flags []register.Flag) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.registers = rows
	t.st.flags = flags
}

func (t *TUI) ShowMemory(segment string, base uint64, rows []memory.Row) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.setMemory(segment, base, rows)
}

func (t *TUI) ShowFrames(frames []backtrace.Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.frames = frames
}

func (t *TUI) ShowReturnAddress(addr uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.ret, t.st.hasRet = addr, true
}

// FocusTerminal routes the input line to the debuggee.
func (t *TUI) FocusTerminal() {
	t.mu.Lock()
	t.terminal = true
	t.mu.Unlock()
	t.Repaint()
}

func (t *TUI) AppendTranscript(line string) {
	t.mu.Lock()
	t.st.appendTranscript(line)
	t.mu.Unlock()
	t.Repaint()
}

func (t *TUI) Info(msg string) {
	t.setStatus(msg, false)
}

func (t *TUI) Alert(msg string) {
	t.setStatus(msg, true)
	_ = t.screen.Beep()
}

func (t *TUI) setStatus(msg string, alert bool) {
	t.mu.Lock()
	t.st.status, t.st.alert = msg, alert
	t.mu.Unlock()
	t.Repaint()
}

// Repaint redraws the whole screen.
func (t *TUI) Repaint() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.draw()
	t.screen.Show()
}

func (t *TUI) draw() {
	t.screen.Clear()
	w, h := t.screen.Size()
	if w == 0 || h < 4 {
		return
	}

	transcriptRows := h / 4
	top := h - transcriptRows - 2

	// Left column: registers and flags.
	y := t.text(0, 0, registerColumn, styleTitle, "Registers")
	for _, r := range t.st.registers {
		if y >= top {
			break
		}
		style := styleDefault
		if r.Dirty {
			style = styleDirty
		}
		t.text(0, y, registerColumn, style, fmt.Sprintf("%-7s %s", r.Name, r.Text))
		y++
	}
	if len(t.st.flags) > 0 && y < top {
		x := 0
		for _, f := range t.st.flags {
			style := styleDefault
			if f.JustChanged {
				style = styleFlagHot
			}
			x += t.textWidth(x, y, registerColumn-x, style, flagText(f)+" ")
		}
	}

	// Right column: memory, then the call stack.
	left := registerColumn + 1
	width := w - left
	y = 0
	for _, seg := range t.st.segments {
		if y >= top {
			break
		}
		y = t.text(left, y, width, styleTitle, fmt.Sprintf("%s @ 0x%x", seg.name, seg.base))
		for _, row := range seg.rows {
			if y >= top {
				break
			}
			t.dumpRow(left, y, width, row)
			y++
		}
	}
	if y < top {
		y = t.text(left, y, width, styleTitle, "Backtrace")
	}
	for _, f := range t.st.frames {
		if y >= top {
			break
		}
		t.text(left, y, width, styleDefault, fmt.Sprintf("#%-3d 0x%x %s", f.Index, f.Addr, f.Name))
		y++
	}
	if t.st.hasRet && y < top {
		t.text(left, y, width, styleDefault, fmt.Sprintf("ret  0x%x", t.st.ret))
	}

	// Bottom: transcript, status and input.
	lines := t.st.transcript
	if len(lines) > transcriptRows {
		lines = lines[len(lines)-transcriptRows:]
	}
	for i, line := range lines {
		t.text(0, top+i, w, styleDefault, line)
	}

	statusStyle := styleStatus
	if t.st.alert {
		statusStyle = styleAlert
	}
	t.fill(h-2, w, statusStyle)
	t.text(0, h-2, w, statusStyle, t.st.status)

	prompt := "> "
	if t.terminal {
		prompt = "tty> "
	}
	t.text(0, h-1, w, styleDefault, prompt+string(t.input))
	t.screen.ShowCursor(len(prompt)+len(t.input), h-1)
}

func (t *TUI) dumpRow(x, y, width int, row memory.Row) {
	x0 := x
	x += t.textWidth(x, y, width, styleDefault, fmt.Sprintf("%012x ", row.Addr))
	for _, c := range row.Cells {
		style := styleDefault
		if c.Highlight != "" {
			style = style.Background(tcell.GetColor(c.Highlight))
		}
		x += t.textWidth(x, y, width-(x-x0), style, fmt.Sprintf("%02x", c.Value))
		x += t.textWidth(x, y, width-(x-x0), styleDefault, " ")
	}
	t.textWidth(x, y, width-(x-x0), styleDefault, "|"+row.ASCII()+"|")
}

// text draws s at (x, y) clipped to width and returns the next row.
func (t *TUI) text(x, y, width int, style tcell.Style, s string) int {
	t.textWidth(x, y, width, style, s)
	return y + 1
}

// textWidth draws s and returns the columns used.
func (t *TUI) textWidth(x, y, width int, style tcell.Style, s string) int {
	n := 0
	for _, r := range s {
		if n >= width {
			break
		}
		t.screen.SetContent(x+n, y, r, nil, style)
		n++
	}
	return n
}

func (t *TUI) fill(y, width int, style tcell.Style) {
	for x := 0; x < width; x++ {
		t.screen.SetContent(x, y, ' ', nil, style)
	}
}

// Run handles input until ctx ends or the screen is finalised. Completed
// lines and key bindings are sent to out as loop commands. Lines typed
// while the terminal has focus become raw debuggee input.
func (t *TUI) Run(ctx context.Context, out chan<- string) error {
	go func() {
		<-ctx.Done()
		_ = t.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}()

	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return nil
		}
		switch ev := ev.(type) {
		case *tcell.EventInterrupt:
			if ctx.Err() != nil {
				return ctx.Err()
			}
		case *tcell.EventResize:
			t.screen.Sync()
			t.Repaint()
		case *tcell.EventKey:
			cmd, ok := t.key(ev)
			t.Repaint()
			if !ok {
				continue
			}
			select {
			case out <- cmd:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// key applies a key event and reports the command it completes, if any.
func (t *TUI) key(ev *tcell.EventKey) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cmd, ok := keyCommands[ev.Key()]; ok {
		return cmd, true
	}
	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyCtrlD:
		return "quit", true
	case tcell.KeyTab:
		t.terminal = !t.terminal
	case tcell.KeyEscape:
		t.terminal = false
		t.input = t.input[:0]
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(t.input) > 0 {
			t.input = t.input[:len(t.input)-1]
		}
	case tcell.KeyEnter:
		line := string(t.input)
		t.input = t.input[:0]
		if t.terminal {
			return "input raw " + line, true
		}
		if line == "" {
			return "", false
		}
		return line, true
	case tcell.KeyRune:
		t.input = append(t.input, ev.Rune())
	}
	return "", false
}
