package orchestrator

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/dshills/voltlive/internal/backtrace"
	bin "github.com/dshills/voltlive/internal/binary"
	"github.com/dshills/voltlive/internal/memory"
	"github.com/dshills/voltlive/internal/register"
	"github.com/dshills/voltlive/internal/stack"
	"github.com/dshills/voltlive/internal/voltron"
)

type memRequest struct {
	addr, length uint64
}

// fakeClient answers from scripted queues. When a queue is exhausted the
// last entry repeats.
type fakeClient struct {
	controls  []string
	registers []registersReply
	memory    map[uint64][]byte
	memErr    error
	frames    []voltron.Frame
	framesErr error

	regCalls   int
	memCalls   []memRequest
	traceCalls int
}

type registersReply struct {
	regs *voltron.Registers
	err  error
}

func (c *fakeClient) Control(ctx context.Context, d voltron.Debugger, a voltron.Action) error {
	c.controls = append(c.controls, d.ControlCommand(a))
	return nil
}

func (c *fakeClient) Registers(ctx context.Context) (*voltron.Registers, error) {
	i := c.regCalls
	c.regCalls++
	if i >= len(c.registers) {
		i = len(c.registers) - 1
	}
	r := c.registers[i]
	return r.regs, r.err
}

func (c *fakeClient) Memory(ctx context.Context, addr, length uint64) ([]byte, error) {
	c.memCalls = append(c.memCalls, memRequest{addr, length})
	if c.memErr != nil {
		return nil, c.memErr
	}
	return c.memory[addr], nil
}

func (c *fakeClient) Backtrace(ctx context.Context) ([]voltron.Frame, error) {
	c.traceCalls++
	return c.frames, c.framesErr
}

type fakeProcess struct {
	pid  int
	maps []stack.Mapping
}

func (p fakeProcess) PID() int                           { return p.pid }
func (p fakeProcess) Mappings() ([]stack.Mapping, error) { return p.maps, nil }

type fakeProcesses map[string][]stack.Process

func (t fakeProcesses) FindByName(name string) ([]stack.Process, error) {
	return t[name], nil
}

type fakeView struct {
	sections  map[string]bin.Section
	navigated []uint64
}

func (v *fakeView) Path() string      { return "/tmp/target" }
func (v *fakeView) Arch() string      { return "x86_64" }
func (v *fakeView) PointerWidth() int { return 8 }
func (v *fakeView) FullWidthRegisters() []register.Spec {
	return bin.RegistersFor("x86_64")
}
func (v *fakeView) Functions() []bin.Function { return nil }
func (v *fakeView) Section(name string) (bin.Section, bool) {
	s, ok := v.sections[name]
	return s, ok
}
func (v *fakeView) Navigate(addr uint64) { v.navigated = append(v.navigated, addr) }

type shownMemory struct {
	base uint64
	rows []memory.Row
}

type fakeDisplay struct {
	registers []register.Row
	flags     []register.Flag
	memory    map[string]shownMemory
	frames    []backtrace.Frame
	ret       []uint64
	repaints  int
	focus     int
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{memory: make(map[string]shownMemory)}
}

func (d *fakeDisplay) ShowRegisters(rows []register.Row, flags []register.Flag) {
	d.registers, d.flags = rows, flags
}
func (d *fakeDisplay) ShowMemory(segment string, base uint64, rows []memory.Row) {
	d.memory[segment] = shownMemory{base, rows}
}
func (d *fakeDisplay) ShowFrames(frames []backtrace.Frame) { d.frames = frames }
func (d *fakeDisplay) ShowReturnAddress(addr uint64)       { d.ret = append(d.ret, addr) }
func (d *fakeDisplay) Repaint()                            { d.repaints++ }
func (d *fakeDisplay) FocusTerminal()                      { d.focus++ }
func (d *fakeDisplay) AppendTranscript(string)             {}

func (d *fakeDisplay) row(name string) (register.Row, bool) {
	for _, r := range d.registers {
		if r.Name == name {
			return r, true
		}
	}
	return register.Row{}, false
}

type fakeNotifier struct {
	infos  []string
	alerts []string
}

func (n *fakeNotifier) Info(msg string)  { n.infos = append(n.infos, msg) }
func (n *fakeNotifier) Alert(msg string) { n.alerts = append(n.alerts, msg) }

const (
	testSP     = uint64(0x7ffffffde000)
	testBP     = uint64(0x7ffffffde020)
	testIP     = uint64(0x401136)
	stackLow   = uint64(0x7ffffffdd000)
	stackHigh  = uint64(0x7ffffffdf000)
	bssAddr    = uint64(0x404020)
	bssLength  = uint64(16)
	returnAddr = uint64(0x1000)
)

func registerValues(overrides map[string]uint64) *voltron.Registers {
	values := map[string]uint64{
		"rip": testIP, "rflags": 0x246, "rsp": testSP, "rbp": testBP,
		"rax": 0, "rbx": 0, "rcx": 0, "rdx": 0, "rsi": 0, "rdi": 0,
		"r8": 0, "r9": 0, "r10": 0, "r11": 0, "r12": 0, "r13": 0, "r14": 0, "r15": 0,
		"cs": 0x33, "fs_base": 0x7ffff7d8a740, "xmm0": 0,
	}
	for k, v := range overrides {
		values[k] = v
	}
	return &voltron.Registers{
		Values: values,
		Deref: map[string][]voltron.DerefItem{
			"rsp": {{Kind: voltron.DerefPointer, Pointer: testSP}, {Kind: voltron.DerefPointer, Pointer: 0x400000}},
		},
	}
}

// stackBytes is a 64 byte window whose saved return address, one pointer
// past bp, is returnAddr.
func stackBytes() []byte {
	buf := make([]byte, 64)
	binary.LittleEndian.PutUint64(buf[testBP-testSP+8:], returnAddr)
	return buf
}

func stackProcesses() fakeProcesses {
	return fakeProcesses{"target": {fakeProcess{pid: 4242, maps: []stack.Mapping{
		{Path: "/tmp/target", Range: "400000-401000"},
		{Path: "[stack]", Range: fmt.Sprintf("%x-%x", stackLow, stackHigh)},
	}}}}
}
