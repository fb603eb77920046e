package app

import (
	"context"
	"errors"
	"sync"

	"github.com/dshills/voltlive/internal/binary"
	"github.com/dshills/voltlive/internal/launch"
	"github.com/dshills/voltlive/internal/register"
	"github.com/dshills/voltlive/internal/stack"
	"github.com/dshills/voltlive/internal/voltron"
)

var errBusy = &voltron.ProtocolError{Kind: voltron.KindRegisters, Message: voltron.MessageTargetBusy}

// fakeClient records requests. Registers answers busy until busy is
// used up.
type fakeClient struct {
	mu sync.Mutex

	busy        int
	controls    []string
	breakpoints []uint64
	args        []string
	regCalls    int
	waits       int
	waitErr     error
	closed      bool
}

func (c *fakeClient) Control(ctx context.Context, d voltron.Debugger, a voltron.Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controls = append(c.controls, d.ControlCommand(a))
	return nil
}

func (c *fakeClient) Registers(ctx context.Context) (*voltron.Registers, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regCalls++
	if c.busy > 0 {
		c.busy--
		return nil, errBusy
	}
	return &voltron.Registers{Values: map[string]uint64{
		"rip": 0x401126, "rflags": 0x202, "rsp": 0x7ffffffde000, "rbp": 0x7ffffffde020,
	}}, nil
}

func (c *fakeClient) Memory(ctx context.Context, addr, length uint64) ([]byte, error) {
	return nil, errors.New("not mapped")
}

func (c *fakeClient) Backtrace(ctx context.Context) ([]voltron.Frame, error) {
	return nil, nil
}

func (c *fakeClient) Version(ctx context.Context) (*voltron.VersionInfo, error) {
	return nil, errors.New("not used")
}

func (c *fakeClient) SetBreakpoint(ctx context.Context, d voltron.Debugger, addr uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.breakpoints = append(c.breakpoints, addr)
	return nil
}

func (c *fakeClient) SetTTY(ctx context.Context, d voltron.Debugger, tty string) error {
	return nil
}

func (c *fakeClient) SetArgs(ctx context.Context, d voltron.Debugger, args string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.args = append(c.args, d.ArgsCommand(args))
	return nil
}

func (c *fakeClient) WaitForStop(ctx context.Context) (string, error) {
	c.mu.Lock()
	c.waits++
	err := c.waitErr
	c.mu.Unlock()
	return "stopped", err
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeClient) registerCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regCalls
}

type fakeView struct {
	navigated []uint64
}

func (v *fakeView) Path() string      { return "/tmp/target" }
func (v *fakeView) Arch() string      { return "x86_64" }
func (v *fakeView) PointerWidth() int { return 8 }
func (v *fakeView) FullWidthRegisters() []register.Spec {
	return binary.RegistersFor("x86_64")
}
func (v *fakeView) Functions() []binary.Function {
	return []binary.Function{{Name: "main", Addr: 0x401126}, {Name: "helper", Addr: 0x401100}}
}
func (v *fakeView) Section(string) (binary.Section, bool) { return binary.Section{}, false }
func (v *fakeView) Navigate(addr uint64)                  { v.navigated = append(v.navigated, addr) }

type noProcesses struct{}

func (noProcesses) FindByName(string) ([]stack.Process, error) { return nil, nil }

type fakeRelay struct {
	sent  [][]byte
	lines chan string
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{lines: make(chan string, 4)}
}

func (r *fakeRelay) Send(data []byte) error {
	r.sent = append(r.sent, data)
	return nil
}
func (r *fakeRelay) Lines() <-chan string { return r.lines }
func (r *fakeRelay) TTY() string          { return "/dev/pts/9" }
func (r *fakeRelay) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
func (r *fakeRelay) Stop() {}

type fakeSpawner struct {
	names, commands []string
}

func (s *fakeSpawner) Spawn(name, command string) (*launch.Process, error) {
	s.names = append(s.names, name)
	s.commands = append(s.commands, command)
	return &launch.Process{Name: name, Command: command}, nil
}

// syncBuffer is a goroutine safe bytes.Buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
