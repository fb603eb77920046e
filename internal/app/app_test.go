package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/voltlive/internal/config"
	"github.com/dshills/voltlive/internal/display"
	"github.com/dshills/voltlive/internal/input"
	"github.com/dshills/voltlive/internal/orchestrator"
	"github.com/dshills/voltlive/internal/register"
	"github.com/dshills/voltlive/internal/session"
	"github.com/dshills/voltlive/internal/voltron"
)

type testApp struct {
	*Application
	client  *fakeClient
	view    *fakeView
	relay   *fakeRelay
	spawner *fakeSpawner
	out     *syncBuffer
}

func newTestApp(t *testing.T, opts Options) *testApp {
	t.Helper()
	ta := &testApp{
		Application: newApplication(opts),
		client:      &fakeClient{},
		view:        &fakeView{},
		relay:       newFakeRelay(),
		spawner:     &fakeSpawner{},
		out:         &syncBuffer{},
	}
	a := ta.Application
	text := display.NewText(ta.out)

	a.cfg = config.Default()
	a.cfg.Display.Mode = config.ModeText
	a.cfg.Session.SyncInterval = config.Duration{Duration: 10 * time.Millisecond}
	a.client = ta.client
	a.view = ta.view
	a.procs = noProcesses{}
	a.relay = ta.relay
	a.spawner = ta.spawner
	a.display, a.notifier = text, text
	a.session = session.New(voltron.GDB, register.Arch64, "/tmp/target", "target", []string{"stack"})
	a.orch = orchestrator.New(orchestrator.Config{
		Client:    ta.client,
		Session:   a.session,
		Processes: a.procs,
		View:      ta.view,
		Display:   text,
		Notifier:  text,
		Encoding:  register.Hex,
		OnResync:  a.armResync,
	})
	return ta
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
		ok   bool
	}{
		{"", Command{}, false},
		{"   ", Command{}, false},
		{"si", Command{Name: "si", Args: []string{}, Rest: ""}, true},
		{"  MODE  hex ", Command{Name: "mode", Args: []string{"hex"}, Rest: "hex "}, true},
		{"input raw hello  world", Command{Name: "input", Args: []string{"raw", "hello", "world"}, Rest: "raw hello  world"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParseCommand(tt.line)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.want.Name, got.Name)
			assert.ElementsMatch(t, tt.want.Args, got.Args)
			assert.Equal(t, tt.want.Rest, got.Rest)
		})
	}
}

func TestExecuteControlCommands(t *testing.T) {
	ta := newTestApp(t, Options{})
	ctx := context.Background()

	for _, line := range []string{"run", "si", "ni", "finish", "continue", "sync"} {
		require.NoError(t, ta.execute(ctx, line), line)
	}
	assert.Equal(t, []string{"run", "si", "ni", "finish", "continue"}, ta.client.controls)
	assert.Equal(t, 6, ta.client.registerCalls())
}

func TestExecuteQuit(t *testing.T) {
	ta := newTestApp(t, Options{})
	assert.ErrorIs(t, ta.execute(context.Background(), "quit"), ErrQuit)
}

func TestExecuteUnknown(t *testing.T) {
	ta := newTestApp(t, Options{})
	err := ta.execute(context.Background(), "frobnicate")
	assert.ErrorIs(t, err, ErrUnknownCommand)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "frobnicate", cmdErr.Command)
}

func TestExecuteMode(t *testing.T) {
	ta := newTestApp(t, Options{})
	ctx := context.Background()
	require.NoError(t, ta.execute(ctx, "sync"))

	require.NoError(t, ta.execute(ctx, "mode decimal"))
	assert.Equal(t, register.Decimal, ta.orch.Encoding())
	assert.Contains(t, ta.out.String(), "4198694")

	assert.Error(t, ta.execute(ctx, "mode octal"))
	assert.ErrorIs(t, ta.execute(ctx, "mode"), ErrUsage)
}

func TestExecuteInput(t *testing.T) {
	ta := newTestApp(t, Options{})
	ctx := context.Background()

	require.NoError(t, ta.execute(ctx, "input raw hello world"))
	require.NoError(t, ta.execute(ctx, "input hex 41 42 43"))
	require.NoError(t, ta.execute(ctx, "input b64 aGk="))
	assert.Equal(t, [][]byte{[]byte("hello world"), []byte("ABC"), []byte("hi")}, ta.relay.sent)

	assert.ErrorIs(t, ta.execute(ctx, "input hex zz"), input.ErrDecode)
	assert.ErrorIs(t, ta.execute(ctx, "input"), ErrUsage)
	assert.ErrorIs(t, ta.execute(ctx, "input octal 12"), input.ErrUnknownMode)
}

func TestExecuteInputWithoutTerminal(t *testing.T) {
	ta := newTestApp(t, Options{})
	ta.Application.relay = nil
	assert.ErrorIs(t, ta.execute(context.Background(), "input raw x"), ErrNoTerminal)
}

func TestExecuteArgs(t *testing.T) {
	ta := newTestApp(t, Options{})
	ctx := context.Background()

	require.NoError(t, ta.execute(ctx, "args hex 41414141"))
	require.NoError(t, ta.execute(ctx, "debugger lldb"))
	require.NoError(t, ta.execute(ctx, "args raw -v input.txt"))
	assert.Equal(t, []string{
		"set args AAAA",
		"settings set target.run-args -v input.txt",
	}, ta.client.args)
}

func TestExecuteBreak(t *testing.T) {
	ta := newTestApp(t, Options{})
	ctx := context.Background()

	require.NoError(t, ta.execute(ctx, "break 0x401000"))
	require.NoError(t, ta.execute(ctx, "break helper"))
	assert.Equal(t, []uint64{0x401000, 0x401100}, ta.client.breakpoints)
	assert.Contains(t, ta.out.String(), "Breakpoint set at 0x401100")

	assert.Error(t, ta.execute(ctx, "break nowhere"))
	assert.ErrorIs(t, ta.execute(ctx, "break"), ErrUsage)
}

func TestExecuteFrame(t *testing.T) {
	ta := newTestApp(t, Options{})
	ctx := context.Background()

	assert.ErrorIs(t, ta.execute(ctx, "frame x"), ErrUsage)
	assert.ErrorIs(t, ta.execute(ctx, "frame 3"), orchestrator.ErrNoSuchFrame)
}

func TestExecuteDebuggerAndSpawn(t *testing.T) {
	ta := newTestApp(t, Options{})
	ctx := context.Background()

	require.NoError(t, ta.execute(ctx, "spawn"))
	require.NoError(t, ta.execute(ctx, "debugger lldb"))
	assert.Equal(t, voltron.LLDB, ta.session.Debugger)
	require.NoError(t, ta.execute(ctx, "spawn"))

	assert.Equal(t, []string{"gdb -q /tmp/target", "lldb /tmp/target"}, ta.spawner.commands)
	assert.Error(t, ta.execute(ctx, "debugger windbg"))

	require.NoError(t, ta.execute(ctx, "si"))
	assert.Equal(t, []string{"si"}, ta.client.controls)
}

func TestApplyConfig(t *testing.T) {
	ta := newTestApp(t, Options{})
	_ = ta.execute(context.Background(), "sync")

	cfg := config.Default()
	cfg.Debugger = "lldb"
	cfg.Display.Encoding = "binary"
	cfg.Log.Level = "debug"
	ta.applyConfig(cfg)

	assert.Equal(t, voltron.LLDB, ta.session.Debugger)
	assert.Equal(t, register.Binary, ta.orch.Encoding())
	assert.Same(t, cfg, ta.Config())

	// The same debugger setting again leaves a runtime pick alone.
	ta.session.SetDebugger(voltron.GDB)
	again := config.Default()
	again.Debugger = "lldb"
	ta.applyConfig(again)
	assert.Equal(t, voltron.GDB, ta.session.Debugger)
}

func TestRunQuitsAtEndOfInput(t *testing.T) {
	r, w := io.Pipe()
	ta := newTestApp(t, Options{Input: r})

	done := make(chan error, 1)
	go func() { done <- ta.Run(context.Background()) }()

	_, err := io.WriteString(w, "si\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return ta.client.registerCalls() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, w.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRunResyncsAfterBusy(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	ta := newTestApp(t, Options{Input: r})
	ta.client.busy = 1

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ta.Run(ctx) }()

	_, err := io.WriteString(w, "continue\n")
	require.NoError(t, err)

	// The busy cycle, then the replay after the stop notification.
	require.Eventually(t, func() bool { return ta.client.registerCalls() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, ta.session.ResyncArmed())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Contains(t, ta.out.String(), orchestrator.MsgBusy)
}

func TestRunResyncsAfterWaitFailure(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	ta := newTestApp(t, Options{Input: r})
	ta.client.busy = 1
	ta.client.waitErr = errors.New("connection refused")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ta.Run(ctx) }()

	_, err := io.WriteString(w, "continue\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return ta.client.registerCalls() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestRunRelaysTerminalLines(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	ta := newTestApp(t, Options{Input: r})
	ta.relay.lines <- "Hello from the debuggee"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ta.Run(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(ta.out.String(), "| Hello from the debuggee\n")
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestCommandErrorsAreAlerted(t *testing.T) {
	ta := newTestApp(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ta.commands <- "bogus"
	ta.commands <- "quit"
	err := ta.loop(ctx, nil)
	assert.ErrorIs(t, err, ErrQuit)
	assert.Contains(t, ta.out.String(), "[alert] bogus: unknown command")
}

func TestClose(t *testing.T) {
	ta := newTestApp(t, Options{})
	ta.Close()
	ta.Close()
	assert.True(t, ta.client.closed)
}

func TestExecutablePathStripsDatabaseExtension(t *testing.T) {
	ta := newTestApp(t, Options{BinaryPath: "/work/target.bndb"})
	assert.Equal(t, "/work/target", ta.executablePath())

	ta = newTestApp(t, Options{BinaryPath: "/work/target"})
	assert.Equal(t, "/work/target", ta.executablePath())
}
