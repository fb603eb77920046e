// Package app wires the sync client, the binary view, the debuggee
// terminal and the display into a running overlay, and drives the
// control loop that turns commands into update cycles.
package app

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/voltlive/internal/binary"
	"github.com/dshills/voltlive/internal/config"
	"github.com/dshills/voltlive/internal/display"
	"github.com/dshills/voltlive/internal/launch"
	"github.com/dshills/voltlive/internal/orchestrator"
	"github.com/dshills/voltlive/internal/register"
	"github.com/dshills/voltlive/internal/session"
	"github.com/dshills/voltlive/internal/stack"
	"github.com/dshills/voltlive/internal/voltron"
)

// shutdownTimeout bounds how long spawned terminals get to exit.
const shutdownTimeout = 2 * time.Second

// Client is everything the application asks of the sync server.
type Client interface {
	orchestrator.Client
	session.Client
	SetArgs(ctx context.Context, d voltron.Debugger, args string) error
	WaitForStop(ctx context.Context) (string, error)
	Close() error
}

// debuggeeTerminal carries user input to the debuggee and its output
// back.
type debuggeeTerminal interface {
	Send(data []byte) error
	Lines() <-chan string
	TTY() string
	Run(ctx context.Context) error
	Stop()
}

// Options configures the application.
type Options struct {
	// ConfigPath is the configuration file. Empty uses the default
	// location when it exists.
	ConfigPath string

	// BinaryPath is the analysed executable or its analysis database.
	BinaryPath string

	// Override applies command-line settings on top of every loaded
	// configuration.
	Override func(*config.Config)

	// NoSpawn disables starting a debugger terminal when the first sync
	// fails.
	NoSpawn bool

	// Input is the text mode command source. Defaults to os.Stdin.
	Input io.Reader

	// Output is the text mode display. Defaults to os.Stdout.
	Output io.Writer

	// Screen is the TUI screen. One is created when nil.
	Screen tcell.Screen
}

// Application owns every component of a live session.
type Application struct {
	opts    Options
	cfg     *config.Config
	log     *logrus.Entry
	logFile io.Closer

	client     Client
	view       binary.View
	procs      stack.ProcessTable
	pty        io.Closer
	relay      debuggeeTerminal
	supervisor *launch.Supervisor
	spawner    launch.Spawner
	display    display.Display
	notifier   display.Notifier
	tui        *display.TUI
	watcher    *config.Watcher
	session    *session.Session
	orch       *orchestrator.Orchestrator

	commands chan string
	armed    chan struct{}
	resync   chan struct{}

	closeOnce sync.Once
}

// New builds the application and enables a session. It fails when the
// debugger never syncs.
func New(ctx context.Context, opts Options) (*Application, error) {
	app := newApplication(opts)
	if err := app.bootstrap(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func newApplication(opts Options) *Application {
	return &Application{
		opts:     opts,
		log:      discardLogger(),
		commands: make(chan string, 16),
		armed:    make(chan struct{}, 1),
		resync:   make(chan struct{}, 1),
	}
}

// Session returns the enabled session.
func (a *Application) Session() *session.Session {
	return a.session
}

// Config returns the active configuration.
func (a *Application) Config() *config.Config {
	return a.cfg
}

// Run drives the control loop until quit, end of command input or ctx
// cancellation.
func (a *Application) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	interval := a.cfg.Session.SyncInterval.Duration

	if a.relay != nil {
		g.Go(func() error {
			if err := a.relay.Run(ctx); err != nil && ctx.Err() == nil {
				a.log.WithError(err).Error("debuggee terminal failed")
			}
			return nil
		})
	}

	var updates <-chan *config.Config
	if a.watcher != nil {
		updates = a.watcher.Updates()
		g.Go(func() error {
			if err := a.watcher.Run(ctx); err != nil && ctx.Err() == nil {
				a.log.WithError(err).Warn("config watcher stopped")
			}
			return nil
		})
	}

	g.Go(func() error { return a.resyncLoop(ctx, interval) })

	if a.tui != nil {
		g.Go(func() error {
			if err := a.tui.Run(ctx, a.commands); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		})
	} else {
		// The reader blocks on input it cannot cancel, so it stays outside
		// the group.
		go a.readCommands(ctx, a.input())
	}

	g.Go(func() error { return a.loop(ctx, updates) })

	err := g.Wait()
	if errors.Is(err, ErrQuit) {
		return nil
	}
	return err
}

// loop is the single goroutine that touches the orchestrator and display.
func (a *Application) loop(ctx context.Context, updates <-chan *config.Config) error {
	var lines <-chan string
	if a.relay != nil {
		lines = a.relay.Lines()
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case line, ok := <-a.commands:
			if !ok {
				return ErrQuit
			}
			if err := a.execute(ctx, line); err != nil {
				if errors.Is(err, ErrQuit) {
					return ErrQuit
				}
				a.log.WithError(err).Warn("command failed")
				a.notifier.Alert(err.Error())
			}

		case <-a.resync:
			out, err := a.orch.HandleSync(ctx)
			entry := a.log.WithField("outcome", out.String())
			if err != nil {
				entry = entry.WithError(err)
			}
			entry.Debug("resync finished")

		case cfg, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			a.applyConfig(cfg)

		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			a.display.AppendTranscript(line)
			a.display.Repaint()
		}
	}
}

// armResync asks the waiter for one stop notification. Repeated arming
// before the waiter picks it up collapses into one.
func (a *Application) armResync() {
	select {
	case a.armed <- struct{}{}:
	default:
	}
}

// resyncLoop waits for the debugger to stop after each arming and posts
// the resync to the control loop. A failed wait backs off for interval
// and posts anyway so the armed cycle still runs.
func (a *Application) resyncLoop(ctx context.Context, interval time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.armed:
		}

		if _, err := a.client.WaitForStop(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			a.log.WithError(err).Warn("waiting for the debugger to stop failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
			}
		}

		select {
		case a.resync <- struct{}{}:
		case <-ctx.Done():
			return nil
		}
	}
}

// readCommands feeds lines from r to the control loop and closes the
// command channel at end of input.
func (a *Application) readCommands(ctx context.Context, r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		select {
		case a.commands <- sc.Text():
		case <-ctx.Done():
			return
		}
	}
	if err := sc.Err(); err != nil {
		a.log.WithError(err).Warn("reading commands failed")
	}
	close(a.commands)
}

// applyConfig takes the live settings from a reloaded configuration.
func (a *Application) applyConfig(cfg *config.Config) {
	prev := a.cfg
	a.cfg = cfg

	if level, err := ParseLogLevel(cfg.Log.Level); err == nil {
		a.log.Logger.SetLevel(level)
	}
	if prev == nil || cfg.Debugger != prev.Debugger {
		if d, err := voltron.ParseDebugger(cfg.Debugger); err == nil {
			a.setDebugger(d)
		}
	}
	if enc, err := register.ParseEncoding(cfg.Display.Encoding); err == nil && enc != a.orch.Encoding() {
		a.orch.SetEncoding(enc)
	}
	a.log.Info("configuration reloaded")
}

func (a *Application) input() io.Reader {
	if a.opts.Input != nil {
		return a.opts.Input
	}
	return os.Stdin
}

// Close shuts down the relay worker, spawned terminals, the sync client
// and the screen. It is safe to call more than once.
func (a *Application) Close() {
	a.closeOnce.Do(func() {
		if a.relay != nil {
			a.relay.Stop()
		}
		if a.supervisor != nil {
			a.supervisor.Shutdown(shutdownTimeout)
		}
		if a.client != nil {
			if err := a.client.Close(); err != nil {
				a.log.WithError(err).Debug("close sync client")
			}
		}
		if a.pty != nil {
			_ = a.pty.Close()
		}
		if a.tui != nil {
			a.tui.Fini()
		}
		a.log.Debug("closed")
		if a.logFile != nil {
			_ = a.logFile.Close()
		}
	})
}
