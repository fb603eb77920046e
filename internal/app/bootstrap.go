package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/voltlive/internal/binary"
	"github.com/dshills/voltlive/internal/config"
	"github.com/dshills/voltlive/internal/display"
	"github.com/dshills/voltlive/internal/launch"
	"github.com/dshills/voltlive/internal/orchestrator"
	"github.com/dshills/voltlive/internal/register"
	"github.com/dshills/voltlive/internal/session"
	"github.com/dshills/voltlive/internal/stack"
	"github.com/dshills/voltlive/internal/terminal"
	"github.com/dshills/voltlive/internal/voltron"
)

// bootstrap initializes all components in dependency order.
func (a *Application) bootstrap(ctx context.Context) error {
	// 1. Configuration
	if err := a.loadConfig(); err != nil {
		return &InitError{Component: "config", Err: err}
	}

	// 2. Logging
	if err := a.initLogger(); err != nil {
		return &InitError{Component: "logging", Err: err}
	}

	// 3. Sync client
	a.initClient()

	// 4. Binary view
	view, err := binary.OpenELF(a.executablePath(), a.navigated, a.log)
	if err != nil {
		return &InitError{Component: "binary", Err: err}
	}
	a.view = view

	// 5. Process table
	procs, err := stack.NewProcFS("")
	if err != nil {
		return &InitError{Component: "procfs", Err: err}
	}
	a.procs = procs

	// 6. Debuggee terminal, optional
	a.initTerminal()

	// 7. Debugger terminal launcher
	a.supervisor = launch.NewSupervisor(a.cfg.Terminal.Emulator,
		launch.WithLogger(a.log),
		launch.WithExitCallback(func(p *launch.Process) {
			a.log.WithField("process", p.Name).Info("debugger terminal exited")
		}),
	)
	a.spawner = a.supervisor

	// 8. Display
	if err := a.initDisplay(); err != nil {
		return &InitError{Component: "display", Err: err}
	}

	// 9. Config watcher, optional
	a.initWatcher()

	// 10. Session
	if err := a.enable(ctx); err != nil {
		return err
	}

	// 11. Update cycle
	enc, _ := register.ParseEncoding(a.cfg.Display.Encoding)
	a.orch = orchestrator.New(orchestrator.Config{
		Client:    a.client,
		Session:   a.session,
		Processes: a.procs,
		View:      a.view,
		Display:   a.display,
		Notifier:  a.notifier,
		Log:       a.log,
		Encoding:  enc,
		OnResync:  a.armResync,
	})

	a.log.WithField("session", a.session.String()).Info("session enabled")
	return nil
}

func (a *Application) loadConfig() error {
	cfg, err := config.Load(a.opts.ConfigPath)
	if err != nil {
		return err
	}
	if a.opts.Override != nil {
		a.opts.Override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// initLogger writes to the configured file, or stderr. The TUI owns the
// terminal, so without a file it logs nowhere.
func (a *Application) initLogger() error {
	level, err := ParseLogLevel(a.cfg.Log.Level)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stderr
	switch {
	case a.cfg.Log.File != "":
		f, err := os.OpenFile(a.cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		a.logFile = f
		out = f
	case a.cfg.Display.Mode == config.ModeTUI:
		out = io.Discard
	}

	a.log = NewLogger(LoggerConfig{Level: level, Output: out, Prefix: "voltlive"})
	return nil
}

// initClient prefers the unix socket when one is configured.
func (a *Application) initClient() {
	v := a.cfg.Voltron
	var t voltron.Transport
	if v.Socket != "" {
		t = voltron.NewUnixTransport(v.Socket, v.Timeout.Duration)
		a.log.WithField("socket", v.Socket).Debug("using unix socket transport")
	} else {
		t = voltron.NewTCPTransport(v.Address, v.Timeout.Duration)
		a.log.WithField("address", v.Address).Debug("using tcp transport")
	}
	a.client = voltron.NewClient(t, a.log)
}

// initTerminal opens the pty relayed to the debuggee. Without one the
// overlay still works, only input forwarding is lost.
func (a *Application) initTerminal() {
	pty, err := terminal.OpenPTY()
	if err != nil {
		a.log.WithError(err).Warn("no debuggee terminal, input relay disabled")
		return
	}
	a.pty = pty
	a.relay = terminal.NewRelay(pty, terminal.RelayConfig{Tick: a.cfg.Terminal.Tick.Duration}, a.log)
}

func (a *Application) initDisplay() error {
	if a.cfg.Display.Mode == config.ModeText {
		out := a.opts.Output
		if out == nil {
			out = os.Stdout
		}
		text := display.NewText(out)
		a.display, a.notifier = text, text
		return nil
	}

	screen := a.opts.Screen
	if screen == nil {
		var err error
		if screen, err = tcell.NewScreen(); err != nil {
			return err
		}
	}
	tui, err := display.NewTUI(screen)
	if err != nil {
		return err
	}
	if err := tui.Init(); err != nil {
		return err
	}
	a.tui = tui
	a.display, a.notifier = tui, tui
	return nil
}

// initWatcher watches the config file so picker changes apply live. A
// missing default file is not watched.
func (a *Application) initWatcher() {
	path := a.opts.ConfigPath
	if path == "" {
		path = config.DefaultPath()
		if path == "" {
			return
		}
		if _, err := os.Stat(path); err != nil {
			return
		}
	}
	w, err := config.NewWatcher(path, os.LookupEnv, a.log)
	if err != nil {
		a.log.WithError(err).Warn("config reload disabled")
		return
	}
	w.SetOverride(a.opts.Override)
	a.watcher = w
}

func (a *Application) enable(ctx context.Context) error {
	d, err := voltron.ParseDebugger(a.cfg.Debugger)
	if err != nil {
		return &InitError{Component: "session", Err: err}
	}

	enabler := &session.Enabler{
		Client:   a.client,
		View:     a.view,
		Notifier: a.notifier,
		Log:      a.log,
	}
	if !a.opts.NoSpawn {
		enabler.Spawner = a.spawner
	}

	opts := session.Options{
		Debugger:         d,
		Segments:         a.cfg.Session.Segments,
		SecondarySection: a.cfg.Session.SecondarySection,
		DBExtensions:     a.cfg.Session.DBExtensions,
		SyncAttempts:     a.cfg.Session.SyncAttempts,
		SyncInterval:     a.cfg.Session.SyncInterval.Duration,
		BreakOnMain:      a.cfg.Session.BreakOnMain,
	}
	if a.relay != nil {
		opts.TTY = a.relay.TTY()
	}

	s, err := enabler.Enable(ctx, opts)
	if err != nil {
		return &InitError{Component: "session", Err: err}
	}
	a.session = s
	return nil
}

// executablePath is the binary to analyse: the command-line path with any
// analysis-database extension removed.
func (a *Application) executablePath() string {
	return stack.TargetPath(a.opts.BinaryPath, a.cfg.Session.DBExtensions)
}

// navigated reports a binary view navigation.
func (a *Application) navigated(addr uint64) {
	if a.notifier != nil {
		a.notifier.Info(fmt.Sprintf("Navigated to 0x%x", addr))
	}
}
