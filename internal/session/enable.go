package session

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dshills/voltlive/internal/binary"
	"github.com/dshills/voltlive/internal/display"
	"github.com/dshills/voltlive/internal/launch"
	"github.com/dshills/voltlive/internal/register"
	"github.com/dshills/voltlive/internal/stack"
	"github.com/dshills/voltlive/internal/voltron"
)

// Client is the part of the sync client needed to establish a session.
type Client interface {
	Version(ctx context.Context) (*voltron.VersionInfo, error)
	SetBreakpoint(ctx context.Context, d voltron.Debugger, addr uint64) error
	SetTTY(ctx context.Context, d voltron.Debugger, tty string) error
}

// Options controls Enable.
type Options struct {
	Debugger         voltron.Debugger
	Segments         []string
	SecondarySection string
	DBExtensions     []string
	SyncAttempts     int
	SyncInterval     time.Duration
	BreakOnMain      bool

	// TTY is bound as the debuggee's terminal when set.
	TTY string
}

// Enabler runs the session setup steps.
type Enabler struct {
	Client   Client
	View     binary.View
	Notifier display.Notifier

	// Spawner starts the debugger when the first sync fails. Optional.
	Spawner launch.Spawner

	Log *logrus.Entry

	// Sleep waits between sync attempts. Defaults to a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (e *Enabler) logger() *logrus.Entry {
	if e.Log != nil {
		return e.Log.WithField("component", "session")
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Enable establishes a session: resolve the architecture, sync with the
// debugger (spawning it once if the first attempt fails), set a breakpoint
// on main and bind the debuggee terminal.
func (e *Enabler) Enable(ctx context.Context, opts Options) (*Session, error) {
	log := e.logger()
	if e.Sleep == nil {
		e.Sleep = sleepContext
	}

	arch, err := register.ResolveArch(e.View.Arch())
	if err != nil {
		log.WithError(err).WithField("arch", e.View.Arch()).Error("architecture not supported, using 64-bit defaults")
	}

	target := stack.TargetPath(e.View.Path(), opts.DBExtensions)
	s := New(opts.Debugger, arch, target, stack.ProcessName(e.View.Path(), opts.DBExtensions), opts.Segments)
	s.SecondarySection = opts.SecondarySection
	log = log.WithField("session", s.ID.String())

	e.Notifier.Info("Syncing with Voltron")
	info, err := e.sync(ctx, s, opts, log)
	if err != nil {
		return nil, err
	}
	s.HostVersion = info.HostVersion
	if d, ok := voltron.DebuggerFromHost(info.HostVersion); ok && d != s.Debugger {
		log.WithFields(logrus.Fields{"configured": s.Debugger, "host": d}).Info("using debugger reported by host")
		s.Debugger = d
	}
	log.WithFields(logrus.Fields{
		"api":  info.APIVersion.String(),
		"host": info.HostVersion,
	}).Info("synced with voltron")

	if opts.BreakOnMain {
		e.Notifier.Info("Attempting to set breakpoint at main")
		if fn, ok := binary.FindFunction(e.View, "main"); ok {
			if err := e.Client.SetBreakpoint(ctx, s.Debugger, fn.Addr); err != nil {
				log.WithError(err).Warn("could not set breakpoint at main")
			}
			e.View.Navigate(fn.Addr)
		} else {
			e.Notifier.Alert("No main function found, so no breakpoints were set")
		}
	}

	if opts.TTY != "" {
		if err := e.Client.SetTTY(ctx, s.Debugger, opts.TTY); err != nil {
			log.WithError(err).WithField("tty", opts.TTY).Warn("could not bind debuggee terminal")
		}
	}
	return s, nil
}

// sync polls Version until it answers. A version outside the supported
// range ends the loop at once.
func (e *Enabler) sync(ctx context.Context, s *Session, opts Options, log *logrus.Entry) (*voltron.VersionInfo, error) {
	attempts := opts.SyncAttempts
	if attempts <= 0 {
		attempts = 1
	}

	info, err := e.Client.Version(ctx)
	if err == nil {
		return info, voltron.CheckVersion(info)
	}
	log.WithError(err).Info("initial sync failed")

	if e.Spawner != nil {
		e.Notifier.Info("Could not sync with Voltron, spawning debugger terminal")
		if _, serr := e.Spawner.Spawn(string(s.Debugger), LaunchCommand(s.Debugger, s.Target)); serr != nil {
			log.WithError(serr).Error("could not spawn debugger terminal")
		}
	}

	for i := 0; i < attempts; i++ {
		info, err = e.Client.Version(ctx)
		if err == nil {
			return info, voltron.CheckVersion(info)
		}
		log.WithError(err).WithField("attempt", i+1).Debug("sync attempt failed")
		if i == attempts-1 {
			break
		}
		if serr := e.Sleep(ctx, opts.SyncInterval); serr != nil {
			return nil, serr
		}
	}

	e.Notifier.Alert("Could not sync with Voltron. Is the debugger running with voltron loaded?")
	return nil, fmt.Errorf("%w: %v", ErrSyncFailed, err)
}
