// Package launch starts debugger sessions in external terminal windows and
// keeps track of them so they can be closed together.
package launch

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Sentinel errors.
var (
	// ErrProcessNotFound is returned when a process ID is not tracked.
	ErrProcessNotFound = errors.New("process not found")

	// ErrSupervisorShutdown is returned after Shutdown.
	ErrSupervisorShutdown = errors.New("supervisor is shutting down")

	// ErrNoEmulator is returned when no terminal emulator is configured.
	ErrNoEmulator = errors.New("no terminal emulator configured")
)

// DefaultEmulator is the terminal command used when none is configured.
// The shell command is appended as "sh -c <command>".
const DefaultEmulator = "x-terminal-emulator -e"

// Spawner runs a command line in a new terminal window.
type Spawner interface {
	Spawn(name, command string) (*Process, error)
}

// Supervisor is a Spawner that tracks what it started.
//
// Supervisor is safe for concurrent use.
type Supervisor struct {
	emulator []string
	log      *logrus.Entry
	onExit   func(*Process)

	// command is replaced in tests.
	command func(name string, args ...string) *exec.Cmd

	mu        sync.RWMutex
	processes map[string]*Process
	closed    atomic.Bool
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithExitCallback sets a callback run when a spawned process exits.
func WithExitCallback(fn func(*Process)) Option {
	return func(s *Supervisor) {
		s.onExit = fn
	}
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Supervisor) {
		s.log = log
	}
}

// NewSupervisor creates a supervisor for the given emulator command line.
func NewSupervisor(emulator string, opts ...Option) *Supervisor {
	if strings.TrimSpace(emulator) == "" {
		emulator = DefaultEmulator
	}
	s := &Supervisor{
		emulator:  strings.Fields(emulator),
		processes: make(map[string]*Process),
		command:   exec.Command,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.log = logrus.NewEntry(l)
	}
	s.log = s.log.WithField("component", "launch")
	return s
}

// Spawn starts command in a new terminal window.
func (s *Supervisor) Spawn(name, command string) (*Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return nil, ErrSupervisorShutdown
	}
	if len(s.emulator) == 0 {
		return nil, ErrNoEmulator
	}

	args := append(append([]string(nil), s.emulator[1:]...), "sh", "-c", command)
	cmd := s.command(s.emulator[0], args...)
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true

	proc := newProcess(uuid.New().String(), name, command, cmd)
	if err := proc.start(); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", s.emulator[0], err)
	}
	s.processes[proc.ID] = proc

	s.log.WithFields(logrus.Fields{
		"id":      proc.ID,
		"pid":     proc.PID(),
		"command": command,
	}).Info("spawned terminal")

	go s.monitor(proc)
	return proc, nil
}

func (s *Supervisor) monitor(proc *Process) {
	<-proc.Done()

	entry := s.log.WithField("id", proc.ID)
	if err := proc.Err(); err != nil {
		entry = entry.WithError(err)
	}
	entry.Debug("terminal exited")

	if s.onExit != nil {
		s.onExit(proc)
	}

	s.mu.Lock()
	delete(s.processes, proc.ID)
	s.mu.Unlock()
}

// Get returns a tracked process.
func (s *Supervisor) Get(id string) (*Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.processes[id]
	if !ok {
		return nil, ErrProcessNotFound
	}
	return p, nil
}

// List returns the tracked processes.
func (s *Supervisor) List() []*Process {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Process, 0, len(s.processes))
	for _, p := range s.processes {
		out = append(out, p)
	}
	return out
}

// Count returns the number of tracked processes.
func (s *Supervisor) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.processes)
}

// Terminate sends SIGTERM to a tracked process.
func (s *Supervisor) Terminate(id string) error {
	p, err := s.Get(id)
	if err != nil {
		return err
	}
	return p.Terminate()
}

// Shutdown terminates every tracked process, killing those still running
// after timeout, and waits until they are gone.
func (s *Supervisor) Shutdown(timeout time.Duration) {
	if s.closed.Swap(true) {
		return
	}

	procs := s.List()
	for _, p := range procs {
		_ = p.Terminate()
	}

	done := make(chan struct{})
	go func() {
		for _, p := range procs {
			<-p.Done()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		for _, p := range procs {
			_ = p.Kill()
		}
		<-done
	}

	for s.Count() > 0 {
		time.Sleep(time.Millisecond)
	}
}
