package launch

import (
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// Process is a spawned terminal window running a debugger command line.
type Process struct {
	// ID is the unique identifier assigned at spawn.
	ID string

	// Name labels the process, e.g. the debugger kind.
	Name string

	// Command is the shell command line run inside the terminal.
	Command string

	// Started is when the process was started.
	Started time.Time

	cmd     *exec.Cmd
	done    chan struct{}
	running atomic.Bool

	mu      sync.RWMutex
	exitErr error
}

func newProcess(id, name, command string, cmd *exec.Cmd) *Process {
	return &Process{
		ID:      id,
		Name:    name,
		Command: command,
		cmd:     cmd,
		done:    make(chan struct{}),
	}
}

func (p *Process) start() error {
	if err := p.cmd.Start(); err != nil {
		return err
	}
	p.Started = time.Now()
	p.running.Store(true)
	go p.wait()
	return nil
}

func (p *Process) wait() {
	err := p.cmd.Wait()
	p.mu.Lock()
	p.exitErr = err
	p.mu.Unlock()
	p.running.Store(false)
	close(p.done)
}

// Done is closed when the process exits.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Running reports whether the process has not yet exited.
func (p *Process) Running() bool {
	return p.running.Load()
}

// Err returns the wait error once the process has exited.
func (p *Process) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.exitErr
}

// PID returns the OS process id.
func (p *Process) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Terminate sends SIGTERM to the process group.
func (p *Process) Terminate() error {
	return p.signal(syscall.SIGTERM)
}

// Kill sends SIGKILL to the process group.
func (p *Process) Kill() error {
	return p.signal(syscall.SIGKILL)
}

func (p *Process) signal(sig syscall.Signal) error {
	if !p.Running() || p.cmd.Process == nil {
		return nil
	}
	// The process leads its own session, so signal the whole group.
	if err := syscall.Kill(-p.cmd.Process.Pid, sig); err != nil {
		return p.cmd.Process.Signal(sig)
	}
	return nil
}
