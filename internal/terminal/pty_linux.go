//go:build linux

package terminal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

// PTY is an open master/slave pair. The slave stays open for the lifetime
// of the pair so the master does not hang up while no debuggee is attached.
type PTY struct {
	master *os.File
	slave  *os.File
	name   string
}

// OpenPTY allocates a new pseudo-terminal.
func OpenPTY() (*PTY, error) {
	master, err := os.OpenFile("/dev/ptmx", os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("open ptmx: %w", err)
	}

	if err := unix.IoctlSetPointerInt(int(master.Fd()), unix.TIOCSPTLCK, 0); err != nil {
		master.Close()
		return nil, fmt.Errorf("unlock pty: %w", err)
	}

	n, err := unix.IoctlGetInt(int(master.Fd()), unix.TIOCGPTN)
	if err != nil {
		master.Close()
		return nil, fmt.Errorf("pty number: %w", err)
	}
	name := "/dev/pts/" + strconv.Itoa(n)

	slave, err := os.OpenFile(name, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		master.Close()
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	return &PTY{master: master, slave: slave, name: name}, nil
}

// Name returns the slave path.
func (p *PTY) Name() string {
	return p.name
}

func (p *PTY) Read(buf []byte) (int, error) {
	return p.master.Read(buf)
}

func (p *PTY) Write(data []byte) (int, error) {
	return p.master.Write(data)
}

// Poll waits up to timeout for the master to become readable.
func (p *PTY) Poll(timeout time.Duration) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(p.master.Fd()), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, int(timeout/time.Millisecond))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("poll pty: %w", err)
		}
		return n > 0 && fds[0].Revents&unix.POLLIN != 0, nil
	}
}

// Close closes both ends.
func (p *PTY) Close() error {
	serr := p.slave.Close()
	if err := p.master.Close(); err != nil {
		return err
	}
	return serr
}
