//go:build !linux

package terminal

import "time"

// PTY is unavailable on this platform.
type PTY struct{}

// OpenPTY reports ErrPTYNotSupported.
func OpenPTY() (*PTY, error) {
	return nil, ErrPTYNotSupported
}

func (p *PTY) Name() string { return "" }
func (p *PTY) Read([]byte) (int, error) { return 0, ErrPTYNotSupported }
func (p *PTY) Write([]byte) (int, error) { return 0, ErrPTYNotSupported }
func (p *PTY) Poll(time.Duration) (bool, error) { return false, ErrPTYNotSupported }
func (p *PTY) Close() error { return nil }
