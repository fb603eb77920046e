// Package terminal owns the debuggee's pseudo-terminal and the relay worker
// that moves bytes between it and the user.
//
// # Architecture
//
//   - PTY: a master/slave pair. The slave path is bound as the debuggee's
//     tty through the debugger.
//   - Relay: a background worker that polls the master without blocking,
//     writes queued user input, and publishes received output as lines.
//
// The relay never blocks on the pty. Each tick it drains one queued message,
// polls the master with a zero timeout, and idles for the configured tick
// when nothing is ready. Output that arrives right after a write is the
// terminal echo of that write and is discarded.
//
// # Usage
//
//	pty, err := terminal.OpenPTY()
//	relay := terminal.NewRelay(pty, terminal.RelayConfig{Tick: 50 * time.Millisecond}, log)
//	go relay.Run(ctx)
//	relay.Send([]byte("hello"))
//	for line := range relay.Lines() { ... }
//	relay.Stop()
package terminal
