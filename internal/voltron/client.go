// Package voltron implements a client for the Voltron debugger state-sync
// API.
package voltron

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Client issues typed sync requests. It never retries; retry policy
// belongs to the caller.
type Client struct {
	transport Transport
	log       *logrus.Entry
}

// NewClient creates a client over transport. A nil logger discards output.
func NewClient(transport Transport, log *logrus.Entry) *Client {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	return &Client{
		transport: transport,
		log:       log.WithField("component", "voltron"),
	}
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

// do sends one request and returns its payload.
func (c *Client) do(ctx context.Context, kind RequestKind, params ...param) (gjson.Result, error) {
	body, err := encodeRequest(kind, params)
	if err != nil {
		return gjson.Result{}, err
	}

	c.log.Debugf("-> %s", body)

	resp, err := c.transport.RoundTrip(ctx, body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s request: %w", kind, err)
	}

	if len(resp) > 512 {
		c.log.Debugf("<- %s...", resp[:512])
	} else {
		c.log.Debugf("<- %s", resp)
	}

	return decodeResponse(kind, resp)
}

// Version requests the server and host debugger version.
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	data, err := c.do(ctx, KindVersion)
	if err != nil {
		return nil, err
	}
	return decodeVersion(data)
}

// Command runs a debugger command without waiting for the debuggee and
// returns its output.
func (c *Client) Command(ctx context.Context, command string) (string, error) {
	data, err := c.do(ctx, KindCommand,
		param{"command", command},
		param{"block", false},
	)
	if err != nil {
		return "", err
	}
	return data.Get("output").String(), nil
}

// Registers requests all register values with best-effort dereference
// chains.
func (c *Client) Registers(ctx context.Context) (*Registers, error) {
	data, err := c.do(ctx, KindRegisters,
		param{"block", false},
		param{"deref", true},
	)
	if err != nil {
		return nil, err
	}
	return decodeRegisters(data), nil
}

// Memory reads length bytes at address. An empty result without error
// means the server returned no data.
func (c *Client) Memory(ctx context.Context, address, length uint64) ([]byte, error) {
	data, err := c.do(ctx, KindMemory,
		param{"block", false},
		param{"address", address},
		param{"length", length},
	)
	if err != nil {
		return nil, err
	}
	return decodeMemory(data)
}

// Backtrace requests the current call stack, innermost frame first.
func (c *Client) Backtrace(ctx context.Context) ([]Frame, error) {
	data, err := c.do(ctx, KindBacktrace, param{"block", false})
	if err != nil {
		return nil, err
	}
	return decodeFrames(data), nil
}

// State returns the debuggee state ("stopped", "running", ...).
func (c *Client) State(ctx context.Context) (string, error) {
	data, err := c.do(ctx, KindState, param{"block", false})
	if err != nil {
		return "", err
	}
	return data.Get("state").String(), nil
}

// WaitForStop blocks on the server until the debuggee stops, or ctx ends.
// It is the one blocking request and is used to detect the next
// successful sync after a busy target.
func (c *Client) WaitForStop(ctx context.Context) (string, error) {
	data, err := c.do(ctx, KindState, param{"block", true})
	if err != nil {
		return "", err
	}
	return data.Get("state").String(), nil
}

// Control issues the command for action. ActionNone sends nothing.
func (c *Client) Control(ctx context.Context, d Debugger, action Action) error {
	cmd := d.ControlCommand(action)
	if cmd == "" {
		return nil
	}
	_, err := c.Command(ctx, cmd)
	return err
}

// SetBreakpoint sets a breakpoint at addr.
func (c *Client) SetBreakpoint(ctx context.Context, d Debugger, addr uint64) error {
	_, err := c.Command(ctx, d.BreakpointCommand(addr))
	return err
}

// SetArgs sets the debuggee's run arguments.
func (c *Client) SetArgs(ctx context.Context, d Debugger, args string) error {
	_, err := c.Command(ctx, d.ArgsCommand(args))
	return err
}

// SetTTY binds the debuggee's standard streams to tty.
func (c *Client) SetTTY(ctx context.Context, d Debugger, tty string) error {
	for _, cmd := range d.TTYCommands(tty) {
		if _, err := c.Command(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}
