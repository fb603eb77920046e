package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dshills/voltlive/internal/binary"
	"github.com/dshills/voltlive/internal/input"
	"github.com/dshills/voltlive/internal/register"
	"github.com/dshills/voltlive/internal/session"
	"github.com/dshills/voltlive/internal/voltron"
)

const helpText = "commands: run si ni finish continue sync | mode <enc> | input <mode> <text> | " +
	"args <mode> <text> | break <addr|func> | frame <n> | spawn | debugger gdb|lldb | quit"

// Command is one parsed control loop line.
type Command struct {
	Name string
	Args []string

	// Rest is everything after the name with inner spacing kept.
	Rest string
}

// ParseCommand splits a control loop line. Blank lines report false.
func ParseCommand(line string) (Command, bool) {
	name, rest := splitWord(line)
	if name == "" {
		return Command{}, false
	}
	return Command{
		Name: strings.ToLower(name),
		Args: strings.Fields(rest),
		Rest: rest,
	}, true
}

// splitWord returns the first whitespace delimited word of s and the
// remainder with leading whitespace removed.
func splitWord(s string) (string, string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return strings.TrimSpace(s), ""
	}
	return s[:i], strings.TrimLeft(s[i+1:], " \t")
}

// execute runs one control loop line.
func (a *Application) execute(ctx context.Context, line string) error {
	cmd, ok := ParseCommand(line)
	if !ok {
		return nil
	}
	log := a.log.WithField("command", cmd.Name)

	if action, ok := voltron.ParseAction(cmd.Name); ok {
		out, err := a.orch.Step(ctx, action)
		entry := log.WithField("outcome", out.String())
		if err != nil {
			// The orchestrator has already told the user.
			entry = entry.WithError(err)
		}
		entry.Debug("cycle finished")
		return nil
	}

	var err error
	switch cmd.Name {
	case "quit", "exit", "q":
		return ErrQuit
	case "help", "?":
		a.notifier.Info(helpText)
	case "mode":
		err = a.setMode(cmd)
	case "input":
		err = a.sendInput(cmd)
	case "args":
		err = a.setArgs(ctx, cmd)
	case "break", "b":
		err = a.setBreakpoint(ctx, cmd)
	case "frame", "f":
		err = a.selectFrame(cmd)
	case "spawn":
		err = a.spawnDebugger()
	case "debugger":
		err = a.pickDebugger(cmd)
	default:
		err = ErrUnknownCommand
	}
	if err != nil {
		return &CommandError{Command: cmd.Name, Err: err}
	}
	return nil
}

func (a *Application) setMode(cmd Command) error {
	if len(cmd.Args) != 1 {
		return fmt.Errorf("%w: mode <binary|decimal|hex|ascii|deref>", ErrUsage)
	}
	enc, err := register.ParseEncoding(cmd.Args[0])
	if err != nil {
		return err
	}
	a.orch.SetEncoding(enc)
	return nil
}

// decodePayload reads "<mode> <text>" from the command remainder.
func decodePayload(cmd Command) ([]byte, error) {
	name, text := splitWord(cmd.Rest)
	if name == "" {
		return nil, fmt.Errorf("%w: %s <raw|hex|b64|expr> <text>", ErrUsage, cmd.Name)
	}
	mode, err := input.ParseMode(name)
	if err != nil {
		return nil, err
	}
	return input.Decode(mode, text)
}

func (a *Application) sendInput(cmd Command) error {
	if a.relay == nil {
		return ErrNoTerminal
	}
	data, err := decodePayload(cmd)
	if err != nil {
		return err
	}
	a.display.AppendTranscript(string(data))
	return a.relay.Send(data)
}

func (a *Application) setArgs(ctx context.Context, cmd Command) error {
	data, err := decodePayload(cmd)
	if err != nil {
		return err
	}
	if err := a.client.SetArgs(ctx, a.session.Debugger, string(data)); err != nil {
		return err
	}
	a.notifier.Info("Debuggee arguments set")
	return nil
}

func (a *Application) setBreakpoint(ctx context.Context, cmd Command) error {
	if len(cmd.Args) != 1 {
		return fmt.Errorf("%w: break <address|function>", ErrUsage)
	}
	addr, err := a.resolveAddress(cmd.Args[0])
	if err != nil {
		return err
	}
	if err := a.client.SetBreakpoint(ctx, a.session.Debugger, addr); err != nil {
		return err
	}
	a.notifier.Info(fmt.Sprintf("Breakpoint set at 0x%x", addr))
	return nil
}

// resolveAddress accepts a number in any Go base prefix or a function
// name from the binary.
func (a *Application) resolveAddress(s string) (uint64, error) {
	if addr, err := strconv.ParseUint(s, 0, 64); err == nil {
		return addr, nil
	}
	if fn, ok := binary.FindFunction(a.view, s); ok {
		return fn.Addr, nil
	}
	return 0, fmt.Errorf("no function or address %q", s)
}

func (a *Application) selectFrame(cmd Command) error {
	if len(cmd.Args) != 1 {
		return fmt.Errorf("%w: frame <index>", ErrUsage)
	}
	index, err := strconv.Atoi(cmd.Args[0])
	if err != nil {
		return fmt.Errorf("%w: frame index %q", ErrUsage, cmd.Args[0])
	}
	return a.orch.NavigateFrame(index)
}

func (a *Application) spawnDebugger() error {
	if a.spawner == nil {
		return fmt.Errorf("no terminal emulator configured")
	}
	command := session.LaunchCommand(a.session.Debugger, a.session.Target)
	if _, err := a.spawner.Spawn(string(a.session.Debugger), command); err != nil {
		return err
	}
	a.notifier.Info("Spawned debugger terminal")
	return nil
}

func (a *Application) pickDebugger(cmd Command) error {
	if len(cmd.Args) != 1 {
		return fmt.Errorf("%w: debugger gdb|lldb", ErrUsage)
	}
	d, err := voltron.ParseDebugger(cmd.Args[0])
	if err != nil {
		return err
	}
	a.setDebugger(d)
	return nil
}

func (a *Application) setDebugger(d voltron.Debugger) {
	if d == a.session.Debugger {
		return
	}
	a.log.WithFields(logrus.Fields{"from": a.session.Debugger, "to": d}).Info("debugger changed")
	a.session.SetDebugger(d)
	a.notifier.Info("Debugger set to " + string(d))
}
