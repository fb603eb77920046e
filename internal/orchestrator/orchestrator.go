// Package orchestrator runs the update cycle that follows every debugger
// action: issue the control command, then refresh registers, stack and
// secondary memory, and the call stack, pushing each to the display.
//
// The orchestrator is single-threaded. All calls must come from one
// goroutine, normally the application's main loop. The only state shared
// with other goroutines is the session's one-shot resync subscription.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/dshills/voltlive/internal/backtrace"
	"github.com/dshills/voltlive/internal/binary"
	"github.com/dshills/voltlive/internal/display"
	"github.com/dshills/voltlive/internal/memory"
	"github.com/dshills/voltlive/internal/register"
	"github.com/dshills/voltlive/internal/session"
	"github.com/dshills/voltlive/internal/stack"
	"github.com/dshills/voltlive/internal/voltron"
)

// StackSegment is the memory segment holding the stack window.
const StackSegment = "stack"

// User-facing messages.
const (
	MsgBusy          = "The target is busy, it may be waiting for input from you"
	MsgNoTarget      = "Couldn't get register state. The process may not be running."
	MsgRegisterError = "Couldn't get register state. Please consult the log for more information"
	MsgExited        = "No registers were returned. The process has probably exited."
)

// ErrNoSuchFrame is returned by NavigateFrame for an unknown frame index.
var ErrNoSuchFrame = errors.New("no such frame")

// DefaultColors are the highlight colors per memory tag.
var DefaultColors = map[string]string{
	memory.TagStackPointer:  "red",
	memory.TagBasePointer:   "blue",
	memory.TagReturnAddress: "yellow",
	memory.TagInstruction:   "green",
}

// Client is the part of the sync client the update cycle uses.
type Client interface {
	Control(ctx context.Context, d voltron.Debugger, action voltron.Action) error
	Registers(ctx context.Context) (*voltron.Registers, error)
	Memory(ctx context.Context, address, length uint64) ([]byte, error)
	Backtrace(ctx context.Context) ([]voltron.Frame, error)
}

// Config holds the orchestrator's collaborators and settings.
type Config struct {
	Client    Client
	Session   *session.Session
	Processes stack.ProcessTable
	View      binary.View
	Display   display.Display
	Notifier  display.Notifier
	Log       *logrus.Entry

	// Encoding is the initial register display encoding.
	Encoding register.Encoding

	// Colors overrides DefaultColors per tag.
	Colors map[string]string

	// OnResync is called each time a resync subscription is newly armed.
	OnResync func()
}

// Orchestrator owns the register model, the memory snapshot and the last
// reconstructed call stack.
type Orchestrator struct {
	client   Client
	session  *session.Session
	procs    stack.ProcessTable
	view     binary.View
	display  display.Display
	notifier display.Notifier
	log      *logrus.Entry
	onResync func()

	specs    []register.Spec
	regs     *register.Set
	mem      *memory.Snapshot
	encoding register.Encoding
	colors   map[string]string

	window    stack.Window
	frames    []backtrace.Frame
	lastAlert string
}

// New creates an orchestrator for a session.
func New(cfg Config) *Orchestrator {
	log := cfg.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}

	s := cfg.Session
	arch := s.Arch
	segments := s.Segments
	if !containsString(segments, StackSegment) {
		segments = append([]string{StackSegment}, segments...)
	}

	colors := make(map[string]string, len(DefaultColors))
	for k, v := range DefaultColors {
		colors[k] = v
	}
	for k, v := range cfg.Colors {
		colors[k] = v
	}

	return &Orchestrator{
		client:   cfg.Client,
		session:  s,
		procs:    cfg.Processes,
		view:     cfg.View,
		display:  cfg.Display,
		notifier: cfg.Notifier,
		log:      log.WithField("component", "orchestrator").WithField("session", s.ID.String()),
		onResync: cfg.OnResync,
		specs:    register.DefaultSpecs(arch, cfg.View.FullWidthRegisters()),
		regs:     register.NewSet(arch.Flags()),
		mem:      memory.NewSnapshot(segments...),
		encoding: cfg.Encoding,
		colors:   colors,
	}
}

// Registers returns the register model.
func (o *Orchestrator) Registers() *register.Set { return o.regs }

// Memory returns the memory snapshot.
func (o *Orchestrator) Memory() *memory.Snapshot { return o.mem }

// Frames returns the last reconstructed frames, innermost first.
func (o *Orchestrator) Frames() []backtrace.Frame {
	return append([]backtrace.Frame(nil), o.frames...)
}

// Window returns the last located stack window.
func (o *Orchestrator) Window() stack.Window { return o.window }

// Encoding returns the register display encoding.
func (o *Orchestrator) Encoding() register.Encoding { return o.encoding }

// Step runs a user action: the control command followed by a full update
// cycle. ActionNone refreshes without a command.
func (o *Orchestrator) Step(ctx context.Context, action voltron.Action) (Outcome, error) {
	o.lastAlert = ""
	log := o.log.WithField("action", action.String())

	if action != voltron.ActionNone {
		if err := o.client.Control(ctx, o.session.Debugger, action); err != nil {
			if ctx.Err() != nil {
				return OutcomeSkipped, ctx.Err()
			}
			log.WithError(err).Warn("control command failed")
		}
	}
	return o.cycle(ctx)
}

// HandleSync consumes the pending resync subscription and re-runs the
// update cycle. Without a pending subscription it does nothing.
func (o *Orchestrator) HandleSync(ctx context.Context) (Outcome, error) {
	if !o.session.ConsumeResync() {
		return OutcomeSkipped, nil
	}
	o.log.Debug("resync")
	return o.cycle(ctx)
}

// SetEncoding changes the register encoding and redraws the registers.
func (o *Orchestrator) SetEncoding(enc register.Encoding) {
	o.encoding = enc
	o.display.ShowRegisters(o.regs.Rows(enc), o.regs.Flags().Flags())
	o.display.Repaint()
}

// NavigateFrame moves the binary view to the frame with the given index.
func (o *Orchestrator) NavigateFrame(index int) error {
	for _, f := range o.frames {
		if f.Index == index {
			o.view.Navigate(f.Addr)
			return nil
		}
	}
	return fmt.Errorf("%w: #%d", ErrNoSuchFrame, index)
}

func (o *Orchestrator) cycle(ctx context.Context) (Outcome, error) {
	out, err := o.cycleRegisters(ctx)
	if out != OutcomeUpdated {
		return out, err
	}
	o.lastAlert = ""
	return o.cycleMemory(ctx)
}

func (o *Orchestrator) cycleRegisters(ctx context.Context) (Outcome, error) {
	regs, err := o.client.Registers(ctx)
	switch {
	case errors.Is(err, voltron.ErrTargetBusy):
		o.log.Info("target busy, waiting for the next sync")
		o.notifier.Info(MsgBusy)
		o.display.FocusTerminal()
		o.armResync()
		return OutcomeBusy, err

	case errors.Is(err, voltron.ErrNoTarget):
		o.alert(MsgNoTarget)
		return OutcomeNoTarget, err

	case err != nil:
		if ctx.Err() != nil {
			return OutcomeSkipped, ctx.Err()
		}
		o.log.WithError(err).Error("register request failed")
		o.alert(MsgRegisterError)
		o.armResync()
		return OutcomeFailed, err

	case len(regs.Values) == 0:
		o.alert(MsgExited)
		return OutcomeExited, nil
	}

	o.regs.BeginCycle()
	for _, spec := range o.specs {
		v, ok := regs.Values[spec.Name]
		if !ok {
			o.log.WithField("register", spec.Name).Error("voltron did not return register")
			continue
		}
		o.regs.Update(spec.Name, v, spec.Width)
		if items, ok := regs.Deref[spec.Name]; ok {
			o.regs.SetChain(spec.Name, chain(items))
		}
	}
	o.display.ShowRegisters(o.regs.Rows(o.encoding), o.regs.Flags().Flags())
	return OutcomeUpdated, nil
}

func (o *Orchestrator) cycleMemory(ctx context.Context) (Outcome, error) {
	arch := o.session.Arch
	width := arch.PointerWidth()

	sp, okSP := o.regs.Value(arch.SP())
	bp, okBP := o.regs.Value(arch.BP())
	if !okSP || !okBP {
		o.log.Warn("stack or base pointer missing, skipping memory")
		o.display.Repaint()
		return OutcomeNoStack, nil
	}

	win, err := stack.Locate(o.procs, o.session.ProcessName, sp)
	if err != nil {
		o.log.WithError(err).WithField("process", o.session.ProcessName).Warn("could not locate stack")
		o.display.Repaint()
		return OutcomeNoStack, err
	}
	o.window = win

	data, err := o.client.Memory(ctx, win.Top, win.Length())
	if err == nil && len(data) == 0 {
		err = errors.New("no memory returned")
	}
	if err != nil {
		o.log.WithError(err).WithField("addr", hex(win.Top)).Error("stack fetch failed")
		o.display.Repaint()
		return OutcomeMemoryFailed, err
	}

	if err := o.mem.Update(StackSegment, win.Top, data); err != nil {
		return OutcomeMemoryFailed, err
	}
	o.highlight(memory.TagStackPointer, sp, width)
	o.highlight(memory.TagBasePointer, bp, width)
	if ip, ok := o.regs.Value(arch.IP()); ok && win.Contains(ip) {
		o.highlight(memory.TagInstruction, ip, 1)
	} else {
		_ = o.mem.ClearHighlight(StackSegment, memory.TagInstruction)
	}
	if _, err := o.mem.Read(StackSegment, bp+uint64(width), width); err == nil {
		o.highlight(memory.TagReturnAddress, bp+uint64(width), width)
	} else {
		_ = o.mem.ClearHighlight(StackSegment, memory.TagReturnAddress)
	}
	o.showSegment(StackSegment)

	o.fetchSecondary(ctx)

	frames, err := o.client.Backtrace(ctx)
	var list []backtrace.Frame
	if err != nil {
		o.log.WithError(err).Warn("backtrace request failed")
	} else {
		list = backtrace.FromProtocol(frames)
	}
	res := backtrace.Reconstruct(data, win.Top, bp, width, list)
	o.frames = res.Frames
	o.display.ShowFrames(backtrace.Outermost(res.Frames))
	if res.HasReturn {
		o.display.ShowReturnAddress(res.ReturnAddress)
	} else {
		o.log.Debug("return address not on the stack yet")
	}
	o.display.Repaint()
	return OutcomeUpdated, nil
}

// fetchSecondary refreshes every tracked segment other than the stack from
// its image section. The first uses the session's secondary section name,
// the rest "." plus the segment name.
func (o *Orchestrator) fetchSecondary(ctx context.Context) {
	first := true
	for _, name := range o.mem.Names() {
		if name == StackSegment {
			continue
		}
		section := "." + name
		if first && o.session.SecondarySection != "" {
			section = o.session.SecondarySection
		}
		first = false

		log := o.log.WithField("section", section)
		sec, ok := o.view.Section(section)
		if !ok || sec.Size == 0 {
			log.Info("binary has no such section")
			continue
		}
		data, err := o.client.Memory(ctx, sec.Addr, sec.Size)
		if err != nil || len(data) == 0 {
			log.WithError(err).Warn("section fetch failed")
			continue
		}
		if err := o.mem.Update(name, sec.Addr, data); err != nil {
			log.WithError(err).Warn("section update failed")
			continue
		}
		o.showSegment(name)
	}
}

func (o *Orchestrator) showSegment(name string) {
	seg, err := o.mem.Segment(name)
	if err != nil {
		return
	}
	rows, err := o.mem.Rows(name, memory.BytesPerRow)
	if err != nil {
		return
	}
	o.display.ShowMemory(name, seg.Base, rows)
}

func (o *Orchestrator) highlight(tag string, addr uint64, width int) {
	h := memory.Highlight{Tag: tag, Addr: addr, Length: uint64(width), Color: o.colors[tag]}
	if err := o.mem.Reassign(StackSegment, h); err != nil {
		o.log.WithError(err).WithField("tag", tag).Debug("highlight failed")
	}
}

// armResync subscribes to the next sync once.
func (o *Orchestrator) armResync() {
	if o.session.ArmResync() && o.onResync != nil {
		o.onResync()
	}
}

// alert surfaces msg unless it repeats the previous alert of the same
// action.
func (o *Orchestrator) alert(msg string) {
	if msg == o.lastAlert {
		o.log.WithField("alert", msg).Debug("suppressed repeated alert")
		return
	}
	o.lastAlert = msg
	o.log.WithField("alert", msg).Warn("alert")
	o.notifier.Alert(msg)
}

func chain(items []voltron.DerefItem) []register.ChainItem {
	out := make([]register.ChainItem, len(items))
	for i, it := range items {
		kind := register.ChainOther
		switch it.Kind {
		case voltron.DerefPointer:
			kind = register.ChainPointer
		case voltron.DerefString:
			kind = register.ChainString
		}
		out[i] = register.ChainItem{Kind: kind, Pointer: it.Pointer, Text: it.Text}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hex(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}
