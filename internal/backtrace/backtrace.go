// Package backtrace turns the debugger's frame list and the raw stack
// window into the call stack shown to the user.
package backtrace

import (
	"encoding/binary"

	"github.com/dshills/voltlive/internal/voltron"
)

// Unresolved is the symbol name used when a frame has no name.
const Unresolved = "??"

// Frame is one call-stack entry. Index 0 is innermost.
type Frame struct {
	Index int
	Addr  uint64
	Name  string
}

// Placeholder is shown when the backtrace request fails.
var Placeholder = Frame{Index: 0, Addr: 0, Name: Unresolved}

// Result bundles the frames for one cycle with the derived return address.
type Result struct {
	Frames        []Frame
	ReturnAddress uint64
	HasReturn     bool
}

// FromProtocol converts wire frames, filling unresolved names.
func FromProtocol(in []voltron.Frame) []Frame {
	out := make([]Frame, 0, len(in))
	for _, f := range in {
		name := f.Name
		if name == "" {
			name = Unresolved
		}
		out = append(out, Frame{Index: f.Index, Addr: f.Addr, Name: name})
	}
	return out
}

// ReturnAddress reads the saved return address that sits one pointer past
// bp in the stack buffer starting at memtop. It reports false when the
// slot is not inside the buffer.
func ReturnAddress(stack []byte, memtop, bp uint64, width int) (uint64, bool) {
	if width != 4 && width != 8 {
		return 0, false
	}
	if bp < memtop {
		return 0, false
	}
	off := bp - memtop + uint64(width)
	n := uint64(len(stack))
	if off < bp-memtop || off > n || n-off < uint64(width) {
		return 0, false
	}
	slot := stack[off : off+uint64(width)]
	if width == 4 {
		return uint64(binary.LittleEndian.Uint32(slot)), true
	}
	return binary.LittleEndian.Uint64(slot), true
}

// Reconstruct builds a cycle's call stack. A nil frame list yields the
// placeholder frame.
func Reconstruct(stack []byte, memtop, bp uint64, width int, frames []Frame) Result {
	r := Result{Frames: frames}
	if frames == nil {
		r.Frames = []Frame{Placeholder}
	}
	r.ReturnAddress, r.HasReturn = ReturnAddress(stack, memtop, bp, width)
	return r
}

// Outermost returns frames in render order, outermost first.
func Outermost(frames []Frame) []Frame {
	out := make([]Frame, len(frames))
	for i, f := range frames {
		out[len(frames)-1-i] = f
	}
	return out
}
