// Package binary is the analysis side of a session: the file under debug,
// its architecture, symbols and sections, and where the user is looking.
package binary

import (
	"errors"

	"github.com/dshills/voltlive/internal/register"
)

// ErrNotSupported is returned for object formats the view cannot read.
var ErrNotSupported = errors.New("unsupported binary format")

// Function is a named code address.
type Function struct {
	Name string
	Addr uint64
}

// Section is a named region of the loaded image.
type Section struct {
	Name string
	Addr uint64
	Size uint64
}

// End returns the first address past the section.
func (s Section) End() uint64 {
	return s.Addr + s.Size
}

// View is what a session needs to know about the binary being debugged.
type View interface {
	// Path is the file the view was opened from.
	Path() string

	// Arch is the architecture name, e.g. "x86_64" or "x86".
	Arch() string

	// PointerWidth is the size of an address in bytes.
	PointerWidth() int

	// FullWidthRegisters lists the architecture's full-width registers.
	FullWidthRegisters() []register.Spec

	// Functions returns the known functions sorted by address.
	Functions() []Function

	// Section looks up a section by name.
	Section(name string) (Section, bool)

	// Navigate moves the analysis cursor to addr.
	Navigate(addr uint64)
}

// FindFunction returns the first function named name.
func FindFunction(v View, name string) (Function, bool) {
	for _, f := range v.Functions() {
		if f.Name == name {
			return f, true
		}
	}
	return Function{}, false
}
