package register

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedArch is returned for architectures without register
// width and prefix defaults.
var ErrUnsupportedArch = errors.New("architecture not supported")

// Arch is the closed set of supported register layouts.
type Arch int

const (
	// Arch64 is x86_64: 64-bit registers with the "r" prefix.
	Arch64 Arch = iota
	// Arch32 is x86: 32-bit registers with the "e" prefix.
	Arch32
)

// ResolveArch maps an architecture name to its layout. Unknown names
// return Arch64 together with ErrUnsupportedArch so callers can log and
// carry on with the 64-bit defaults.
func ResolveArch(name string) (Arch, error) {
	switch strings.ToLower(name) {
	case "x86_64", "amd64", "x86-64":
		return Arch64, nil
	case "x86", "i386", "i686", "386":
		return Arch32, nil
	}
	return Arch64, fmt.Errorf("%w: %q", ErrUnsupportedArch, name)
}

// String returns the architecture name.
func (a Arch) String() string {
	if a == Arch32 {
		return "x86"
	}
	return "x86_64"
}

// Width returns the general-purpose register width in bits.
func (a Arch) Width() int {
	if a == Arch32 {
		return 32
	}
	return 64
}

// PointerWidth returns the pointer size in bytes.
func (a Arch) PointerWidth() int {
	return a.Width() / 8
}

// Prefix returns the register name prefix ("e" or "r").
func (a Arch) Prefix() string {
	if a == Arch32 {
		return "e"
	}
	return "r"
}

// IP returns the instruction pointer register name.
func (a Arch) IP() string { return a.Prefix() + "ip" }

// SP returns the stack pointer register name.
func (a Arch) SP() string { return a.Prefix() + "sp" }

// BP returns the base pointer register name.
func (a Arch) BP() string { return a.Prefix() + "bp" }

// Flags returns the flags register name.
func (a Arch) Flags() string { return a.Prefix() + "flags" }

// Spec is a register name and width in bits.
type Spec struct {
	Name  string
	Width int
}

var segmentRegisters = map[string]bool{
	"cs": true, "ds": true, "es": true, "fs": true, "gs": true, "ss": true,
}

// excluded reports whether a register stays out of the default set:
// vector, x87 stack, segment and segment base registers.
func excluded(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "mm") ||
		strings.HasPrefix(n, "st") ||
		strings.Contains(n, "base") ||
		segmentRegisters[n]
}

// DefaultSpecs builds the tracked register list for arch: instruction
// pointer and flags first, then the architecture's full-width registers
// in their given order.
func DefaultSpecs(arch Arch, fullWidth []Spec) []Spec {
	specs := []Spec{
		{Name: arch.IP(), Width: arch.Width()},
		{Name: arch.Flags(), Width: arch.Width()},
	}
	seen := map[string]bool{arch.IP(): true, arch.Flags(): true}

	for _, s := range fullWidth {
		if seen[s.Name] || excluded(s.Name) {
			continue
		}
		if s.Width == 0 {
			s.Width = arch.Width()
		}
		seen[s.Name] = true
		specs = append(specs, s)
	}
	return specs
}
