// Package stack locates the debuggee's stack mapping and the aligned
// window of stack memory to fetch.
package stack

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Alignment is the display-row alignment applied to the window top.
const Alignment = 32

// stackPath is the mapping path, brackets stripped, of the main stack.
const stackPath = "stack"

// Mapping is one entry of a process memory map.
type Mapping struct {
	// Path is the mapping's path or pseudo-path (e.g. "[stack]").
	Path string

	// Range is the "<low>-<high>" hexadecimal address range.
	Range string
}

// Process is a running process.
type Process interface {
	// PID returns the process id.
	PID() int

	// Mappings returns the process memory map.
	Mappings() ([]Mapping, error)
}

// ProcessTable lists processes by name.
type ProcessTable interface {
	// FindByName returns every process whose name equals name exactly.
	FindByName(name string) ([]Process, error)
}

// Window is the region of stack memory to fetch.
type Window struct {
	// PID is the process the window belongs to.
	PID int

	// Low and High bound the whole stack mapping.
	Low, High uint64

	// Top is the stack pointer rounded down to Alignment.
	Top uint64
}

// Length returns the number of bytes in [Top, High).
func (w Window) Length() uint64 {
	return w.High - w.Top
}

// Contains reports whether addr lies in [Top, High).
func (w Window) Contains(addr uint64) bool {
	return addr >= w.Top && addr < w.High
}

// AlignDown rounds sp down to the nearest multiple of Alignment.
func AlignDown(sp uint64) uint64 {
	return sp - sp%Alignment
}

// ParseRange parses a "<low>-<high>" hexadecimal range.
func ParseRange(s string) (low, high uint64, err error) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	low, err = strconv.ParseUint(strings.TrimPrefix(lo, "0x"), 16, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %v", ErrInvalidRange, s, err)
	}
	high, err = strconv.ParseUint(strings.TrimPrefix(hi, "0x"), 16, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %v", ErrInvalidRange, s, err)
	}
	if high < low {
		return 0, 0, fmt.Errorf("%w: %q: high below low", ErrInvalidRange, s)
	}
	return low, high, nil
}

// IsStack reports whether a mapping path denotes the main stack.
func IsStack(path string) bool {
	return strings.Trim(path, "[]") == stackPath
}

// Locate finds the stack mapping of the first process called name and
// computes the fetch window for stack pointer sp.
func Locate(table ProcessTable, name string, sp uint64) (Window, error) {
	procs, err := table.FindByName(name)
	if err != nil {
		return Window{}, fmt.Errorf("list processes: %w", err)
	}
	if len(procs) == 0 {
		return Window{}, fmt.Errorf("%w: %q", ErrNoSuchProcess, name)
	}

	proc := procs[0]
	maps, err := proc.Mappings()
	if err != nil {
		// A process that vanished between listing and reading its maps
		// has no stack for our purposes.
		return Window{}, fmt.Errorf("%w: pid %d: %v", ErrNoStackMapping, proc.PID(), err)
	}

	for _, m := range maps {
		if !IsStack(m.Path) {
			continue
		}
		low, high, err := ParseRange(m.Range)
		if err != nil {
			return Window{}, err
		}

		top := AlignDown(sp)
		if top < low || sp >= high {
			return Window{}, fmt.Errorf("%w: sp 0x%x, stack [0x%x, 0x%x)", ErrStackPointerOutside, sp, low, high)
		}
		return Window{PID: proc.PID(), Low: low, High: high, Top: top}, nil
	}

	return Window{}, fmt.Errorf("%w: pid %d", ErrNoStackMapping, proc.PID())
}

// ProcessName derives the debuggee's process name from the analysed
// file's path, dropping the directory and any analysis-database
// extension in dbExts.
func ProcessName(path string, dbExts []string) string {
	name := filepath.Base(path)
	for _, ext := range dbExts {
		if ext != "" && strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// TargetPath is the executable path for the analysed file: the path with
// the analysis-database extension removed.
func TargetPath(path string, dbExts []string) string {
	for _, ext := range dbExts {
		if ext != "" && strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext)
		}
	}
	return path
}
