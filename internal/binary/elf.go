package binary

import (
	"debug/elf"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dshills/voltlive/internal/register"
)

// Navigator is called when the view is asked to navigate.
type Navigator func(addr uint64)

// ELF is a View backed by an ELF file.
type ELF struct {
	path      string
	arch      string
	ptrWidth  int
	functions []Function
	sections  map[string]Section
	navigate  Navigator
	log       *logrus.Entry

	mu      sync.Mutex
	current uint64
}

// OpenELF reads the symbol table and sections of path. nav may be nil.
func OpenELF(path string, nav Navigator, log *logrus.Entry) (*ELF, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotSupported, path, err)
	}
	defer f.Close()

	v := newELF(f, path, nav, log)
	return v, nil
}

func newELF(f *elf.File, path string, nav Navigator, log *logrus.Entry) *ELF {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	v := &ELF{
		path:     path,
		arch:     machineName(f.Machine),
		ptrWidth: 8,
		sections: make(map[string]Section),
		navigate: nav,
		log:      log.WithField("component", "binary"),
	}
	if f.Class == elf.ELFCLASS32 {
		v.ptrWidth = 4
	}

	for _, s := range f.Sections {
		if s.Name == "" {
			continue
		}
		v.sections[s.Name] = Section{Name: s.Name, Addr: s.Addr, Size: s.Size}
	}

	syms, err := f.Symbols()
	if err != nil {
		v.log.WithError(err).Debug("no static symbols")
	}
	dyn, _ := f.DynamicSymbols()
	seen := make(map[string]bool)
	for _, s := range append(syms, dyn...) {
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC || s.Value == 0 || s.Name == "" || seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		v.functions = append(v.functions, Function{Name: s.Name, Addr: s.Value})
	}
	sort.SliceStable(v.functions, func(i, j int) bool {
		return v.functions[i].Addr < v.functions[j].Addr
	})
	return v
}

func machineName(m elf.Machine) string {
	switch m {
	case elf.EM_X86_64:
		return "x86_64"
	case elf.EM_386:
		return "x86"
	}
	return m.String()
}

func (v *ELF) Path() string      { return v.path }
func (v *ELF) Arch() string      { return v.arch }
func (v *ELF) PointerWidth() int { return v.ptrWidth }

func (v *ELF) FullWidthRegisters() []register.Spec {
	return RegistersFor(v.arch)
}

func (v *ELF) Functions() []Function {
	return append([]Function(nil), v.functions...)
}

func (v *ELF) Section(name string) (Section, bool) {
	s, ok := v.sections[name]
	return s, ok
}

// Navigate records addr as the current address and forwards it to the
// navigator.
func (v *ELF) Navigate(addr uint64) {
	v.mu.Lock()
	v.current = addr
	v.mu.Unlock()

	v.log.WithField("addr", fmt.Sprintf("0x%x", addr)).Debug("navigate")
	if v.navigate != nil {
		v.navigate(addr)
	}
}

// Current returns the last navigated address.
func (v *ELF) Current() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}
