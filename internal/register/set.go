package register

// Set is an insertion-ordered collection of registers. It is not safe for
// concurrent use; the update cycle is its only writer.
type Set struct {
	regs      []*Register
	index     map[string]int
	flagsName string
	flags     *FlagView
}

// NewSet creates an empty set. flagsName is the architecture's flags
// register; updates to it refresh the flag view.
func NewSet(flagsName string) *Set {
	return &Set{
		index:     make(map[string]int),
		flagsName: flagsName,
		flags:     NewFlagView(),
	}
}

// NewSetFromSpecs creates a set pre-populated with zero-valued registers
// in spec order.
func NewSetFromSpecs(flagsName string, specs []Spec) *Set {
	s := NewSet(flagsName)
	for _, spec := range specs {
		s.Update(spec.Name, 0, spec.Width)
	}
	return s
}

// Update records a new raw value for name. A register seen for the first
// time is appended clean. A changed value marks the register dirty; an
// unchanged value leaves the dirty flag as it was.
func (s *Set) Update(name string, raw uint64, width int) {
	if width <= 0 {
		width = 64
	}
	width = normalizeWidth(width)
	v := mask(raw, width)

	i, ok := s.index[name]
	if !ok {
		s.index[name] = len(s.regs)
		s.regs = append(s.regs, &Register{
			Name:  name,
			Index: len(s.regs),
			Width: width,
			Value: v,
		})
	} else {
		r := s.regs[i]
		r.Width = width
		if r.Value != v {
			r.Value = v
			r.Dirty = true
		}
	}

	if name == s.flagsName {
		s.flags.Decode(v)
	}
}

// SetChain replaces the dereference chain of an existing register.
func (s *Set) SetChain(name string, chain []ChainItem) bool {
	r, ok := s.Get(name)
	if !ok {
		return false
	}
	r.Chain = chain
	return true
}

// Get returns the register called name.
func (s *Set) Get(name string) (*Register, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.regs[i], true
}

// Value returns the value of name, or zero when absent.
func (s *Set) Value(name string) (uint64, bool) {
	r, ok := s.Get(name)
	if !ok {
		return 0, false
	}
	return r.Value, true
}

// Names returns register names in insertion order.
func (s *Set) Names() []string {
	out := make([]string, len(s.regs))
	for i, r := range s.regs {
		out[i] = r.Name
	}
	return out
}

// Len returns the number of registers.
func (s *Set) Len() int {
	return len(s.regs)
}

// Flags returns the decoded flags view.
func (s *Set) Flags() *FlagView {
	return s.flags
}

// Clean clears every dirty flag.
func (s *Set) Clean() {
	for _, r := range s.regs {
		r.Dirty = false
	}
}

// BeginCycle is called once at the start of every update cycle. Dirty
// flags and flag highlights from the previous cycle are cleared here, so
// a change stays highlighted for exactly one refresh.
func (s *Set) BeginCycle() {
	s.Clean()
	s.flags.Age()
}

// Row is one display line of the register table.
type Row struct {
	Name  string
	Text  string
	Dirty bool
}

// Rows renders every register with enc.
func (s *Set) Rows(enc Encoding) []Row {
	rows := make([]Row, len(s.regs))
	for i, r := range s.regs {
		rows[i] = Row{Name: r.Name, Text: Project(r, enc), Dirty: r.Dirty}
	}
	return rows
}
