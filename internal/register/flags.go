package register

// FlagBit names one bit of the x86 flags register.
type FlagBit struct {
	Name string
	Bit  uint
}

// FlagBits is the ordered flag layout.
var FlagBits = []FlagBit{
	{"c", 0},
	{"p", 2},
	{"a", 4},
	{"z", 6},
	{"s", 7},
	{"t", 8},
	{"i", 9},
	{"d", 10},
	{"o", 11},
}

// Flag is one displayed flag and its highlight state. JustChanged marks a
// flag changed by the latest decode; ShouldClear marks that highlight for
// removal at the next cycle.
type Flag struct {
	Name        string
	Set         bool
	JustChanged bool
	ShouldClear bool
}

// FlagView is the decoded view of the flags register.
type FlagView struct {
	flags   []Flag
	decoded bool
}

// NewFlagView creates a view with every flag clear.
func NewFlagView() *FlagView {
	v := &FlagView{flags: make([]Flag, len(FlagBits))}
	for i, fb := range FlagBits {
		v.flags[i].Name = fb.Name
	}
	return v
}

// Decode recomputes every flag from raw. A flag whose value differs from
// the previously displayed value is highlighted. The first decode only
// establishes the baseline.
func (v *FlagView) Decode(raw uint64) {
	for i, fb := range FlagBits {
		set := raw&(1<<fb.Bit) != 0
		f := &v.flags[i]
		if v.decoded && f.Set != set {
			f.JustChanged = true
			f.ShouldClear = true
		}
		f.Set = set
	}
	v.decoded = true
}

// Age ends the highlight of flags marked ShouldClear. It runs once per
// update cycle, before the cycle's decode.
func (v *FlagView) Age() {
	for i := range v.flags {
		f := &v.flags[i]
		if f.ShouldClear {
			f.JustChanged = false
			f.ShouldClear = false
		}
	}
}

// Flags returns a copy of the flags in layout order.
func (v *FlagView) Flags() []Flag {
	return append([]Flag(nil), v.flags...)
}

// Get returns the flag called name.
func (v *FlagView) Get(name string) (Flag, bool) {
	for _, f := range v.flags {
		if f.Name == name {
			return f, true
		}
	}
	return Flag{}, false
}

// Bits returns flag name to value.
func (v *FlagView) Bits() map[string]bool {
	out := make(map[string]bool, len(v.flags))
	for _, f := range v.flags {
		out[f.Name] = f.Set
	}
	return out
}
