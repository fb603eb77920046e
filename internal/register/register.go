// Package register models named, width-tagged machine registers and their
// display projections.
package register

// ChainKind classifies one element of a dereference chain.
type ChainKind int

const (
	// ChainOther is rendered as its raw text.
	ChainOther ChainKind = iota
	// ChainPointer is rendered as hex.
	ChainPointer
	// ChainString is rendered quoted.
	ChainString
)

// ChainItem is one element of a dereference chain.
type ChainItem struct {
	Kind    ChainKind
	Pointer uint64
	Text    string
}

// Register is a named register value.
type Register struct {
	// Name is the architecture-defined register name.
	Name string

	// Index is the insertion position within the set.
	Index int

	// Width is the register width in bits (8, 16, 32 or 64).
	Width int

	// Value is the current value, masked to Width.
	Value uint64

	// Dirty is true when the value changed since the last clean pass.
	Dirty bool

	// Chain is the dereference chain; the first element is the
	// register's own value.
	Chain []ChainItem
}

// mask returns v truncated to width bits.
func mask(v uint64, width int) uint64 {
	if width <= 0 || width >= 64 {
		return v
	}
	return v & (1<<uint(width) - 1)
}

// normalizeWidth clamps width to a supported register size.
func normalizeWidth(width int) int {
	switch {
	case width <= 8:
		return 8
	case width <= 16:
		return 16
	case width <= 32:
		return 32
	default:
		return 64
	}
}
