package register

import (
	"fmt"
	"strconv"
	"strings"
)

// Encoding selects how a register value is rendered.
type Encoding int

// Supported encodings, in display-picker order.
const (
	Hex Encoding = iota
	Binary
	Decimal
	ASCII
	Deref
)

// Encodings lists every encoding in picker order.
var Encodings = []Encoding{Binary, Decimal, Hex, ASCII, Deref}

// String returns the encoding name.
func (e Encoding) String() string {
	switch e {
	case Hex:
		return "hex"
	case Binary:
		return "binary"
	case Decimal:
		return "decimal"
	case ASCII:
		return "ascii"
	case Deref:
		return "deref"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// ParseEncoding parses an encoding name.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hex":
		return Hex, nil
	case "binary", "bin":
		return Binary, nil
	case "decimal", "dec":
		return Decimal, nil
	case "ascii":
		return ASCII, nil
	case "deref":
		return Deref, nil
	}
	return Hex, fmt.Errorf("%q is not a valid display mode", s)
}

// Project renders r with enc.
func Project(r *Register, enc Encoding) string {
	switch enc {
	case Binary:
		return binaryString(r.Value, r.Width)
	case Decimal:
		return strconv.FormatUint(r.Value, 10)
	case ASCII:
		return asciiString(r.Value, r.Width)
	case Deref:
		return derefString(r.Chain)
	default:
		return hexString(r.Value, r.Width)
	}
}

// hexString renders v as 0x followed by width/4 zero-padded digits.
func hexString(v uint64, width int) string {
	return fmt.Sprintf("0x%0*x", width/4, v)
}

// binaryString renders v as width bits in space separated bytes.
func binaryString(v uint64, width int) string {
	bits := fmt.Sprintf("%0*b", width, v)

	var b strings.Builder
	for i := 0; i < len(bits); i += 8 {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(bits[i : i+8])
	}
	return b.String()
}

// asciiString renders each byte of v, most significant first, as its
// character when printable and '.' otherwise.
func asciiString(v uint64, width int) string {
	n := width / 8
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		c := byte(v >> uint(8*(n-1-i)))
		if c >= 32 && c < 127 {
			out[i] = c
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}

// derefString joins the chain after its first element with " --> ".
func derefString(chain []ChainItem) string {
	if len(chain) < 2 {
		return ""
	}

	parts := make([]string, 0, len(chain)-1)
	for _, item := range chain[1:] {
		switch item.Kind {
		case ChainPointer:
			parts = append(parts, fmt.Sprintf("0x%x", item.Pointer))
		case ChainString:
			s := strings.NewReplacer("\n", `\n`, "\t", `\t`).Replace(item.Text)
			parts = append(parts, `"`+s+`"`)
		default:
			parts = append(parts, item.Text)
		}
	}
	return strings.Join(parts, " --> ")
}
