// Package input decodes user supplied bytes for the debuggee, such as run
// arguments and terminal input, from the supported text notations.
package input

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrDecode is returned when text cannot be decoded in the chosen mode.
var ErrDecode = errors.New("failed to decode input")

// ErrUnknownMode is returned by ParseMode for an unrecognised name.
var ErrUnknownMode = errors.New("unknown input mode")

// Mode selects how user text is turned into bytes.
type Mode int

const (
	// Raw passes the text through unchanged.
	Raw Mode = iota
	// Hex decodes pairs of hex digits. Whitespace and a 0x prefix are ignored.
	Hex
	// Base64 decodes standard base64.
	Base64
	// Expr evaluates a sandboxed Lua expression that yields a string.
	Expr
)

// Modes lists the modes in picker order.
var Modes = []Mode{Raw, Hex, Base64, Expr}

func (m Mode) String() string {
	switch m {
	case Raw:
		return "raw"
	case Hex:
		return "hex"
	case Base64:
		return "b64"
	case Expr:
		return "expr"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps a picker name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "raw":
		return Raw, nil
	case "hex":
		return Hex, nil
	case "b64", "base64":
		return Base64, nil
	case "expr", "lua":
		return Expr, nil
	}
	return Raw, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// DefaultExprTimeout bounds expression evaluation.
const DefaultExprTimeout = time.Second

// Decode converts text to bytes. Surrounding whitespace is trimmed first.
// Every failure wraps ErrDecode.
func Decode(mode Mode, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	switch mode {
	case Raw:
		return []byte(text), nil
	case Hex:
		return decodeHex(text)
	case Base64:
		b, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("%w: base64: %v", ErrDecode, err)
		}
		return b, nil
	case Expr:
		return Eval(text, DefaultExprTimeout)
	}
	return nil, fmt.Errorf("%w: %v", ErrDecode, mode)
}

func decodeHex(text string) ([]byte, error) {
	clean := strings.Join(strings.Fields(text), "")
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: hex: %v", ErrDecode, err)
	}
	return b, nil
}
