package input

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		text string
		want []byte
	}{
		{"raw", Raw, "  hello world ", []byte("hello world")},
		{"hex", Hex, "41424344", []byte("ABCD")},
		{"hex spaced", Hex, "0x41 42\t43", []byte("ABC")},
		{"b64", Base64, "QUJD", []byte("ABC")},
		{"expr rep", Expr, `string.rep("A", 4)`, []byte("AAAA")},
		{"expr concat", Expr, `"A" .. p32(0x08048abc)`, []byte{'A', 0xbc, 0x8a, 0x04, 0x08}},
		{"expr method", Expr, `("B"):rep(3) .. p8(10)`, []byte("BBB\n")},
		{"expr table", Expr, `{"ab", "cd"}`, []byte("abcd")},
		{"expr p64", Expr, `p64(1)`, []byte{1, 0, 0, 0, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.mode, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		text string
	}{
		{"odd hex", Hex, "414"},
		{"bad hex", Hex, "zz"},
		{"bad b64", Base64, "!!!"},
		{"syntax", Expr, `"unterminated`},
		{"number", Expr, `1 + 2`},
		{"no io", Expr, `io.open("/etc/passwd")`},
		{"no loader", Expr, `dofile("/etc/passwd")`},
		{"no os", Expr, `os.execute("true")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.mode, tt.text)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestEvalTimeout(t *testing.T) {
	_, err := Eval(`(function() while true do end end)()`, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestEvalEmpty(t *testing.T) {
	got, err := Eval("", time.Second)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(strings.ToUpper(m.String()))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Raw, got)

	_, err = ParseMode("py2")
	assert.ErrorIs(t, err, ErrUnknownMode)
}
