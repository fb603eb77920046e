package binary

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/voltlive/internal/register"
)

func openSelf(t *testing.T, nav Navigator) *ELF {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)
	v, err := OpenELF(exe, nav, nil)
	if err != nil {
		t.Skipf("test binary is not ELF: %v", err)
	}
	return v
}

func TestOpenELFSelf(t *testing.T) {
	v := openSelf(t, nil)

	assert.NotEmpty(t, v.Arch())
	assert.Contains(t, []int{4, 8}, v.PointerWidth())

	text, ok := v.Section(".text")
	require.True(t, ok)
	assert.Greater(t, text.Size, uint64(0))

	fns := v.Functions()
	if len(fns) == 0 {
		t.Skip("test binary has no symbol table")
	}
	for i := 1; i < len(fns); i++ {
		assert.LessOrEqual(t, fns[i-1].Addr, fns[i].Addr)
	}

	_, ok = FindFunction(v, "main.main")
	assert.True(t, ok)
}

func TestOpenELFNotELF(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "plain")
	require.NoError(t, err)
	_, _ = f.WriteString("not an object file")
	require.NoError(t, f.Close())

	_, err = OpenELF(f.Name(), nil, nil)
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestNavigate(t *testing.T) {
	var got []uint64
	v := openSelf(t, func(addr uint64) { got = append(got, addr) })

	v.Navigate(0x401000)
	assert.Equal(t, []uint64{0x401000}, got)
	assert.Equal(t, uint64(0x401000), v.Current())
}

func TestRegistersForDefaults(t *testing.T) {
	specs := register.DefaultSpecs(register.Arch64, RegistersFor("x86_64"))
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	assert.Equal(t, []string{
		"rip", "rflags",
		"rax", "rbx", "rcx", "rdx", "rsi", "rdi", "rbp", "rsp",
		"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
	}, names)

	specs = register.DefaultSpecs(register.Arch32, RegistersFor("x86"))
	require.Len(t, specs, 10)
	assert.Equal(t, "eip", specs[0].Name)
	assert.Equal(t, 32, specs[0].Width)

	assert.Nil(t, RegistersFor("arm64"))
}
