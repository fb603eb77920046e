package register

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveArch(t *testing.T) {
	a, err := ResolveArch("x86_64")
	require.NoError(t, err)
	assert.Equal(t, Arch64, a)
	assert.Equal(t, 64, a.Width())
	assert.Equal(t, 8, a.PointerWidth())
	assert.Equal(t, "rsp", a.SP())

	a, err = ResolveArch("x86")
	require.NoError(t, err)
	assert.Equal(t, Arch32, a)
	assert.Equal(t, "eflags", a.Flags())
	assert.Equal(t, "ebp", a.BP())
	assert.Equal(t, "eip", a.IP())
	assert.Equal(t, 4, a.PointerWidth())

	a, err = ResolveArch("aarch64")
	assert.ErrorIs(t, err, ErrUnsupportedArch)
	assert.Equal(t, Arch64, a, "unsupported architectures keep the 64-bit defaults")
}

func TestDefaultSpecs(t *testing.T) {
	full := []Spec{
		{"rax", 64}, {"rbx", 64}, {"rip", 64}, {"rsp", 64}, {"rbp", 64},
		{"xmm0", 128}, {"mm0", 64}, {"st0", 80}, {"fs_base", 64},
		{"cs", 16}, {"gs", 16}, {"r8", 0},
	}

	specs := DefaultSpecs(Arch64, full)

	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"rip", "rflags", "rax", "rbx", "rsp", "rbp", "r8"}, names)
	assert.Equal(t, 64, specs[len(specs)-1].Width)
}
