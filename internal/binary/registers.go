package binary

import (
	"fmt"

	"github.com/dshills/voltlive/internal/register"
)

func specs(width int, names ...string) []register.Spec {
	out := make([]register.Spec, len(names))
	for i, n := range names {
		out[i] = register.Spec{Name: n, Width: width}
	}
	return out
}

func numbered(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}

var x8664Registers = func() []register.Spec {
	out := specs(64,
		"rax", "rbx", "rcx", "rdx", "rsi", "rdi", "rbp", "rsp",
		"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
		"rip", "rflags", "fs_base", "gs_base")
	out = append(out, specs(16, "cs", "ds", "es", "fs", "gs", "ss")...)
	out = append(out, specs(80, numbered("st", 8)...)...)
	out = append(out, specs(128, numbered("xmm", 16)...)...)
	return out
}()

var x86Registers = func() []register.Spec {
	out := specs(32, "eax", "ebx", "ecx", "edx", "esi", "edi", "ebp", "esp", "eip", "eflags")
	out = append(out, specs(16, "cs", "ds", "es", "fs", "gs", "ss")...)
	out = append(out, specs(80, numbered("st", 8)...)...)
	out = append(out, specs(64, numbered("mm", 8)...)...)
	out = append(out, specs(128, numbered("xmm", 8)...)...)
	return out
}()

// RegistersFor returns the full-width register table for an architecture
// name, or nil when it is not known.
func RegistersFor(arch string) []register.Spec {
	switch arch {
	case "x86_64":
		return append([]register.Spec(nil), x8664Registers...)
	case "x86":
		return append([]register.Spec(nil), x86Registers...)
	}
	return nil
}
