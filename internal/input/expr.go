package input

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Eval evaluates expr as a Lua expression and returns the resulting bytes.
// The state has only the base, string, table and math libraries, with the
// loaders removed, plus the packing helpers p8, p16, p32 and p64.
func Eval(expr string, timeout time.Duration) (out []byte, err error) {
	if expr == "" {
		return nil, nil
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	installPackers(L)

	if timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		L.SetContext(ctx)
	}

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: lua panic: %v", ErrDecode, r)
		}
	}()

	if err := L.DoString("return " + expr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return valueBytes(L.Get(-1))
}

func valueBytes(v lua.LValue) ([]byte, error) {
	switch v := v.(type) {
	case lua.LString:
		return []byte(string(v)), nil
	case *lua.LTable:
		var b strings.Builder
		var bad error
		v.ForEach(func(_, item lua.LValue) {
			s, ok := item.(lua.LString)
			if !ok && bad == nil {
				bad = fmt.Errorf("%w: table element is %s, want string", ErrDecode, item.Type())
			}
			b.WriteString(string(s))
		})
		if bad != nil {
			return nil, bad
		}
		return []byte(b.String()), nil
	}
	return nil, fmt.Errorf("%w: expression yields %s, want string", ErrDecode, v.Type())
}

// installPackers adds little-endian integer packing functions.
func installPackers(L *lua.LState) {
	pack := func(width int) lua.LGFunction {
		return func(L *lua.LState) int {
			n := L.CheckNumber(1)
			v := uint64(int64(n))
			buf := make([]byte, 8)
			binary.LittleEndian.PutUint64(buf, v)
			L.Push(lua.LString(string(buf[:width])))
			return 1
		}
	}
	L.SetGlobal("p8", L.NewFunction(pack(1)))
	L.SetGlobal("p16", L.NewFunction(pack(2)))
	L.SetGlobal("p32", L.NewFunction(pack(4)))
	L.SetGlobal("p64", L.NewFunction(pack(8)))
}
