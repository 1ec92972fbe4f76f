// script.go - scripted breakpoint conditions, backed by
// github.com/yuin/gopher-lua: a first-class, per-breakpoint scripted
// condition evaluated as a callback on breakpoint hit.

package godbg

import (
	"fmt"
	"log"

	lua "github.com/yuin/gopher-lua"
)

// ScriptCondition holds the Lua source for a scripted breakpoint
// condition. Validated once at PlaceScripted time by a trial compile so
// a syntax error surfaces immediately rather than silently disarming the
// breakpoint on first hit.
type ScriptCondition struct {
	source string
}

// compileScript validates that luaSource compiles, catching a bad script
// before it ever runs against a live tracee.
func compileScript(luaSource string) (*ScriptCondition, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	if _, err := L.LoadString(luaSource); err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return &ScriptCondition{source: luaSource}, nil
}

// evaluateScriptCondition runs the script with reg/mem/hits bound as Lua
// globals and interprets its single return value as a boolean. A load or
// runtime script error is logged and treated as "condition not met": the
// function returns false rather than propagating the failure. It does
// not resume the tracee.
func evaluateScriptCondition(cond *ScriptCondition, regs *RegisterView, mem *MemoryView, hitCount uint64) bool {
	if cond == nil {
		return false
	}
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	L.SetGlobal("reg", L.NewFunction(func(ls *lua.LState) int {
		name := ls.CheckString(1)
		val, err := regs.Get(name)
		if err != nil {
			ls.Push(lua.LNil)
			return 1
		}
		ls.Push(lua.LNumber(val))
		return 1
	}))
	L.SetGlobal("mem", L.NewFunction(func(ls *lua.LState) int {
		addr := uint64(ls.CheckNumber(1))
		size := ls.CheckInt(2)
		data, err := mem.Read(addr, size)
		if err != nil {
			ls.Push(lua.LNil)
			return 1
		}
		var v uint64
		for i := len(data) - 1; i >= 0; i-- {
			v = v<<8 | uint64(data[i])
		}
		ls.Push(lua.LNumber(v))
		return 1
	}))
	L.SetGlobal("hits", lua.LNumber(hitCount))

	fn, err := L.LoadString(cond.source)
	if err != nil {
		log.Printf("godbg: scripted condition failed to load: %v", err)
		return false
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		log.Printf("godbg: scripted condition error: %v", err)
		return false
	}
	ret := L.Get(-1)
	return lua.LVAsBool(ret)
}
