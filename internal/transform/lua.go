package transform

import (
	"context"
	"fmt"
	"strings"

	"github.com/joshharrison/assetloom/internal/pipeline"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// LuaHook compiles a script that defines a global
//
//	function transform(path, contents) ... end
//
// and returns a Step calling it for every file. Returning a string
// replaces the file's contents; returning nil drops the file. The script
// runs with only the base, table, string and math libraries.
func LuaHook(name, script string) (pipeline.Step, error) {
	chunk, err := parse.Parse(strings.NewReader(script), name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}

	return pipeline.Func(name, pipeline.Transform, func(ctx context.Context, files []pipeline.File) ([]pipeline.File, error) {
		L := newLuaState()
		defer L.Close()
		L.SetContext(ctx)

		L.Push(L.NewFunctionFromProto(proto))
		if err := L.PCall(0, lua.MultRet, nil); err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
		fn, ok := L.GetGlobal("transform").(*lua.LFunction)
		if !ok {
			return nil, fmt.Errorf("script does not define transform(path, contents)")
		}

		out := make([]pipeline.File, 0, len(files))
		for _, f := range files {
			if f.Dir {
				out = append(out, f)
				continue
			}
			err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lua.LString(f.Rel), lua.LString(f.Contents))
			if err != nil {
				return nil, &pipeline.FileError{Step: name, Path: f.Rel, Err: err}
			}
			ret := L.Get(-1)
			L.Pop(1)

			switch v := ret.(type) {
			case lua.LString:
				f.Contents = []byte(string(v))
				out = append(out, f)
			case *lua.LNilType:
			default:
				return nil, &pipeline.FileError{Step: name, Path: f.Rel, Err: fmt.Errorf("transform returned %s, want string or nil", ret.Type())}
			}
		}
		return out, nil
	}), nil
}

func newLuaState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	return L
}
