package builtin

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/kode4food/twill/pkg/api"
)

type (
	// luaEnv executes sandboxed Lua with a pooled interpreter state and a
	// bytecode cache keyed by source and argument names
	luaEnv struct {
		compiler  *compiler[*compiledLua]
		statePool chan *lua.State
	}

	compiledLua struct {
		bytecode []byte
		argNames []string
	}
)

const (
	luaStatePoolSize    = 10
	luaGlobalTableIndex = -2
	luaTableEntryIndex  = -3
	luaArgLocalTemplate = "local %s = select(%d, ...)"
	luaGlobalTableName  = "_G"
)

var ErrLuaBadCompiledType = errors.New("expected *compiledLua")

var luaExclude = [...]string{
	"io", "os", "debug", "package", "require", "dofile", "loadfile", "load",
}

func newLuaEnv(cacheSize int) *luaEnv {
	e := &luaEnv{
		statePool: make(chan *lua.State, luaStatePoolSize),
	}
	e.compiler = newCompiler(cacheSize, e.build)
	return e
}

func (e *luaEnv) Compile(
	source string, argNames []string,
) (compiledScript, error) {
	return e.compiler.compile(source, argNames)
}

func (e *luaEnv) Run(c compiledScript, inputs api.Args) (api.Args, error) {
	script, ok := c.(*compiledLua)
	if !ok {
		return nil, fmt.Errorf("%w, got %T", ErrLuaBadCompiledType, c)
	}

	L := e.getState()
	defer e.returnState(L)

	e.setupSandbox(L)
	if err := L.Load(bytes.NewReader(script.bytecode), "chunk", "b"); err != nil {
		return nil, err
	}

	for _, name := range script.argNames {
		pushLuaArg(L, inputs, name)
	}

	if err := L.ProtectedCall(len(script.argNames), 1, 0); err != nil {
		return nil, err
	}

	var result api.Args
	if L.IsTable(-1) {
		result = luaTableToArgs(L, -1)
	} else {
		result = api.Args{"result": luaToGo(L, -1)}
	}
	L.Pop(1)

	return result, nil
}

func (e *luaEnv) build(
	source string, argNames []string,
) (*compiledLua, error) {
	argLocals := make([]string, len(argNames))
	for i, name := range argNames {
		argLocals[i] = fmt.Sprintf(luaArgLocalTemplate, name, i+1)
	}

	src := strings.Join(
		[]string{strings.Join(argLocals, "\n"), source}, "\n",
	)

	L := lua.NewState()
	e.setupSandbox(L)

	if err := lua.LoadString(L, src); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := L.Dump(&buf); err != nil {
		return nil, err
	}

	return &compiledLua{
		bytecode: buf.Bytes(),
		argNames: argNames,
	}, nil
}

func (e *luaEnv) setupSandbox(L *lua.State) {
	lua.OpenLibraries(L)
	L.Global(luaGlobalTableName)
	for _, name := range luaExclude {
		L.PushNil()
		L.SetField(luaGlobalTableIndex, name)
	}
	L.Pop(1)
}

func (e *luaEnv) getState() *lua.State {
	select {
	case L := <-e.statePool:
		return L
	default:
		return lua.NewState()
	}
}

func (e *luaEnv) returnState(L *lua.State) {
	L.SetTop(0)

	select {
	case e.statePool <- L:
	default:
	}
}

func pushLuaArg(L *lua.State, inputs api.Args, argName string) {
	if value, ok := inputs[api.Name(argName)]; ok {
		goToLua(L, value)
		return
	}
	L.PushNil()
}

func goToLua(L *lua.State, value any) {
	switch v := value.(type) {
	case string:
		L.PushString(v)
	case bool:
		L.PushBoolean(v)
	case int:
		L.PushInteger(v)
	case int64:
		L.PushInteger(int(v))
	case float64:
		L.PushNumber(v)
	case []any:
		pushLuaArray(L, v)
	case map[string]any:
		pushLuaMap(L, v)
	case api.Args:
		pushLuaArgs(L, v)
	case nil:
		L.PushNil()
	default:
		L.PushString(fmt.Sprintf("%v", v))
	}
}

func pushLuaArray(L *lua.State, arr []any) {
	L.CreateTable(len(arr), 0)
	for i, item := range arr {
		L.PushInteger(i + 1)
		goToLua(L, item)
		L.SetTable(luaTableEntryIndex)
	}
}

func pushLuaMap(L *lua.State, m map[string]any) {
	L.CreateTable(0, len(m))
	for k, val := range m {
		L.PushString(k)
		goToLua(L, val)
		L.SetTable(luaTableEntryIndex)
	}
}

func pushLuaArgs(L *lua.State, args api.Args) {
	L.CreateTable(0, len(args))
	for k, val := range args {
		L.PushString(string(k))
		goToLua(L, val)
		L.SetTable(luaTableEntryIndex)
	}
}

func luaNumberToGo(L *lua.State, index int) any {
	num, _ := L.ToNumber(index)
	if num == float64(int(num)) {
		return int(num)
	}
	return num
}

func luaToGo(L *lua.State, index int) any {
	switch {
	case L.IsNil(index):
		return nil
	case L.IsBoolean(index):
		return L.ToBoolean(index)
	case L.IsNumber(index):
		return luaNumberToGo(L, index)
	case L.IsString(index):
		s, _ := L.ToString(index)
		return s
	case L.IsTable(index):
		return luaTableToAny(L, index)
	default:
		return nil
	}
}

func luaTableToArgs(L *lua.State, index int) api.Args {
	result := api.Args{}

	L.PushNil()
	for L.Next(index - 1) {
		if L.IsString(-2) {
			key, _ := L.ToString(-2)
			result[api.Name(key)] = luaToGo(L, -1)
		}
		L.Pop(1)
	}

	return result
}

func luaTableToAny(L *lua.State, index int) any {
	isArray := true
	length := 0

	L.PushNil()
	for L.Next(index - 1) {
		if !L.IsNumber(-2) {
			isArray = false
			L.Pop(1)
			break
		}
		length++
		L.Pop(1)
	}

	if isArray && length > 0 {
		return luaArrayToGo(L, index, length)
	}

	result := map[string]any{}
	L.PushNil()
	for L.Next(index - 1) {
		var key string
		if !L.IsString(-2) {
			key = fmt.Sprintf("%v", luaToGo(L, -2))
			result[key] = luaToGo(L, -1)
			L.Pop(1)
			continue
		}
		key, _ = L.ToString(-2)
		result[key] = luaToGo(L, -1)
		L.Pop(1)
	}

	return result
}

func luaArrayToGo(L *lua.State, index, length int) []any {
	arr := make([]any, length)
	absIndex := index
	if index < 0 {
		absIndex = L.Top() + index + 1
	}
	for i := 1; i <= length; i++ {
		L.RawGetInt(absIndex, i)
		arr[i-1] = luaToGo(L, -1)
		L.Pop(1)
	}
	return arr
}

var _ scriptEnv = (*luaEnv)(nil)
