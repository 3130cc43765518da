package builtin

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kode4food/ale"
	"github.com/kode4food/ale/core/bootstrap"
	"github.com/kode4food/ale/data"
	"github.com/kode4food/ale/env"
	"github.com/kode4food/ale/eval"

	"github.com/kode4food/twill/pkg/api"
)

type (
	// aleEnv executes Ale source by wrapping it in a lambda whose formal
	// parameters are the sorted argument names
	aleEnv struct {
		compiler *compiler[*compiledAle]
		env      *env.Environment
	}

	compiledAle struct {
		proc     data.Procedure
		argNames []string
	}
)

const aleLambdaTemplate = "(lambda (%s) %s)"

var (
	ErrAleBadCompiledType = errors.New("expected *compiledAle")
	ErrAleNotProcedure    = errors.New("not a procedure")
	ErrAleCompile         = errors.New("ale compile error")
	ErrAleCall            = errors.New("error calling procedure")
)

func newAleEnv(cacheSize int) *aleEnv {
	e := env.NewEnvironment()
	bootstrap.Into(e)
	res := &aleEnv{env: e}
	res.compiler = newCompiler(cacheSize, res.build)
	return res
}

func (e *aleEnv) Compile(
	source string, argNames []string,
) (compiledScript, error) {
	return e.compiler.compile(source, argNames)
}

func (e *aleEnv) Run(c compiledScript, inputs api.Args) (api.Args, error) {
	script, ok := c.(*compiledAle)
	if !ok {
		return nil, fmt.Errorf("%w, got %T", ErrAleBadCompiledType, c)
	}

	args := make(data.Vector, 0, len(script.argNames))
	for _, name := range script.argNames {
		args = append(args, aleArgValue(inputs, name))
	}

	result, err := catchPanic(ErrAleCall,
		func() (ale.Value, error) {
			return script.proc.Call(args...), nil
		},
	)
	if err != nil {
		return nil, err
	}

	value := aleToGo(result)
	if m, ok := value.(map[string]any); ok {
		res := api.Args{}
		for k, v := range m {
			res[api.Name(k)] = v
		}
		return res, nil
	}
	return api.Args{"result": value}, nil
}

func (e *aleEnv) build(
	source string, argNames []string,
) (*compiledAle, error) {
	src := fmt.Sprintf(
		aleLambdaTemplate, strings.Join(argNames, " "), source,
	)

	proc, err := catchPanic(ErrAleCompile,
		func() (data.Procedure, error) {
			ns := e.env.GetAnonymous()
			res, err := eval.String(ns, data.String(src))
			if err != nil {
				return nil, err
			}

			proc, ok := res.(data.Procedure)
			if !ok {
				return nil, fmt.Errorf("%w, got: %T", ErrAleNotProcedure, res)
			}
			return proc, nil
		},
	)
	if err != nil {
		return nil, err
	}

	return &compiledAle{
		proc:     proc,
		argNames: argNames,
	}, nil
}

func aleArgValue(inputs api.Args, argName string) ale.Value {
	value, ok := inputs[api.Name(argName)]
	if !ok {
		return data.Null
	}
	return goToAle(value)
}

func goToAle(value any) ale.Value {
	switch v := value.(type) {
	case string:
		return data.String(v)
	case bool:
		return data.Bool(v)
	case int:
		return data.Integer(v)
	case int64:
		return data.Integer(v)
	case float64:
		return data.Float(v)
	case []any:
		return goArrayToAle(v)
	case map[string]any:
		return goMapToAle(v)
	case api.Args:
		return goArgsToAle(v)
	case nil:
		return data.Null
	default:
		return data.String(fmt.Sprintf("%v", v))
	}
}

func goArrayToAle(arr []any) data.Vector {
	vec := make(data.Vector, len(arr))
	for i, item := range arr {
		vec[i] = goToAle(item)
	}
	return vec
}

func goMapToAle(m map[string]any) *data.Object {
	obj := data.NewObject()
	for k, val := range m {
		pair := data.NewCons(data.Keyword(k), goToAle(val))
		obj = obj.Put(pair).(*data.Object)
	}
	return obj
}

func goArgsToAle(args api.Args) *data.Object {
	obj := data.NewObject()
	for k, val := range args {
		pair := data.NewCons(data.Keyword(k), goToAle(val))
		obj = obj.Put(pair).(*data.Object)
	}
	return obj
}

func aleToGo(value ale.Value) any {
	switch v := value.(type) {
	case data.Bool:
		return bool(v)
	case data.Keyword:
		return string(v)
	case data.Integer:
		return int(v)
	case data.Float:
		return float64(v)
	case data.String:
		return string(v)
	case data.Vector:
		return aleVectorToGo(v)
	case *data.List:
		return aleListToGo(v)
	case *data.Object:
		return aleObjectToGo(v)
	default:
		if value == data.Null {
			return nil
		}
		return fmt.Sprintf("%v", v)
	}
}

func aleVectorToGo(v data.Vector) []any {
	result := make([]any, len(v))
	for i, item := range v {
		result[i] = aleToGo(item)
	}
	return result
}

func aleListToGo(list *data.List) []any {
	var result []any
	for l := list; !l.IsEmpty(); {
		head, tail, ok := l.Split()
		if !ok {
			break
		}
		result = append(result, aleToGo(head))
		l = tail.(*data.List)
	}
	return result
}

func aleObjectToGo(obj *data.Object) map[string]any {
	result := map[string]any{}
	for _, pair := range obj.Pairs() {
		key := fmt.Sprintf("%v", aleToGo(pair.Car()))
		result[key] = aleToGo(pair.Cdr())
	}
	return result
}

func catchPanic[T any](baseErr error, fn func() (T, error)) (res T, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		e, ok := r.(error)
		if ok {
			err = e
			return
		}
		err = fmt.Errorf("%w: %v", baseErr, r)
	}()
	return fn()
}

var _ scriptEnv = (*aleEnv)(nil)
