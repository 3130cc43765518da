package builtin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/kode4food/lru"

	"github.com/kode4food/twill/pkg/api"
	"github.com/kode4food/twill/pkg/util"
)

type (
	// Script executes inline Lua or Ale source. Script arguments come from
	// the args object plus any additional parameters beyond the reserved
	// ones, bound in sorted name order. A result table becomes the output
	// map; any other value is returned under the result key
	Script struct {
		envs map[string]scriptEnv
	}

	// scriptEnv compiles and runs source for one language. Compiled forms
	// are cached per environment
	scriptEnv interface {
		Compile(source string, argNames []string) (compiledScript, error)
		Run(c compiledScript, inputs api.Args) (api.Args, error)
	}

	compiledScript any

	buildFunc[T any] func(source string, argNames []string) (T, error)

	compiler[T any] struct {
		cache *lru.Cache[T]
		build buildFunc[T]
	}
)

const (
	LangLua = "lua"
	LangAle = "ale"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported script language")
	ErrScriptCompile       = errors.New("script compile error")
	ErrScriptExecution     = errors.New("script execution error")
)

var scriptReserved = util.SetOf[api.Name]("language", "source", "args")

func NewScript(cacheSize int) *Script {
	return &Script{
		envs: map[string]scriptEnv{
			LangLua: newLuaEnv(cacheSize),
			LangAle: newAleEnv(cacheSize),
		},
	}
}

func (s *Script) Describe() *api.Schema {
	return &api.Schema{
		Name:        TypeScript,
		Version:     Version,
		Description: "Executes an inline Lua or Ale script",
		Params: api.ParamSpecs{
			"source": {
				Role:        api.RoleRequired,
				Type:        api.TypeString,
				Description: "Script source",
			},
			"language": {
				Role:        api.RoleOptional,
				Type:        api.TypeString,
				Default:     `"lua"`,
				Description: "Script language (lua or ale)",
			},
			"args": {
				Role:        api.RoleOptional,
				Type:        api.TypeObject,
				Description: "Named values bound as script arguments",
			},
		},
		Outputs: api.OutputSpecs{
			"result": {
				Type:        api.TypeAny,
				Description: "Script value when not a table",
			},
		},
	}
}

func (s *Script) Execute(
	_ context.Context, input api.Args,
) (*api.StepResult, error) {
	source, err := requireString(input, "source")
	if err != nil {
		return nil, err
	}

	language := input.GetString("language", LangLua)
	env, ok := s.envs[language]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}

	args := scriptArgs(input)
	c, err := env.Compile(source, argNames(args))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptCompile, err)
	}

	outputs, err := env.Run(c, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptExecution, err)
	}
	return api.NewResult().WithOutputs(outputs), nil
}

func scriptArgs(input api.Args) api.Args {
	res := api.Args{}
	switch m := input["args"].(type) {
	case map[string]any:
		for k, v := range m {
			res[api.Name(k)] = v
		}
	case api.Args:
		for k, v := range m {
			res[k] = v
		}
	}
	for k, v := range input {
		if scriptReserved.Contains(k) {
			continue
		}
		res[k] = v
	}
	return res
}

func argNames(args api.Args) []string {
	names := util.SortedKeys(args)
	res := make([]string, len(names))
	for i, n := range names {
		res[i] = string(n)
	}
	return res
}

func newCompiler[T any](size int, build buildFunc[T]) *compiler[T] {
	return &compiler[T]{
		cache: lru.NewCache[T](size),
		build: build,
	}
}

func (c *compiler[T]) compile(source string, argNames []string) (T, error) {
	return c.cache.Get(hashScript(source, argNames), func() (T, error) {
		return c.build(source, argNames)
	})
}

func hashScript(source string, argNames []string) string {
	h := sha256.New()
	_, _ = h.Write([]byte(source))
	for _, arg := range argNames {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(arg))
	}
	return hex.EncodeToString(h.Sum(nil))
}

var _ api.Capability = (*Script)(nil)
