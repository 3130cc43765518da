package resolve

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/kode4food/jpath"
	"github.com/kode4food/lru"

	"github.com/kode4food/twill/pkg/api"
)

type (
	// Source provides the recorded document for a step, or false when the
	// step has not recorded one yet
	Source interface {
		StepDoc(id api.StepID) (any, bool)
	}

	// Resolver rewrites {{...}} references inside parameter values, drawing
	// from prior step records and the process environment
	Resolver struct {
		paths *lru.Cache[jpath.Path]
	}
)

// EnvPrefix introduces a placeholder path resolved against the process
// environment rather than a step record
const EnvPrefix = ".env."

var (
	ErrInvalidPath = errors.New("invalid placeholder path")

	placeholderPattern = regexp.MustCompile(`\{\{([^{}]*)\}\}`)
)

// New creates a resolver with an LRU cache of compiled placeholder paths
func New(cacheSize int) *Resolver {
	return &Resolver{
		paths: lru.NewCache[jpath.Path](cacheSize),
	}
}

// Resolve rewrites every placeholder occurrence in a string value. Non-string
// values pass through untouched. A placeholder whose path cannot be fully
// walked is left verbatim, never raising; callers that require a resolved
// value check for residual markers. When a placeholder spans the entire
// string the referenced value is returned directly, preserving structure;
// embedded occurrences are stringified in place
func (r *Resolver) Resolve(value any, src Source) any {
	s, ok := value.(string)
	if !ok {
		return value
	}

	if expr, ok := wholePlaceholder(s); ok {
		if res, ok := r.lookup(expr, src); ok {
			return res
		}
		return s
	}

	return placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
		res, ok := r.lookup(m[2:len(m)-2], src)
		if !ok {
			return m
		}
		return stringify(res)
	})
}

// EnvOnly resolves a value against the process environment alone. Step
// references have no source to draw from and are left verbatim. Credential
// profiles use this to expand their stored references at call time
func EnvOnly(value any) any {
	var r Resolver
	return r.Resolve(value, nil)
}

// ResolveArgs resolves every value in an argument map, returning a new map
// and leaving the input untouched
func (r *Resolver) ResolveArgs(args api.Args, src Source) api.Args {
	res := make(api.Args, len(args))
	for k, v := range args {
		res[k] = r.Resolve(v, src)
	}
	return res
}

func (r *Resolver) lookup(expr string, src Source) (any, bool) {
	path := strings.TrimSpace(expr)
	if path == "" {
		return nil, false
	}

	if name, ok := strings.CutPrefix(path, EnvPrefix); ok {
		if name == "" {
			return nil, false
		}
		return os.LookupEnv(name)
	}
	if strings.HasPrefix(path, ".") {
		return nil, false
	}

	if src == nil {
		return nil, false
	}
	stepID, rest, _ := strings.Cut(path, ".")
	doc, ok := src.StepDoc(api.StepID(stepID))
	if !ok {
		return nil, false
	}
	if rest == "" {
		return doc, true
	}
	return r.walk(rest, doc)
}

func (r *Resolver) walk(rest string, doc any) (any, bool) {
	path, err := r.compile("$." + rest)
	if err != nil {
		return nil, false
	}

	res := path(normalizeDoc(doc))
	switch len(res) {
	case 0:
		return nil, false
	case 1:
		return res[0], true
	default:
		return res, true
	}
}

func (r *Resolver) compile(src string) (jpath.Path, error) {
	return r.paths.Get(src, func() (jpath.Path, error) {
		parsed, err := jpath.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPath, src)
		}

		compiled, err := jpath.Compile(parsed)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPath, src)
		}
		return compiled, nil
	})
}

func wholePlaceholder(s string) (string, bool) {
	loc := placeholderPattern.FindStringSubmatchIndex(s)
	if loc == nil || loc[0] != 0 || loc[1] != len(s) {
		return "", false
	}
	return s[loc[2]:loc[3]], true
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}

func normalizeDoc(value any) any {
	switch v := value.(type) {
	case api.Args:
		out := make(map[string]any, len(v))
		for key, elem := range v {
			out[string(key)] = normalizeDoc(elem)
		}
		return out
	case map[api.Name]any:
		out := make(map[string]any, len(v))
		for key, elem := range v {
			out[string(key)] = normalizeDoc(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, elem := range v {
			out[key] = normalizeDoc(elem)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for idx, elem := range v {
			out[idx] = normalizeDoc(elem)
		}
		return out
	default:
		return value
	}
}
