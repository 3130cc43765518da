package builtin

import (
	"errors"
	"fmt"

	"github.com/kode4food/twill/internal/capability"
	"github.com/kode4food/twill/internal/config"
	"github.com/kode4food/twill/pkg/api"
)

// Registration pairs a canonical capability type name with its factory and
// aliases. The table replaces reflective plugin scanning: the process entry
// point registers exactly this set at startup, and manifest-driven
// discovery selects from it
type Registration struct {
	Factory api.Factory
	Name    string
	Aliases []string
}

const (
	TypeHTTP   = "http.request"
	TypeScript = "script"
	TypeRedis  = "redis"
	TypeOpenAI = "openai.chat"
	TypeEcho   = "util.echo"
	TypeDelay  = "util.delay"
)

const Version = "1.0.0"

var (
	ErrMissingParameter = errors.New("missing required parameter")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// All returns the built-in registration table. Capabilities holding shared
// state (connection pools, compiled-script caches) are constructed once and
// reused across invocations
func All(cfg *config.Config) []*Registration {
	return []*Registration{
		{
			Name:    TypeHTTP,
			Factory: instance(NewHTTP(cfg.HTTPTimeout)),
			Aliases: []string{"http"},
		},
		{
			Name:    TypeScript,
			Factory: instance(NewScript(cfg.ScriptCacheSize)),
			Aliases: []string{"lua", "ale"},
		},
		{
			Name:    TypeRedis,
			Factory: instance(NewRedis(cfg.RedisAddr)),
			Aliases: []string{"kv"},
		},
		{
			Name:    TypeOpenAI,
			Factory: instance(NewOpenAI()),
		},
		{
			Name:    TypeEcho,
			Factory: instance(NewEcho()),
		},
		{
			Name:    TypeDelay,
			Factory: instance(NewDelay()),
		},
	}
}

// RegisterAll registers every built-in capability with the registry
func RegisterAll(reg *capability.Registry, cfg *config.Config) error {
	for _, b := range All(cfg) {
		if err := reg.Register(b.Name, b.Factory, b.Aliases...); err != nil {
			return err
		}
	}
	return nil
}

// Factories returns the built-in factories keyed by canonical type name
func Factories(cfg *config.Config) map[string]api.Factory {
	res := map[string]api.Factory{}
	for _, b := range All(cfg) {
		res[b.Name] = b.Factory
	}
	return res
}

func instance(c api.Capability) api.Factory {
	return func() (api.Capability, error) {
		return c, nil
	}
}

func requireString(input api.Args, name api.Name) (string, error) {
	val, ok := input[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingParameter, name)
	}
	s, ok := val.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidParameter, name)
	}
	return s, nil
}
