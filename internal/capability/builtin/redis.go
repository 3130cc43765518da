package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kode4food/twill/pkg/api"
)

// Redis performs key-value operations against a shared client. The client
// connects lazily, so constructing the capability never blocks on an
// unreachable server
type Redis struct {
	client *redis.Client
}

const (
	redisOpGet    = "get"
	redisOpSet    = "set"
	redisOpDel    = "del"
	redisOpIncr   = "incr"
	redisOpExpire = "expire"
)

var ErrUnknownRedisOp = errors.New("unknown redis operation")

func NewRedis(addr string) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
	}
}

func (r *Redis) Describe() *api.Schema {
	return &api.Schema{
		Name:        TypeRedis,
		Version:     Version,
		Description: "Performs a Redis key-value operation",
		Suspending:  true,
		Params: api.ParamSpecs{
			"operation": {
				Role:        api.RoleRequired,
				Type:        api.TypeString,
				Description: "One of get, set, del, incr, expire",
			},
			"key": {
				Role:        api.RoleRequired,
				Type:        api.TypeString,
				Description: "Key to operate on",
			},
			"value": {
				Role:        api.RoleOptional,
				Type:        api.TypeAny,
				Description: "Value for set; non-strings are stored as JSON",
			},
			"ttl": {
				Role:        api.RoleOptional,
				Type:        api.TypeAny,
				Description: "Expiry for set and expire",
			},
		},
		Outputs: api.OutputSpecs{
			"value":   {Type: api.TypeAny, Description: "Value for get and incr"},
			"found":   {Type: api.TypeBoolean, Description: "Whether get hit"},
			"deleted": {Type: api.TypeNumber, Description: "Keys removed by del"},
			"ok":      {Type: api.TypeBoolean, Description: "Whether set or expire applied"},
		},
	}
}

func (r *Redis) Execute(
	ctx context.Context, input api.Args,
) (*api.StepResult, error) {
	op, err := requireString(input, "operation")
	if err != nil {
		return nil, err
	}
	key, err := requireString(input, "key")
	if err != nil {
		return nil, err
	}

	switch op {
	case redisOpGet:
		return r.get(ctx, key)
	case redisOpSet:
		return r.set(ctx, key, input)
	case redisOpDel:
		return r.del(ctx, key)
	case redisOpIncr:
		return r.incr(ctx, key)
	case redisOpExpire:
		return r.expire(ctx, key, input)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownRedisOp, op)
	}
}

func (r *Redis) get(ctx context.Context, key string) (*api.StepResult, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return api.NewResult().
			WithOutput("found", false).
			WithOutput("value", nil), nil
	}
	if err != nil {
		return nil, err
	}
	return api.NewResult().
		WithOutput("found", true).
		WithOutput("value", val), nil
}

func (r *Redis) set(
	ctx context.Context, key string, input api.Args,
) (*api.StepResult, error) {
	val, err := redisValue(input)
	if err != nil {
		return nil, err
	}

	ttl := input.GetDuration("ttl", 0)
	if err := r.client.Set(ctx, key, val, ttl).Err(); err != nil {
		return nil, err
	}
	return api.NewResult().WithOutput("ok", true), nil
}

func (r *Redis) del(ctx context.Context, key string) (*api.StepResult, error) {
	n, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	return api.NewResult().WithOutput("deleted", int(n)), nil
}

func (r *Redis) incr(ctx context.Context, key string) (*api.StepResult, error) {
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	return api.NewResult().WithOutput("value", int(n)), nil
}

func (r *Redis) expire(
	ctx context.Context, key string, input api.Args,
) (*api.StepResult, error) {
	ttl := input.GetDuration("ttl", 0)
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl", ErrMissingParameter)
	}

	ok, err := r.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return nil, err
	}
	return api.NewResult().WithOutput("ok", ok), nil
}

func redisValue(input api.Args) (string, error) {
	raw, ok := input["value"]
	if !ok {
		return "", fmt.Errorf("%w: value", ErrMissingParameter)
	}
	if s, ok := raw.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("%w: value", ErrInvalidParameter)
	}
	return string(data), nil
}

var _ api.Capability = (*Redis)(nil)
