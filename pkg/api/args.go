package api

import (
	"maps"
	"reflect"
	"time"
)

type (
	// Args represents a map of named values passed to or from steps
	Args map[Name]any

	// Name is a string identifier for parameters and output fields
	Name string
)

// Set creates a new Args with the specified name-value pair added
func (a Args) Set(name Name, value any) Args {
	if a == nil {
		return Args{name: value}
	}
	res := maps.Clone(a)
	res[name] = value
	return res
}

// GetString retrieves a string value from args, returning defaultValue if
// not found or wrong type
func (a Args) GetString(name Name, defaultValue string) string {
	val, ok := a[name]
	if !ok {
		return defaultValue
	}
	str, ok := val.(string)
	if !ok {
		return defaultValue
	}
	return str
}

// GetBool retrieves a boolean value from args, returning defaultValue if
// not found or wrong type
func (a Args) GetBool(name Name, defaultValue bool) bool {
	val, ok := a[name]
	if !ok {
		return defaultValue
	}
	b, ok := val.(bool)
	if !ok {
		return defaultValue
	}
	return b
}

// GetInt retrieves an integer value from args, returning defaultValue if
// not found or wrong type. Supports both int and float64 (converting from
// JSON and YAML numbers)
func (a Args) GetInt(name Name, defaultValue int) int {
	val, ok := a[name]
	if !ok {
		return defaultValue
	}
	if i, ok := val.(int); ok {
		return i
	}
	if f, ok := val.(float64); ok {
		return int(f)
	}
	return defaultValue
}

// GetFloat retrieves a float value from args, accepting int and float64
// source values
func (a Args) GetFloat(name Name, defaultValue float64) float64 {
	val, ok := a[name]
	if !ok {
		return defaultValue
	}
	if f, ok := val.(float64); ok {
		return f
	}
	if i, ok := val.(int); ok {
		return float64(i)
	}
	return defaultValue
}

// GetDuration retrieves a duration from args. Accepts a duration string
// ("250ms"), an integer number of milliseconds, or a float of milliseconds
func (a Args) GetDuration(name Name, defaultValue time.Duration) time.Duration {
	val, ok := a[name]
	if !ok {
		return defaultValue
	}
	switch v := val.(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case int:
		return time.Duration(v) * time.Millisecond
	case int64:
		return time.Duration(v) * time.Millisecond
	case float64:
		return time.Duration(v * float64(time.Millisecond))
	}
	return defaultValue
}

// Copy returns a shallow clone of the Args
func (a Args) Copy() Args {
	if a == nil {
		return Args{}
	}
	return maps.Clone(a)
}

// Equal reports whether two Args carry structurally equal values
func (a Args) Equal(other Args) bool {
	if len(a) != len(other) {
		return false
	}
	for k, v := range a {
		ov, ok := other[k]
		if !ok || !reflect.DeepEqual(v, ov) {
			return false
		}
	}
	return true
}

// MergeArgs layers argument maps left to right, later layers overriding
// earlier ones. Nil layers are skipped and the inputs are never mutated
func MergeArgs(layers ...Args) Args {
	res := Args{}
	for _, layer := range layers {
		for k, v := range layer {
			res[k] = v
		}
	}
	return res
}
