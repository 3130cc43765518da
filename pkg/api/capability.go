package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/kode4food/twill/pkg/util"
)

type (
	// Capability is the uniform contract every step implementation honors.
	// Execute receives the fully-resolved parameter map and reports its
	// outcome as a StepResult; a non-nil error is reserved for failures of
	// the invocation machinery itself. Implementations that suspend must
	// honor context cancellation
	Capability interface {
		Describe() *Schema
		Execute(ctx context.Context, input Args) (*StepResult, error)
	}

	// Factory produces a capability instance for one registered type
	Factory func() (Capability, error)

	// Schema describes a capability: identity, parameters, outputs, and
	// whether its Execute may suspend on I/O
	Schema struct {
		Params      ParamSpecs  `json:"parameters,omitempty"`
		Outputs     OutputSpecs `json:"outputs,omitempty"`
		Name        string      `json:"name"`
		Version     string      `json:"version,omitempty"`
		Description string      `json:"description,omitempty"`
		Suspending  bool        `json:"suspending,omitempty"`
	}

	// ParamSpec describes one capability parameter
	ParamSpec struct {
		Role        ParamRole `json:"role"`
		Type        ValueType `json:"type,omitempty"`
		Default     string    `json:"default,omitempty"`
		Description string    `json:"description,omitempty"`
	}

	// OutputSpec describes one named output field
	OutputSpec struct {
		Type        ValueType `json:"type,omitempty"`
		Description string    `json:"description,omitempty"`
	}

	ParamSpecs  map[Name]*ParamSpec
	OutputSpecs map[Name]*OutputSpec
	ParamRole   string
	ValueType   string
)

const (
	RoleRequired ParamRole = "required"
	RoleOptional ParamRole = "optional"
)

const (
	TypeString  ValueType = "string"
	TypeNumber  ValueType = "number"
	TypeBoolean ValueType = "boolean"
	TypeObject  ValueType = "object"
	TypeArray   ValueType = "array"
	TypeAny     ValueType = "any"
)

var (
	ErrSchemaNameEmpty     = errors.New("schema name empty")
	ErrInvalidParamRole    = errors.New("invalid parameter role")
	ErrInvalidValueType    = errors.New("invalid value type")
	ErrDefaultNotAllowed   = errors.New("default value requires an optional parameter")
	ErrInvalidDefaultValue = errors.New("invalid default value for type")
)

var (
	validParamRoles = util.SetOf(RoleRequired, RoleOptional)

	validValueTypes = util.SetOf(
		TypeString, TypeNumber, TypeBoolean, TypeObject, TypeArray, TypeAny,
	)
)

// Validate checks the schema and every parameter spec
func (s *Schema) Validate() error {
	if s.Name == "" {
		return ErrSchemaNameEmpty
	}
	for name, p := range s.Params {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: %s", err, name)
		}
	}
	return nil
}

// Required returns the names of every required parameter, in no particular
// order
func (s *Schema) Required() []Name {
	var res []Name
	for name, p := range s.Params {
		if p.Role == RoleRequired {
			res = append(res, name)
		}
	}
	return res
}

// ApplyDefaults returns args with declared defaults filled in for every
// parameter the input leaves unset. The input map is never mutated; when
// no default applies it comes back unchanged
func (s *Schema) ApplyDefaults(args Args) Args {
	var res Args
	for name, p := range s.Params {
		if _, ok := args[name]; ok {
			continue
		}
		value, ok := p.DefaultValue()
		if !ok {
			continue
		}
		if res == nil {
			res = MergeArgs(args)
		}
		res[name] = value
	}
	if res == nil {
		return args
	}
	return res
}

func (p *ParamSpec) Validate() error {
	if !validParamRoles.Contains(p.Role) {
		return fmt.Errorf("%w: %s", ErrInvalidParamRole, p.Role)
	}
	if p.Type != "" && !validValueTypes.Contains(p.Type) {
		return fmt.Errorf("%w: %s", ErrInvalidValueType, p.Type)
	}
	if p.Default != "" {
		if p.Role != RoleOptional {
			return ErrDefaultNotAllowed
		}
		if err := validateTypedValue(p.Type, p.Default); err != nil {
			return err
		}
	}
	return nil
}

// DefaultValue parses the JSON-encoded default into a Go value
func (p *ParamSpec) DefaultValue() (any, bool) {
	if p.Default == "" {
		return nil, false
	}
	if !gjson.Valid(p.Default) {
		return p.Default, true
	}
	return gjson.Parse(p.Default).Value(), true
}

// validateTypedValue checks that a JSON-encoded literal matches the declared
// value type
func validateTypedValue(t ValueType, value string) error {
	if t == "" || t == TypeAny {
		return nil
	}
	if !gjson.Valid(value) {
		if t == TypeString {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrInvalidDefaultValue, value)
	}

	result := gjson.Parse(value)
	switch t {
	case TypeString:
		if result.Type != gjson.String {
			return fmt.Errorf("%w: %s is not a string", ErrInvalidDefaultValue, value)
		}
	case TypeNumber:
		if result.Type != gjson.Number {
			return fmt.Errorf("%w: %s is not a number", ErrInvalidDefaultValue, value)
		}
	case TypeBoolean:
		if result.Type != gjson.True && result.Type != gjson.False {
			return fmt.Errorf("%w: %s is not a boolean", ErrInvalidDefaultValue, value)
		}
	case TypeObject:
		if !result.IsObject() {
			return fmt.Errorf("%w: %s is not an object", ErrInvalidDefaultValue, value)
		}
	case TypeArray:
		if !result.IsArray() {
			return fmt.Errorf("%w: %s is not an array", ErrInvalidDefaultValue, value)
		}
	}
	return nil
}
