package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/twill/pkg/api"
)

func TestSchemaValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		s := &api.Schema{
			Name: "http.request",
			Params: api.ParamSpecs{
				"url":    {Role: api.RoleRequired, Type: api.TypeString},
				"method": {Role: api.RoleOptional, Type: api.TypeString, Default: `"GET"`},
			},
		}
		assert.NoError(t, s.Validate())
	})

	t.Run("empty_name", func(t *testing.T) {
		s := &api.Schema{}
		assert.ErrorIs(t, s.Validate(), api.ErrSchemaNameEmpty)
	})

	t.Run("bad_param", func(t *testing.T) {
		s := &api.Schema{
			Name: "x",
			Params: api.ParamSpecs{
				"p": {Role: "mandatory"},
			},
		}
		assert.ErrorIs(t, s.Validate(), api.ErrInvalidParamRole)
	})
}

func TestParamSpecValidate(t *testing.T) {
	tests := []struct {
		want error
		spec *api.ParamSpec
		name string
	}{
		{
			name: "required_string",
			spec: &api.ParamSpec{Role: api.RoleRequired, Type: api.TypeString},
		},
		{
			name: "optional_untyped",
			spec: &api.ParamSpec{Role: api.RoleOptional},
		},
		{
			name: "bad_role",
			spec: &api.ParamSpec{Role: "sometimes"},
			want: api.ErrInvalidParamRole,
		},
		{
			name: "bad_type",
			spec: &api.ParamSpec{Role: api.RoleOptional, Type: "uuid"},
			want: api.ErrInvalidValueType,
		},
		{
			name: "default_on_required",
			spec: &api.ParamSpec{
				Role: api.RoleRequired, Type: api.TypeString, Default: `"x"`,
			},
			want: api.ErrDefaultNotAllowed,
		},
		{
			name: "number_default_valid",
			spec: &api.ParamSpec{
				Role: api.RoleOptional, Type: api.TypeNumber, Default: "30",
			},
		},
		{
			name: "number_default_invalid",
			spec: &api.ParamSpec{
				Role: api.RoleOptional, Type: api.TypeNumber, Default: `"thirty"`,
			},
			want: api.ErrInvalidDefaultValue,
		},
		{
			name: "boolean_default_valid",
			spec: &api.ParamSpec{
				Role: api.RoleOptional, Type: api.TypeBoolean, Default: "true",
			},
		},
		{
			name: "object_default_invalid",
			spec: &api.ParamSpec{
				Role: api.RoleOptional, Type: api.TypeObject, Default: "[1,2]",
			},
			want: api.ErrInvalidDefaultValue,
		},
		{
			name: "array_default_valid",
			spec: &api.ParamSpec{
				Role: api.RoleOptional, Type: api.TypeArray, Default: "[1,2]",
			},
		},
		{
			name: "any_default_unchecked",
			spec: &api.ParamSpec{
				Role: api.RoleOptional, Type: api.TypeAny, Default: "whatever",
			},
		},
		{
			name: "bare_string_default",
			spec: &api.ParamSpec{
				Role: api.RoleOptional, Type: api.TypeString, Default: "plain",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParamSpecDefaultValue(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		_, ok := (&api.ParamSpec{}).DefaultValue()
		assert.False(t, ok)
	})

	t.Run("json_number", func(t *testing.T) {
		v, ok := (&api.ParamSpec{Default: "30"}).DefaultValue()
		assert.True(t, ok)
		assert.Equal(t, float64(30), v)
	})

	t.Run("json_string", func(t *testing.T) {
		v, ok := (&api.ParamSpec{Default: `"GET"`}).DefaultValue()
		assert.True(t, ok)
		assert.Equal(t, "GET", v)
	})

	t.Run("bare_string", func(t *testing.T) {
		v, ok := (&api.ParamSpec{Default: "plain text"}).DefaultValue()
		assert.True(t, ok)
		assert.Equal(t, "plain text", v)
	})
}

func TestSchemaApplyDefaults(t *testing.T) {
	s := &api.Schema{
		Name: "fetch",
		Params: api.ParamSpecs{
			"url": {Role: api.RoleRequired, Type: api.TypeString},
			"method": {
				Role: api.RoleOptional, Type: api.TypeString,
				Default: `"GET"`,
			},
			"retries": {
				Role: api.RoleOptional, Type: api.TypeNumber,
				Default: "3",
			},
		},
	}

	t.Run("fills_unset", func(t *testing.T) {
		args := api.Args{"url": "https://api.example.com"}
		got := s.ApplyDefaults(args)
		assert.Equal(t, "GET", got["method"])
		assert.Equal(t, float64(3), got["retries"])
		assert.NotContains(t, args, api.Name("method"))
	})

	t.Run("keeps_provided", func(t *testing.T) {
		got := s.ApplyDefaults(api.Args{"method": "POST"})
		assert.Equal(t, "POST", got["method"])
		assert.Equal(t, float64(3), got["retries"])
	})

	t.Run("unchanged_when_nothing_applies", func(t *testing.T) {
		args := api.Args{"method": "PUT", "retries": 1}
		assert.Equal(t, args, s.ApplyDefaults(args))
	})
}

func TestSchemaRequired(t *testing.T) {
	s := &api.Schema{
		Name: "x",
		Params: api.ParamSpecs{
			"a": {Role: api.RoleRequired},
			"b": {Role: api.RoleOptional},
			"c": {Role: api.RoleRequired},
		},
	}

	req := s.Required()
	assert.Len(t, req, 2)
	assert.Contains(t, req, api.Name("a"))
	assert.Contains(t, req, api.Name("c"))
}
