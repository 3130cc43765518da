package builder

import (
	"maps"

	"github.com/kode4food/twill/pkg/api"
)

// Step builds a StepSpec. Like Flow, every With* returns a new builder
type Step struct {
	params api.Args
	id     api.StepID
	typ    string
}

// NewStep creates a step builder for the given ID and capability type.
// The ID is normalized with api.SanitizeID
func NewStep(id api.StepID, capType string) *Step {
	return &Step{
		id:  api.SanitizeID(id),
		typ: capType,
	}
}

// WithParam adds one parameter. String values may carry {{...}} references
// resolved against prior step records at run time
func (s *Step) WithParam(name api.Name, value any) *Step {
	res := *s
	res.params = maps.Clone(s.params)
	if res.params == nil {
		res.params = api.Args{}
	}
	res.params[name] = value
	return &res
}

// WithParams merges a parameter map over the parameters set so far
func (s *Step) WithParams(params api.Args) *Step {
	res := *s
	res.params = api.MergeArgs(s.params, params)
	return &res
}

// WithRef adds a parameter referencing another step's result field. The
// referenced ID is normalized the same way NewStep normalizes its own
func (s *Step) WithRef(
	name api.Name, step api.StepID, field api.Name,
) *Step {
	ref := "{{" + string(api.SanitizeID(step)) +
		".result." + string(field) + "}}"
	return s.WithParam(name, ref)
}

// WithEnv adds a parameter resolved from the process environment
func (s *Step) WithEnv(name api.Name, envVar string) *Step {
	return s.WithParam(name, "{{.env."+envVar+"}}")
}

// Build assembles the spec and validates it
func (s *Step) Build() (*api.StepSpec, error) {
	res := s.spec()
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Step) spec() *api.StepSpec {
	return &api.StepSpec{
		Params: maps.Clone(s.params),
		ID:     s.id,
		Type:   s.typ,
	}
}
