package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kode4food/twill/pkg/util/call"
)

type (
	// FlowDefinition is the parsed form of a flow source file: an ordered
	// list of steps plus optional agent, deployment, and route metadata.
	// Definitions are immutable once built; a reload produces a fresh
	// definition rather than mutating the live one
	FlowDefinition struct {
		Agent      *AgentConfig      `yaml:"agent,omitempty" json:"agent,omitempty"`
		Deployment *DeploymentConfig `yaml:"deployment,omitempty" json:"deployment,omitempty"`
		Name       string            `yaml:"name" json:"name"`
		Routes     []*RouteConfig    `yaml:"routes,omitempty" json:"routes,omitempty"`
		Steps      []*StepSpec       `yaml:"steps" json:"steps"`
	}

	// StepSpec declares one unit of work: a unique ID, the capability type
	// that executes it, and a parameter map whose string values may carry
	// {{...}} references to other steps or to the environment
	StepSpec struct {
		Params Args   `yaml:"params,omitempty" json:"params,omitempty"`
		ID     StepID `yaml:"id" json:"id"`
		Type   string `yaml:"type" json:"type"`
	}

	// AgentConfig describes how a flow presents itself when served
	// persistently
	AgentConfig struct {
		Name        string `yaml:"name,omitempty" json:"name,omitempty"`
		Host        string `yaml:"host,omitempty" json:"host,omitempty"`
		Port        int    `yaml:"port,omitempty" json:"port,omitempty"`
		AutoExecute bool   `yaml:"auto_execute,omitempty" json:"auto_execute,omitempty"`
	}

	// DeploymentConfig carries deployment metadata for a served flow
	DeploymentConfig struct {
		Labels      map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
		Environment string            `yaml:"environment,omitempty" json:"environment,omitempty"`
		Replicas    int               `yaml:"replicas,omitempty" json:"replicas,omitempty"`
	}

	// RouteConfig declares an externally-triggered route. A request hitting
	// the route starts a run entered at the named step
	RouteConfig struct {
		Path   string `yaml:"path" json:"path"`
		Method string `yaml:"method,omitempty" json:"method,omitempty"`
		Step   StepID `yaml:"step,omitempty" json:"step,omitempty"`
	}
)

// StartStepID is the reserved entry-point step for run-once flows
const StartStepID StepID = "start"

const DefaultRouteMethod = "POST"

var (
	ErrFlowNameEmpty     = errors.New("flow name empty")
	ErrFlowNoSteps       = errors.New("flow has no steps")
	ErrStepIDEmpty       = errors.New("step ID empty")
	ErrStepIDDotPrefixed = errors.New("step ID must not begin with a dot")
	ErrStepTypeEmpty     = errors.New("step type empty")
	ErrDuplicateStepID   = errors.New("duplicate step ID")
	ErrRoutePathEmpty    = errors.New("route path empty")
	ErrRoutePathInvalid  = errors.New("route path must begin with a slash")
	ErrRouteStepUnknown  = errors.New("route references unknown step")
)

// Validate checks structural invariants: unique non-empty step IDs, a type
// for every step, and routes referencing declared steps
func (d *FlowDefinition) Validate() error {
	return call.Perform(
		d.validateIdentity,
		d.validateSteps,
		d.validateRoutes,
	)
}

func (d *FlowDefinition) validateIdentity() error {
	if d.Name == "" {
		return ErrFlowNameEmpty
	}
	if len(d.Steps) == 0 {
		return ErrFlowNoSteps
	}
	return nil
}

func (d *FlowDefinition) validateSteps() error {
	seen := make(map[StepID]struct{}, len(d.Steps))
	for _, s := range d.Steps {
		if err := s.Validate(); err != nil {
			return err
		}
		if _, ok := seen[s.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateStepID, s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

func (d *FlowDefinition) validateRoutes() error {
	for _, r := range d.Routes {
		if err := r.Validate(); err != nil {
			return err
		}
		if r.Step != "" && !d.HasStep(r.Step) {
			return fmt.Errorf("%w: %s", ErrRouteStepUnknown, r.Step)
		}
	}
	return nil
}

// Step returns the spec for the given step ID
func (d *FlowDefinition) Step(id StepID) (*StepSpec, bool) {
	for _, s := range d.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// HasStep reports whether the definition declares the given step ID
func (d *FlowDefinition) HasStep(id StepID) bool {
	_, ok := d.Step(id)
	return ok
}

// Served reports whether the flow asks for persistent server dispatch:
// externally-triggered routes or explicit agent or deployment metadata
func (d *FlowDefinition) Served() bool {
	return len(d.Routes) > 0 || d.Agent != nil || d.Deployment != nil
}

// AutoExecute reports whether the flow asks to run immediately on load
func (d *FlowDefinition) AutoExecute() bool {
	return d.Agent != nil && d.Agent.AutoExecute
}

// Equal reports whether two definitions are structurally identical. The
// watcher uses this to suppress reloads for re-parses of unchanged content
func (d *FlowDefinition) Equal(other *FlowDefinition) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.Name != other.Name ||
		!d.Agent.Equal(other.Agent) ||
		!d.Deployment.Equal(other.Deployment) ||
		len(d.Routes) != len(other.Routes) ||
		len(d.Steps) != len(other.Steps) {
		return false
	}
	for i, r := range d.Routes {
		if !r.Equal(other.Routes[i]) {
			return false
		}
	}
	for i, s := range d.Steps {
		if !s.Equal(other.Steps[i]) {
			return false
		}
	}
	return true
}

func (s *StepSpec) Validate() error {
	if s.ID == "" {
		return ErrStepIDEmpty
	}
	if strings.HasPrefix(string(s.ID), ".") {
		return fmt.Errorf("%w: %s", ErrStepIDDotPrefixed, s.ID)
	}
	if s.Type == "" {
		return fmt.Errorf("%w: %s", ErrStepTypeEmpty, s.ID)
	}
	return nil
}

func (s *StepSpec) Equal(other *StepSpec) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.ID == other.ID &&
		s.Type == other.Type &&
		s.Params.Equal(other.Params)
}

func (a *AgentConfig) Equal(other *AgentConfig) bool {
	if a == nil || other == nil {
		return a == other
	}
	return *a == *other
}

func (d *DeploymentConfig) Equal(other *DeploymentConfig) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.Environment != other.Environment ||
		d.Replicas != other.Replicas ||
		len(d.Labels) != len(other.Labels) {
		return false
	}
	for k, v := range d.Labels {
		if other.Labels[k] != v {
			return false
		}
	}
	return true
}

func (r *RouteConfig) Validate() error {
	if r.Path == "" {
		return ErrRoutePathEmpty
	}
	if !strings.HasPrefix(r.Path, "/") {
		return fmt.Errorf("%w: %s", ErrRoutePathInvalid, r.Path)
	}
	return nil
}

// EntryStep returns the step a route enters at, defaulting to start
func (r *RouteConfig) EntryStep() StepID {
	if r.Step == "" {
		return StartStepID
	}
	return r.Step
}

// HTTPMethod returns the route method, defaulting to POST
func (r *RouteConfig) HTTPMethod() string {
	if r.Method == "" {
		return DefaultRouteMethod
	}
	return strings.ToUpper(r.Method)
}

func (r *RouteConfig) Equal(other *RouteConfig) bool {
	if r == nil || other == nil {
		return r == other
	}
	return *r == *other
}
