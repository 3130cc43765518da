package builder

import (
	"maps"

	"github.com/kode4food/twill/pkg/api"
)

// Flow builds a FlowDefinition in code, producing the same structure the
// YAML loader does. Builders are copy-on-write: every With* returns a new
// builder and never mutates its receiver
type Flow struct {
	agent      *api.AgentConfig
	deployment *api.DeploymentConfig
	name       string
	routes     []*api.RouteConfig
	steps      []*Step
}

// NewFlow creates a flow builder with the specified name. The name is
// normalized with api.SanitizeID
func NewFlow(name string) *Flow {
	return &Flow{name: api.SanitizeID(name)}
}

// WithStep appends a step to the flow
func (f *Flow) WithStep(step *Step) *Flow {
	res := *f
	res.steps = make([]*Step, len(f.steps)+1)
	copy(res.steps, f.steps)
	res.steps[len(f.steps)] = step
	return &res
}

// WithSteps appends several steps to the flow in order
func (f *Flow) WithSteps(steps ...*Step) *Flow {
	res := *f
	res.steps = make([]*Step, len(f.steps)+len(steps))
	copy(res.steps, f.steps)
	copy(res.steps[len(f.steps):], steps)
	return &res
}

// WithRoute adds an externally-triggered route with the default method,
// entering the flow at the named step
func (f *Flow) WithRoute(path string, step api.StepID) *Flow {
	return f.WithMethodRoute("", path, step)
}

// WithMethodRoute adds a route restricted to the given HTTP method
func (f *Flow) WithMethodRoute(
	method, path string, step api.StepID,
) *Flow {
	res := *f
	res.routes = make([]*api.RouteConfig, len(f.routes)+1)
	copy(res.routes, f.routes)
	res.routes[len(f.routes)] = &api.RouteConfig{
		Path:   path,
		Method: method,
		Step:   api.SanitizeID(step),
	}
	return &res
}

// WithAgent names the agent the flow presents when served
func (f *Flow) WithAgent(name string) *Flow {
	res := *f
	res.agent = f.agentCopy()
	res.agent.Name = name
	return &res
}

// WithListener sets the host and port the served flow binds to
func (f *Flow) WithListener(host string, port int) *Flow {
	res := *f
	res.agent = f.agentCopy()
	res.agent.Host = host
	res.agent.Port = port
	return &res
}

// WithAutoExecute marks the flow to run immediately on load
func (f *Flow) WithAutoExecute() *Flow {
	res := *f
	res.agent = f.agentCopy()
	res.agent.AutoExecute = true
	return &res
}

// WithDeployment sets deployment environment and replica metadata
func (f *Flow) WithDeployment(environment string, replicas int) *Flow {
	res := *f
	res.deployment = f.deploymentCopy()
	res.deployment.Environment = environment
	res.deployment.Replicas = replicas
	return &res
}

// WithLabel adds one deployment label
func (f *Flow) WithLabel(name, value string) *Flow {
	res := *f
	res.deployment = f.deploymentCopy()
	labels := maps.Clone(res.deployment.Labels)
	if labels == nil {
		labels = map[string]string{}
	}
	labels[name] = value
	res.deployment.Labels = labels
	return &res
}

// Build assembles the definition and validates it
func (f *Flow) Build() (*api.FlowDefinition, error) {
	steps := make([]*api.StepSpec, len(f.steps))
	for i, s := range f.steps {
		steps[i] = s.spec()
	}

	res := &api.FlowDefinition{
		Agent:      f.agent,
		Deployment: f.deployment,
		Name:       f.name,
		Routes:     f.routes,
		Steps:      steps,
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

func (f *Flow) agentCopy() *api.AgentConfig {
	if f.agent == nil {
		return &api.AgentConfig{}
	}
	res := *f.agent
	return &res
}

func (f *Flow) deploymentCopy() *api.DeploymentConfig {
	if f.deployment == nil {
		return &api.DeploymentConfig{}
	}
	res := *f.deployment
	return &res
}
