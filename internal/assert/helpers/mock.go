package helpers

import (
	"context"
	"sync"
	"time"

	"github.com/kode4food/twill/pkg/api"
)

// MockCapability is a scriptable capability for testing. Register one
// instance per step type; each records the inputs it was invoked with and
// returns a configured result or error
type MockCapability struct {
	schema  *api.Schema
	err     error
	execute func(context.Context, api.Args) (*api.StepResult, error)
	result  api.Args
	inputs  []api.Args
	invoked chan struct{}
	mu      sync.Mutex
}

// NewMockCapability creates a mock capability that succeeds with an empty
// result until configured otherwise
func NewMockCapability(name string) *MockCapability {
	return &MockCapability{
		schema: &api.Schema{
			Name:        name,
			Description: "mock capability",
			Params:      map[api.Name]*api.ParamSpec{},
		},
		invoked: make(chan struct{}, 16),
	}
}

// Factory returns a capability factory producing this instance
func (m *MockCapability) Factory() api.Factory {
	return func() (api.Capability, error) {
		return m, nil
	}
}

// Describe returns the mock's schema
func (m *MockCapability) Describe() *api.Schema {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schema
}

// Execute records the invocation and returns the configured outcome
func (m *MockCapability) Execute(
	ctx context.Context, input api.Args,
) (*api.StepResult, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, input.Copy())
	execute := m.execute
	err := m.err
	result := m.result
	m.mu.Unlock()

	select {
	case m.invoked <- struct{}{}:
	default:
	}

	if execute != nil {
		return execute(ctx, input)
	}
	if err != nil {
		return nil, err
	}
	return api.NewResult().WithOutputs(result), nil
}

// SetSchema replaces the schema returned by Describe
func (m *MockCapability) SetSchema(s *api.Schema) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schema = s
}

// SetResult configures the outputs returned on success
func (m *MockCapability) SetResult(outputs api.Args) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = outputs
}

// SetError configures the mock to fail with the given error
func (m *MockCapability) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetExecute overrides the execution behavior entirely
func (m *MockCapability) SetExecute(
	fn func(context.Context, api.Args) (*api.StepResult, error),
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execute = fn
}

// Invocations returns a copy of every input the mock has been invoked with
func (m *MockCapability) Invocations() []api.Args {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]api.Args, len(m.inputs))
	copy(result, m.inputs)
	return result
}

// InvocationCount returns how many times the mock has been invoked
func (m *MockCapability) InvocationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

// WasInvoked reports whether the mock has been invoked at least once
func (m *MockCapability) WasInvoked() bool {
	return m.InvocationCount() > 0
}

// LastInput returns the most recent input, or nil when never invoked
func (m *MockCapability) LastInput() api.Args {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inputs) == 0 {
		return nil
	}
	return m.inputs[len(m.inputs)-1]
}

// WaitForInvocation blocks until the mock is invoked or the timeout expires
func (m *MockCapability) WaitForInvocation(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-m.invoked:
		return true
	case <-timer.C:
		return m.WasInvoked()
	}
}

var _ api.Capability = (*MockCapability)(nil)
