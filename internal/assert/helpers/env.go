package helpers

import (
	"testing"

	"github.com/kode4food/twill/internal/capability"
	"github.com/kode4food/twill/internal/config"
	"github.com/kode4food/twill/internal/engine"
	"github.com/kode4food/twill/internal/events"
	"github.com/kode4food/twill/pkg/api"
)

// TestEnv bundles an engine wired to a fresh registry and event hub. The
// hub is closed when the test finishes
type TestEnv struct {
	Engine   *engine.Engine
	Registry *capability.Registry
	Hub      *events.Hub
	Config   *config.Config
}

// NewTestEnv creates a ready-to-use engine environment for tests
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	cfg := NewTestConfig()
	reg := capability.NewRegistry(false)
	hub := events.NewHub()
	t.Cleanup(hub.Close)
	return &TestEnv{
		Engine:   engine.New(reg, hub, cfg),
		Registry: reg,
		Hub:      hub,
		Config:   cfg,
	}
}

// MockStep registers a mock capability under the given type and returns it
// for scripting and inspection
func (e *TestEnv) MockStep(t *testing.T, typ string) *MockCapability {
	t.Helper()
	mock := NewMockCapability(typ)
	if err := e.Registry.Register(typ, mock.Factory()); err != nil {
		t.Fatalf("registering mock %s: %s", typ, err)
	}
	return mock
}

// RequiredParams replaces a mock's schema with one that marks the given
// parameters required, for dependency-cascade tests
func RequiredParams(m *MockCapability, names ...api.Name) {
	params := map[api.Name]*api.ParamSpec{}
	for _, name := range names {
		params[name] = &api.ParamSpec{Role: api.RoleRequired}
	}
	m.SetSchema(&api.Schema{
		Name:   m.Describe().Name,
		Params: params,
	})
}
