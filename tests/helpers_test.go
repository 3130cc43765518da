package tests

import (
	"testing"
	"time"

	"github.com/kode4food/caravan/topic"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/twill/internal/assert/helpers"
	"github.com/kode4food/twill/internal/capability/builtin"
	"github.com/kode4food/twill/internal/flow"
	"github.com/kode4food/twill/pkg/api"
)

const eventTimeout = time.Second

// registerBuiltins wires the full built-in capability set into the
// environment's registry
func registerBuiltins(t *testing.T, env *helpers.TestEnv) {
	t.Helper()
	require.NoError(t, builtin.RegisterAll(env.Registry, env.Config))
}

// loadFlow writes flow source to a file, loads it through the loader,
// and installs it as the engine's live flow
func loadFlow(
	t *testing.T, env *helpers.TestEnv, src string,
) *api.FlowDefinition {
	t.Helper()
	def, err := flow.Load(helpers.WriteFlowFile(t, src))
	require.NoError(t, err)
	env.Engine.SetFlow(def)
	return def
}

// collectEvents drains n events from the consumer in arrival order
func collectEvents(
	t *testing.T, cons topic.Consumer[*api.Event], n int,
) []*api.Event {
	t.Helper()
	res := make([]*api.Event, 0, n)
	for i := 0; i < n; i++ {
		select {
		case ev := <-cons.Receive():
			res = append(res, ev)
		case <-time.After(eventTimeout):
			t.Fatalf("timeout waiting for event %d of %d", i+1, n)
		}
	}
	return res
}

func eventTypes(events []*api.Event) []api.EventType {
	res := make([]api.EventType, len(events))
	for i, ev := range events {
		res[i] = ev.Type
	}
	return res
}
