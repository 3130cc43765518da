package helpers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kode4food/twill/internal/config"
	"github.com/kode4food/twill/pkg/api"
)

// NewTestConfig creates a configuration with debug logging and intervals
// short enough for watcher tests
func NewTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.LogLevel = "debug"
	cfg.WatchInterval = 20 * time.Millisecond
	cfg.DebounceInterval = 10 * time.Millisecond
	cfg.ShutdownTimeout = 2 * time.Second
	return cfg
}

// NewStep creates a step spec with the given ID, capability type, and params
func NewStep(id api.StepID, typ string, params api.Args) *api.StepSpec {
	if params == nil {
		params = api.Args{}
	}
	return &api.StepSpec{
		ID:     id,
		Type:   typ,
		Params: params,
	}
}

// NewFlow creates a flow definition from the given steps
func NewFlow(name string, steps ...*api.StepSpec) *api.FlowDefinition {
	return &api.FlowDefinition{
		Name:  name,
		Steps: steps,
	}
}

// NewTestFlow creates a three-step linear flow wired through placeholder
// references
func NewTestFlow() *api.FlowDefinition {
	return NewFlow("test-flow",
		NewStep("start", "mock.seed", api.Args{
			"value": "one",
		}),
		NewStep("transform", "mock.transform", api.Args{
			"input": "{{start.result.value}}",
		}),
		NewStep("report", "mock.report", api.Args{
			"message": "got {{transform.result.output}}",
		}),
	)
}

// WriteFlowFile writes flow source to a fresh temp directory and returns the
// file path
func WriteFlowFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// WriteProfileFile writes credential profile source to a fresh temp
// directory and returns the file path
func WriteProfileFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// RewriteFile replaces the content of an existing file in place
func RewriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
