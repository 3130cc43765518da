package flow_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/twill/internal/assert/helpers"
	"github.com/kode4food/twill/internal/flow"
	"github.com/kode4food/twill/pkg/api"
)

const sampleFlow = `
name: ticket-triage
agent:
  name: triage
  auto_execute: true
routes:
  - path: /triage
    method: post
    step: start
steps:
  - id: start
    type: http
    params:
      url: https://api.example.com/tickets
      method: GET
  - id: classify
    type: script.lua
    params:
      source: "return { level = 'high' }"
      ticket: "{{start.result.body}}"
  - id: notify
    type: util.echo
    params:
      message: "ticket level {{classify.result.level}}"
`

func TestLoadFlow(t *testing.T) {
	path := helpers.WriteFlowFile(t, sampleFlow)

	def, err := flow.Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "ticket-triage", def.Name)
	assert.Len(t, def.Steps, 3)
	assert.True(t, def.AutoExecute())
	assert.True(t, def.Served())

	start, ok := def.Step("start")
	assert.True(t, ok)
	assert.Equal(t, "http", start.Type)
	assert.Equal(t, "GET", start.Params.GetString("method", ""))

	assert.Len(t, def.Routes, 1)
	assert.Equal(t, "POST", def.Routes[0].HTTPMethod())
	assert.Equal(t, api.StepID("start"), def.Routes[0].EntryStep())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := flow.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, flow.ErrFlowNotFound)
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{
			name:   "malformed_yaml",
			source: "name: [unclosed",
		},
		{
			name: "unknown_field",
			source: `
name: demo
surprise: true
steps:
  - id: start
    type: util.echo
`,
		},
		{
			name: "missing_name",
			source: `
steps:
  - id: start
    type: util.echo
`,
		},
		{
			name:   "no_steps",
			source: "name: demo",
		},
		{
			name: "duplicate_step_ids",
			source: `
name: demo
steps:
  - id: start
    type: util.echo
  - id: start
    type: util.echo
`,
		},
		{
			name: "dot_prefixed_step_id",
			source: `
name: demo
steps:
  - id: .env
    type: util.echo
`,
		},
		{
			name: "route_to_unknown_step",
			source: `
name: demo
routes:
  - path: /go
    step: missing
steps:
  - id: start
    type: util.echo
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := flow.Parse([]byte(tt.source))
			assert.ErrorIs(t, err, flow.ErrFlowSyntax)
		})
	}
}

func TestParseDeterministic(t *testing.T) {
	first, err := flow.Parse([]byte(sampleFlow))
	assert.NoError(t, err)

	second, err := flow.Parse([]byte(sampleFlow))
	assert.NoError(t, err)

	assert.True(t, first.Equal(second))
}

func TestParseStructuredParams(t *testing.T) {
	src := `
name: demo
steps:
  - id: start
    type: http
    params:
      headers:
        Accept: application/json
      tags:
        - a
        - b
`
	def, err := flow.Parse([]byte(src))
	assert.NoError(t, err)

	start, ok := def.Step("start")
	assert.True(t, ok)

	headers, ok := start.Params["headers"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "application/json", headers["Accept"])

	tags, ok := start.Params["tags"].([]any)
	assert.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, tags)
}
