package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/twill/internal/assert/helpers"
	"github.com/kode4food/twill/internal/engine"
	"github.com/kode4food/twill/internal/profile"
	"github.com/kode4food/twill/pkg/api"
)

const mailerProfile = `
metadata:
  version: "1"
nodes:
  mock.mailer:
    type: mock.mailer
    enabled: true
    authenticated: true
    auth:
      api_key: "{{.env.MOCK_MAILER_API_KEY}}"
    defaults:
      region: eu-west-1
    operations:
      send:
        required: [message]
`

// TestProfileGatedCall drives an ad-hoc invocation end to end: the
// profile file authenticates the type, its credential placeholder
// resolves from the environment at call time, and defaults layer under
// the caller's parameters
func TestProfileGatedCall(t *testing.T) {
	env := helpers.NewTestEnv(t)
	mailer := env.MockStep(t, "mock.mailer")
	mailer.SetResult(api.Args{"delivered": true})

	path := helpers.WriteProfileFile(t, mailerProfile)
	prof, err := profile.Load(path)
	require.NoError(t, err)

	t.Setenv("MOCK_MAILER_API_KEY", "sk-test-123")

	res := env.Engine.ExecuteCall(context.Background(), prof,
		&api.CallRequest{
			Params:    api.Args{"message": "hello"},
			Type:      "mock.mailer",
			Operation: "send",
		})

	require.Equal(t, api.ResultSuccess, res.Status)
	assert.Equal(t, api.Args{"delivered": true}, res.Result)

	input := mailer.LastInput()
	assert.Equal(t, "sk-test-123", input["api_key"])
	assert.Equal(t, "hello", input["message"])
	assert.Equal(t, "eu-west-1", input["region"])
	assert.Equal(t, "send", input["operation"])
}

// TestCallRequiresAuthentication verifies a type absent from the
// profile is refused before the capability is ever consulted
func TestCallRequiresAuthentication(t *testing.T) {
	env := helpers.NewTestEnv(t)
	mailer := env.MockStep(t, "mock.mailer")

	res := env.Engine.ExecuteCall(context.Background(), profile.New(),
		&api.CallRequest{
			Type:      "mock.mailer",
			Operation: "send",
		})

	assert.Equal(t, api.ResultError, res.Status)
	assert.Contains(t, res.Error, engine.ErrNotAuthenticated.Error())
	assert.False(t, mailer.WasInvoked())
}

// TestCallReportsMissingParams verifies the operation catalog enforces
// its required parameters after every layer is merged
func TestCallReportsMissingParams(t *testing.T) {
	env := helpers.NewTestEnv(t)
	mailer := env.MockStep(t, "mock.mailer")

	prof, err := profile.Parse([]byte(mailerProfile))
	require.NoError(t, err)

	res := env.Engine.ExecuteCall(context.Background(), prof,
		&api.CallRequest{
			Type:      "mock.mailer",
			Operation: "send",
		})

	assert.Equal(t, api.ResultError, res.Status)
	assert.Contains(t, res.Error, "message")
	assert.False(t, mailer.WasInvoked())
}
