package builder_test

import (
	"testing"

	"github.com/kode4food/twill/pkg/api"
	"github.com/kode4food/twill/pkg/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepBuild(t *testing.T) {
	spec, err := builder.NewStep("notify", "http.request").
		WithParam("url", "https://hooks.example.com").
		WithParams(api.Args{"method": "POST", "timeout": 5}).
		WithRef("body", "shape", "payload").
		WithEnv("token", "HOOK_TOKEN").
		Build()
	require.NoError(t, err)

	assert.Equal(t, api.StepID("notify"), spec.ID)
	assert.Equal(t, "http.request", spec.Type)
	assert.EqualValues(t, "https://hooks.example.com", spec.Params["url"])
	assert.EqualValues(t, "POST", spec.Params["method"])
	assert.EqualValues(t, 5, spec.Params["timeout"])
	assert.EqualValues(t, "{{shape.result.payload}}", spec.Params["body"])
	assert.EqualValues(t, "{{.env.HOOK_TOKEN}}", spec.Params["token"])
}

func TestStepIDSanitized(t *testing.T) {
	spec, err := builder.NewStep("Fetch Data", "util.echo").
		WithRef("body", "Shape It", "payload").
		Build()
	require.NoError(t, err)

	assert.Equal(t, api.StepID("fetch-data"), spec.ID)
	assert.EqualValues(t, "{{shape-it.result.payload}}",
		spec.Params["body"])
}

func TestStepBuildValidates(t *testing.T) {
	_, err := builder.NewStep("", "util.echo").Build()
	assert.ErrorIs(t, err, api.ErrStepIDEmpty)

	_, err = builder.NewStep("start", "").Build()
	assert.ErrorIs(t, err, api.ErrStepTypeEmpty)

	_, err = builder.NewStep(".hidden", "util.echo").Build()
	assert.ErrorIs(t, err, api.ErrStepIDDotPrefixed)
}

func TestStepBuildersCopy(t *testing.T) {
	base := builder.NewStep("fetch", "http.request").
		WithParam("url", "https://api.example.com")

	get := base.WithParam("method", "GET")
	post := base.WithParam("method", "POST")

	first, err := get.Build()
	require.NoError(t, err)
	second, err := post.Build()
	require.NoError(t, err)

	assert.EqualValues(t, "GET", first.Params["method"])
	assert.EqualValues(t, "POST", second.Params["method"])

	spec, err := base.Build()
	require.NoError(t, err)
	assert.NotContains(t, spec.Params, api.Name("method"))
}
