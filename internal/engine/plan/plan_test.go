package plan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/twill/internal/engine/plan"
	"github.com/kode4food/twill/pkg/api"
)

func makeFlow(steps ...*api.StepSpec) *api.FlowDefinition {
	return &api.FlowDefinition{
		Name:  "plan-test",
		Steps: steps,
	}
}

func makeStep(id api.StepID, params api.Args) *api.StepSpec {
	return &api.StepSpec{
		ID:     id,
		Type:   "util.echo",
		Params: params,
	}
}

func TestLinearChain(t *testing.T) {
	flow := makeFlow(
		makeStep("fetch", api.Args{"url": "https://example.com"}),
		makeStep("parse", api.Args{"input": "{{fetch.result.body}}"}),
		makeStep("report", api.Args{"message": "{{parse.result.text}}"}),
	)

	pl, err := plan.Create(flow)
	assert.NoError(t, err)

	assert.Equal(t,
		[]api.StepID{"fetch", "parse", "report"}, pl.Order,
	)
	assert.Equal(t, []api.StepID{"fetch"}, pl.Deps["parse"])
	assert.Equal(t, []api.StepID{"parse"}, pl.Deps["report"])
	assert.Equal(t, []api.StepID{"report"}, pl.Terminals)
}

func TestDeclarationOrderPreserved(t *testing.T) {
	flow := makeFlow(
		makeStep("third", api.Args{}),
		makeStep("first", api.Args{}),
		makeStep("second", api.Args{}),
	)

	pl, err := plan.Create(flow)
	assert.NoError(t, err)

	assert.Equal(t,
		[]api.StepID{"third", "first", "second"}, pl.Order,
	)
	assert.Equal(t,
		[]api.StepID{"third", "first", "second"}, pl.Terminals,
	)
}

func TestForwardReference(t *testing.T) {
	flow := makeFlow(
		makeStep("summary", api.Args{"text": "{{gather.result.data}}"}),
		makeStep("gather", api.Args{}),
	)

	pl, err := plan.Create(flow)
	assert.NoError(t, err)

	assert.Equal(t, []api.StepID{"gather", "summary"}, pl.Order)
}

func TestEarlierStepFreedFirst(t *testing.T) {
	// b is ready from the outset; a becomes ready once seed completes and
	// must still run before b because it was declared earlier
	flow := makeFlow(
		makeStep("a", api.Args{"in": "{{seed.result.value}}"}),
		makeStep("b", api.Args{}),
		makeStep("seed", api.Args{}),
	)

	pl, err := plan.Create(flow)
	assert.NoError(t, err)

	assert.Equal(t, []api.StepID{"b", "seed", "a"}, pl.Order)
}

func TestDiamond(t *testing.T) {
	flow := makeFlow(
		makeStep("root", api.Args{}),
		makeStep("left", api.Args{"in": "{{root.result.value}}"}),
		makeStep("right", api.Args{"in": "{{root.result.value}}"}),
		makeStep("join", api.Args{
			"lhs": "{{left.result.value}}",
			"rhs": "{{right.result.value}}",
		}),
	)

	pl, err := plan.Create(flow)
	assert.NoError(t, err)

	assert.Equal(t,
		[]api.StepID{"root", "left", "right", "join"}, pl.Order,
	)
	assert.ElementsMatch(t,
		[]api.StepID{"left", "right"}, pl.Deps["join"],
	)
	assert.ElementsMatch(t,
		[]api.StepID{"left", "right"}, pl.Dependents["root"],
	)
	assert.Equal(t, []api.StepID{"join"}, pl.Terminals)
}

func TestMultipleTerminals(t *testing.T) {
	flow := makeFlow(
		makeStep("source", api.Args{}),
		makeStep("archive", api.Args{"data": "{{source.result.value}}"}),
		makeStep("notify", api.Args{"data": "{{source.result.value}}"}),
	)

	pl, err := plan.Create(flow)
	assert.NoError(t, err)

	assert.Equal(t, []api.StepID{"archive", "notify"}, pl.Terminals)
}

func TestUnknownReferenceIgnored(t *testing.T) {
	flow := makeFlow(
		makeStep("only", api.Args{"in": "{{missing.result.value}}"}),
	)

	pl, err := plan.Create(flow)
	assert.NoError(t, err)

	assert.Equal(t, []api.StepID{"only"}, pl.Order)
	assert.Empty(t, pl.Deps["only"])
}

func TestEnvReferenceIsNotADependency(t *testing.T) {
	flow := makeFlow(
		makeStep("env", api.Args{}),
		makeStep("use", api.Args{"key": "{{.env.API_KEY}}"}),
	)

	pl, err := plan.Create(flow)
	assert.NoError(t, err)
	assert.Empty(t, pl.Deps["use"])
}

func TestDirectCycle(t *testing.T) {
	flow := makeFlow(
		makeStep("ping", api.Args{"in": "{{pong.result.value}}"}),
		makeStep("pong", api.Args{"in": "{{ping.result.value}}"}),
	)

	_, err := plan.Create(flow)
	assert.ErrorIs(t, err, plan.ErrGraphCycle)
	assert.ErrorContains(t, err, "ping")
	assert.ErrorContains(t, err, "pong")
}

func TestTransitiveCycle(t *testing.T) {
	flow := makeFlow(
		makeStep("one", api.Args{"in": "{{three.result.value}}"}),
		makeStep("two", api.Args{"in": "{{one.result.value}}"}),
		makeStep("three", api.Args{"in": "{{two.result.value}}"}),
	)

	_, err := plan.Create(flow)
	assert.ErrorIs(t, err, plan.ErrGraphCycle)
}

func TestSelfReference(t *testing.T) {
	flow := makeFlow(
		makeStep("loop", api.Args{"in": "{{loop.result.value}}"}),
	)

	_, err := plan.Create(flow)
	assert.ErrorIs(t, err, plan.ErrGraphCycle)
	assert.ErrorContains(t, err, "loop")
}

func TestCycleNamesOnlyUnorderedSteps(t *testing.T) {
	flow := makeFlow(
		makeStep("clean", api.Args{}),
		makeStep("ping", api.Args{"in": "{{pong.result.value}}"}),
		makeStep("pong", api.Args{"in": "{{ping.result.value}}"}),
	)

	_, err := plan.Create(flow)
	assert.ErrorIs(t, err, plan.ErrGraphCycle)
	assert.NotContains(t, err.Error(), "clean")
}

func TestStructuredParamsContributeNoEdges(t *testing.T) {
	flow := makeFlow(
		makeStep("source", api.Args{}),
		makeStep("use", api.Args{
			"nested": map[string]any{
				"value": "{{source.result.value}}",
			},
		}),
	)

	pl, err := plan.Create(flow)
	assert.NoError(t, err)
	assert.Empty(t, pl.Deps["use"])
}
