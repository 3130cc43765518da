package wait_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/twill/internal/assert/wait"
	"github.com/kode4food/twill/internal/events"
	"github.com/kode4food/twill/pkg/api"
)

func TestForEvent(t *testing.T) {
	hub := events.NewHub()
	defer hub.Close()

	cons := hub.NewConsumer()
	defer cons.Close()

	hub.Emit(api.EventTypeRunStarted, "run-1", "", nil)
	hub.Emit(api.EventTypeStepCompleted, "run-1", "fetch", nil)
	hub.Emit(api.EventTypeRunCompleted, "run-1", "", nil)

	wait.On(t, cons).ForEvent(wait.RunTerminal("run-1"))
}

func TestForEvents(t *testing.T) {
	hub := events.NewHub()
	defer hub.Close()

	cons := hub.NewConsumer()
	defer cons.Close()

	hub.Emit(api.EventTypeStepCompleted, "run-1", "fetch", nil)
	hub.Emit(api.EventTypeStepFailed, "run-1", "parse", nil)
	hub.Emit(api.EventTypeStepSkipped, "run-1", "report", nil)

	wait.On(t, cons).ForEvents(3, wait.StepTerminal(
		"fetch", "parse", "report",
	))
}

func TestTypesFilter(t *testing.T) {
	filter := wait.Types(
		api.EventTypeRunCompleted, api.EventTypeRunFailed,
	)

	assert.True(t, filter(&api.Event{Type: api.EventTypeRunCompleted}))
	assert.True(t, filter(&api.Event{Type: api.EventTypeRunFailed}))
	assert.False(t, filter(&api.Event{Type: api.EventTypeRunStarted}))

	empty := wait.Types()
	assert.False(t, empty(&api.Event{Type: api.EventTypeRunStarted}))
}

func TestStepsConsumeOnce(t *testing.T) {
	filter := wait.Steps("fetch", "report")

	assert.True(t, filter(&api.Event{StepID: "fetch"}))
	assert.False(t, filter(&api.Event{StepID: "fetch"}))
	assert.True(t, filter(&api.Event{StepID: "report"}))
	assert.False(t, filter(&api.Event{StepID: "other"}))
}

func TestAndFilter(t *testing.T) {
	filter := wait.And(
		wait.Run("run-1"),
		wait.Type(api.EventTypeStepStarted),
	)

	assert.True(t, filter(&api.Event{
		RunID: "run-1",
		Type:  api.EventTypeStepStarted,
	}))
	assert.False(t, filter(&api.Event{
		RunID: "run-2",
		Type:  api.EventTypeStepStarted,
	}))
}
