package wait

import (
	"testing"
	"time"

	"github.com/kode4food/caravan/topic"

	"github.com/kode4food/twill/internal/events"
	"github.com/kode4food/twill/pkg/api"
	"github.com/kode4food/twill/pkg/util"
)

type (
	Wait struct {
		t        *testing.T
		consumer topic.Consumer[*api.Event]
		timeout  time.Duration
	}

	// EventFilter aliases the hub's filter type so waits compose from the
	// same combinators the server compiles subscriptions into
	EventFilter = events.EventFilter
)

const DefaultTimeout = time.Second * 5

func On(t *testing.T, consumer topic.Consumer[*api.Event]) *Wait {
	return &Wait{
		t:        t,
		consumer: consumer,
		timeout:  DefaultTimeout,
	}
}

func (w *Wait) WithTimeout(timeout time.Duration) *Wait {
	res := *w
	res.timeout = timeout
	return &res
}

// ForEvents waits for matching events from the consumer
func (w *Wait) ForEvents(count int, filter EventFilter) {
	w.t.Helper()

	deadline := time.NewTimer(w.timeout)
	defer deadline.Stop()

	for seen := 0; seen < count; {
		select {
		case ev, ok := <-w.consumer.Receive():
			if !ok {
				w.t.Fatalf(
					"event consumer closed before receiving %d events", count,
				)
			}
			if !filter(ev) {
				continue
			}
			seen++
		case <-deadline.C:
			w.t.Fatalf("timeout waiting for %d events", count)
		}
	}
}

// ForEvent waits for a single matching event
func (w *Wait) ForEvent(filter EventFilter) {
	w.ForEvents(1, filter)
}

// And composes event filters and returns true when all match
func And(filters ...EventFilter) EventFilter {
	return events.AndFilters(filters...)
}

// Type creates a filter for a single event type
func Type(eventType api.EventType) EventFilter {
	return Types(eventType)
}

// Types creates a filter for the given event types. With none given the
// filter matches nothing
func Types(eventTypes ...api.EventType) EventFilter {
	return events.FilterEvents(eventTypes...)
}

// Run matches events for the provided run ID
func Run(id api.RunID) EventFilter {
	return events.FilterRun(id)
}

// Steps matches events for the provided step IDs, each at most once
func Steps(ids ...api.StepID) EventFilter {
	expected := make(util.Set[api.StepID], len(ids))
	for _, id := range ids {
		expected.Add(id)
	}
	return func(ev *api.Event) bool {
		if expected.Contains(ev.StepID) {
			expected.Remove(ev.StepID)
			return true
		}
		return false
	}
}

// Step matches events for the provided step ID
func Step(id api.StepID) EventFilter {
	return Steps(id)
}

// RunStarted matches run started events for the provided run ID
func RunStarted(id api.RunID) EventFilter {
	return And(Type(api.EventTypeRunStarted), Run(id))
}

// RunTerminal matches run completed or failed events for the provided run ID
func RunTerminal(id api.RunID) EventFilter {
	return And(
		Types(api.EventTypeRunCompleted, api.EventTypeRunFailed),
		Run(id),
	)
}

// StepStarted matches step started events for the provided step IDs
func StepStarted(ids ...api.StepID) EventFilter {
	return And(Type(api.EventTypeStepStarted), Steps(ids...))
}

// StepTerminal matches step completed, failed, or skipped events for the
// provided step IDs
func StepTerminal(ids ...api.StepID) EventFilter {
	return And(
		Types(
			api.EventTypeStepCompleted,
			api.EventTypeStepFailed,
			api.EventTypeStepSkipped,
		),
		Steps(ids...),
	)
}

// Reloaded matches flow reloaded events
func Reloaded() EventFilter {
	return Type(api.EventTypeFlowReloaded)
}
