package events

import "github.com/kode4food/twill/pkg/api"

type EventFilter func(*api.Event) bool

func FilterEvents(eventTypes ...api.EventType) EventFilter {
	lookup := map[api.EventType]bool{}
	for _, et := range eventTypes {
		lookup[et] = true
	}
	return func(ev *api.Event) bool {
		return lookup[ev.Type]
	}
}

func FilterRun(runID api.RunID) EventFilter {
	return func(ev *api.Event) bool {
		return ev.RunID == runID
	}
}

func FilterStep(stepID api.StepID) EventFilter {
	return func(ev *api.Event) bool {
		return ev.StepID == stepID
	}
}

func AndFilters(filters ...EventFilter) EventFilter {
	return func(ev *api.Event) bool {
		for _, filter := range filters {
			if !filter(ev) {
				return false
			}
		}
		return true
	}
}

func OrFilters(filters ...EventFilter) EventFilter {
	return func(ev *api.Event) bool {
		for _, filter := range filters {
			if filter(ev) {
				return true
			}
		}
		return false
	}
}
