package engine

import "github.com/kode4food/twill/pkg/api"

// Mode is how a loaded flow definition should be hosted
type Mode string

const (
	// ModeServe keeps the process alive behind the API server; chosen when
	// the flow declares routes or agent or deployment metadata
	ModeServe Mode = "serve"

	// ModeRunOnce executes the flow from its entry step and exits
	ModeRunOnce Mode = "run-once"
)

// DecideMode picks the dispatch mode for a definition: flows that declare
// externally-triggered routes or explicit agent or deployment metadata
// serve persistently, everything else runs once
func DecideMode(flow *api.FlowDefinition) Mode {
	if flow.Served() {
		return ModeServe
	}
	return ModeRunOnce
}
