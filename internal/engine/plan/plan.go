package plan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kode4food/twill/internal/resolve"
	"github.com/kode4food/twill/pkg/api"
	"github.com/kode4food/twill/pkg/util"
)

type (
	// Plan is the computed execution order for one run, plus the implicit
	// dependency edges the order was derived from. Step A depends on step B
	// when any of A's parameter placeholders reference B's id. Terminals are
	// the steps nothing else depends on; their results form the run's
	// aggregated output
	Plan struct {
		Deps       map[api.StepID][]api.StepID
		Dependents map[api.StepID][]api.StepID
		Order      []api.StepID
		Terminals  []api.StepID
	}

	builder struct {
		flow       *api.FlowDefinition
		deps       map[api.StepID][]api.StepID
		dependents map[api.StepID][]api.StepID
		indegree   map[api.StepID]int
	}
)

// ErrGraphCycle aborts a run before any step executes
var ErrGraphCycle = errors.New("placeholder references form a cycle")

// Create builds the execution order for a flow: a topological order of the
// implicit dependency graph, preferring declaration order wherever the graph
// leaves a choice. References to undeclared steps contribute no edges; the
// resolver leaves them verbatim at execution time
func Create(flow *api.FlowDefinition) (*Plan, error) {
	b := newBuilder(flow)
	b.collectEdges()

	order, err := b.sort()
	if err != nil {
		return nil, err
	}

	return &Plan{
		Order:      order,
		Deps:       b.deps,
		Dependents: b.dependents,
		Terminals:  b.terminals(),
	}, nil
}

func newBuilder(flow *api.FlowDefinition) *builder {
	return &builder{
		flow:       flow,
		deps:       map[api.StepID][]api.StepID{},
		dependents: map[api.StepID][]api.StepID{},
		indegree:   map[api.StepID]int{},
	}
}

func (b *builder) collectEdges() {
	for _, step := range b.flow.Steps {
		b.indegree[step.ID] = 0
	}
	for _, step := range b.flow.Steps {
		for _, ref := range resolve.ParamRefs(step.Params) {
			if !b.flow.HasStep(ref) {
				continue
			}
			b.addEdge(step.ID, ref)
		}
	}
}

func (b *builder) addEdge(step, dependsOn api.StepID) {
	b.deps[step] = append(b.deps[step], dependsOn)
	b.dependents[dependsOn] = append(b.dependents[dependsOn], step)
	b.indegree[step]++
}

// sort runs a Kahn traversal that always picks the earliest-declared ready
// step, restarting the scan after each pick so an earlier step freed by a
// later one still takes precedence
func (b *builder) sort() ([]api.StepID, error) {
	order := make([]api.StepID, 0, len(b.flow.Steps))
	processed := util.Set[api.StepID]{}

	for len(order) < len(b.flow.Steps) {
		advanced := false
		for _, step := range b.flow.Steps {
			if processed.Contains(step.ID) || b.indegree[step.ID] > 0 {
				continue
			}
			processed.Add(step.ID)
			order = append(order, step.ID)
			for _, dep := range b.dependents[step.ID] {
				b.indegree[dep]--
			}
			advanced = true
			break
		}
		if !advanced {
			return nil, b.cycleError(processed)
		}
	}
	return order, nil
}

func (b *builder) cycleError(processed util.Set[api.StepID]) error {
	var remaining []string
	for _, step := range b.flow.Steps {
		if !processed.Contains(step.ID) {
			remaining = append(remaining, string(step.ID))
		}
	}
	return fmt.Errorf("%w: %s", ErrGraphCycle, strings.Join(remaining, ", "))
}

func (b *builder) terminals() []api.StepID {
	var res []api.StepID
	for _, step := range b.flow.Steps {
		if len(b.dependents[step.ID]) == 0 {
			res = append(res, step.ID)
		}
	}
	return res
}
