package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kode4food/twill/internal/engine/plan"
	"github.com/kode4food/twill/internal/resolve"
	"github.com/kode4food/twill/pkg/api"
	"github.com/kode4food/twill/pkg/log"
)

// archiveTimeout bounds the blob write that exports a completed run
const archiveTimeout = 10 * time.Second

// run carries the state of one workflow execution: the definition and plan
// captured at start, the accumulating context, and the entry step that
// receives the initial input
type run struct {
	engine  *Engine
	flow    *api.FlowDefinition
	plan    *plan.Plan
	exec    *ExecutionContext
	init    api.Args
	id      api.RunID
	entry   api.StepID
	started time.Time
}

// Execute runs the current flow definition to completion, merging the
// initial input into the implicit entry step's parameters
func (e *Engine) Execute(
	ctx context.Context, init api.Args,
) (*api.RunResult, error) {
	flow, ok := e.Flow()
	if !ok {
		return nil, ErrNoFlow
	}
	return e.executeFlow(ctx, flow, entryStep(flow), init)
}

// ExecuteFrom runs the current flow with the initial input directed at the
// named entry step. Route handlers use this to feed request payloads to
// their declared step
func (e *Engine) ExecuteFrom(
	ctx context.Context, entry api.StepID, init api.Args,
) (*api.RunResult, error) {
	flow, ok := e.Flow()
	if !ok {
		return nil, ErrNoFlow
	}
	if !flow.HasStep(entry) {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, entry)
	}
	return e.executeFlow(ctx, flow, entry, init)
}

// ExecuteStep invokes one declared step in isolation: the caller's
// parameters are merged over the step's declared ones and resolved
// against an empty context, so references to other steps stay verbatim.
// Schema-declared defaults fill any parameters still unset. No run is
// recorded and no lifecycle events fire
func (e *Engine) ExecuteStep(
	ctx context.Context, id api.StepID, params api.Args,
) (*api.StepRecord, error) {
	flow, ok := e.Flow()
	if !ok {
		return nil, ErrNoFlow
	}
	step, ok := flow.Step(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, id)
	}
	c, err := e.registry.Resolve(step.Type)
	if err != nil {
		return nil, err
	}
	input := c.Describe().ApplyDefaults(
		e.resolver.ResolveArgs(api.MergeArgs(step.Params, params), nil))

	started := time.Now()
	res, err := invokeCapability(ctx, c, input)
	completed := time.Now()

	rec := &api.StepRecord{
		StartedAt:   started,
		CompletedAt: completed,
	}
	switch {
	case err != nil:
		rec.Status = api.StepError
		rec.Error = err.Error()
	case !res.Successful():
		rec.Status = api.StepError
		rec.Error = resultError(res).Error()
		rec.Result = res.Result
	default:
		rec.Status = api.StepSuccess
		rec.Result = res.Result
	}
	slog.Info("Step executed",
		log.StepID(id),
		log.Capability(step.Type),
		log.Status(rec.Status))
	return rec, nil
}

// executeFlow plans and executes one run against a captured definition. A
// cycle among placeholder references aborts before any step executes;
// every other failure is contained in the run's step records
func (e *Engine) executeFlow(
	ctx context.Context, flow *api.FlowDefinition, entry api.StepID,
	init api.Args,
) (*api.RunResult, error) {
	id := api.RunID(uuid.New().String())

	p, err := plan.Create(flow)
	if err != nil {
		slog.Error("Run aborted",
			log.RunID(id),
			log.Flow(flow.Name),
			log.Error(err))
		e.hub.Emit(api.EventTypeRunFailed, id, "", &api.RunFailedEvent{
			Error: err.Error(),
		})
		return nil, err
	}

	r := &run{
		engine:  e,
		flow:    flow,
		plan:    p,
		exec:    newExecutionContext(len(flow.Steps)),
		init:    init,
		id:      id,
		entry:   entry,
		started: time.Now(),
	}
	res := r.execute(ctx)
	e.history.Put(res)
	e.archiveRun(res)
	return res, nil
}

// archiveRun exports a completed run to the attached blob store. Export
// failures are logged and never fail the run
func (e *Engine) archiveRun(res *api.RunResult) {
	st := e.getArchive()
	if st == nil {
		return
	}
	ctx, cancel := context.WithTimeout(
		context.Background(), archiveTimeout)
	defer cancel()
	if err := st.Put(ctx, res); err != nil {
		slog.Error("Run archive failed",
			log.RunID(res.RunID), log.Error(err))
		return
	}
	slog.Debug("Run archived", log.RunID(res.RunID))
}

// entryStep picks the step that receives a run's initial input: the
// reserved start step when declared, otherwise the first declared step
func entryStep(flow *api.FlowDefinition) api.StepID {
	if flow.HasStep(api.StartStepID) {
		return api.StartStepID
	}
	if len(flow.Steps) > 0 {
		return flow.Steps[0].ID
	}
	return ""
}

func (r *run) execute(ctx context.Context) *api.RunResult {
	slog.Info("Run started",
		log.RunID(r.id),
		log.Flow(r.flow.Name),
		log.Count(len(r.plan.Order)))
	r.engine.hub.Emit(api.EventTypeRunStarted, r.id, "", &api.RunStartedEvent{
		Init:  r.init,
		Flow:  r.flow.Name,
		Steps: len(r.plan.Order),
	})

	for _, stepID := range r.plan.Order {
		if err := ctx.Err(); err != nil {
			r.recordCancelled(stepID, err)
			continue
		}
		r.executeStep(ctx, stepID)
	}

	res := r.result()
	r.engine.hub.Emit(api.EventTypeRunCompleted, r.id, "",
		&api.RunCompletedEvent{
			Output:  res.Output,
			Success: res.Success,
			Elapsed: res.CompletedAt.Sub(res.StartedAt).Milliseconds(),
		})
	slog.Info("Run completed",
		log.RunID(r.id),
		log.Flow(r.flow.Name),
		slog.Bool("success", res.Success),
		log.Elapsed(res.CompletedAt.Sub(res.StartedAt)))
	return res
}

func (r *run) executeStep(ctx context.Context, id api.StepID) {
	step, ok := r.flow.Step(id)
	if !ok {
		// plan orders only declared steps; nothing to do
		return
	}

	c, err := r.engine.registry.Resolve(step.Type)
	if err != nil {
		r.recordFailure(id, time.Time{}, time.Time{}, nil, err)
		return
	}

	schema := c.Describe()
	input := schema.ApplyDefaults(r.resolveParams(step))
	if reason, skip := r.skipReason(schema, input); skip {
		r.recordSkip(id, reason)
		return
	}

	r.engine.hub.Emit(api.EventTypeStepStarted, r.id, id,
		&api.StepStartedEvent{
			Input: input,
			Type:  step.Type,
		})
	slog.Debug("Step starting",
		log.RunID(r.id),
		log.StepID(id),
		log.Capability(step.Type))

	started := time.Now()
	res, err := invokeCapability(ctx, c, input)
	completed := time.Now()

	switch {
	case err != nil:
		r.recordFailure(id, started, completed, nil, err)
	case !res.Successful():
		r.recordFailure(id, started, completed, res.Result,
			resultError(res))
	default:
		r.recordSuccess(id, started, completed, res.Result)
	}
}

// invokeCapability calls a capability, containing panics as errors so one
// misbehaving implementation cannot take down the process
func invokeCapability(
	ctx context.Context, c api.Capability, input api.Args,
) (res *api.StepResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrCapabilityPanic, rec)
		}
	}()
	return c.Execute(ctx, input)
}

// resolveParams resolves a step's parameters against the records so far.
// The entry step sees the run's initial input merged over its declared
// parameters first
func (r *run) resolveParams(step *api.StepSpec) api.Args {
	params := step.Params
	if step.ID == r.entry && len(r.init) > 0 {
		params = api.MergeArgs(step.Params, r.init)
	}
	return r.engine.resolver.ResolveArgs(params, r.exec)
}

// skipReason decides the dependency cascade: a step is skipped when a
// parameter its capability requires still carries a placeholder that
// references a declared step, meaning the dependency ran but never
// produced the value. References to undeclared steps are not dependencies
// and pass through verbatim
func (r *run) skipReason(
	schema *api.Schema, input api.Args,
) (string, bool) {
	for _, name := range schema.Required() {
		value, ok := input[name]
		if !ok || !resolve.HasPlaceholder(value) {
			continue
		}
		for _, ref := range resolve.Refs(value) {
			if r.flow.HasStep(ref) {
				return fmt.Sprintf(
					"required parameter %s still references step %s",
					name, ref,
				), true
			}
		}
	}
	return "", false
}

func (r *run) recordSuccess(
	id api.StepID, started, completed time.Time, result api.Args,
) {
	r.exec.Record(id, &api.StepRecord{
		StartedAt:   started,
		CompletedAt: completed,
		Result:      result,
		Status:      api.StepSuccess,
	})
	r.engine.hub.Emit(api.EventTypeStepCompleted, r.id, id,
		&api.StepCompletedEvent{
			Result:  result,
			Elapsed: completed.Sub(started).Milliseconds(),
		})
	slog.Debug("Step completed",
		log.RunID(r.id),
		log.StepID(id),
		log.Elapsed(completed.Sub(started)))
}

func (r *run) recordFailure(
	id api.StepID, started, completed time.Time, result api.Args, err error,
) {
	r.exec.Record(id, &api.StepRecord{
		StartedAt:   started,
		CompletedAt: completed,
		Result:      result,
		Error:       err.Error(),
		Status:      api.StepError,
	})
	r.engine.hub.Emit(api.EventTypeStepFailed, r.id, id,
		&api.StepFailedEvent{
			Error: err.Error(),
		})
	slog.Warn("Step failed",
		log.RunID(r.id),
		log.StepID(id),
		log.Error(err))
}

func (r *run) recordSkip(id api.StepID, reason string) {
	r.exec.Record(id, &api.StepRecord{
		Error:  reason,
		Status: api.StepSkippedDependencyFailed,
	})
	r.engine.hub.Emit(api.EventTypeStepSkipped, r.id, id,
		&api.StepSkippedEvent{
			Reason: reason,
		})
	slog.Info("Step skipped",
		log.RunID(r.id),
		log.StepID(id),
		slog.String("reason", reason))
}

func (r *run) recordCancelled(id api.StepID, cause error) {
	r.recordFailure(id, time.Time{}, time.Time{}, nil,
		fmt.Errorf("%w: %w", ErrRunCancelled, cause))
}

// result aggregates the run: the terminal step's output, a map keyed by
// step ID when several steps have no dependents, and a success flag that
// holds only when every declared step completed successfully
func (r *run) result() *api.RunResult {
	success := true
	for _, step := range r.flow.Steps {
		rec, ok := r.exec.Get(step.ID)
		if !ok || !rec.Succeeded() {
			success = false
			break
		}
	}

	return &api.RunResult{
		StartedAt:   r.started,
		CompletedAt: time.Now(),
		Steps:       r.exec.Records(),
		Output:      r.terminalOutput(),
		Flow:        r.flow.Name,
		RunID:       r.id,
		Success:     success,
	}
}

// terminalOutput collects results from the plan's terminal steps. A single
// terminal yields its result directly; several yield a map keyed by step
// ID; none falls back to every recorded result
func (r *run) terminalOutput() api.Args {
	terminals := r.plan.Terminals
	if len(terminals) == 1 {
		if rec, ok := r.exec.Get(terminals[0]); ok {
			return rec.Result
		}
		return nil
	}

	ids := terminals
	if len(ids) == 0 {
		ids = r.exec.Order()
	}
	output := api.Args{}
	for _, id := range ids {
		if rec, ok := r.exec.Get(id); ok && rec.Result != nil {
			output[api.Name(id)] = rec.Result
		}
	}
	return output
}

func resultError(res *api.StepResult) error {
	if res.Error != "" {
		return errors.New(res.Error)
	}
	return errors.New("capability reported failure")
}
