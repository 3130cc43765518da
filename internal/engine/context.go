package engine

import (
	"github.com/kode4food/twill/internal/resolve"
	"github.com/kode4food/twill/pkg/api"
)

// ExecutionContext accumulates per-step records for one run. Steps within a
// run execute strictly in plan order, so a single goroutine owns the map;
// each step ID is written exactly once. The context doubles as the
// resolution source for later steps' placeholders
type ExecutionContext struct {
	records map[api.StepID]*api.StepRecord
	order   []api.StepID
}

func newExecutionContext(size int) *ExecutionContext {
	return &ExecutionContext{
		records: make(map[api.StepID]*api.StepRecord, size),
	}
}

// Record stores the outcome for a step. A second write for the same step
// is ignored; the first recorded outcome stands
func (c *ExecutionContext) Record(id api.StepID, rec *api.StepRecord) {
	if _, ok := c.records[id]; ok {
		return
	}
	if c.records == nil {
		c.records = map[api.StepID]*api.StepRecord{}
	}
	c.records[id] = rec
	c.order = append(c.order, id)
}

// Get returns the record for a step, or false when it has not run yet
func (c *ExecutionContext) Get(id api.StepID) (*api.StepRecord, bool) {
	rec, ok := c.records[id]
	return rec, ok
}

// StepDoc exposes a step's record as a placeholder document: its status,
// the result map when the step produced one, and the error message when it
// failed. Placeholder paths walk into this shape
func (c *ExecutionContext) StepDoc(id api.StepID) (any, bool) {
	rec, ok := c.records[id]
	if !ok {
		return nil, false
	}
	doc := map[string]any{
		"status": string(rec.Status),
	}
	if rec.Result != nil {
		doc["result"] = rec.Result
	}
	if rec.Error != "" {
		doc["error"] = rec.Error
	}
	return doc, true
}

// Records returns the accumulated step records keyed by step ID
func (c *ExecutionContext) Records() map[api.StepID]*api.StepRecord {
	return c.records
}

// Order returns step IDs in the order they were recorded
func (c *ExecutionContext) Order() []api.StepID {
	return c.order
}

// Len returns the number of recorded steps
func (c *ExecutionContext) Len() int {
	return len(c.records)
}

var _ resolve.Source = (*ExecutionContext)(nil)
