package assert

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/twill/internal/config"
	"github.com/kode4food/twill/pkg/api"
)

type (
	// Wrapper wraps testify assertions with twill-specific helpers
	Wrapper struct {
		*testing.T
		*assert.Assertions
		Require *assert.Assertions
	}
)

// DefaultRetryInterval is the default polling interval for Eventually checks
const DefaultRetryInterval = 100 * time.Millisecond

// New creates a new test assertion wrapper with both assert and require from
// testify plus twill-specific helpers
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
		Require:    assert.New(t),
	}
}

// FlowValid asserts that a flow definition passes validation
func (w *Wrapper) FlowValid(f *api.FlowDefinition) {
	w.Helper()
	w.NoError(f.Validate())
	w.NotEmpty(f.Name)
	w.NotEmpty(f.Steps)
}

// FlowInvalid asserts that a flow definition fails validation and returns
// the validation error
func (w *Wrapper) FlowInvalid(
	f *api.FlowDefinition, expectedErrorContains string,
) error {
	w.Helper()
	err := f.Validate()
	w.Error(err)
	if err != nil && expectedErrorContains != "" {
		w.Contains(err.Error(), expectedErrorContains)
	}
	return err
}

// StepSucceeded asserts that a run recorded a successful outcome for a step
func (w *Wrapper) StepSucceeded(res *api.RunResult, id api.StepID) {
	w.Helper()
	rec := res.Record(id)
	if !w.NotNil(rec, "run should have a record for step: %s", id) {
		return
	}
	w.True(rec.Succeeded(), "step should have succeeded: %s", id)
}

// StepFailed asserts that a run recorded a failed outcome for a step
func (w *Wrapper) StepFailed(res *api.RunResult, id api.StepID) {
	w.Helper()
	rec := res.Record(id)
	if !w.NotNil(rec, "run should have a record for step: %s", id) {
		return
	}
	w.Equal(api.StepError, rec.Status, "step should have failed: %s", id)
	w.NotEmpty(rec.Error)
}

// StepSkipped asserts that a step was skipped because a dependency failed
func (w *Wrapper) StepSkipped(res *api.RunResult, id api.StepID) {
	w.Helper()
	rec := res.Record(id)
	if !w.NotNil(rec, "run should have a record for step: %s", id) {
		return
	}
	w.True(rec.Skipped(), "step should have been skipped: %s", id)
}

// Resolved asserts that a value carries no residual placeholder markers
func (w *Wrapper) Resolved(val any) {
	w.Helper()
	s, ok := val.(string)
	if !ok {
		return
	}
	w.False(strings.Contains(s, "{{"),
		"value should be fully resolved: %s", s)
}

// ConfigValid asserts that a configuration is valid
func (w *Wrapper) ConfigValid(cfg *config.Config) {
	w.Helper()
	w.NoError(cfg.Validate())
	w.True(cfg.APIPort > 0 && cfg.APIPort <= 65535)
	w.True(cfg.WatchInterval > 0)
}

// ConfigInvalid asserts that a configuration is invalid
func (w *Wrapper) ConfigInvalid(cfg *config.Config, contains string) {
	w.Helper()
	err := cfg.Validate()
	w.Error(err)
	if contains != "" {
		w.Contains(err.Error(), contains)
	}
}

// Eventually runs a condition repeatedly until it passes or times out
func (w *Wrapper) Eventually(
	condition func() bool, timeout time.Duration, msg string, args ...any,
) {
	w.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(DefaultRetryInterval)
	}
	w.Fail(msg, args...)
}

// EventuallyWithError runs a condition that returns an error until it succeeds
// or times out
func (w *Wrapper) EventuallyWithError(
	condition func() error, timeout time.Duration, msg string, args ...any,
) {
	w.Helper()
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		err := condition()
		if err == nil {
			return
		}
		lastErr = err
		time.Sleep(DefaultRetryInterval)
	}
	if lastErr != nil {
		w.Fail(msg+": last error: "+lastErr.Error(), args...)
		return
	}
	w.Fail(msg, args...)
}
