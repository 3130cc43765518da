package log_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/twill/pkg/api"
	"github.com/kode4food/twill/pkg/log"
)

type errStub string

func TestRunID(t *testing.T) {
	attr := log.RunID(api.RunID("run-123"))
	assertAttrEqual(t, attr, "run_id", "run-123")
}

func TestStepID(t *testing.T) {
	attr := log.StepID(api.StepID("step-abc"))
	assertAttrEqual(t, attr, "step_id", "step-abc")
}

func TestCapability(t *testing.T) {
	attr := log.Capability("http.request")
	assertAttrEqual(t, attr, "capability", "http.request")
}

func TestStatus(t *testing.T) {
	attr := log.Status(api.StepSuccess)
	assertAttrEqual(t, attr, "status", "success")
}

func TestFlow(t *testing.T) {
	attr := log.Flow("order-pipeline")
	assertAttrEqual(t, attr, "flow", "order-pipeline")
}

func TestPath(t *testing.T) {
	attr := log.Path("/tmp/flow.yaml")
	assertAttrEqual(t, attr, "path", "/tmp/flow.yaml")
}

func TestRoute(t *testing.T) {
	attr := log.Route("/orders")
	assertAttrEqual(t, attr, "route", "/orders")
}

func TestCount(t *testing.T) {
	attr := log.Count(7)
	assert.Equal(t, "count", attr.Key)
	assert.Equal(t, int64(7), attr.Value.Int64())
}

func TestElapsed(t *testing.T) {
	attr := log.Elapsed(250 * time.Millisecond)
	assert.Equal(t, "elapsed", attr.Key)
	assert.Equal(t, 250*time.Millisecond, attr.Value.Duration())
}

func TestError(t *testing.T) {
	attr := log.Error(nil)
	assertAttrEqual(t, attr, "error", "")

	attr = log.Error(errStub("boom"))
	assertAttrEqual(t, attr, "error", "boom")
}

func TestErrorString(t *testing.T) {
	attr := log.ErrorString("badness")
	assertAttrEqual(t, attr, "error", "badness")
}

func (e errStub) Error() string { return string(e) }

func assertAttrEqual(t *testing.T, attr slog.Attr, key, value string) {
	t.Helper()
	assert.Equal(t, key, attr.Key)
	assert.Equal(t, value, attr.Value.String())
}
