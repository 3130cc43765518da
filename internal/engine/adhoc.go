package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kode4food/twill/internal/profile"
	"github.com/kode4food/twill/pkg/api"
	"github.com/kode4food/twill/pkg/log"
)

// operationParam carries the call's operation name into the capability
// input when the merged parameters leave it unset
const operationParam api.Name = "operation"

// ExecuteCall performs one ad-hoc capability invocation outside any flow.
// The credential profile gates the call: the type must be authenticated,
// the operation listed in its catalog, and every parameter the operation
// requires present after layering profile defaults, environment-resolved
// credentials, and the caller's runtime parameters. Parameters the
// layering leaves unset pick up their schema-declared defaults. Failures
// come back as structured results naming the type and operation, never as
// bare errors
func (e *Engine) ExecuteCall(
	ctx context.Context, prof *profile.Profile, req *api.CallRequest,
) *api.CallResult {
	res := api.NewCallResult(req.Type, req.Operation)

	if !prof.IsAuthenticated(req.Type) {
		return e.callFailed(res, fmt.Errorf(
			"%w: %s", ErrNotAuthenticated, req.Type,
		))
	}
	op, ok := prof.Operation(req.Type, req.Operation)
	if !ok {
		return e.callFailed(res, fmt.Errorf(
			"%w: %s.%s", ErrUnknownOperation, req.Type, req.Operation,
		))
	}

	merged := prof.MergedParams(req.Type, req.Params)
	if _, ok := merged[operationParam]; !ok {
		merged[operationParam] = req.Operation
	}
	if missing := op.MissingParams(merged); len(missing) > 0 {
		return e.callFailed(res, fmt.Errorf(
			"%w: %s", ErrMissingParams, joinNames(missing),
		))
	}

	c, err := e.registry.Resolve(req.Type)
	if err != nil {
		return e.callFailed(res, err)
	}

	out, err := invokeCapability(ctx, c, c.Describe().ApplyDefaults(merged))
	if err != nil {
		return e.callFailed(res, err)
	}
	if !out.Successful() {
		return e.callFailed(res, errors.New(out.Error))
	}

	slog.Info("Ad-hoc call completed",
		log.Capability(req.Type),
		slog.String("operation", req.Operation))
	return res.WithResult(out.Result)
}

func (e *Engine) callFailed(
	res *api.CallResult, err error,
) *api.CallResult {
	slog.Warn("Ad-hoc call failed",
		log.Capability(res.Type),
		slog.String("operation", res.Operation),
		log.Error(err))
	return res.WithError(err)
}

// joinNames renders parameter names as a comma-separated list so a
// missing-parameter failure reports every absent field at once
func joinNames(names []api.Name) string {
	strs := make([]string, len(names))
	for i, name := range names {
		strs[i] = string(name)
	}
	return strings.Join(strs, ", ")
}
