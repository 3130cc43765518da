package api

type (
	// CallRequest asks for one ad-hoc capability invocation outside a flow
	// run. Params are merged over the credential profile's defaults and
	// resolved auth values before dispatch
	CallRequest struct {
		Params    Args   `json:"params,omitempty"`
		Type      string `json:"type"`
		Operation string `json:"operation"`
	}

	// CallResult is the structured outcome of an ad-hoc invocation. A
	// failure carries the capability type, operation, and reason rather
	// than a bare error
	CallResult struct {
		Result    Args         `json:"result,omitempty"`
		Type      string       `json:"type"`
		Operation string       `json:"operation"`
		Error     string       `json:"error,omitempty"`
		Status    ResultStatus `json:"status"`
	}
)

// NewCallResult creates a successful CallResult for a type and operation
func NewCallResult(capType, operation string) *CallResult {
	return &CallResult{
		Type:      capType,
		Operation: operation,
		Status:    ResultSuccess,
	}
}

// WithResult attaches the invocation's output map
func (r *CallResult) WithResult(result Args) *CallResult {
	r.Result = result
	return r
}

// WithError marks the call as failed with the given reason
func (r *CallResult) WithError(err error) *CallResult {
	r.Status = ResultError
	r.Error = err.Error()
	return r
}
