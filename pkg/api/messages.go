package api

type (
	// ExecuteRequest contains parameters for starting a run of the loaded
	// flow
	ExecuteRequest struct {
		Init Args `json:"init,omitempty"`
	}

	// ExecuteStepRequest contains runtime parameters for an ad-hoc run of a
	// single flow step
	ExecuteStepRequest struct {
		Params Args `json:"params,omitempty"`
	}

	// CapabilityInfo summarizes one registry entry
	CapabilityInfo struct {
		Schema  *Schema  `json:"schema"`
		Type    string   `json:"type"`
		Aliases []string `json:"aliases,omitempty"`
	}

	// CapabilitiesResponse lists every registered capability
	CapabilitiesResponse struct {
		Capabilities []*CapabilityInfo `json:"capabilities"`
		Count        int               `json:"count"`
	}

	// ReloadResponse reports the outcome of a forced reload
	ReloadResponse struct {
		Flow     string `json:"flow"`
		Reloaded bool   `json:"reloaded"`
	}

	// ErrorResponse is the JSON error payload returned by the server
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}

	// HealthResponse reports liveness and what the process is serving
	HealthResponse struct {
		Status       string `json:"status"`
		Flow         string `json:"flow,omitempty"`
		UptimeMS     int64  `json:"uptime_ms"`
		Steps        int    `json:"steps"`
		Capabilities int    `json:"capabilities"`
	}
)
