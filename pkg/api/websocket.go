package api

type (
	// SubscribeRequest is sent by websocket clients to narrow which events
	// they receive
	SubscribeRequest struct {
		Type string             `json:"type"`
		Data ClientSubscription `json:"data"`
	}

	// ClientSubscription configures which events a websocket client
	// receives. Empty fields match everything
	ClientSubscription struct {
		RunID      RunID       `json:"run_id,omitempty"`
		StepIDs    []StepID    `json:"step_ids,omitempty"`
		EventTypes []EventType `json:"event_types,omitempty"`
	}

	// SubscribedResult acknowledges a subscription change
	SubscribedResult struct {
		Type string             `json:"type"`
		Data ClientSubscription `json:"data"`
	}
)
