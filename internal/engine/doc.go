// Package engine implements the core workflow execution engine
//
// This package contains the main engine logic for executing flows,
// planning step order from parameter references, invoking capabilities,
// and publishing run lifecycle events
package engine
