// Package api defines the shared data types and contracts for the flow
// engine
//
// This package contains the types that cross package and process
// boundaries: flow definitions and step specs, the capability contract and
// its schema, step results and run aggregation, lifecycle events, and the
// HTTP request and response payloads
package api
