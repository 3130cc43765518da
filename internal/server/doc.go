// Package server implements the HTTP API for a served flow
//
// This package provides the management endpoints, the routes the flow
// itself declares, health checks, and WebSocket event streaming
package server
