package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/kode4food/twill/internal/archive"
	"github.com/kode4food/twill/internal/capability"
	"github.com/kode4food/twill/internal/config"
	"github.com/kode4food/twill/internal/events"
	"github.com/kode4food/twill/internal/resolve"
	"github.com/kode4food/twill/pkg/api"
	"github.com/kode4food/twill/pkg/log"
)

// Engine executes workflow runs against the live flow definition. The
// definition is swapped wholesale on reload, never mutated in place, so a
// run already in flight keeps the reference it captured at start
type Engine struct {
	registry *capability.Registry
	hub      *events.Hub
	config   *config.Config
	resolver *resolve.Resolver
	history  *history
	archive  *archive.Store
	flow     *api.FlowDefinition
	mu       sync.RWMutex
}

var (
	ErrNoFlow           = errors.New("no flow loaded")
	ErrStepNotFound     = errors.New("step not found")
	ErrCapabilityPanic  = errors.New("capability panicked")
	ErrRunCancelled     = errors.New("run cancelled")
	ErrNotAuthenticated = errors.New("capability type not authenticated")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrMissingParams    = errors.New("missing required parameters")
)

// New creates an engine bound to a capability registry and event hub
func New(
	reg *capability.Registry, hub *events.Hub, cfg *config.Config,
) *Engine {
	return &Engine{
		registry: reg,
		hub:      hub,
		config:   cfg,
		resolver: resolve.New(cfg.PathCacheSize),
		history:  newHistory(runHistorySize),
	}
}

// SetFlow swaps the live flow definition
func (e *Engine) SetFlow(flow *api.FlowDefinition) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flow = flow
}

// Flow returns the current definition, or false when none is loaded
func (e *Engine) Flow() (*api.FlowDefinition, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.flow, e.flow != nil
}

// Registry exposes the capability registry the engine dispatches through
func (e *Engine) Registry() *capability.Registry {
	return e.registry
}

// SetArchive attaches a blob store that receives every completed run
func (e *Engine) SetArchive(st *archive.Store) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.archive = st
}

// GetRun retrieves a recorded run by ID
func (e *Engine) GetRun(id api.RunID) (*api.RunResult, bool) {
	return e.history.Get(id)
}

// LookupRun retrieves a run from the in-memory history, falling back to
// the archive when one is attached
func (e *Engine) LookupRun(
	ctx context.Context, id api.RunID,
) (*api.RunResult, error) {
	if res, ok := e.history.Get(id); ok {
		return res, nil
	}
	if st := e.getArchive(); st != nil {
		res, err := st.Get(ctx, id)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, archive.ErrRunNotArchived) {
			slog.Warn("Archive lookup failed",
				log.RunID(id), log.Error(err))
		}
	}
	return nil, ErrRunNotFound
}

func (e *Engine) getArchive() *archive.Store {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.archive
}
