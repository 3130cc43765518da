package capability

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kode4food/twill/pkg/api"
	"github.com/kode4food/twill/pkg/log"
	"github.com/kode4food/twill/pkg/util"
)

// Registry maps step-type names to capability factories. Lookups accept
// either a canonical name or a registered alias. A Registry is safe for
// concurrent use and is read-mostly after startup registration
type Registry struct {
	factories map[string]api.Factory
	names     map[string]string
	loaded    util.Set[string]
	mu        sync.RWMutex
	strict    bool
}

var (
	ErrDuplicateCapability = errors.New("capability already registered")
	ErrUnknownCapability   = errors.New("unknown capability")
)

// NewRegistry creates an empty capability registry. In strict mode a
// duplicate registration fails instead of overwriting
func NewRegistry(strict bool) *Registry {
	return &Registry{
		factories: map[string]api.Factory{},
		names:     map[string]string{},
		loaded:    util.Set[string]{},
		strict:    strict,
	}
}

// Register stores a factory under a canonical type name plus any aliases.
// The last registration for a key wins; the displaced key is logged as an
// overwrite. In strict mode a duplicate key fails with
// ErrDuplicateCapability and the registry is left untouched
func (r *Registry) Register(
	name string, f api.Factory, aliases ...string,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := append([]string{name}, aliases...)
	for _, k := range keys {
		prev, ok := r.names[k]
		if !ok {
			continue
		}
		if r.strict {
			return fmt.Errorf("%w: %s", ErrDuplicateCapability, k)
		}
		slog.Warn("Overwriting capability registration",
			log.Capability(k),
			slog.String("previous", prev))
	}

	r.factories[name] = f
	for _, k := range keys {
		r.names[k] = name
	}
	return nil
}

// Lookup returns the factory for a name or alias without instantiating it
func (r *Registry) Lookup(name string) (api.Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	canonical, ok := r.names[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCapability, name)
	}
	return r.factories[canonical], nil
}

// Resolve instantiates the capability registered under a name or alias
func (r *Registry) Resolve(name string) (api.Capability, error) {
	f, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return f()
}

// Has reports whether a name or alias resolves to a registration
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.names[name]
	return ok
}

// Types returns the canonical registered type names, sorted
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return util.SortedKeys(r.factories)
}

// Count returns the number of canonical registrations
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// Schemas describes every canonical capability, sorted by type name. A
// factory that fails to produce an instance is logged and skipped
func (r *Registry) Schemas() []*api.Schema {
	var res []*api.Schema
	for _, name := range r.Types() {
		c, err := r.Resolve(name)
		if err != nil {
			slog.Warn("Failed to describe capability",
				log.Capability(name),
				log.Error(err))
			continue
		}
		res = append(res, c.Describe())
	}
	return res
}

// Infos pairs every canonical capability's schema with its registered
// aliases, sorted by type name
func (r *Registry) Infos() []*api.CapabilityInfo {
	aliases := r.aliasesByType()
	var res []*api.CapabilityInfo
	for _, name := range r.Types() {
		c, err := r.Resolve(name)
		if err != nil {
			slog.Warn("Failed to describe capability",
				log.Capability(name),
				log.Error(err))
			continue
		}
		res = append(res, &api.CapabilityInfo{
			Schema:  c.Describe(),
			Type:    name,
			Aliases: aliases[name],
		})
	}
	return res
}

func (r *Registry) aliasesByType() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := map[string][]string{}
	for _, k := range util.SortedKeys(r.names) {
		canonical := r.names[k]
		if k != canonical {
			res[canonical] = append(res[canonical], k)
		}
	}
	return res
}
