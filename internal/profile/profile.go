package profile

import (
	"regexp"
	"strings"
	"time"

	"github.com/kode4food/twill/internal/resolve"
	"github.com/kode4food/twill/pkg/api"
)

type (
	// Profile records which capability types are authorized for ad-hoc
	// calls, the credential fields each one carries (always as environment
	// references, never raw values), its stored defaults, and the
	// operations it offers
	Profile struct {
		Nodes    map[string]*Node `yaml:"nodes,omitempty"`
		Metadata *Metadata        `yaml:"metadata,omitempty"`
	}

	// Node is one capability type's profile entry
	Node struct {
		Auth          map[string]string     `yaml:"auth,omitempty"`
		Defaults      api.Args              `yaml:"defaults,omitempty"`
		Operations    map[string]*Operation `yaml:"operations,omitempty"`
		Metadata      map[string]string     `yaml:"metadata,omitempty"`
		UpdatedAt     time.Time             `yaml:"updated_at,omitempty"`
		Type          string                `yaml:"type"`
		Enabled       bool                  `yaml:"enabled"`
		Authenticated bool                  `yaml:"authenticated"`
	}

	// Operation describes one invocable operation of a capability type
	Operation struct {
		Description string     `yaml:"description,omitempty"`
		Required    []api.Name `yaml:"required,omitempty"`
	}

	// Metadata is the profile-level bookkeeping section
	Metadata struct {
		UpdatedAt       time.Time `yaml:"updated_at,omitempty"`
		Version         string    `yaml:"version,omitempty"`
		Authenticated   int       `yaml:"authenticated_count"`
		Unauthenticated int       `yaml:"unauthenticated_count"`
	}
)

// Version is the profile format version written by this build
const Version = "1"

var envVarSeparators = regexp.MustCompile(`[^A-Za-z0-9]+`)

// New creates an empty credential profile
func New() *Profile {
	return &Profile{
		Nodes:    map[string]*Node{},
		Metadata: &Metadata{Version: Version},
	}
}

// EnvVar derives the environment variable name backing a credential field:
// the capability type and field name joined by underscores and uppercased
func EnvVar(capType, field string) string {
	name := envVarSeparators.ReplaceAllString(capType+"_"+field, "_")
	return strings.Trim(strings.ToUpper(name), "_")
}

// EnvReference wraps an environment variable name in placeholder syntax
func EnvReference(name string) string {
	return "{{" + resolve.EnvPrefix + name + "}}"
}

// Node returns the entry for a capability type
func (p *Profile) Node(capType string) (*Node, bool) {
	node, ok := p.Nodes[capType]
	return node, ok
}

// IsAuthenticated reports whether a capability type is present, enabled,
// and marked authenticated
func (p *Profile) IsAuthenticated(capType string) bool {
	node, ok := p.Nodes[capType]
	return ok && node.Enabled && node.Authenticated
}

// Auth returns a capability type's credential fields. With resolveEnv set,
// each environment reference is expanded from the process environment;
// references to unset variables are left verbatim so callers can report
// them by name. Without it the stored references are returned as-is
func (p *Profile) Auth(capType string, resolveEnv bool) api.Args {
	node, ok := p.Nodes[capType]
	if !ok {
		return api.Args{}
	}
	res := make(api.Args, len(node.Auth))
	for field, ref := range node.Auth {
		if resolveEnv {
			res[api.Name(field)] = resolve.EnvOnly(ref)
			continue
		}
		res[api.Name(field)] = ref
	}
	return res
}

// Defaults returns a copy of the stored default parameters for a type
func (p *Profile) Defaults(capType string) api.Args {
	node, ok := p.Nodes[capType]
	if !ok {
		return api.Args{}
	}
	return node.Defaults.Copy()
}

// Operations returns the operation catalog for a type
func (p *Profile) Operations(capType string) map[string]*Operation {
	node, ok := p.Nodes[capType]
	if !ok {
		return map[string]*Operation{}
	}
	return node.Operations
}

// Operation returns one operation descriptor for a type
func (p *Profile) Operation(capType, name string) (*Operation, bool) {
	node, ok := p.Nodes[capType]
	if !ok {
		return nil, false
	}
	op, ok := node.Operations[name]
	return op, ok
}

// MergedParams layers stored defaults, environment-resolved credentials,
// and runtime parameters for one ad-hoc call, later layers winning
func (p *Profile) MergedParams(capType string, runtime api.Args) api.Args {
	return api.MergeArgs(p.Defaults(capType), p.Auth(capType, true), runtime)
}

// AddNode authorizes a capability type, replacing any existing entry. Each
// raw credential value is discarded after deriving its environment
// reference, so the profile never holds the secret itself; the operator
// exports the named variable instead. A node added without credentials is
// recorded but not marked authenticated
func (p *Profile) AddNode(
	capType string, creds map[string]string, defaults api.Args,
	ops map[string]*Operation,
) *Node {
	auth := make(map[string]string, len(creds))
	for field := range creds {
		auth[field] = EnvReference(EnvVar(capType, field))
	}
	node := &Node{
		Auth:          auth,
		Defaults:      defaults.Copy(),
		Operations:    ops,
		UpdatedAt:     time.Now().UTC(),
		Type:          capType,
		Enabled:       true,
		Authenticated: len(auth) > 0,
	}
	if p.Nodes == nil {
		p.Nodes = map[string]*Node{}
	}
	p.Nodes[capType] = node
	p.recount()
	return node
}

// RemoveNode deletes every profile section for a capability type and
// updates the count metadata. Returns false when the type was never
// present
func (p *Profile) RemoveNode(capType string) bool {
	if _, ok := p.Nodes[capType]; !ok {
		return false
	}
	delete(p.Nodes, capType)
	p.recount()
	return true
}

func (p *Profile) recount() {
	if p.Metadata == nil {
		p.Metadata = &Metadata{Version: Version}
	}
	auth, unauth := 0, 0
	for _, node := range p.Nodes {
		if node.Authenticated {
			auth++
		} else {
			unauth++
		}
	}
	p.Metadata.Authenticated = auth
	p.Metadata.Unauthenticated = unauth
}

// MissingParams returns the operation's required parameters absent from
// the merged arguments, in declaration order
func (o *Operation) MissingParams(args api.Args) []api.Name {
	var missing []api.Name
	for _, name := range o.Required {
		if v, ok := args[name]; !ok || v == nil {
			missing = append(missing, name)
		}
	}
	return missing
}
