package profile

import (
	"fmt"
	"os"
	"regexp"

	"github.com/kode4food/twill/pkg/util"
)

// Validation reports profile consistency. Errors make the profile
// invalid; warnings are advisory and never block a call
type Validation struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Valid    bool     `json:"valid"`
}

var envRefPattern = regexp.MustCompile(
	`^\{\{\s*\.env\.([A-Za-z_][A-Za-z0-9_]*)\s*\}\}$`,
)

// Validate checks every node against the profile invariants: a node
// marked authenticated must carry credential fields, credential values
// must be environment references, and each referenced variable should be
// set in the current environment (a warning when it is not)
func (p *Profile) Validate() *Validation {
	res := &Validation{Valid: true}
	for _, capType := range util.SortedKeys(p.Nodes) {
		p.Nodes[capType].validate(capType, res)
	}
	return res
}

func (n *Node) validate(capType string, res *Validation) {
	if n.Type != "" && n.Type != capType {
		res.addError(
			"node %q declares mismatched type %q", capType, n.Type,
		)
	}
	if n.Authenticated && len(n.Auth) == 0 {
		res.addError(
			"%s is marked authenticated but has no auth section", capType,
		)
	}
	for _, field := range util.SortedKeys(n.Auth) {
		name, ok := envName(n.Auth[field])
		if !ok {
			res.addError(
				"%s.auth.%s is not an environment reference", capType, field,
			)
			continue
		}
		if _, ok := os.LookupEnv(name); !ok {
			res.addWarning(
				"%s.auth.%s references unset variable %s",
				capType, field, name,
			)
		}
	}
}

// envName extracts the variable name from a stored environment reference
func envName(ref string) (string, bool) {
	m := envRefPattern.FindStringSubmatch(ref)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func (v *Validation) addError(format string, args ...any) {
	v.Valid = false
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

func (v *Validation) addWarning(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
