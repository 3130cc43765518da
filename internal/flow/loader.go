package flow

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kode4food/twill/pkg/api"
)

var (
	ErrFlowNotFound = errors.New("flow file not found")
	ErrFlowSyntax   = errors.New("flow syntax error")
)

// Load reads and parses a flow definition from the given path
func Load(path string) (*api.FlowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, path)
		}
		return nil, err
	}
	res, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// Parse decodes flow source and validates its structure. Unknown fields are
// rejected. Identical content always yields a structurally equal definition;
// the watcher relies on this to suppress spurious reloads
func Parse(data []byte) (*api.FlowDefinition, error) {
	var def api.FlowDefinition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, syntaxError(err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFlowSyntax, err)
	}
	return &def, nil
}

// syntaxError wraps a yaml decode failure, keeping whatever line information
// the decoder reported
func syntaxError(err error) error {
	var te *yaml.TypeError
	if errors.As(err, &te) {
		return fmt.Errorf("%w: %s",
			ErrFlowSyntax, strings.Join(te.Errors, "; "))
	}
	msg := strings.TrimPrefix(err.Error(), "yaml: ")
	return fmt.Errorf("%w: %s", ErrFlowSyntax, msg)
}
