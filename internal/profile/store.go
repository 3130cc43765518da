package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrProfileNotFound = errors.New("profile file not found")
	ErrProfileSyntax   = errors.New("profile syntax error")
)

// Load reads and parses a credential profile from the given path
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, path)
		}
		return nil, err
	}
	res, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// LoadOrNew loads a profile, returning an empty one when the file does not
// exist yet. Any other failure is still reported
func LoadOrNew(path string) (*Profile, error) {
	res, err := Load(path)
	if errors.Is(err, ErrProfileNotFound) {
		return New(), nil
	}
	return res, err
}

// Parse decodes profile source. Unknown fields are rejected; an empty
// document yields an empty profile
func Parse(data []byte) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return New(), nil
		}
		return nil, syntaxError(err)
	}
	p.normalize()
	return &p, nil
}

// Save writes the profile to disk, refreshing the timestamp and count
// metadata first. Credential values are environment references by
// construction, so the file never carries raw secrets. The file is
// created owner-readable only
func (p *Profile) Save(path string) error {
	p.recount()
	p.Metadata.UpdatedAt = time.Now().UTC()
	if p.Metadata.Version == "" {
		p.Metadata.Version = Version
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// normalize fills in what the file format lets authors omit: node types
// default to their map key, and the metadata section always exists
func (p *Profile) normalize() {
	if p.Nodes == nil {
		p.Nodes = map[string]*Node{}
	}
	for capType, node := range p.Nodes {
		if node.Type == "" {
			node.Type = capType
		}
	}
	if p.Metadata == nil {
		p.Metadata = &Metadata{Version: Version}
	}
}

// syntaxError wraps a yaml decode failure, keeping whatever line
// information the decoder reported
func syntaxError(err error) error {
	var te *yaml.TypeError
	if errors.As(err, &te) {
		return fmt.Errorf("%w: %s",
			ErrProfileSyntax, strings.Join(te.Errors, "; "))
	}
	msg := strings.TrimPrefix(err.Error(), "yaml: ")
	return fmt.Errorf("%w: %s", ErrProfileSyntax, msg)
}
