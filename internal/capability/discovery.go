package capability

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kode4food/twill/pkg/api"
	"github.com/kode4food/twill/pkg/log"
)

type (
	manifest struct {
		Capabilities []*manifestEntry `yaml:"capabilities"`
	}

	manifestEntry struct {
		Type    string   `yaml:"type"`
		Aliases []string `yaml:"aliases,omitempty"`
	}
)

// Discover walks a directory of capability manifests and registers each
// listed type from the available factory table. A directory is walked at
// most once; a repeat call registers nothing. A bad manifest, an
// unavailable type, or a rejected registration is logged and skipped
// without aborting the rest of the walk
func (r *Registry) Discover(
	dir string, available map[string]api.Factory,
) (int, error) {
	key := filepath.Clean(dir)

	r.mu.Lock()
	if r.loaded.Contains(key) {
		r.mu.Unlock()
		slog.Debug("Capability directory already loaded", log.Path(dir))
		return 0, nil
	}
	r.mu.Unlock()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	r.loaded.Add(key)
	r.mu.Unlock()

	count := 0
	for _, e := range entries {
		if e.IsDir() || !isManifest(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		n, err := r.loadManifest(path, available)
		if err != nil {
			slog.Error("Failed to load capability manifest",
				log.Path(path),
				log.Error(err))
			continue
		}
		count += n
	}

	slog.Info("Capability discovery complete",
		log.Path(dir),
		log.Count(count))
	return count, nil
}

func (r *Registry) loadManifest(
	path string, available map[string]api.Factory,
) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var m manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return 0, err
	}

	count := 0
	for _, e := range m.Capabilities {
		if e.Type == "" {
			slog.Warn("Skipping manifest entry without a type",
				log.Path(path))
			continue
		}
		f, ok := available[e.Type]
		if !ok {
			slog.Warn("Skipping unavailable capability",
				log.Capability(e.Type),
				log.Path(path))
			continue
		}
		if err := r.Register(e.Type, f, e.Aliases...); err != nil {
			slog.Warn("Skipping capability registration",
				log.Capability(e.Type),
				log.Error(err))
			continue
		}
		slog.Debug("Discovered capability", log.Capability(e.Type))
		count++
	}
	return count, nil
}

func isManifest(name string) bool {
	return strings.HasSuffix(name, ".yaml") ||
		strings.HasSuffix(name, ".yml")
}
