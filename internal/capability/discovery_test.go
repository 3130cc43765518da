package capability_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kode4food/twill/internal/assert"
	"github.com/kode4food/twill/internal/assert/helpers"
	"github.com/kode4food/twill/internal/capability"
	"github.com/kode4food/twill/pkg/api"
)

func writeManifest(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	err := os.WriteFile(path, []byte(content), 0o644)
	if err != nil {
		t.Fatal(err)
	}
}

func availableFactories(names ...string) map[string]api.Factory {
	res := map[string]api.Factory{}
	for _, name := range names {
		res[name] = helpers.NewMockCapability(name).Factory()
	}
	return res
}

func TestDiscoverRegisters(t *testing.T) {
	as := assert.New(t)
	reg := capability.NewRegistry(false)
	dir := t.TempDir()

	writeManifest(t, dir, "builtin.yaml", `
capabilities:
  - type: http
    aliases: [fetch]
  - type: redis
`)

	count, err := reg.Discover(dir, availableFactories("http", "redis"))
	as.NoError(err)
	as.Equal(2, count)

	as.True(reg.Has("http"))
	as.True(reg.Has("fetch"))
	as.True(reg.Has("redis"))
	as.Equal(2, reg.Count())
}

func TestDiscoverSecondCallNoOp(t *testing.T) {
	as := assert.New(t)
	reg := capability.NewRegistry(false)
	dir := t.TempDir()

	writeManifest(t, dir, "builtin.yaml", `
capabilities:
  - type: echo
`)

	available := availableFactories("echo")

	count, err := reg.Discover(dir, available)
	as.NoError(err)
	as.Equal(1, count)

	count, err = reg.Discover(dir, available)
	as.NoError(err)
	as.Equal(0, count)
	as.Equal(1, reg.Count())
}

func TestDiscoverSkipsBadManifest(t *testing.T) {
	as := assert.New(t)
	reg := capability.NewRegistry(false)
	dir := t.TempDir()

	writeManifest(t, dir, "bad.yaml", "capabilities: [\n")
	writeManifest(t, dir, "good.yaml", `
capabilities:
  - type: echo
`)

	count, err := reg.Discover(dir, availableFactories("echo"))
	as.NoError(err)
	as.Equal(1, count)
	as.True(reg.Has("echo"))
}

func TestDiscoverSkipsUnavailableType(t *testing.T) {
	as := assert.New(t)
	reg := capability.NewRegistry(false)
	dir := t.TempDir()

	writeManifest(t, dir, "builtin.yaml", `
capabilities:
  - type: echo
  - type: quantum
  - type: ""
`)

	count, err := reg.Discover(dir, availableFactories("echo"))
	as.NoError(err)
	as.Equal(1, count)
	as.False(reg.Has("quantum"))
}

func TestDiscoverIgnoresOtherFiles(t *testing.T) {
	as := assert.New(t)
	reg := capability.NewRegistry(false)
	dir := t.TempDir()

	writeManifest(t, dir, "notes.txt", "not a manifest")
	as.NoError(os.Mkdir(filepath.Join(dir, "sub.yaml"), 0o755))
	writeManifest(t, dir, "builtin.yml", `
capabilities:
  - type: echo
`)

	count, err := reg.Discover(dir, availableFactories("echo"))
	as.NoError(err)
	as.Equal(1, count)
}

func TestDiscoverMissingDir(t *testing.T) {
	as := assert.New(t)
	reg := capability.NewRegistry(false)

	missing := filepath.Join(t.TempDir(), "absent")
	count, err := reg.Discover(missing, availableFactories("echo"))
	as.Error(err)
	as.Equal(0, count)
}

func TestDiscoverStrictContinuesPastDuplicate(t *testing.T) {
	as := assert.New(t)
	reg := capability.NewRegistry(true)
	dir := t.TempDir()

	as.NoError(reg.Register(
		"echo", helpers.NewMockCapability("echo").Factory(),
	))

	writeManifest(t, dir, "builtin.yaml", `
capabilities:
  - type: echo
  - type: delay
`)

	count, err := reg.Discover(dir, availableFactories("echo", "delay"))
	as.NoError(err)
	as.Equal(1, count)
	as.True(reg.Has("delay"))
}
