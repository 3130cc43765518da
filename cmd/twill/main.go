package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	app "github.com/kode4food/twill"
	"github.com/kode4food/twill/internal/archive"
	"github.com/kode4food/twill/internal/capability"
	"github.com/kode4food/twill/internal/capability/builtin"
	"github.com/kode4food/twill/internal/config"
	"github.com/kode4food/twill/internal/engine"
	"github.com/kode4food/twill/internal/events"
	"github.com/kode4food/twill/internal/flow"
	"github.com/kode4food/twill/internal/server"
	"github.com/kode4food/twill/internal/watch"
	"github.com/kode4food/twill/pkg/api"
	"github.com/kode4food/twill/pkg/log"
	"github.com/kode4food/twill/pkg/util/call"
)

// twill owns the runtime wired up for one command invocation: the
// capability registry, event hub, and engine, plus whichever of the
// archive, watcher, and API server the chosen mode needs
type twill struct {
	cfg        *config.Config
	registry   *capability.Registry
	hub        *events.Hub
	engine     *engine.Engine
	archive    *archive.Store
	watcher    *watch.Watcher
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

var (
	ErrRegisterBuiltins = errors.New(
		"failed to register built-in capabilities",
	)
	ErrDiscoverCapabilities = errors.New("failed to discover capabilities")
	ErrOpenArchive          = errors.New("failed to open archive bucket")
	ErrBadInputArg          = errors.New("argument must be name=value")
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

var rootCmd = &cobra.Command{
	Use:   app.Name + " [flow.yaml]",
	Short: "Declarative workflow runner",
	Long: app.Name + ` loads a YAML flow definition and decides how to
host it: a flow declaring routes or agent or deployment metadata is
served persistently behind the HTTP API, anything else runs once from
its start step and exits.`,
	Version:      app.Version,
	Args:         cobra.MaximumNArgs(1),
	RunE:         runRoot,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the " + app.Name + " version",
	Run: func(*cobra.Command, []string) {
		fmt.Printf("%s %s\n", app.Name, app.Version)
	},
}

var capabilityDir string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&capabilityDir, "capabilities", "",
		"directory of capability manifests to load at startup")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

// runRoot loads the flow and dispatches on its metadata, serving it
// persistently or running it once
func runRoot(_ *cobra.Command, args []string) error {
	t, err := newTwill()
	if err != nil {
		return err
	}
	defer t.close()

	if err := t.openArchive(); err != nil {
		return err
	}

	var path string
	if len(args) > 0 {
		path = args[0]
	}
	def, err := t.loadFlow(path)
	if err != nil {
		return err
	}

	if engine.DecideMode(def) == engine.ModeServe {
		return t.serve(def)
	}
	return t.runOnce(nil, false)
}

// newTwill loads configuration from the environment and stands up the
// core runtime: logging, the capability registry, the event hub, and
// the engine
func newTwill() (*twill, error) {
	cfg := config.NewDefaultConfig()
	if err := call.Perform(cfg.LoadFromEnv, cfg.Validate); err != nil {
		return nil, err
	}

	t := &twill{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	t.setupLogging()

	t.registry = capability.NewRegistry(cfg.StrictCapabilities)
	if err := builtin.RegisterAll(t.registry, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegisterBuiltins, err)
	}
	if capabilityDir != "" {
		count, err := t.registry.Discover(
			capabilityDir, builtin.Factories(cfg),
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%w: %w", ErrDiscoverCapabilities, err,
			)
		}
		slog.Info("Capabilities discovered",
			log.Path(capabilityDir),
			log.Count(count))
	}

	t.hub = events.NewHub()
	t.engine = engine.New(t.registry, t.hub, cfg)
	return t, nil
}

func (t *twill) setupLogging() {
	level, ok := logLevels[t.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(env, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)
}

// openArchive attaches cold run storage when a bucket is configured.
// Commands that never record runs skip this
func (t *twill) openArchive() error {
	if t.cfg.ArchiveBucketURL == "" {
		return nil
	}
	st, err := archive.New(
		context.Background(), t.cfg.ArchiveBucketURL, t.cfg.ArchivePrefix,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpenArchive, err)
	}
	t.archive = st
	t.engine.SetArchive(st)
	return nil
}

// loadFlow reads the definition at path, falling back to the configured
// flow path, and installs it as the engine's live flow. The resolved
// path is written back to the configuration so the watcher and the
// reload surface track the same file
func (t *twill) loadFlow(path string) (*api.FlowDefinition, error) {
	if path == "" {
		path = t.cfg.FlowPath
	}
	def, err := flow.Load(path)
	if err != nil {
		return nil, err
	}
	t.cfg.FlowPath = path
	t.engine.SetFlow(def)
	slog.Debug("Flow loaded",
		log.Flow(def.Name),
		log.Path(path),
		slog.Int("steps", len(def.Steps)))
	return def, nil
}

// reloadFlow applies one watcher change. A disappearance or a parse
// failure keeps the current definition live; a successful parse of
// changed content swaps the definition and publishes a flow_reloaded
// event. Reports whether a new definition went live
func (t *twill) reloadFlow(ch *watch.Change) bool {
	if ch.Disappeared {
		slog.Warn("Flow file disappeared", log.Path(ch.Path))
		t.hub.Emit(api.EventTypeFlowReloaded, "", "",
			&api.FlowReloadedEvent{
				Path:        ch.Path,
				Disappeared: true,
			})
		return false
	}

	def, err := flow.Parse(ch.Content)
	if err != nil {
		slog.Error("Flow reload rejected",
			log.Path(ch.Path),
			log.Error(err))
		return false
	}
	if cur, ok := t.engine.Flow(); ok && cur.Equal(def) {
		slog.Debug("Flow content unchanged", log.Path(ch.Path))
		return false
	}

	t.engine.SetFlow(def)
	t.hub.Emit(api.EventTypeFlowReloaded, "", "",
		&api.FlowReloadedEvent{
			Flow: def.Name,
			Path: ch.Path,
		})
	slog.Info("Flow reloaded", log.Flow(def.Name), log.Path(ch.Path))
	return true
}

func (t *twill) close() {
	if t.archive != nil {
		_ = t.archive.Close()
	}
	t.hub.Close()
}

// parseArgPairs turns repeated name=value flags into an argument map
func parseArgPairs(pairs []string) (api.Args, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	res := api.Args{}
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %s", ErrBadInputArg, p)
		}
		res[api.Name(name)] = value
	}
	return res, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Println(string(data))
	return err
}
