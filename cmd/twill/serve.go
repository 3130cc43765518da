package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/kode4food/twill/internal/server"
	"github.com/kode4food/twill/internal/watch"
	"github.com/kode4food/twill/pkg/api"
	"github.com/kode4food/twill/pkg/log"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve <flow.yaml>",
	Short: "Host a flow behind the HTTP API server",
	Long: `Host the flow persistently: its declared routes become live
HTTP endpoints, the API exposes execution and introspection, and edits
to the file hot-swap the definition without a restart.`,
	Args: cobra.ExactArgs(1),
	RunE: serveFlow,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "",
		"bind address (overrides TWILL_API_HOST and agent metadata)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0,
		"listen port (overrides TWILL_API_PORT and agent metadata)")
}

func serveFlow(_ *cobra.Command, args []string) error {
	t, err := newTwill()
	if err != nil {
		return err
	}
	defer t.close()

	if err := t.openArchive(); err != nil {
		return err
	}
	def, err := t.loadFlow(args[0])
	if err != nil {
		return err
	}
	return t.serve(def)
}

// serve hosts the loaded flow persistently. The agent section may pick
// the listen address, command flags override both it and the
// environment, and an agent declaring auto_execute gets a first run as
// soon as the server is up
func (t *twill) serve(def *api.FlowDefinition) error {
	if a := def.Agent; a != nil {
		if a.Host != "" {
			t.cfg.APIHost = a.Host
		}
		if a.Port != 0 {
			t.cfg.APIPort = a.Port
		}
	}
	if serveHost != "" {
		t.cfg.APIHost = serveHost
	}
	if servePort != 0 {
		t.cfg.APIPort = servePort
	}

	slog.Info("Twill starting",
		log.Flow(def.Name),
		slog.String("log_level", t.cfg.LogLevel))
	slog.Info("Configuration loaded",
		log.Path(t.cfg.FlowPath),
		slog.String("profile_path", t.cfg.ProfilePath),
		slog.String("api_host", t.cfg.APIHost),
		slog.Int("api_port", t.cfg.APIPort),
		slog.Int("capabilities", t.registry.Count()))

	t.watchFlow()
	t.startServer()

	if def.AutoExecute() {
		go t.autoExecute()
	}

	signal.Notify(t.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(t.quit)
	<-t.quit

	t.shutdown()
	return nil
}

// watchFlow hot-swaps the served definition on file changes. When the
// fresh definition asks for auto-execution it also gets a new run
func (t *twill) watchFlow() {
	t.watcher = watch.New(
		t.cfg.FlowPath, t.cfg.WatchInterval, t.cfg.DebounceInterval,
	)
	t.watcher.OnReload(func(ch *watch.Change) {
		if !t.reloadFlow(ch) {
			return
		}
		if flow, ok := t.engine.Flow(); ok && flow.AutoExecute() {
			go t.autoExecute()
		}
	})
	t.watcher.Start()
}

// autoExecute performs the run an agent requests on load. Failures are
// logged rather than fatal; the server stays up either way
func (t *twill) autoExecute() {
	res, err := t.engine.Execute(context.Background(), nil)
	if err != nil {
		slog.Error("Auto-execute failed", log.Error(err))
		return
	}
	slog.Info("Auto-execute completed",
		log.RunID(res.RunID),
		slog.Bool("success", res.Success))
}

func (t *twill) startServer() {
	gin.SetMode(gin.ReleaseMode)

	t.apiServer = server.NewServer(t.engine, t.hub, t.cfg)
	t.apiServer.SetReload(t.watcher.ForceReload)
	router := t.apiServer.SetupRoutes()

	t.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", t.cfg.APIHost, t.cfg.APIPort),
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", t.httpServer.Addr))
		err := t.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (t *twill) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), t.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := t.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	t.apiServer.CloseWebSockets()
	t.watcher.Stop()

	slog.Info("Server exited")
}
