package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kode4food/twill/internal/watch"
	"github.com/kode4food/twill/pkg/api"
	"github.com/kode4food/twill/pkg/log"
)

var (
	runInputs []string
	runWatch  bool
)

var runCmd = &cobra.Command{
	Use:   "run <flow.yaml>",
	Short: "Execute a flow once and print its result",
	Long: `Execute the flow from its start step, print the run result as
JSON, and exit non-zero when the run fails. With --watch the process
stays alive, re-parsing and re-running the flow whenever the file's
content changes.`,
	Args: cobra.ExactArgs(1),
	RunE: runFlow,
}

// ErrRunFailed signals a completed run whose outcome was failure
var ErrRunFailed = errors.New("run failed")

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringArrayVarP(&runInputs, "input", "i", nil,
		"initial input for the entry step, name=value (repeatable)")
	runCmd.Flags().BoolVarP(&runWatch, "watch", "w", false,
		"stay alive and re-run the flow when its file changes")
}

func runFlow(_ *cobra.Command, args []string) error {
	t, err := newTwill()
	if err != nil {
		return err
	}
	defer t.close()

	if err := t.openArchive(); err != nil {
		return err
	}
	if _, err := t.loadFlow(args[0]); err != nil {
		return err
	}

	init, err := parseArgPairs(runInputs)
	if err != nil {
		return err
	}
	return t.runOnce(init, runWatch)
}

// runOnce executes the loaded flow with the given initial input. With
// watching enabled the process then stays alive until interrupted,
// re-running the flow after every accepted reload
func (t *twill) runOnce(init api.Args, watchFile bool) error {
	res, err := t.engine.Execute(context.Background(), init)
	if err != nil {
		return err
	}
	if err := printJSON(res); err != nil {
		return err
	}

	if !watchFile {
		if !res.Success {
			return ErrRunFailed
		}
		return nil
	}

	t.watchAndRerun(init)

	signal.Notify(t.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(t.quit)
	<-t.quit

	t.watcher.Stop()
	return nil
}

func (t *twill) watchAndRerun(init api.Args) {
	t.watcher = watch.New(
		t.cfg.FlowPath, t.cfg.WatchInterval, t.cfg.DebounceInterval,
	)
	t.watcher.OnReload(func(ch *watch.Change) {
		if !t.reloadFlow(ch) {
			return
		}
		res, err := t.engine.Execute(context.Background(), init)
		if err != nil {
			slog.Error("Run failed", log.Error(err))
			return
		}
		if err := printJSON(res); err != nil {
			slog.Error("Failed to print run result", log.Error(err))
		}
	})
	t.watcher.Start()
	slog.Info("Watching flow", log.Path(t.cfg.FlowPath))
}
