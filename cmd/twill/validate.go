package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kode4food/twill/internal/engine"
	"github.com/kode4food/twill/internal/engine/plan"
	"github.com/kode4food/twill/internal/flow"
)

var validateCmd = &cobra.Command{
	Use:   "validate <flow.yaml>",
	Short: "Check a flow file without executing it",
	Long: `Parse the flow, build its execution plan, and check every
step's capability type against the registry. Findings such as reference
cycles or unknown capabilities are reported without running anything.`,
	Args: cobra.ExactArgs(1),
	RunE: validateFlow,
}

// ErrFlowInvalid signals a flow file that parsed but failed validation
var ErrFlowInvalid = errors.New("flow invalid")

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateFlow(_ *cobra.Command, args []string) error {
	t, err := newTwill()
	if err != nil {
		return err
	}
	defer t.close()

	def, err := flow.Load(args[0])
	if err != nil {
		return err
	}

	var findings []string
	if _, err := plan.Create(def); err != nil {
		findings = append(findings, err.Error())
	}
	for _, s := range def.Steps {
		if !t.registry.Has(s.Type) {
			findings = append(findings, fmt.Sprintf(
				"step %s: unknown capability: %s", s.ID, s.Type,
			))
		}
	}

	if len(findings) > 0 {
		for _, f := range findings {
			fmt.Fprintln(os.Stderr, f)
		}
		return fmt.Errorf("%w: %s: %d findings",
			ErrFlowInvalid, args[0], len(findings))
	}

	fmt.Printf("%s: valid, %d steps, %s mode\n",
		def.Name, len(def.Steps), engine.DecideMode(def))
	return nil
}
