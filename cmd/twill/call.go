package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kode4food/twill/internal/profile"
	"github.com/kode4food/twill/pkg/api"
)

var (
	callParams      []string
	callProfilePath string
)

var callCmd = &cobra.Command{
	Use:   "call <type> <operation>",
	Short: "Invoke one capability operation outside any flow",
	Long: `Invoke a capability operation directly. The credential profile
gates the call: the type must be authenticated, the operation listed in
its catalog, and its required parameters present after profile defaults
and resolved credentials are layered under the command line parameters.
The structured result prints as JSON either way.`,
	Args: cobra.ExactArgs(2),
	RunE: callCapability,
}

// ErrCallFailed signals a call whose structured result reports an error
var ErrCallFailed = errors.New("call failed")

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.Flags().StringArrayVarP(&callParams, "param", "P", nil,
		"call parameter, name=value (repeatable)")
	callCmd.Flags().StringVar(&callProfilePath, "profile", "",
		"credential profile path (overrides TWILL_PROFILE_PATH)")
}

func callCapability(_ *cobra.Command, args []string) error {
	t, err := newTwill()
	if err != nil {
		return err
	}
	defer t.close()

	if callProfilePath != "" {
		t.cfg.ProfilePath = callProfilePath
	}
	prof, err := profile.LoadOrNew(t.cfg.ProfilePath)
	if err != nil {
		return err
	}

	params, err := parseArgPairs(callParams)
	if err != nil {
		return err
	}

	res := t.engine.ExecuteCall(context.Background(), prof,
		&api.CallRequest{
			Params:    params,
			Type:      args[0],
			Operation: args[1],
		})
	if err := printJSON(res); err != nil {
		return err
	}
	if res.Status == api.ResultError {
		return fmt.Errorf("%w: %s.%s: %s",
			ErrCallFailed, res.Type, res.Operation, res.Error)
	}
	return nil
}
