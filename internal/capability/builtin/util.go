package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/kode4food/twill/pkg/api"
)

type (
	// Echo returns its resolved parameters as outputs
	Echo struct{}

	// Delay sleeps for the given duration, honoring cancellation
	Delay struct{}
)

func NewEcho() *Echo {
	return &Echo{}
}

func (e *Echo) Describe() *api.Schema {
	return &api.Schema{
		Name:        TypeEcho,
		Version:     Version,
		Description: "Returns its parameters as outputs",
	}
}

func (e *Echo) Execute(
	_ context.Context, input api.Args,
) (*api.StepResult, error) {
	return api.NewResult().WithOutputs(input.Copy()), nil
}

func NewDelay() *Delay {
	return &Delay{}
}

func (d *Delay) Describe() *api.Schema {
	return &api.Schema{
		Name:        TypeDelay,
		Version:     Version,
		Description: "Waits for a duration before completing",
		Suspending:  true,
		Params: api.ParamSpecs{
			"duration": {
				Role:        api.RoleRequired,
				Type:        api.TypeAny,
				Description: "How long to wait",
			},
		},
		Outputs: api.OutputSpecs{
			"waited": {Type: api.TypeString, Description: "Elapsed wait"},
		},
	}
}

func (d *Delay) Execute(
	ctx context.Context, input api.Args,
) (*api.StepResult, error) {
	duration := input.GetDuration("duration", 0)
	if duration <= 0 {
		return nil, fmt.Errorf("%w: duration", ErrMissingParameter)
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return api.NewResult().WithOutput("waited", duration.String()), nil
}

var (
	_ api.Capability = (*Echo)(nil)
	_ api.Capability = (*Delay)(nil)
)
