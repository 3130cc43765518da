package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kode4food/twill/internal/archive"
	"github.com/kode4food/twill/internal/assert"
	"github.com/kode4food/twill/internal/assert/helpers"
	"github.com/kode4food/twill/internal/engine"
	"github.com/kode4food/twill/pkg/api"

	_ "gocloud.dev/blob/memblob"
)

func TestCompletedRunIsArchived(t *testing.T) {
	as := assert.New(t)
	ctx := context.Background()
	env := helpers.NewTestEnv(t)

	st, err := archive.New(ctx, "mem://", "runs/")
	as.Require.NoError(err)
	t.Cleanup(func() { _ = st.Close() })
	env.Engine.SetArchive(st)

	seed := env.MockStep(t, "mock.seed")
	seed.SetResult(api.Args{"value": "done"})
	env.Engine.SetFlow(helpers.NewFlow("archived",
		helpers.NewStep("start", "mock.seed", nil)))

	res, err := env.Engine.Execute(ctx, nil)
	as.Require.NoError(err)

	got, err := st.Get(ctx, res.RunID)
	as.Require.NoError(err)
	as.Equal(res.RunID, got.RunID)
	as.Equal("archived", got.Flow)
	as.True(got.Success)
}

func TestFailedRunIsArchived(t *testing.T) {
	as := assert.New(t)
	ctx := context.Background()
	env := helpers.NewTestEnv(t)

	st, err := archive.New(ctx, "mem://", "runs/")
	as.Require.NoError(err)
	t.Cleanup(func() { _ = st.Close() })
	env.Engine.SetArchive(st)

	seed := env.MockStep(t, "mock.seed")
	seed.SetError(errors.New("boom"))
	env.Engine.SetFlow(helpers.NewFlow("doomed",
		helpers.NewStep("start", "mock.seed", nil)))

	res, err := env.Engine.Execute(ctx, nil)
	as.Require.NoError(err)
	as.False(res.Success)

	got, err := st.Get(ctx, res.RunID)
	as.Require.NoError(err)
	as.False(got.Success)
	as.StepFailed(got, "start")
}

func TestLookupRunFallsBackToArchive(t *testing.T) {
	as := assert.New(t)
	ctx := context.Background()
	env := helpers.NewTestEnv(t)

	st, err := archive.New(ctx, "mem://", "runs/")
	as.Require.NoError(err)
	t.Cleanup(func() { _ = st.Close() })
	env.Engine.SetArchive(st)

	// a run the engine never executed, as after a restart
	cold := &api.RunResult{
		StartedAt:   time.Now().UTC(),
		CompletedAt: time.Now().UTC(),
		Flow:        "previous-life",
		RunID:       "cold-run",
		Success:     true,
	}
	as.Require.NoError(st.Put(ctx, cold))

	got, err := env.Engine.LookupRun(ctx, "cold-run")
	as.Require.NoError(err)
	as.Equal(api.RunID("cold-run"), got.RunID)
	as.Equal("previous-life", got.Flow)

	_, err = env.Engine.LookupRun(ctx, "ghost")
	as.ErrorIs(err, engine.ErrRunNotFound)
}

func TestLookupRunWithoutArchive(t *testing.T) {
	as := assert.New(t)
	ctx := context.Background()
	env := helpers.NewTestEnv(t)

	seed := env.MockStep(t, "mock.seed")
	seed.SetResult(api.Args{"value": "done"})
	env.Engine.SetFlow(helpers.NewFlow("local",
		helpers.NewStep("start", "mock.seed", nil)))

	res, err := env.Engine.Execute(ctx, nil)
	as.Require.NoError(err)

	got, err := env.Engine.LookupRun(ctx, res.RunID)
	as.Require.NoError(err)
	as.Same(res, got)

	_, err = env.Engine.LookupRun(ctx, "ghost")
	as.ErrorIs(err, engine.ErrRunNotFound)
}
