package repositories

import (
	"context"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func Test_Runs_AppendStepResult_ShouldNumberFromOneAndLatestWins(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	dbCtx := newTestDb(t)
	runs := NewRunsRepository(dbCtx.DB)

	position := seedPosition(t, dbCtx)
	run, err := runs.Create(ctx, position.ID, "백엔드 개발자", "")
	require.NoError(t, err)
	assert.Equal(entities.RunInProgress, run.Status)

	steps := []struct {
		name     entities.StepName
		keywords []string
	}{
		{entities.StepKeywordExtraction, []string{"go"}},
		{entities.StepKeywordRefinement, []string{"backend"}},
		{entities.StepKeywordExtraction, []string{"golang", "grpc"}},
	}

	for i, step := range steps {
		result, err := entities.NewStepResult(run.ID, step.name, entities.KeywordsPayload{Keywords: step.keywords})
		require.NoError(t, err)
		number, err := runs.AppendStepResult(ctx, result)
		require.NoError(t, err)
		assert.Equal(i+1, number)
	}

	latest, err := runs.LatestStepResult(ctx, run.ID, entities.StepKeywordExtraction)
	require.NoError(t, err)
	assert.Equal(3, latest.StepNumber)

	var payload entities.KeywordsPayload
	require.NoError(t, latest.Decode(&payload))
	assert.Equal([]string{"golang", "grpc"}, payload.Keywords)

	all, err := runs.StepResults(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(all, 3)

	missing, err := runs.LatestStepResult(ctx, run.ID, entities.StepFinalQuery)
	assert.NoError(err)
	assert.Nil(missing)
}

func Test_Runs_AppendStepResult_WhenRunMissing_ShouldFail(t *testing.T) {
	runs := NewRunsRepository(newTestDb(t).DB)

	result, err := entities.NewStepResult(42, entities.StepFinalQuery, entities.QueryPayload{Query: "SELECT 1"})
	require.NoError(t, err)

	_, err = runs.AppendStepResult(context.Background(), result)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func Test_Runs_StepNumbers_ShouldBeScopedToRun(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDb(t)
	runs := NewRunsRepository(dbCtx.DB)
	position := seedPosition(t, dbCtx)

	first, err := runs.Create(ctx, position.ID, "jd 1", "")
	require.NoError(t, err)
	second, err := runs.Create(ctx, position.ID, "jd 2", "")
	require.NoError(t, err)

	for _, runID := range []int{first.ID, first.ID, second.ID} {
		result, err := entities.NewStepResult(runID, entities.StepPrompts, entities.PromptsPayload{})
		require.NoError(t, err)
		_, err = runs.AppendStepResult(ctx, result)
		require.NoError(t, err)
	}

	latest, err := runs.LatestStepResult(ctx, second.ID, entities.StepPrompts)
	require.NoError(t, err)
	assert.Equal(t, 1, latest.StepNumber)

	jd, err := runs.LatestJobDescription(ctx, position.ID)
	require.NoError(t, err)
	assert.Equal(t, "jd 2", jd)
}

func Test_Runs_MarkFailed_WhenCompleted_ShouldKeepStatus(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDb(t)
	runs := NewRunsRepository(dbCtx.DB)
	position := seedPosition(t, dbCtx)

	run, err := runs.Create(ctx, position.ID, "jd", "")
	require.NoError(t, err)
	require.NoError(t, markCompleted(dbCtx.DB, run.ID, 3))
	require.NoError(t, runs.MarkFailed(ctx, run.ID))

	stored, err := runs.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.RunCompleted, stored.Status)
	assert.Equal(t, 3, stored.FilteredCount)
}
