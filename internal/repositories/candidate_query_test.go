package repositories

import (
	"context"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

const filterQuery = `SELECT source_key, location,
	((CASE WHEN my_skills LIKE '%golang%' THEN 1 ELSE 0 END) +
	 (CASE WHEN my_skills LIKE '%postgresql%' THEN 1 ELSE 0 END)) AS keyword_match_count
FROM candidates
WHERE (work_year LIKE '%4년%') AND (location LIKE '%서울%')
ORDER BY keyword_match_count DESC
LIMIT 20`

func Test_CandidateQuery_WhenRowsFound_ShouldUpsertExtractedAndComplete(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	dbCtx := newTestDb(t)
	position := seedPosition(t, dbCtx)
	seedCandidates(t, dbCtx, "A", "B")
	run, err := NewRunsRepository(dbCtx.DB).Create(ctx, position.ID, "jd", "")
	require.NoError(t, err)

	result, err := NewCandidateQuery(dbCtx.DB).ExecuteAndPersist(ctx, filterQuery, run.ID, position.ID)
	require.NoError(t, err)

	assert.Equal([]string{"source_key", "location", "keyword_match_count"}, result.Columns)
	assert.ElementsMatch([]string{"A", "B"}, result.Keys())
	require.NotNil(t, result.Rows[0].MatchCount)
	assert.Equal(2, *result.Rows[0].MatchCount)

	pcs, err := NewPositionCandidatesRepository(dbCtx.DB).ListByStatus(ctx, position.ID, entities.StatusExtracted)
	require.NoError(t, err)
	assert.Len(pcs, 2)
	assert.NotNil(pcs[0].Candidate)

	stored, err := NewRunsRepository(dbCtx.DB).Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(entities.RunCompleted, stored.Status)
	assert.Equal(2, stored.FilteredCount)
	assert.NotNil(stored.CompletedAt)
}

func Test_CandidateQuery_WhenNoRows_ShouldCompleteWithZero(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDb(t)
	position := seedPosition(t, dbCtx)
	run, err := NewRunsRepository(dbCtx.DB).Create(ctx, position.ID, "jd", "")
	require.NoError(t, err)

	result, err := NewCandidateQuery(dbCtx.DB).ExecuteAndPersist(ctx, filterQuery, run.ID, position.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Rows)

	stored, err := NewRunsRepository(dbCtx.DB).Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.RunCompleted, stored.Status)
	assert.Equal(t, 0, stored.FilteredCount)
}

func Test_CandidateQuery_WhenCandidateAlreadySent_ShouldNotRegressStatus(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	dbCtx := newTestDb(t)
	position := seedPosition(t, dbCtx)
	seedCandidates(t, dbCtx, "A", "B")
	pcs := NewPositionCandidatesRepository(dbCtx.DB)

	require.NoError(t, pcs.Upsert(ctx, position.ID, []string{"A"}))
	sent, err := pcs.Get(ctx, position.ID, "A")
	require.NoError(t, err)
	_, err = pcs.MarkSent(ctx, sent.ID, nil)
	require.NoError(t, err)

	run, err := NewRunsRepository(dbCtx.DB).Create(ctx, position.ID, "jd", "")
	require.NoError(t, err)
	_, err = NewCandidateQuery(dbCtx.DB).ExecuteAndPersist(ctx, filterQuery, run.ID, position.ID)
	require.NoError(t, err)

	a, err := pcs.Get(ctx, position.ID, "A")
	require.NoError(t, err)
	assert.Equal(entities.StatusSent, a.ScoutStatus)
	assert.True(a.LastCheckedAt.After(sent.LastCheckedAt) || a.LastCheckedAt.Equal(sent.LastCheckedAt))

	b, err := pcs.Get(ctx, position.ID, "B")
	require.NoError(t, err)
	assert.Equal(entities.StatusExtracted, b.ScoutStatus)
}

func Test_CandidateQuery_WhenQueryFails_ShouldLeaveNoWrites(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	dbCtx := newTestDb(t)
	position := seedPosition(t, dbCtx)
	seedCandidates(t, dbCtx, "A")
	run, err := NewRunsRepository(dbCtx.DB).Create(ctx, position.ID, "jd", "")
	require.NoError(t, err)

	_, err = NewCandidateQuery(dbCtx.DB).ExecuteAndPersist(ctx, "SELEC source_key FROM nowhere", run.ID, position.ID)
	assert.Error(err)

	stored, err := NewRunsRepository(dbCtx.DB).Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(entities.RunInProgress, stored.Status)

	pcs, err := NewPositionCandidatesRepository(dbCtx.DB).ListByStatus(ctx, position.ID)
	require.NoError(t, err)
	assert.Empty(pcs)
}

func Test_CandidateQuery_WhenKeyColumnMissing_ShouldRollback(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDb(t)
	position := seedPosition(t, dbCtx)
	seedCandidates(t, dbCtx, "A")
	run, err := NewRunsRepository(dbCtx.DB).Create(ctx, position.ID, "jd", "")
	require.NoError(t, err)

	_, err = NewCandidateQuery(dbCtx.DB).ExecuteAndPersist(ctx, "SELECT location FROM candidates", run.ID, position.ID)
	assert.ErrorIs(t, err, ErrMissingCandidateKey)

	stored, err := NewRunsRepository(dbCtx.DB).Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.RunInProgress, stored.Status)
}

func Test_CandidateQuery_WhenRunMissing_ShouldRollbackUpserts(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDb(t)
	position := seedPosition(t, dbCtx)
	seedCandidates(t, dbCtx, "A")

	_, err := NewCandidateQuery(dbCtx.DB).ExecuteAndPersist(ctx, filterQuery, 999, position.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)

	pcs, err := NewPositionCandidatesRepository(dbCtx.DB).ListByStatus(ctx, position.ID)
	require.NoError(t, err)
	assert.Empty(t, pcs)
}
