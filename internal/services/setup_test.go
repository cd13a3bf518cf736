package services

import (
	"context"
	"github.com/maxaizer/scout-pipeline/internal/config"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/maxaizer/scout-pipeline/internal/repositories"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"testing"
)

type mockCompletion struct {
	mock.Mock
}

func (m *mockCompletion) Complete(ctx context.Context, systemInstruction string, prompt string) (string, error) {
	args := m.Called(ctx, systemInstruction, prompt)
	return args.String(0), args.Error(1)
}

type noTemplates struct{}

func (noTemplates) GetLatest(ctx context.Context, step entities.StepName) (*entities.PromptTemplate, error) {
	return nil, nil
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, candidate entities.Candidate, message entities.ScoutMessage) bool {
	return m.Called(candidate.SourceKey).Bool(0)
}

func newTestDb(t *testing.T) *repositories.DbContext {
	t.Helper()

	dbCtx, err := repositories.NewDbContext(config.DBConfig{
		Driver:           config.DriverSqlite,
		ConnectionString: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, dbCtx.Migrate())

	t.Cleanup(func() { _ = dbCtx.Close() })
	return dbCtx
}

func ptr(s string) *string {
	return &s
}

func seedPosition(t *testing.T, dbCtx *repositories.DbContext, scoutURL string) entities.Position {
	position := entities.Position{PoolName: "Backend", CompanyName: "Acme", Demand: "1", ScoutURL: scoutURL}
	require.NoError(t, dbCtx.DB.Create(&position).Error)
	return position
}

func seedCandidate(t *testing.T, dbCtx *repositories.DbContext, key, workYear, location string) {
	candidate := entities.Candidate{
		SourceKey: key,
		Name:      ptr("Candidate " + key),
		WorkYear:  ptr(workYear),
		Location:  ptr(location),
		MySkills:  ptr("golang,postgresql,kubernetes"),
		LoginDt:   ptr("2024-05-01"),
		PageURL:   ptr("https://example.com/resume/" + key),
	}
	require.NoError(t, dbCtx.DB.Create(&candidate).Error)
}

// seedFunnel maps the keys to the position with the given status.
func seedFunnel(t *testing.T, dbCtx *repositories.DbContext, positionID int, status entities.ScoutStatus, keys ...string) {
	ctx := context.Background()
	repo := repositories.NewPositionCandidatesRepository(dbCtx.DB)
	require.NoError(t, repo.Upsert(ctx, positionID, keys))
	if status == entities.StatusExtracted {
		return
	}
	for _, key := range keys {
		row, err := repo.Get(ctx, positionID, key)
		require.NoError(t, err)
		require.NoError(t, repo.SetStatus(ctx, row.ID, status, nil))
	}
}

func statusOf(t *testing.T, dbCtx *repositories.DbContext, positionID int, key string) entities.ScoutStatus {
	row, err := repositories.NewPositionCandidatesRepository(dbCtx.DB).Get(context.Background(), positionID, key)
	require.NoError(t, err)
	require.NotNil(t, row)
	return row.ScoutStatus
}
