package services

import (
	"context"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/maxaizer/scout-pipeline/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"testing"
)

func newPositionService(t *testing.T) (*repositories.DbContext, *PositionService) {
	dbCtx := newTestDb(t)
	return dbCtx, NewPositionService(
		repositories.NewPositionsRepository(dbCtx.DB),
		repositories.NewRunsRepository(dbCtx.DB),
		repositories.NewPositionCandidatesRepository(dbCtx.DB),
	)
}

func Test_SelectPosition_WhenSwitching_ShouldResetDerivedState(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	dbCtx, service := newPositionService(t)
	first := seedPosition(t, dbCtx, "")
	second := seedPosition(t, dbCtx, "")
	_, err := repositories.NewRunsRepository(dbCtx.DB).Create(ctx, second.ID, "previous jd", "")
	require.NoError(t, err)

	pc := PipelineContext{
		PositionID:     first.ID,
		JobDescription: "jd",
		RunID:          3,
		Extracted:      &KeywordResult{Keywords: []string{"Go"}},
		Selection:      map[string]SelectionState{"A": {Selected: true}},
	}

	next, err := service.SelectPosition(ctx, pc, second.ID)

	require.NoError(t, err)
	assert.Equal(PipelineContext{PositionID: second.ID, JobDescription: "previous jd"}, next)
}

func Test_SelectPosition_WhenSamePosition_ShouldKeepContext(t *testing.T) {
	dbCtx, service := newPositionService(t)
	position := seedPosition(t, dbCtx, "")
	pc := PipelineContext{PositionID: position.ID, RunID: 3}

	next, err := service.SelectPosition(context.Background(), pc, position.ID)

	require.NoError(t, err)
	assert.Equal(t, 3, next.RunID)
}

func Test_SelectPosition_WhenMissing_ShouldFail(t *testing.T) {
	_, service := newPositionService(t)

	_, err := service.SelectPosition(context.Background(), PipelineContext{}, 404)

	assert.ErrorIs(t, err, ErrPositionNotFound)
}

func Test_Details_ShouldIncludeFunnel(t *testing.T) {
	assert := assert.New(t)
	dbCtx, service := newPositionService(t)
	position := seedPosition(t, dbCtx, "")
	seedCandidate(t, dbCtx, "A", "3년", "서울")
	seedCandidate(t, dbCtx, "B", "3년", "서울")
	seedFunnel(t, dbCtx, position.ID, entities.StatusExtracted, "A")
	seedFunnel(t, dbCtx, position.ID, entities.StatusSent, "B")

	details, err := service.Details(context.Background(), position.ID)

	require.NoError(t, err)
	assert.Equal(int64(1), details.Funnel[entities.StatusExtracted])
	assert.Equal(int64(1), details.Funnel[entities.StatusSent])
}

func Test_UpdateScoutURL_WhenNotUrl_ShouldFail(t *testing.T) {
	dbCtx, service := newPositionService(t)
	position := seedPosition(t, dbCtx, "")

	err := service.UpdateScoutURL(context.Background(), position.ID, "not a url")

	assert.Error(t, err)
}

type mockScraper struct {
	mock.Mock
}

func (m *mockScraper) RequestScraping(ctx context.Context, platform string) error {
	return m.Called(platform).Error(0)
}

func Test_ScrapingService_ShouldRequestAndReportQueue(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	dbCtx := newTestDb(t)
	require.NoError(t, dbCtx.DB.Create(&entities.ScrapingTask{URL: "https://example.com/1", Platform: "saramin"}).Error)
	scraper := &mockScraper{}
	scraper.On("RequestScraping", "saramin").Return(nil)
	service := NewScrapingService(scraper, repositories.NewScrapingTasksRepository(dbCtx.DB))

	require.NoError(t, service.RequestScraping(ctx, "saramin"))
	status, err := service.Status(ctx)

	require.NoError(t, err)
	assert.Equal(int64(1), status.Pending)
	assert.Len(status.Recent, 1)
	scraper.AssertExpectations(t)
}
