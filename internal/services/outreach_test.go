package services

import (
	"context"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/maxaizer/scout-pipeline/internal/events"
	"github.com/maxaizer/scout-pipeline/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

type outreachFixture struct {
	dbCtx      *repositories.DbContext
	sender     *mockSender
	service    *OutreachService
	candidates *repositories.PositionCandidates
	bus        EventBus.Bus
	pc         PipelineContext
}

func newOutreachFixture(t *testing.T) outreachFixture {
	dbCtx := newTestDb(t)
	position := seedPosition(t, dbCtx, "")
	for _, key := range []string{"A", "B", "C"} {
		seedCandidate(t, dbCtx, key, "3년", "서울")
	}

	run, err := repositories.NewRunsRepository(dbCtx.DB).Create(context.Background(), position.ID, "jd", "")
	require.NoError(t, err)

	sender := &mockSender{}
	bus := EventBus.New()
	candidates := repositories.NewPositionCandidatesRepository(dbCtx.DB)
	service := NewOutreachService(repositories.NewScoutMessagesRepository(dbCtx.DB), candidates, sender, bus, 0)

	pc := PipelineContext{}.WithPosition(position.ID, "jd")
	pc.RunID = run.ID
	return outreachFixture{dbCtx: dbCtx, sender: sender, service: service, candidates: candidates, bus: bus, pc: pc}
}

func (f outreachFixture) compose(t *testing.T) PipelineContext {
	pc, err := f.service.ComposeMessage(context.Background(), f.pc, "제안드립니다", "백엔드 포지션 제안입니다.", time.Time{})
	require.NoError(t, err)
	return pc
}

func (f outreachFixture) historyOf(t *testing.T, key string) []entities.ScoutHistory {
	row, err := f.candidates.Get(context.Background(), f.pc.PositionID, key)
	require.NoError(t, err)
	history, err := f.candidates.History(context.Background(), row.ID)
	require.NoError(t, err)
	return history
}

func Test_ComposeMessage_WhenNoExpiry_ShouldDefaultToAWeek(t *testing.T) {
	assert := assert.New(t)
	f := newOutreachFixture(t)

	pc := f.compose(t)

	require.NotNil(t, pc.Message)
	assert.NotZero(pc.Message.ID)
	assert.Equal(pc.RunID, pc.Message.RunID)
	assert.WithinDuration(time.Now().Add(7*24*time.Hour), pc.Message.ValidUntil, time.Minute)
}

func Test_ComposeMessage_WhenExpiryTooFar_ShouldFail(t *testing.T) {
	f := newOutreachFixture(t)

	_, err := f.service.ComposeMessage(context.Background(), f.pc, "title", "body", time.Now().AddDate(0, 0, 31))

	assert.ErrorIs(t, err, ErrInvalidExpiry)
}

func Test_ComposeMessage_WhenTitleMissing_ShouldFail(t *testing.T) {
	f := newOutreachFixture(t)

	_, err := f.service.ComposeMessage(context.Background(), f.pc, " ", "body", time.Time{})

	assert.Error(t, err)
}

func Test_ComposeMessage_WhenRecomposed_ShouldKeepSingleMessage(t *testing.T) {
	assert := assert.New(t)
	f := newOutreachFixture(t)
	first := f.compose(t)

	second, err := f.service.ComposeMessage(context.Background(), f.pc, "new title", "new body", time.Time{})

	require.NoError(t, err)
	assert.Equal(first.Message.ID, second.Message.ID)
	assert.Equal("new title", second.Message.Title)
}

func Test_ComposeMessage_WhenAlreadySent_ShouldBeLocked(t *testing.T) {
	ctx := context.Background()
	f := newOutreachFixture(t)
	seedFunnel(t, f.dbCtx, f.pc.PositionID, entities.StatusExtracted, "A")
	pc := f.compose(t)
	require.NoError(t, f.service.MarkSentManually(ctx, pc, nil, "A"))

	_, err := f.service.ComposeMessage(ctx, pc, "edited", "edited", time.Time{})

	assert.ErrorIs(t, err, ErrMessageLocked)
}

func Test_StartDelivery_WhenCandidateAlreadySent_ShouldNotResend(t *testing.T) {
	assert := assert.New(t)
	f := newOutreachFixture(t)
	seedFunnel(t, f.dbCtx, f.pc.PositionID, entities.StatusExtracted, "A", "B")
	seedFunnel(t, f.dbCtx, f.pc.PositionID, entities.StatusSent, "C")
	pc := f.compose(t)
	f.sender.On("Send", mock.Anything).Return(true)
	var progress [][2]int

	job, err := f.service.StartDelivery(context.Background(), pc, 7, func(completed, total int) {
		progress = append(progress, [2]int{completed, total})
	})

	require.NoError(t, err)
	assert.Equal(2, job.SuccessCount)
	assert.Empty(job.Failed)
	assert.Equal([][2]int{{1, 2}, {2, 2}}, progress)
	f.sender.AssertNumberOfCalls(t, "Send", 2)
	f.sender.AssertNotCalled(t, "Send", "C")
	assert.Len(f.historyOf(t, "C"), 1)
	assert.Equal(entities.StatusSent, statusOf(t, f.dbCtx, pc.PositionID, "A"))

	_, err = f.service.StartDelivery(context.Background(), pc, 7, nil)
	assert.ErrorIs(err, ErrNoSelection)
	f.sender.AssertNumberOfCalls(t, "Send", 2)
	assert.Len(f.historyOf(t, "A"), 1)
}

func Test_RetryFailed_ShouldOnlyTargetFailuresAndAccumulate(t *testing.T) {
	assert := assert.New(t)
	f := newOutreachFixture(t)
	seedFunnel(t, f.dbCtx, f.pc.PositionID, entities.StatusExtracted, "A", "B")
	pc := f.compose(t)
	f.sender.On("Send", "A").Return(true)
	f.sender.On("Send", "B").Return(false).Once()
	var failed []events.DeliveryFailed
	require.NoError(t, f.bus.Subscribe(events.DeliveryFailedTopic, func(e events.DeliveryFailed) { failed = append(failed, e) }))

	job, err := f.service.StartDelivery(context.Background(), pc, 7, nil)
	require.NoError(t, err)
	assert.Equal(1, job.SuccessCount)
	assert.Equal([]string{"B"}, job.Failed)
	require.Len(t, failed, 1)
	assert.Equal(job.ID, failed[0].JobID)
	assert.Equal(entities.StatusExtracted, statusOf(t, f.dbCtx, pc.PositionID, "B"))

	f.sender.On("Send", "B").Return(true).Once()
	require.NoError(t, f.service.RetryFailed(context.Background(), job, nil))

	assert.Equal(2, job.SuccessCount)
	assert.Empty(job.Failed)
	assert.Equal(1, job.Total)
	f.sender.AssertNumberOfCalls(t, "Send", 3)
	assert.Equal(entities.StatusSent, statusOf(t, f.dbCtx, pc.PositionID, "B"))
}

func Test_StartDelivery_WhenCancelled_ShouldLeaveRemainingRetryable(t *testing.T) {
	assert := assert.New(t)
	f := newOutreachFixture(t)
	seedFunnel(t, f.dbCtx, f.pc.PositionID, entities.StatusExtracted, "A", "B")
	pc := f.compose(t)
	f.sender.On("Send", mock.Anything).Return(true)
	var finished events.OutreachFinished
	require.NoError(t, f.bus.Subscribe(events.OutreachFinishedTopic, func(e events.OutreachFinished) { finished = e }))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job, err := f.service.StartDelivery(ctx, pc, 7, func(completed, total int) { cancel() })

	require.NoError(t, err)
	assert.True(job.Cancelled)
	assert.Equal(1, job.SuccessCount)
	assert.Equal([]string{"B"}, job.Failed)
	assert.True(finished.Cancelled)
	assert.Equal([]string{"B"}, finished.Failed)
	f.sender.AssertNumberOfCalls(t, "Send", 1)
	assert.Equal(entities.StatusExtracted, statusOf(t, f.dbCtx, pc.PositionID, "B"))
}

func Test_StartDelivery_WhenNoMessage_ShouldFail(t *testing.T) {
	f := newOutreachFixture(t)

	_, err := f.service.StartDelivery(context.Background(), f.pc, 7, nil)

	assert.ErrorIs(t, err, ErrNoMessage)
}

func Test_MarkSentManually_ShouldTransitionOnceAndClearFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	f := newOutreachFixture(t)
	seedFunnel(t, f.dbCtx, f.pc.PositionID, entities.StatusExtracted, "A")
	pc := f.compose(t)
	job := &DeliveryJob{PositionID: pc.PositionID, Failed: []string{"A"}}

	require.NoError(t, f.service.MarkSentManually(ctx, pc, job, "A"))
	require.NoError(t, f.service.MarkSentManually(ctx, pc, job, "A"))

	assert.Equal(1, job.SuccessCount)
	assert.Empty(job.Failed)
	history := f.historyOf(t, "A")
	require.Len(t, history, 1)
	assert.Equal(pc.Message.ID, *history[0].MessageID)
	f.sender.AssertNotCalled(t, "Send", mock.Anything)
}

func Test_MarkSentManually_WhenNotMapped_ShouldFail(t *testing.T) {
	f := newOutreachFixture(t)

	err := f.service.MarkSentManually(context.Background(), f.pc, nil, "Z")

	assert.ErrorIs(t, err, ErrCandidateNotFound)
}
