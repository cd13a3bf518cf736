package bot

import (
	"context"
	"github.com/asaskevich/EventBus"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/maxaizer/scout-pipeline/internal/events"
	"github.com/maxaizer/scout-pipeline/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"sync"
	"testing"
	"time"
)

const testPassword = "s3cret"

type mockApi struct {
	mu           sync.Mutex
	SentMessages []botApi.MessageConfig
}

func (m *mockApi) Send(chattable botApi.Chattable) (botApi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := chattable.(botApi.MessageConfig); ok {
		m.SentMessages = append(m.SentMessages, msg)
	}
	return botApi.Message{}, nil
}

func (m *mockApi) lastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.SentMessages) == 0 {
		return ""
	}
	return m.SentMessages[len(m.SentMessages)-1].Text
}

func (m *mockApi) sentTo(chatID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var texts []string
	for _, msg := range m.SentMessages {
		if msg.ChatID == chatID {
			texts = append(texts, msg.Text)
		}
	}
	return texts
}

type memoryData struct {
	values map[string][]byte
}

func (m *memoryData) Save(_ context.Context, id string, data []byte) error {
	m.values[id] = data
	return nil
}

func (m *memoryData) LoadAndRemove(_ context.Context, id string) ([]byte, error) {
	data := m.values[id]
	delete(m.values, id)
	return data, nil
}

type mockOutreach struct {
	mock.Mock
}

func (m *mockOutreach) ComposeMessage(_ context.Context, pc services.PipelineContext, title, content string,
	validUntil time.Time) (services.PipelineContext, error) {
	args := m.Called(pc.PositionID, title, content)
	pc.Message = &entities.ScoutMessage{Title: title, Content: content, ValidUntil: validUntil}
	return pc, args.Error(0)
}

func (m *mockOutreach) StartDelivery(_ context.Context, _ services.PipelineContext, _ int64,
	_ services.ProgressFunc) (*services.DeliveryJob, error) {
	panic("implement me")
}

func (m *mockOutreach) RetryFailed(_ context.Context, _ *services.DeliveryJob, _ services.ProgressFunc) error {
	panic("implement me")
}

func (m *mockOutreach) MarkSentManually(_ context.Context, _ services.PipelineContext, _ *services.DeliveryJob, _ string) error {
	panic("implement me")
}

type mockResponses struct {
	mock.Mock
}

func (m *mockResponses) CheckPosition(_ context.Context, _ int, _ int64) (services.ResponseReport, error) {
	panic("implement me")
}

func (m *mockResponses) SetStatusManually(_ context.Context, positionID int, key string, status entities.ScoutStatus,
	contact *entities.ContactInfo) error {
	return m.Called(positionID, key, status, contact).Error(0)
}

func newTestBot(t *testing.T, api *mockApi, data *memoryData, svc Services) *Bot {
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	b, err := newBot(context.Background(), api, string(hash), EventBus.New(), svc, data)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func message(chatID int64, text string) *botApi.Message {
	return &botApi.Message{Text: text, Chat: &botApi.Chat{ID: chatID, Type: "private"}}
}

func simulateMessages(b *Bot, chatID int64, texts ...string) {
	for _, text := range texts {
		b.handleMessage(message(chatID, text))
	}
}

func Test_HandleMessage_WhenNotLoggedIn_ShouldRequireLogin(t *testing.T) {

	assert := assert.New(t)
	api := &mockApi{}
	b := newTestBot(t, api, &memoryData{values: map[string][]byte{}}, Services{})

	simulateMessages(b, 1, "/extract")

	assert.Contains(api.lastText(), "/login")
	assert.False(b.session(1).authenticated)
}

func Test_Login_WhenPasswordMatches_ShouldAuthenticate(t *testing.T) {

	assert := assert.New(t)
	api := &mockApi{}
	b := newTestBot(t, api, &memoryData{values: map[string][]byte{}}, Services{})

	simulateMessages(b, 1, "/login wrong")
	assert.False(b.session(1).authenticated)

	simulateMessages(b, 1, "/login "+testPassword)
	assert.True(b.session(1).authenticated)
	assert.Equal("로그인되었습니다.", api.lastText())
}

func Test_JobDescriptionCmd_WhenCompleted_ShouldStartNewRun(t *testing.T) {

	assert := assert.New(t)
	api := &mockApi{}
	b := newTestBot(t, api, &memoryData{values: map[string][]byte{}}, Services{})

	simulateMessages(b, 1, "/login "+testPassword)
	session := b.session(1)
	session.pipeline = services.PipelineContext{PositionID: 3, JobDescription: "old", RunID: 9}

	simulateMessages(b, 1, "/jd", "Go 백엔드 개발자", "-")

	assert.False(session.HasRunningCommand())
	assert.Equal(3, session.pipeline.PositionID)
	assert.Equal("Go 백엔드 개발자", session.pipeline.JobDescription)
	assert.Equal("", session.pipeline.AdditionalInfo)
	assert.Equal(0, session.pipeline.RunID)
}

func Test_MessageCmd_WhenExpiryOutOfRange_ShouldAskAgain(t *testing.T) {

	assert := assert.New(t)
	api := &mockApi{}
	outreach := &mockOutreach{}
	outreach.On("ComposeMessage", 3, "제안", "함께 일해요").Return(nil)
	b := newTestBot(t, api, &memoryData{values: map[string][]byte{}}, Services{Outreach: outreach})

	simulateMessages(b, 1, "/login "+testPassword)
	session := b.session(1)
	session.pipeline = services.PipelineContext{PositionID: 3, RunID: 5}

	simulateMessages(b, 1, "/message", "제안", "함께 일해요", "45")
	assert.Equal("0에서 30 사이의 숫자를 입력해 주세요.", api.lastText())
	assert.True(session.HasRunningCommand())
	outreach.AssertNotCalled(t, "ComposeMessage", mock.Anything, mock.Anything, mock.Anything)

	simulateMessages(b, 1, "7")
	outreach.AssertExpectations(t)
	assert.False(session.HasRunningCommand())
	if assert.NotNil(session.pipeline.Message) {
		assert.Equal("제안", session.pipeline.Message.Title)
	}
}

func Test_Cancel_WhenCommandRunning_ShouldReturnToMenu(t *testing.T) {

	assert := assert.New(t)
	api := &mockApi{}
	b := newTestBot(t, api, &memoryData{values: map[string][]byte{}}, Services{})

	simulateMessages(b, 1, "/login "+testPassword, "/edit_query")
	assert.True(b.session(1).HasRunningCommand())

	simulateMessages(b, 1, backToMenuCommandName)
	assert.False(b.session(1).HasRunningCommand())
	assert.Equal("메인 메뉴로 돌아왔습니다.", api.lastText())
}

func Test_UserContexts_WhenBotRestarted_ShouldResumeCommandWithoutAuthentication(t *testing.T) {

	assert := assert.New(t)
	data := &memoryData{values: map[string][]byte{}}
	b := newTestBot(t, &mockApi{}, data, Services{})

	simulateMessages(b, 1, "/login "+testPassword)
	b.session(1).pipeline = services.PipelineContext{PositionID: 3}
	simulateMessages(b, 1, "/jd", "새 JD")
	b.Stop()

	api := &mockApi{}
	restarted := newTestBot(t, api, data, Services{})
	assert.NoError(restarted.loadUserContexts())

	session := restarted.session(1)
	assert.False(session.authenticated)
	assert.True(session.HasRunningCommand())
	assert.Equal(3, session.pipeline.PositionID)

	simulateMessages(restarted, 1, "-")
	assert.Contains(api.lastText(), "/login")

	simulateMessages(restarted, 1, "/login "+testPassword, "-")
	assert.False(session.HasRunningCommand())
	assert.Equal("새 JD", session.pipeline.JobDescription)
}

func Test_OnResponsesChecked_WhenScheduled_ShouldNotifyOnlyOperators(t *testing.T) {

	assert := assert.New(t)
	api := &mockApi{}
	b := newTestBot(t, api, &memoryData{values: map[string][]byte{}}, Services{})

	simulateMessages(b, 1, "/login "+testPassword)
	simulateMessages(b, 2, "/help")

	b.bus.Publish(events.ResponsesCheckedTopic, events.ResponsesChecked{
		PositionID: 3,
		Updated:    map[entities.ScoutStatus]int{entities.StatusAccepted: 2},
	})

	operatorTexts := api.sentTo(1)
	assert.Contains(operatorTexts[len(operatorTexts)-1], "수락: 2")
	assert.Len(api.sentTo(2), 1)
}

func Test_OnOutreachProgress_ShouldReportEveryFifthAttempt(t *testing.T) {

	assert := assert.New(t)
	api := &mockApi{}
	b := newTestBot(t, api, &memoryData{values: map[string][]byte{}}, Services{})

	for completed := 1; completed <= 10; completed++ {
		b.bus.Publish(events.OutreachProgressTopic, events.OutreachProgress{ChatID: 1, Completed: completed, Total: 10})
	}

	assert.Equal([]string{"발송 진행 중: 5/10"}, api.sentTo(1))
}

func Test_ParseCommand(t *testing.T) {

	assert := assert.New(t)

	name, args := parseCommand("/mark_sent@scout_bot  cand-1 ")
	assert.Equal("mark_sent", name)
	assert.Equal("cand-1", args)

	name, args = parseCommand("/Status")
	assert.Equal("status", name)
	assert.Equal("", args)

	name, _ = parseCommand("그냥 텍스트")
	assert.Equal("", name)
}

func Test_SetStatus_WhenAcceptedWithContact_ShouldPassContact(t *testing.T) {

	assert := assert.New(t)
	api := &mockApi{}
	responses := &mockResponses{}
	contact := &entities.ContactInfo{Name: "김철수", Contact: "010-1234-5678"}
	responses.On("SetStatusManually", 3, "cand-1", entities.StatusAccepted, contact).Return(nil)
	responses.On("SetStatusManually", 3, "cand-2", entities.StatusAccepted, (*entities.ContactInfo)(nil)).
		Return(services.ErrContactNotCollected)
	b := newTestBot(t, api, &memoryData{values: map[string][]byte{}}, Services{Responses: responses})

	simulateMessages(b, 1, "/login "+testPassword)
	b.session(1).pipeline = services.PipelineContext{PositionID: 3}

	simulateMessages(b, 1, "/set_status cand-1 수락 김철수 010-1234-5678")
	assert.Equal("cand-1 상태를 수락(으)로 변경했습니다.", api.lastText())

	simulateMessages(b, 1, "/set_status cand-2 수락")
	assert.Contains(api.lastText(), "연락처를 가져오지 못했습니다")

	simulateMessages(b, 1, "/set_status cand-3 거절 김철수")
	assert.Equal("연락처는 수락 상태에서만 입력할 수 있습니다.", api.lastText())

	responses.AssertExpectations(t)
}

func Test_SaveUserContexts_WhenOperatorsLogInConcurrently_ShouldNotDeadlock(t *testing.T) {

	data := &memoryData{values: map[string][]byte{}}
	b := newTestBot(t, &mockApi{}, data, Services{})
	for chatID := int64(1); chatID <= 20; chatID++ {
		b.session(chatID)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for chatID := int64(1); chatID <= 20; chatID++ {
			wg.Add(1)
			go func(chatID int64) {
				defer wg.Done()
				simulateMessages(b, chatID, "/login "+testPassword)
			}(chatID)
		}
		for i := 0; i < 20; i++ {
			assert.NoError(t, b.saveUserContexts())
		}
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("saving sessions deadlocked with concurrent logins")
	}
	assert.NotEmpty(t, data.values[userContextsDataID])
}
