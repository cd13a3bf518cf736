package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/asaskevich/EventBus"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/scout-pipeline/internal/events"
	"github.com/maxaizer/scout-pipeline/internal/logger"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"strings"
	"sync"
)

const (
	backToMenuCommandName = "메인 메뉴"
	userContextsDataID    = "user_contexts"
	progressReportEvery   = 5
)

const helpText = `스카우트 파이프라인 봇입니다.

/login <비밀번호> - 로그인
/positions [검색어] - 포지션 목록
/position [검색어] - 포지션 선택
/scout_url - 스카우트 URL 등록
/jd - Job Description 입력
/extract - 키워드 추출
/refine - 직무 유형 키워드 정제
/combine - 키워드 통합
/edit_keywords - 키워드 직접 수정
/query - 검색 쿼리 생성
/edit_query - 쿼리 수정
/execute - 쿼리 실행
/select - 최종 후보자 선택
/message - 스카우트 메시지 작성
/send - 메시지 발송
/cancel_send - 발송 중단
/retry - 실패 건 재발송
/mark_sent <키> - 수동 발송 처리
/responses - 응답 확인
/set_status <키> <상태> [이름] [연락처] - 응답 상태 수동 변경
/runs - 실행 기록
/resume <번호> - 실행 이어서 진행
/restart - 실행 초기화
/status - 현재 상태
/templates - 프롬프트 템플릿
/save_template - 템플릿 저장
/scrape [플랫폼] - 스크래핑 요청
/scrape_status - 스크래핑 상태`

type Bot struct {
	tg           *botApi.BotAPI
	api          apiInterface
	ctx          context.Context
	cancel       context.CancelFunc
	deliveries   sync.WaitGroup
	mu           sync.Mutex
	userContexts map[int64]*userContext
	operators    map[int64]struct{}
	bus          EventBus.Bus
	services     Services
	data         dataRepository
	passwordHash []byte
}

func NewBot(ctx context.Context, token string, passwordHash string, bus EventBus.Bus,
	services Services, data dataRepository) (*Bot, error) {

	api, err := botApi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Infof("Authorized on account %s", api.Self.UserName)

	err = botApi.SetLogger(log.StandardLogger())
	if err != nil {
		return nil, err
	}

	createdBot, err := newBot(ctx, api, passwordHash, bus, services, data)
	if err != nil {
		return nil, err
	}
	createdBot.tg = api
	return createdBot, nil
}

func newBot(ctx context.Context, api apiInterface, passwordHash string, bus EventBus.Bus,
	services Services, data dataRepository) (*Bot, error) {

	if bus == nil {
		return nil, errors.New("bus is nil")
	}
	if data == nil {
		return nil, errors.New("data repository is nil")
	}
	if passwordHash == "" {
		return nil, errors.New("admin password hash is empty")
	}

	ctx, cancel := context.WithCancel(ctx)
	createdBot := &Bot{
		api:          api,
		ctx:          ctx,
		cancel:       cancel,
		userContexts: make(map[int64]*userContext),
		operators:    make(map[int64]struct{}),
		bus:          bus,
		services:     services,
		data:         data,
		passwordHash: []byte(passwordHash),
	}

	subscriptions := map[string]any{
		events.OutreachProgressTopic: createdBot.onOutreachProgress,
		events.OutreachFinishedTopic: createdBot.onOutreachFinished,
		events.DeliveryFailedTopic:   createdBot.onDeliveryFailed,
		events.RunCompletedTopic:     createdBot.onRunCompleted,
		events.ResponsesCheckedTopic: createdBot.onResponsesChecked,
	}
	for topic, handler := range subscriptions {
		if err := bus.Subscribe(topic, handler); err != nil {
			cancel()
			return nil, err
		}
	}
	return createdBot, nil
}

func (b *Bot) Run() {

	err := b.loadUserContexts()
	if err != nil {
		log.Errorf("Error loading user contexts: %v", err)
	}

	updateConfig := botApi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := b.tg.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-b.ctx.Done():
			b.tg.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			if update.Message.Chat.IsGroup() || update.Message.Chat.IsSuperGroup() {
				continue
			}
			go b.handleMessage(update.Message)
		}
	}
}

// Stop cancels running deliveries, waits for them to record their results
// and persists the sessions.
func (b *Bot) Stop() {
	b.cancel()
	b.deliveries.Wait()

	err := b.saveUserContexts()
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("Error saving user contexts: %v", err)
	}
}

func (b *Bot) handleMessage(message *botApi.Message) {

	session := b.session(message.Chat.ID)
	session.mu.Lock()
	defer session.mu.Unlock()

	name, args := parseCommand(message.Text)
	if name == "" && message.Text == backToMenuCommandName {
		name = "cancel"
	}

	if name != "" {
		b.handleCommand(session, name, args)
	} else {
		b.handleInput(session, message.Text)
	}
}

func (b *Bot) handleCommand(session *userContext, name string, args string) {

	switch name {
	case "start", "help":
		b.replyWithMenu(session.chatID, helpText)
		return
	case "login":
		b.login(session, args)
		return
	}

	if !session.authenticated {
		b.reply(session.chatID, "먼저 /login <비밀번호> 로 로그인해 주세요.")
		return
	}

	if name == "cancel" {
		session.StopCommand()
		b.replyWithMenu(session.chatID, "메인 메뉴로 돌아왔습니다.")
		return
	}

	if act, ok := b.actions()[name]; ok {
		session.StopCommand()
		b.reply(session.chatID, act(session, args))
		return
	}

	cmd, err := b.createCommand(name, session, args)
	if err != nil {
		if errors.Is(err, errUnknownCommand) {
			b.reply(session.chatID, "알 수 없는 명령입니다. /help 를 확인해 주세요.")
			return
		}
		b.reply(session.chatID, errorText(err))
		return
	}
	session.RunCommand(cmd, name)
}

func (b *Bot) login(session *userContext, secret string) {
	err := bcrypt.CompareHashAndPassword(b.passwordHash, []byte(strings.TrimSpace(secret)))
	if err != nil {
		log.Warnf("failed login attempt from chat %d", session.chatID)
		b.reply(session.chatID, "비밀번호가 올바르지 않습니다.")
		return
	}

	session.authenticated = true
	b.mu.Lock()
	b.operators[session.chatID] = struct{}{}
	b.mu.Unlock()
	b.replyWithMenu(session.chatID, "로그인되었습니다.")
}

func (b *Bot) handleInput(session *userContext, input string) {
	if !session.authenticated {
		b.reply(session.chatID, "먼저 /login <비밀번호> 로 로그인해 주세요.")
		return
	}
	if session.HasRunningCommand() {
		session.OnUserInput(input)
		return
	}
	b.reply(session.chatID, "명령을 입력해 주세요. /help 에서 목록을 볼 수 있습니다.")
}

func (b *Bot) session(chatID int64) *userContext {
	b.mu.Lock()
	defer b.mu.Unlock()

	session := b.userContexts[chatID]
	if session == nil {
		session = newUserContext(chatID)
		b.userContexts[chatID] = session
	}
	return session
}

func (b *Bot) reply(chatID int64, text string) {
	_, _ = sendWithLogError(b.api, botApi.NewMessage(chatID, truncate(text)))
}

func (b *Bot) replyWithMenu(chatID int64, text string) {
	msg := botApi.NewMessage(chatID, truncate(text))
	msg.ReplyMarkup = defaultReplyKeyboard()
	_, _ = sendWithLogError(b.api, msg)
}

func (b *Bot) onOutreachProgress(event events.OutreachProgress) {
	if event.Completed == event.Total || event.Completed%progressReportEvery != 0 {
		return
	}
	b.reply(event.ChatID, fmt.Sprintf("발송 진행 중: %d/%d", event.Completed, event.Total))
}

func (b *Bot) onOutreachFinished(event events.OutreachFinished) {
	text := fmt.Sprintf("발송 완료: 성공 %d명, 실패 %d명", event.SuccessCount, len(event.Failed))
	if event.Cancelled {
		text = "발송이 중단되었습니다. " + text
	}
	if len(event.Failed) > 0 {
		text += "\n실패: " + strings.Join(event.Failed, ", ") +
			"\n/retry 로 재발송하거나 /mark_sent <키> 로 수동 처리할 수 있습니다."
	}
	b.reply(event.ChatID, text)
}

func (b *Bot) onDeliveryFailed(event events.DeliveryFailed) {
	b.reply(event.ChatID, fmt.Sprintf("%s 발송 실패: %s", event.CandidateKey, event.Error))
}

func (b *Bot) onRunCompleted(event events.RunCompleted) {
	b.reply(event.ChatID, fmt.Sprintf("실행 #%d 기록이 저장되었습니다. 필터링된 후보자 %d명.",
		event.Run.ID, event.FilteredRows))
}

// onResponsesChecked relays scheduled checks. Checks started from a chat are
// answered by the command itself.
func (b *Bot) onResponsesChecked(event events.ResponsesChecked) {
	if event.ChatID != 0 {
		return
	}
	if len(event.Updated) == 0 && len(event.Errors) == 0 {
		return
	}

	text := fmt.Sprintf("포지션 %d 응답 자동 확인\n%s", event.PositionID, formatUpdates(event.Updated))
	if len(event.Errors) > 0 {
		text += fmt.Sprintf("\n오류 %d건: %s", len(event.Errors), strings.Join(event.Errors, "; "))
	}

	b.mu.Lock()
	chats := make([]int64, 0, len(b.operators))
	for chatID := range b.operators {
		chats = append(chats, chatID)
	}
	b.mu.Unlock()

	for _, chatID := range chats {
		b.reply(chatID, text)
	}
}

// saveUserContexts never holds b.mu while waiting for a session lock:
// handlers hold the session lock and may take b.mu.
func (b *Bot) saveUserContexts() error {
	b.mu.Lock()
	sessions := make(map[int64]*userContext, len(b.userContexts))
	for chatID, session := range b.userContexts {
		sessions[chatID] = session
	}
	b.mu.Unlock()

	encoded := make(map[int64]json.RawMessage, len(sessions))
	for chatID, session := range sessions {
		session.mu.Lock()
		raw, err := json.Marshal(session)
		session.mu.Unlock()
		if err != nil {
			return err
		}
		encoded[chatID] = raw
	}

	data, err := json.Marshal(encoded)
	if err != nil {
		return err
	}
	return b.data.Save(context.Background(), userContextsDataID, data)
}

func (b *Bot) loadUserContexts() error {
	data, err := b.data.LoadAndRemove(context.Background(), userContextsDataID)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err = json.Unmarshal(data, &b.userContexts); err != nil {
		return err
	}

	var errs []error
	for i, session := range b.userContexts {

		if session.curCommandName == "" {
			continue
		}

		cmd, err := b.createCommand(session.curCommandName, session, "")
		if err != nil {
			errs = append(errs, err)
			session.StopCommand()
			continue
		}

		saveableCmd, ok := cmd.(saveable)
		if !ok {
			session.ResumeCommandAfterBotRestart(cmd)
			continue
		}

		err = saveableCmd.LoadState(session.curCommandState)
		if err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", i, err))
			session.StopCommand()
			continue
		}

		session.ResumeCommandAfterBotRestart(cmd)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// parseCommand splits "/name@bot args" into its name and arguments.
func parseCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	name, args, _ := strings.Cut(text[1:], " ")
	name, _, _ = strings.Cut(name, "@")
	return strings.ToLower(name), strings.TrimSpace(args)
}

func defaultReplyKeyboard() botApi.ReplyKeyboardMarkup {
	row := func(names ...string) []botApi.KeyboardButton {
		buttons := make([]botApi.KeyboardButton, 0, len(names))
		for _, name := range names {
			buttons = append(buttons, botApi.NewKeyboardButton("/"+name))
		}
		return botApi.NewKeyboardButtonRow(buttons...)
	}

	return botApi.NewReplyKeyboard(
		row(positionCommandName, jobDescriptionCommandName, "status"),
		row("extract", refineCommandName, "combine"),
		row("query", "execute", selectCommandName),
		row(messageCommandName, "send", "responses"),
	)
}

func keyboardWithExit() botApi.ReplyKeyboardMarkup {
	return botApi.NewReplyKeyboard(
		botApi.NewKeyboardButtonRow(
			botApi.NewKeyboardButton(backToMenuCommandName),
		),
	)
}
