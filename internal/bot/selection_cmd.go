package bot

import (
	"context"
	"fmt"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"strconv"
	"strings"
)

const (
	selectAllOption   = "전체 선택"
	deselectAllOption = "전체 해제"
	confirmOption     = "선택 확정"
	fixPrefix         = "고정 "
)

// selectionCommand keeps the toggle state in the session pipeline, so it has
// nothing of its own to save.
type selectionCommand struct {
	api                  apiInterface
	session              *userContext
	selection            selectionService
	finishCallback       func()
	finalMessageKeyboard *botApi.ReplyKeyboardMarkup
}

func newSelectionCommand(api apiInterface, session *userContext, selection selectionService) (*selectionCommand, error) {
	next, err := selection.Load(context.Background(), session.pipeline)
	if err != nil {
		return nil, err
	}
	session.pipeline = next
	return &selectionCommand{api: api, session: session, selection: selection}, nil
}

func (c *selectionCommand) WithFinishCallback(callback func()) {
	c.finishCallback = callback
}

func (c *selectionCommand) WithKeyboardOnFinalMessage(keyboard botApi.ReplyKeyboardMarkup) {
	c.finalMessageKeyboard = &keyboard
}

func (c *selectionCommand) Run() {
	text := "번호를 입력하면 선택이 전환됩니다. \"" + fixPrefix + "N\"은 일괄 선택에서 제외합니다.\n\n" +
		formatSelection(c.session.pipeline)
	_, _ = sendWithLogError(c.api, c.message(text))
}

func (c *selectionCommand) OnUserInput(input string) {
	input = strings.TrimSpace(input)
	pc := c.session.pipeline
	var err error

	switch {
	case input == confirmOption:
		c.confirm()
		return
	case input == selectAllOption:
		pc, err = c.selection.SelectAll(pc, true)
	case input == deselectAllOption:
		pc, err = c.selection.SelectAll(pc, false)
	case strings.HasPrefix(input, fixPrefix):
		var key string
		if key, err = c.keyAt(strings.TrimPrefix(input, fixPrefix)); err == nil {
			pc, err = c.selection.SetFixed(pc, key, !pc.Selection[key].Fixed)
		}
	default:
		var key string
		if key, err = c.keyAt(input); err == nil {
			pc, err = c.selection.Toggle(pc, key)
		}
	}

	if err != nil {
		_, _ = sendWithLogError(c.api, botApi.NewMessage(c.session.chatID, errorText(err)))
		return
	}
	c.session.pipeline = pc
	_, _ = sendWithLogError(c.api, c.message(formatSelection(pc)))
}

func (c *selectionCommand) keyAt(input string) (string, error) {
	number, err := strconv.Atoi(strings.TrimSpace(input))
	results := c.session.pipeline.Results
	if err != nil || results == nil || number < 1 || number > len(results.Rows) {
		return "", fmt.Errorf("목록에 없는 번호입니다: %s", input)
	}
	return results.Rows[number-1].CandidateKey, nil
}

func (c *selectionCommand) confirm() {
	next, removed, err := c.selection.Confirm(context.Background(), c.session.pipeline)
	if err != nil {
		_, _ = sendWithLogError(c.api, botApi.NewMessage(c.session.chatID, errorText(err)))
		return
	}
	c.session.pipeline = next

	msg := botApi.NewMessage(c.session.chatID, fmt.Sprintf(
		"%d명이 최종 선택되었고 %d명이 제외되었습니다. /message 로 스카우트 메시지를 작성하세요.",
		len(next.Finalists), removed))
	if c.finalMessageKeyboard != nil {
		msg.ReplyMarkup = c.finalMessageKeyboard
	}
	_, _ = sendWithLogError(c.api, msg)

	if c.finishCallback != nil {
		c.finishCallback()
	}
}

func (c *selectionCommand) message(text string) botApi.Chattable {
	msg := botApi.NewMessage(c.session.chatID, truncate(text))
	msg.ReplyMarkup = optionsKeyboard([]string{selectAllOption, deselectAllOption, confirmOption})
	return msg
}
