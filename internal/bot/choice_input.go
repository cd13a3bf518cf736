package bot

import (
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"
)

// choiceInput accepts one of a fixed set of keyboard options.
type choiceInput struct {
	chatID      int64
	initMessage string
	options     []string
	onFinish    func(option string)
}

func newChoiceInput(chatID int64, initMessage string, options []string, onFinish func(option string)) *choiceInput {
	return &choiceInput{chatID: chatID, initMessage: initMessage, options: options, onFinish: onFinish}
}

func (a *choiceInput) InitMessage() botApi.Chattable {
	msg := botApi.NewMessage(a.chatID, a.initMessage)
	msg.ReplyMarkup = optionsKeyboard(a.options)
	return msg
}

func (a *choiceInput) HandleInput(input string) botApi.Chattable {
	if !lo.Contains(a.options, input) {
		return botApi.NewMessage(a.chatID, "버튼 중 하나를 선택해 주세요.")
	}
	a.onFinish(input)
	return nil
}

func optionsKeyboard(options []string) botApi.ReplyKeyboardMarkup {
	var rows [][]botApi.KeyboardButton
	for _, chunk := range lo.Chunk(options, 2) {
		row := lo.Map(chunk, func(option string, _ int) botApi.KeyboardButton {
			return botApi.NewKeyboardButton(option)
		})
		rows = append(rows, botApi.NewKeyboardButtonRow(row...))
	}
	rows = append(rows, botApi.NewKeyboardButtonRow(botApi.NewKeyboardButton(backToMenuCommandName)))
	return botApi.NewReplyKeyboard(rows...)
}
