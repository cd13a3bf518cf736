package bot

import (
	"encoding/json"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// stepsCommand asks its inputs one after another and runs onComplete with the
// collected values. The values survive a bot restart.
type stepsCommand struct {
	api                  apiInterface
	chatID               int64
	inputHandlers        []inputHandler
	curHandlerIndex      int
	values               map[string]string
	onComplete           func(values map[string]string) string
	finishCallback       func()
	finalMessageKeyboard *botApi.ReplyKeyboardMarkup
}

func newStepsCommand(api apiInterface, chatID int64, onComplete func(values map[string]string) string) *stepsCommand {
	return &stepsCommand{api: api, chatID: chatID, values: map[string]string{}, onComplete: onComplete}
}

func (c *stepsCommand) textStep(key, initMessage string, validations ...validation) *textInput {
	input := newTextInput(c.chatID, initMessage, func(input string) {
		c.values[key] = input
		c.curHandlerIndex++
	})
	for _, v := range validations {
		input.AddValidation(v)
	}
	c.inputHandlers = append(c.inputHandlers, input)
	return input
}

func (c *stepsCommand) choiceStep(key, initMessage string, options []string) {
	c.inputHandlers = append(c.inputHandlers, newChoiceInput(c.chatID, initMessage, options, func(option string) {
		c.values[key] = option
		c.curHandlerIndex++
	}))
}

func (c *stepsCommand) WithFinishCallback(callback func()) {
	c.finishCallback = callback
}

func (c *stepsCommand) WithKeyboardOnFinalMessage(keyboard botApi.ReplyKeyboardMarkup) {
	c.finalMessageKeyboard = &keyboard
}

func (c *stepsCommand) SaveState() ([]byte, error) {
	return json.Marshal(&struct {
		CurHandlerIndex int
		Values          map[string]string
	}{
		CurHandlerIndex: c.curHandlerIndex,
		Values:          c.values,
	})
}

func (c *stepsCommand) LoadState(data []byte) error {

	aux := &struct {
		CurHandlerIndex int
		Values          map[string]string
	}{}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	c.curHandlerIndex = aux.CurHandlerIndex
	if aux.Values != nil {
		c.values = aux.Values
	}
	return nil
}

func (c *stepsCommand) Run() {
	_, _ = sendWithLogError(c.api, c.inputHandlers[0].InitMessage())
}

func (c *stepsCommand) OnUserInput(input string) {

	previousIndex := c.curHandlerIndex
	msg := c.inputHandlers[c.curHandlerIndex].HandleInput(input)

	handlerChanged := previousIndex != c.curHandlerIndex
	allHandlersFinished := c.curHandlerIndex >= len(c.inputHandlers)

	if !handlerChanged {
		_, _ = sendWithLogError(c.api, msg)
		return
	}

	if !allHandlersFinished {
		_, _ = sendWithLogError(c.api, c.inputHandlers[c.curHandlerIndex].InitMessage())
		return
	}

	msg = c.finalMessage(c.onComplete(c.values))
	_, _ = sendWithLogError(c.api, msg)
	if c.finishCallback != nil {
		c.finishCallback()
	}
}

func (c *stepsCommand) finalMessage(text string) botApi.Chattable {
	msg := botApi.NewMessage(c.chatID, truncate(text))
	if c.finalMessageKeyboard != nil {
		msg.ReplyMarkup = c.finalMessageKeyboard
	}
	return msg
}
