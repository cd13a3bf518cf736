package bot

import (
	"context"
	"encoding/json"
	"github.com/maxaizer/scout-pipeline/internal/services"
	"sync"
)

// userContext is the operator session of one chat. Authentication is never
// persisted, so a restarted bot asks for /login again.
type userContext struct {
	mu              sync.Mutex
	chatID          int64
	authenticated   bool
	pipeline        services.PipelineContext
	job             *services.DeliveryJob
	delivering      bool
	cancelDelivery  context.CancelFunc
	curCommand      command
	curCommandName  string
	curCommandState []byte
}

func newUserContext(chatID int64) *userContext {
	return &userContext{chatID: chatID}
}

func (u *userContext) RunCommand(command command, name string) {
	u.setCommand(command, name)
	u.curCommand.Run()
}

func (u *userContext) ResumeCommandAfterBotRestart(command command) {
	u.setCommand(command, u.curCommandName)
}

func (u *userContext) HasRunningCommand() bool {
	return u.curCommand != nil
}

func (u *userContext) OnUserInput(input string) {
	u.curCommand.OnUserInput(input)
}

func (u *userContext) StopCommand() {
	u.curCommand = nil
	u.curCommandName = ""
	u.curCommandState = nil
}

func (u *userContext) MarshalJSON() ([]byte, error) {

	var cmdState []byte
	var err error
	if u.curCommand != nil {
		if saveableCmd, ok := u.curCommand.(saveable); ok {
			cmdState, err = saveableCmd.SaveState()
		}
	}
	if err != nil {
		return nil, err
	}

	return json.Marshal(&struct {
		ChatID          int64                    `json:"chatID"`
		Pipeline        services.PipelineContext `json:"pipeline"`
		Job             *services.DeliveryJob    `json:"job,omitempty"`
		CurCommandName  string                   `json:"curCommandName"`
		CurCommandState []byte                   `json:"curCommandState"`
	}{
		ChatID:          u.chatID,
		Pipeline:        u.pipeline,
		Job:             u.job,
		CurCommandName:  u.curCommandName,
		CurCommandState: cmdState,
	})
}

func (u *userContext) UnmarshalJSON(data []byte) error {

	aux := &struct {
		ChatID          int64                    `json:"chatID"`
		Pipeline        services.PipelineContext `json:"pipeline"`
		Job             *services.DeliveryJob    `json:"job,omitempty"`
		CurCommandName  string                   `json:"curCommandName"`
		CurCommandState []byte                   `json:"curCommandState"`
	}{}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	u.chatID = aux.ChatID
	u.pipeline = aux.Pipeline
	u.job = aux.Job
	u.curCommandName = aux.CurCommandName
	u.curCommandState = aux.CurCommandState
	return nil
}

func (u *userContext) setCommand(command command, name string) {
	u.curCommand = command
	u.curCommandName = name
	u.curCommand.WithFinishCallback(func() {
		u.curCommand = nil
		u.curCommandName = ""
	})
	u.curCommand.WithKeyboardOnFinalMessage(defaultReplyKeyboard())
}
