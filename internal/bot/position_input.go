package bot

import (
	"context"
	"errors"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/maxaizer/scout-pipeline/internal/logger"
	log "github.com/sirupsen/logrus"
	"strconv"
	"strings"
)

var errorNoPositions = errors.New("no positions found")

// positionInput lists positions matching a search text and accepts a position id.
type positionInput struct {
	chatID    int64
	positions []entities.Position
	onFinish  func(position entities.Position)
}

func newPositionInput(chatID int64, service positionService, search string,
	onFinish func(position entities.Position)) (*positionInput, error) {

	positions, err := service.Search(context.Background(), search, 0)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Error(err)
		return nil, err
	}
	if len(positions) == 0 {
		return nil, errorNoPositions
	}
	return &positionInput{chatID: chatID, positions: positions, onFinish: onFinish}, nil
}

func (s *positionInput) InitMessage() botApi.Chattable {
	msg := botApi.NewMessage(s.chatID, "포지션 번호를 입력해 주세요:\n"+formatPositions(s.positions))
	msg.ReplyMarkup = keyboardWithExit()
	return msg
}

func (s *positionInput) HandleInput(input string) botApi.Chattable {

	id, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return botApi.NewMessage(s.chatID, "숫자를 입력해 주세요!")
	}

	for _, position := range s.positions {
		if position.ID == id {
			s.onFinish(position)
			return nil
		}
	}
	return botApi.NewMessage(s.chatID, "목록에 없는 포지션 번호입니다.")
}
