package repositories

import (
	"context"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type ScoutMessages struct {
	db *gorm.DB
}

func NewScoutMessagesRepository(db *gorm.DB) *ScoutMessages {
	return &ScoutMessages{db: db}
}

func (repo *ScoutMessages) GetByRun(ctx context.Context, runID int) (*entities.ScoutMessage, error) {
	var message entities.ScoutMessage
	err := repo.db.WithContext(ctx).First(&message, "run_id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// SaveForRun keeps a single message per run, replacing the draft content.
func (repo *ScoutMessages) SaveForRun(ctx context.Context, message entities.ScoutMessage) (*entities.ScoutMessage, error) {
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entities.ScoutMessage
		err := tx.First(&existing, "run_id = ?", message.RunID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			message.ID = 0
			return tx.Create(&message).Error
		}
		if err != nil {
			return err
		}

		existing.Title = message.Title
		existing.Content = message.Content
		existing.ValidUntil = message.ValidUntil
		message = existing
		return tx.Save(&message).Error
	})
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't save scout message for run %d", message.RunID)
	}
	return &message, nil
}

func (repo *ScoutMessages) WasSent(ctx context.Context, messageID int) (bool, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&entities.ScoutHistory{}).
		Where("message_id = ? AND status = ?", messageID, entities.StatusSent).
		Count(&count).Error
	return count > 0, err
}
