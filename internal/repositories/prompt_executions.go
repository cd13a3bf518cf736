package repositories

import (
	"context"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"gorm.io/gorm"
)

type PromptExecutions struct {
	db *gorm.DB
}

func NewPromptExecutionsRepository(db *gorm.DB) *PromptExecutions {
	return &PromptExecutions{db: db}
}

func (repo *PromptExecutions) Record(ctx context.Context, execution entities.PromptExecution) error {
	return repo.db.WithContext(ctx).Create(&execution).Error
}
