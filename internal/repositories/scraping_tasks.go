package repositories

import (
	"context"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"gorm.io/gorm"
)

type ScrapingTasks struct {
	db *gorm.DB
}

func NewScrapingTasksRepository(db *gorm.DB) *ScrapingTasks {
	return &ScrapingTasks{db: db}
}

func (repo *ScrapingTasks) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&entities.ScrapingTask{}).Count(&count).Error
	return count, err
}

func (repo *ScrapingTasks) Recent(ctx context.Context, limit int) ([]entities.ScrapingTask, error) {
	var tasks []entities.ScrapingTask
	err := repo.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&tasks).Error
	return tasks, err
}
