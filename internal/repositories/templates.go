package repositories

import (
	"context"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Templates struct {
	db *gorm.DB
}

func NewTemplatesRepository(db *gorm.DB) *Templates {
	return &Templates{db: db}
}

// GetLatest returns the step default, else the newest template, else nil.
func (repo *Templates) GetLatest(ctx context.Context, step entities.StepName) (*entities.PromptTemplate, error) {
	var template entities.PromptTemplate
	err := repo.db.WithContext(ctx).
		Where("step_name = ?", step).
		Order("is_default DESC, created_at DESC, id DESC").
		First(&template).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't get latest %s template", step)
	}
	return &template, nil
}

func (repo *Templates) List(ctx context.Context, step entities.StepName) ([]entities.PromptTemplate, error) {
	var templates []entities.PromptTemplate
	err := repo.db.WithContext(ctx).
		Where("step_name = ?", step).
		Order("is_default DESC, created_at DESC, id DESC").
		Find(&templates).Error
	return templates, err
}

// Save appends a template. A new default displaces the previous one atomically:
// concurrent default saves for the same step are serialized, and the partial
// unique index created by Migrate rejects a second default if they are not.
func (repo *Templates) Save(ctx context.Context, template entities.PromptTemplate) (int, error) {
	template.ID = 0
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if template.IsDefault {
			if err := lockStep(tx, template.StepName); err != nil {
				return err
			}
			if err := tx.Model(&entities.PromptTemplate{}).
				Where("step_name = ? AND is_default = ?", template.StepName, true).
				Update("is_default", false).Error; err != nil {
				return errors.Wrap(err, "couldn't clear previous default")
			}
		}
		return tx.Create(&template).Error
	})
	if err != nil {
		return 0, err
	}
	return template.ID, nil
}

// lockStep holds a transaction scoped advisory lock on postgres. sqlite
// already runs one writer at a time.
func lockStep(tx *gorm.DB, step entities.StepName) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "prompt_templates:"+string(step)).Error
	return errors.Wrapf(err, "couldn't lock %s templates", step)
}
