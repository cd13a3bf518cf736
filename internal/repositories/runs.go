package repositories

import (
	"context"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"time"
)

var ErrRunNotFound = errors.New("pipeline run not found")

type Runs struct {
	db *gorm.DB
}

func NewRunsRepository(db *gorm.DB) *Runs {
	return &Runs{db: db}
}

func (repo *Runs) Create(ctx context.Context, positionID int, jobDescription, additionalInfo string) (*entities.PipelineRun, error) {
	run := entities.PipelineRun{
		PositionID:     positionID,
		JobDescription: jobDescription,
		AdditionalInfo: additionalInfo,
		Status:         entities.RunInProgress,
	}
	if err := repo.db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, errors.Wrap(err, "couldn't create pipeline run")
	}
	return &run, nil
}

func (repo *Runs) Get(ctx context.Context, id int) (*entities.PipelineRun, error) {
	var run entities.PipelineRun
	err := repo.db.WithContext(ctx).First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (repo *Runs) History(ctx context.Context, positionID int, limit int) ([]entities.PipelineRun, error) {
	var runs []entities.PipelineRun
	err := repo.db.WithContext(ctx).
		Where("position_id = ?", positionID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

// LatestJobDescription returns the job description of the newest run, or "".
func (repo *Runs) LatestJobDescription(ctx context.Context, positionID int) (string, error) {
	runs, err := repo.History(ctx, positionID, 1)
	if err != nil || len(runs) == 0 {
		return "", err
	}
	return runs[0].JobDescription, nil
}

// AppendStepResult stores the result under the next step number of the run.
func (repo *Runs) AppendStepResult(ctx context.Context, result entities.StepResult) (int, error) {
	result.ID = 0
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&entities.PipelineRun{}).Where("id = ?", result.RunID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return ErrRunNotFound
		}

		var maxStep int
		if err := tx.Model(&entities.StepResult{}).
			Where("run_id = ?", result.RunID).
			Select("COALESCE(MAX(step_number), 0)").
			Scan(&maxStep).Error; err != nil {
			return err
		}

		result.StepNumber = maxStep + 1
		return tx.Create(&result).Error
	})
	if err != nil {
		return 0, errors.Wrapf(err, "couldn't append %s result to run %d", result.StepName, result.RunID)
	}
	return result.StepNumber, nil
}

func (repo *Runs) StepResults(ctx context.Context, runID int) ([]entities.StepResult, error) {
	var results []entities.StepResult
	err := repo.db.WithContext(ctx).Where("run_id = ?", runID).Order("step_number").Find(&results).Error
	return results, err
}

// LatestStepResult returns the entry with the highest step number for the name.
func (repo *Runs) LatestStepResult(ctx context.Context, runID int, step entities.StepName) (*entities.StepResult, error) {
	var result entities.StepResult
	err := repo.db.WithContext(ctx).
		Where("run_id = ? AND step_name = ?", runID, step).
		Order("step_number DESC").
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (repo *Runs) MarkFailed(ctx context.Context, runID int) error {
	now := time.Now()
	res := repo.db.WithContext(ctx).Model(&entities.PipelineRun{}).
		Where("id = ? AND status <> ?", runID, entities.RunCompleted).
		Updates(map[string]any{"status": entities.RunFailed, "completed_at": &now})
	return res.Error
}

func markCompleted(tx *gorm.DB, runID int, filteredCount int) error {
	now := time.Now()
	res := tx.Model(&entities.PipelineRun{}).Where("id = ?", runID).
		Updates(map[string]any{
			"status":         entities.RunCompleted,
			"filtered_count": filteredCount,
			"completed_at":   &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}
