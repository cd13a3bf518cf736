package repositories

import (
	"context"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"time"
)

var ErrUnboundedDelete = errors.New("refusing to narrow position candidates to an empty set")

type PositionCandidates struct {
	db *gorm.DB
}

func NewPositionCandidatesRepository(db *gorm.DB) *PositionCandidates {
	return &PositionCandidates{db: db}
}

// upsertPreserving inserts missing rows as extracted and only refreshes
// last_checked_at on existing ones, so a status never moves back.
func upsertPreserving(tx *gorm.DB, positionID int, keys []string) error {
	keys = lo.Uniq(keys)
	if len(keys) == 0 {
		return nil
	}

	now := time.Now()
	rows := lo.Map(keys, func(key string, _ int) entities.PositionCandidate {
		return entities.PositionCandidate{
			PositionID:    positionID,
			CandidateKey:  key,
			ScoutStatus:   entities.StatusExtracted,
			LastCheckedAt: now,
		}
	})

	return tx.Omit("Candidate").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "position_id"}, {Name: "candidate_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_checked_at"}),
	}).Create(&rows).Error
}

func (repo *PositionCandidates) Upsert(ctx context.Context, positionID int, keys []string) error {
	return upsertPreserving(repo.db.WithContext(ctx), positionID, keys)
}

// Narrow upserts keep and deletes every other candidate of the position in one transaction.
func (repo *PositionCandidates) Narrow(ctx context.Context, positionID int, keep []string) (int64, error) {
	if len(keep) == 0 {
		return 0, ErrUnboundedDelete
	}

	var removed int64
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertPreserving(tx, positionID, keep); err != nil {
			return errors.Wrap(err, "couldn't upsert selection")
		}
		res := tx.Where("position_id = ? AND candidate_key NOT IN ?", positionID, keep).
			Delete(&entities.PositionCandidate{})
		removed = res.RowsAffected
		return errors.Wrap(res.Error, "couldn't remove unselected candidates")
	})
	return removed, err
}

func (repo *PositionCandidates) ListByStatus(ctx context.Context, positionID int,
	statuses ...entities.ScoutStatus) ([]entities.PositionCandidate, error) {

	query := repo.db.WithContext(ctx).Preload("Candidate").Where("position_id = ?", positionID)
	if len(statuses) > 0 {
		query = query.Where("scout_status IN ?", statuses)
	}

	var result []entities.PositionCandidate
	err := query.Order("id").Find(&result).Error
	return result, err
}

func (repo *PositionCandidates) Get(ctx context.Context, positionID int, candidateKey string) (*entities.PositionCandidate, error) {
	var pc entities.PositionCandidate
	err := repo.db.WithContext(ctx).Preload("Candidate").
		First(&pc, "position_id = ? AND candidate_key = ?", positionID, candidateKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

func (repo *PositionCandidates) StatusCounts(ctx context.Context, positionID int) (map[entities.ScoutStatus]int64, error) {
	var rows []struct {
		ScoutStatus entities.ScoutStatus
		Total       int64
	}
	err := repo.db.WithContext(ctx).Model(&entities.PositionCandidate{}).
		Select("scout_status, COUNT(*) AS total").
		Where("position_id = ?", positionID).
		Group("scout_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[entities.ScoutStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.ScoutStatus] = row.Total
	}
	return counts, nil
}

// MarkSent moves the row to sent and appends history. It reports false without
// writing anything when the row was already sent.
func (repo *PositionCandidates) MarkSent(ctx context.Context, id int, messageID *int) (bool, error) {
	transitioned := false
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entities.PositionCandidate{}).
			Where("id = ? AND scout_status <> ?", id, entities.StatusSent).
			Updates(map[string]any{"scout_status": entities.StatusSent, "last_checked_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ensureExists(tx, id)
		}

		transitioned = true
		return tx.Create(&entities.ScoutHistory{
			PositionCandidateID: id,
			MessageID:           messageID,
			Status:              entities.StatusSent,
		}).Error
	})
	return transitioned, err
}

// SetStatus applies any status transition and appends history.
func (repo *PositionCandidates) SetStatus(ctx context.Context, id int, status entities.ScoutStatus, messageID *int) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entities.PositionCandidate{}).Where("id = ?", id).
			Updates(map[string]any{"scout_status": status, "last_checked_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.Errorf("position candidate %d not found", id)
		}
		return tx.Create(&entities.ScoutHistory{
			PositionCandidateID: id,
			MessageID:           messageID,
			Status:              status,
		}).Error
	})
}

func (repo *PositionCandidates) History(ctx context.Context, id int) ([]entities.ScoutHistory, error) {
	var history []entities.ScoutHistory
	err := repo.db.WithContext(ctx).Where("position_candidate_id = ?", id).Order("id").Find(&history).Error
	return history, err
}

func ensureExists(tx *gorm.DB, id int) error {
	var count int64
	if err := tx.Model(&entities.PositionCandidate{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return errors.Errorf("position candidate %d not found", id)
	}
	return nil
}
