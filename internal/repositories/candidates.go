package repositories

import (
	"context"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Candidates struct {
	db *gorm.DB
}

func NewCandidatesRepository(db *gorm.DB) *Candidates {
	return &Candidates{db: db}
}

func (repo *Candidates) Get(ctx context.Context, key string) (*entities.Candidate, error) {
	var candidate entities.Candidate
	err := repo.db.WithContext(ctx).First(&candidate, "source_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &candidate, nil
}

// UpdateContact is the only write to a candidate after ingestion.
func (repo *Candidates) UpdateContact(ctx context.Context, key string, name string, contact string) error {
	res := repo.db.WithContext(ctx).Model(&entities.Candidate{}).Where("source_key = ?", key).
		Updates(map[string]any{"name": name, "contact_info": contact})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.Errorf("candidate %q not found", key)
	}
	return nil
}
