package repositories

import (
	"context"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Positions struct {
	db *gorm.DB
}

func NewPositionsRepository(db *gorm.DB) *Positions {
	return &Positions{db: db}
}

// Search matches the text against pool, company and demand. Empty text lists all.
func (repo *Positions) Search(ctx context.Context, text string, limit int, offset int) ([]entities.Position, error) {
	query := repo.db.WithContext(ctx)
	if text != "" {
		like := "%" + text + "%"
		query = query.Where("pool_name LIKE ? OR company_name LIKE ? OR demand LIKE ?", like, like, like)
	}

	var positions []entities.Position
	err := query.Order("id").Limit(limit).Offset(offset).Find(&positions).Error
	return positions, err
}

func (repo *Positions) Get(ctx context.Context, id int) (*entities.Position, error) {
	var position entities.Position
	err := repo.db.WithContext(ctx).First(&position, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &position, nil
}

func (repo *Positions) WithScoutURL(ctx context.Context) ([]entities.Position, error) {
	var positions []entities.Position
	err := repo.db.WithContext(ctx).Where("scout_url <> ''").Order("id").Find(&positions).Error
	return positions, err
}

func (repo *Positions) UpdateScoutURL(ctx context.Context, id int, url string) error {
	res := repo.db.WithContext(ctx).Model(&entities.Position{}).Where("id = ?", id).Update("scout_url", url)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.Errorf("position %d not found", id)
	}
	return nil
}
