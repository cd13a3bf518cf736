package services

import (
	"context"
	"github.com/go-playground/validator/v10"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"strings"
)

const positionsPageSize = 10

type positionRepository interface {
	Search(ctx context.Context, text string, limit int, offset int) ([]entities.Position, error)
	Get(ctx context.Context, id int) (*entities.Position, error)
	UpdateScoutURL(ctx context.Context, id int, url string) error
}

type positionRunHistory interface {
	LatestJobDescription(ctx context.Context, positionID int) (string, error)
	History(ctx context.Context, positionID int, limit int) ([]entities.PipelineRun, error)
}

type funnelCounter interface {
	StatusCounts(ctx context.Context, positionID int) (map[entities.ScoutStatus]int64, error)
}

type PositionDetails struct {
	Position entities.Position
	Funnel   map[entities.ScoutStatus]int64
	Runs     []entities.PipelineRun
}

type PositionService struct {
	positions positionRepository
	runs      positionRunHistory
	funnel    funnelCounter
	validate  *validator.Validate
}

func NewPositionService(positions positionRepository, runs positionRunHistory, funnel funnelCounter) *PositionService {
	return &PositionService{positions: positions, runs: runs, funnel: funnel, validate: validator.New()}
}

func (s *PositionService) Search(ctx context.Context, text string, page int) ([]entities.Position, error) {
	if page < 0 {
		page = 0
	}
	return s.positions.Search(ctx, strings.TrimSpace(text), positionsPageSize, page*positionsPageSize)
}

func (s *PositionService) Details(ctx context.Context, id int) (PositionDetails, error) {
	position, err := s.positions.Get(ctx, id)
	if err != nil {
		return PositionDetails{}, err
	}
	if position == nil {
		return PositionDetails{}, ErrPositionNotFound
	}

	funnel, err := s.funnel.StatusCounts(ctx, id)
	if err != nil {
		return PositionDetails{}, err
	}
	runs, err := s.runs.History(ctx, id, 5)
	if err != nil {
		return PositionDetails{}, err
	}
	return PositionDetails{Position: *position, Funnel: funnel, Runs: runs}, nil
}

// SelectPosition switches the context to the position, dropping all derived
// state. The job description of the newest run is offered as a starting point.
func (s *PositionService) SelectPosition(ctx context.Context, pc PipelineContext, id int) (PipelineContext, error) {
	position, err := s.positions.Get(ctx, id)
	if err != nil {
		return pc, err
	}
	if position == nil {
		return pc, ErrPositionNotFound
	}
	if id == pc.PositionID {
		return pc, nil
	}

	jd, err := s.runs.LatestJobDescription(ctx, id)
	if err != nil {
		return pc, err
	}
	return pc.WithPosition(id, jd), nil
}

func (s *PositionService) UpdateScoutURL(ctx context.Context, id int, url string) error {
	url = strings.TrimSpace(url)
	if err := s.validate.Var(url, "required,url"); err != nil {
		return err
	}
	return s.positions.UpdateScoutURL(ctx, id, url)
}
