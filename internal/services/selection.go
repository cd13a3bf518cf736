package services

import (
	"context"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/maxaizer/scout-pipeline/internal/logger"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

type runGetter interface {
	Get(ctx context.Context, id int) (*entities.PipelineRun, error)
}

type selectionRepository interface {
	ListByStatus(ctx context.Context, positionID int, statuses ...entities.ScoutStatus) ([]entities.PositionCandidate, error)
	Narrow(ctx context.Context, positionID int, keep []string) (int64, error)
}

var storedResultColumns = []string{"source_key", "name", "work_year", "location", "desired_annual_salary"}

type SelectionService struct {
	runs       runGetter
	candidates selectionRepository
}

func NewSelectionService(runs runGetter, candidates selectionRepository) *SelectionService {
	return &SelectionService{runs: runs, candidates: candidates}
}

// Load makes sure the context holds the result set of its current run. When the
// cached rows belong to another run they are re-read from the extracted candidates.
func (s *SelectionService) Load(ctx context.Context, pc PipelineContext) (PipelineContext, error) {
	if pc.PositionID == 0 {
		return pc, ErrNoPosition
	}
	if pc.Results != nil && pc.ResultsRunID == pc.RunID {
		return pc, nil
	}

	stored, err := s.candidates.ListByStatus(ctx, pc.PositionID, entities.StatusExtracted)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("couldn't load extracted candidates: %v", err)
		return pc, err
	}

	result := entities.QueryResult{Columns: storedResultColumns}
	for _, row := range stored {
		result.Rows = append(result.Rows, storedRow(row))
	}

	pc.Results = &result
	pc.ResultsRunID = pc.RunID
	pc.Selection = nil
	pc.Finalists = nil
	return pc, nil
}

func storedRow(row entities.PositionCandidate) entities.CandidateRow {
	values := []any{row.CandidateKey, nil, nil, nil, nil}
	if c := row.Candidate; c != nil {
		for i, field := range []*string{c.Name, c.WorkYear, c.Location, c.DesiredAnnualSalary} {
			if field != nil {
				values[i+1] = *field
			}
		}
	}
	return entities.CandidateRow{CandidateKey: row.CandidateKey, Values: values}
}

func (s *SelectionService) Toggle(pc PipelineContext, key string) (PipelineContext, error) {
	if err := pc.ensureCandidate(key); err != nil {
		return pc, err
	}
	pc.Selection = lo.Assign(pc.Selection)
	state := pc.Selection[key]
	state.Selected = !state.Selected
	pc.Selection[key] = state
	return pc, nil
}

// SetFixed freezes the selected flag of a candidate against bulk actions.
func (s *SelectionService) SetFixed(pc PipelineContext, key string, fixed bool) (PipelineContext, error) {
	if err := pc.ensureCandidate(key); err != nil {
		return pc, err
	}
	pc.Selection = lo.Assign(pc.Selection)
	state := pc.Selection[key]
	state.Fixed = fixed
	pc.Selection[key] = state
	return pc, nil
}

func (s *SelectionService) SelectAll(pc PipelineContext, selected bool) (PipelineContext, error) {
	if pc.Results == nil {
		return pc, ErrNoResults
	}
	pc.Selection = lo.Assign(pc.Selection)
	for _, key := range pc.Results.Keys() {
		state := pc.Selection[key]
		if state.Fixed {
			continue
		}
		state.Selected = selected
		pc.Selection[key] = state
	}
	return pc, nil
}

// Confirm narrows the position's candidates to the selected set. Unselected
// candidates are deleted for the position.
func (s *SelectionService) Confirm(ctx context.Context, pc PipelineContext) (PipelineContext, int64, error) {
	if pc.Results == nil {
		return pc, 0, ErrNoResults
	}
	keys := pc.SelectedKeys()
	if len(keys) == 0 {
		return pc, 0, ErrNoSelection
	}
	if pc.RunID == 0 {
		return pc, 0, ErrInvalidRun
	}

	run, err := s.runs.Get(ctx, pc.RunID)
	if err != nil {
		return pc, 0, err
	}
	if run == nil || run.PositionID != pc.PositionID {
		return pc, 0, ErrInvalidRun
	}

	removed, err := s.candidates.Narrow(ctx, pc.PositionID, keys)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("couldn't save selection: %v", err)
		return pc, 0, err
	}

	log.Infof("position %d narrowed to %d candidates, %d removed", pc.PositionID, len(keys), removed)
	pc.Finalists = keys
	return pc, removed, nil
}

func (pc PipelineContext) ensureCandidate(key string) error {
	if pc.Results == nil {
		return ErrNoResults
	}
	if !lo.Contains(pc.Results.Keys(), key) {
		return ErrUnknownCandidate
	}
	return nil
}
