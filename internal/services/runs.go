package services

import (
	"context"
	"fmt"
	"github.com/maxaizer/scout-pipeline/internal/entities"
)

type runHistory interface {
	Get(ctx context.Context, id int) (*entities.PipelineRun, error)
	History(ctx context.Context, positionID int, limit int) ([]entities.PipelineRun, error)
	StepResults(ctx context.Context, runID int) ([]entities.StepResult, error)
}

type RunService struct {
	runs runHistory
}

func NewRunService(runs runHistory) *RunService {
	return &RunService{runs: runs}
}

func (s *RunService) History(ctx context.Context, positionID int, limit int) ([]entities.PipelineRun, error) {
	if positionID == 0 {
		return nil, ErrNoPosition
	}
	return s.runs.History(ctx, positionID, limit)
}

// Resume rebuilds a working context from the run ledger. For every step name
// the entry with the highest step number wins.
func (s *RunService) Resume(ctx context.Context, runID int) (PipelineContext, error) {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return PipelineContext{}, err
	}
	if run == nil {
		return PipelineContext{}, ErrInvalidRun
	}

	results, err := s.runs.StepResults(ctx, runID)
	if err != nil {
		return PipelineContext{}, err
	}

	pc := PipelineContext{
		PositionID:     run.PositionID,
		JobDescription: run.JobDescription,
		AdditionalInfo: run.AdditionalInfo,
		RunID:          run.ID,
	}

	snapshot := entities.PromptsPayload{}
	for _, result := range results {
		if pc, err = replay(pc, result, snapshot); err != nil {
			return PipelineContext{}, fmt.Errorf("couldn't replay step %d of run %d: %w", result.StepNumber, runID, err)
		}
	}

	for step, body := range snapshot {
		if result := pc.keywordResult(step); result != nil {
			result.TemplateBody = body
		} else if step == entities.StepSqlGeneration && pc.Query != nil {
			pc.Query.TemplateBody = body
		}
	}
	return pc, nil
}

func replay(pc PipelineContext, result entities.StepResult, snapshot entities.PromptsPayload) (PipelineContext, error) {
	switch result.StepName {
	case entities.StepKeywordExtraction, entities.StepKeywordRefinement, entities.StepKeywordCombination:
		var payload entities.KeywordsPayload
		if err := result.Decode(&payload); err != nil {
			return pc, err
		}
		return pc.replaceKeywordResult(result.StepName, &KeywordResult{
			Keywords:    payload.Keywords,
			Prompt:      payload.Prompt,
			RawResponse: payload.RawResponse,
			TemplateID:  payload.TemplateID,
			Recorded:    true,
		}), nil

	case entities.StepSqlGeneration:
		var payload entities.QueryPayload
		if err := result.Decode(&payload); err != nil {
			return pc, err
		}
		pc.Query = &QueryDraft{
			Generated:   payload.Query,
			Text:        payload.Query,
			Prompt:      payload.Prompt,
			RawResponse: payload.RawResponse,
			Recorded:    true,
		}

	case entities.StepFinalQuery:
		var payload entities.QueryPayload
		if err := result.Decode(&payload); err != nil {
			return pc, err
		}
		pc = pc.EditQuery(payload.Query)

	case entities.StepPrompts:
		var payload entities.PromptsPayload
		if err := result.Decode(&payload); err != nil {
			return pc, err
		}
		for step, body := range payload {
			snapshot[step] = body
		}
	}
	return pc, nil
}
