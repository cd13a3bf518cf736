package services

import (
	"context"
	"fmt"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/maxaizer/scout-pipeline/internal/events"
	"github.com/maxaizer/scout-pipeline/internal/logger"
	"github.com/maxaizer/scout-pipeline/internal/metrics"
	"github.com/maxaizer/scout-pipeline/internal/prompts"
	log "github.com/sirupsen/logrus"
	"regexp"
	"strings"
	"time"
)

type runLedger interface {
	Create(ctx context.Context, positionID int, jobDescription, additionalInfo string) (*entities.PipelineRun, error)
	Get(ctx context.Context, id int) (*entities.PipelineRun, error)
	AppendStepResult(ctx context.Context, result entities.StepResult) (int, error)
	MarkFailed(ctx context.Context, runID int) error
}

type queryExecutor interface {
	ExecuteAndPersist(ctx context.Context, query string, runID, positionID int) (entities.QueryResult, error)
}

var codeFence = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

type QueryService struct {
	runner   promptRunner
	runs     runLedger
	executor queryExecutor
	bus      EventBus.Bus
}

func NewQueryService(ai completionClient, templates templateSource, executions executionRecorder,
	runs runLedger, executor queryExecutor, bus EventBus.Bus) *QueryService {
	return &QueryService{
		runner:   newPromptRunner(ai, templates, executions),
		runs:     runs,
		executor: executor,
		bus:      bus,
	}
}

// GenerateQuery asks the completion service for a filter query and puts it into the edit buffer.
func (s *QueryService) GenerateQuery(ctx context.Context, pc PipelineContext) (PipelineContext, error) {
	if pc.Combined.empty() {
		return pc, ErrEmptyKeywords
	}
	jd := strings.TrimSpace(pc.JobDescription)
	if jd == "" {
		return pc, ErrEmptyJobDescription
	}

	c, err := s.runner.run(ctx, entities.StepSqlGeneration, prompts.Variables{
		prompts.Keywords:       pc.Combined.Text(),
		prompts.JobDescription: jd,
	}, pc.RunID)
	if err != nil {
		return pc, err
	}

	query := extractQuery(c.raw)
	if query == "" {
		return pc, ErrEmptyQuery
	}

	pc.Query = &QueryDraft{
		Generated:    query,
		Text:         query,
		Prompt:       c.prompt,
		RawResponse:  c.raw,
		TemplateID:   c.templateID,
		TemplateBody: c.templateBody,
	}
	return pc, nil
}

func extractQuery(raw string) string {
	if match := codeFence.FindStringSubmatch(raw); match != nil {
		raw = match[1]
	}
	return strings.TrimSpace(raw)
}

// Execute runs the text in the edit buffer. The run is created on the first
// execution and every not yet recorded artifact is appended to its ledger.
func (s *QueryService) Execute(ctx context.Context, pc PipelineContext, chatID int64) (PipelineContext, entities.QueryResult, error) {
	if pc.PositionID == 0 {
		return pc, entities.QueryResult{}, ErrNoPosition
	}
	if pc.Query == nil || strings.TrimSpace(pc.Query.Text) == "" {
		return pc, entities.QueryResult{}, ErrEmptyQuery
	}
	query := strings.TrimSpace(pc.Query.Text)

	if pc.RunID == 0 {
		run, err := s.runs.Create(ctx, pc.PositionID, pc.JobDescription, pc.AdditionalInfo)
		if err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("couldn't create pipeline run: %v", err)
			return pc, entities.QueryResult{}, fmt.Errorf("couldn't create pipeline run: %w", err)
		}
		pc.RunID = run.ID
	}

	pc, err := s.recordArtifacts(ctx, pc, query)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("couldn't record run %d: %v", pc.RunID, err)
		return pc, entities.QueryResult{}, err
	}

	start := time.Now()
	result, err := s.executor.ExecuteAndPersist(ctx, query, pc.RunID, pc.PositionID)
	metrics.StageDuration.WithLabelValues("query_execution").Observe(time.Since(start).Seconds())
	if err != nil {
		if markErr := s.runs.MarkFailed(ctx, pc.RunID); markErr != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("couldn't mark run %d failed: %v", pc.RunID, markErr)
		}
		return pc, entities.QueryResult{}, err
	}
	metrics.FilteredCandidates.Observe(float64(len(result.Rows)))

	pc.Results = &result
	pc.ResultsRunID = pc.RunID
	pc.Selection = nil
	pc.Finalists = nil

	s.publishCompleted(ctx, pc.RunID, chatID, len(result.Rows))
	return pc, result, nil
}

func (s *QueryService) recordArtifacts(ctx context.Context, pc PipelineContext, query string) (PipelineContext, error) {

	snapshot := entities.PromptsPayload{}

	for _, step := range []entities.StepName{entities.StepKeywordExtraction, entities.StepKeywordRefinement,
		entities.StepKeywordCombination} {

		result := pc.keywordResult(step)
		if result.empty() {
			continue
		}
		if result.TemplateBody != "" {
			snapshot[step] = result.TemplateBody
		}
		if result.Recorded {
			continue
		}
		if err := s.append(ctx, pc.RunID, step, result.payload()); err != nil {
			return pc, err
		}

		recorded := *result
		recorded.Recorded = true
		pc = pc.replaceKeywordResult(step, &recorded)
	}

	if draft := pc.Query; draft != nil && draft.Generated != "" {
		if draft.TemplateBody != "" {
			snapshot[entities.StepSqlGeneration] = draft.TemplateBody
		}
		if !draft.Recorded {
			payload := entities.QueryPayload{Query: draft.Generated, Prompt: draft.Prompt, RawResponse: draft.RawResponse}
			if err := s.append(ctx, pc.RunID, entities.StepSqlGeneration, payload); err != nil {
				return pc, err
			}
			recorded := *draft
			recorded.Recorded = true
			pc.Query = &recorded
		}
	}

	if len(snapshot) > 0 {
		if err := s.append(ctx, pc.RunID, entities.StepPrompts, snapshot); err != nil {
			return pc, err
		}
	}

	return pc, s.append(ctx, pc.RunID, entities.StepFinalQuery, entities.QueryPayload{Query: query})
}

func (s *QueryService) append(ctx context.Context, runID int, step entities.StepName, payload any) error {
	result, err := entities.NewStepResult(runID, step, payload)
	if err != nil {
		return err
	}
	_, err = s.runs.AppendStepResult(ctx, result)
	return err
}

func (s *QueryService) publishCompleted(ctx context.Context, runID int, chatID int64, rows int) {
	if s.bus == nil {
		return
	}
	run, err := s.runs.Get(ctx, runID)
	if err != nil || run == nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("couldn't load completed run %d: %v", runID, err)
		return
	}
	s.bus.Publish(events.RunCompletedTopic, events.RunCompleted{Run: *run, ChatID: chatID, FilteredRows: rows})
}
