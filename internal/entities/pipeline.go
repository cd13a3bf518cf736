package entities

import (
	"encoding/json"
	"fmt"
	"gorm.io/datatypes"
	"time"
)

type RunStatus string

const (
	RunInProgress RunStatus = "in_progress"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

type StepName string

const (
	StepKeywordExtraction  StepName = "keyword_extraction"
	StepKeywordRefinement  StepName = "keyword_refinement"
	StepKeywordCombination StepName = "keyword_combination"
	StepSqlGeneration      StepName = "sql_generation"
	StepPrompts            StepName = "prompts"
	StepFinalQuery         StepName = "final_query"
)

// TemplateSteps are the steps that own prompt templates.
var TemplateSteps = []StepName{StepKeywordExtraction, StepKeywordRefinement, StepKeywordCombination, StepSqlGeneration}

type PipelineRun struct {
	ID             int
	PositionID     int `gorm:"index"`
	JobDescription string
	AdditionalInfo string
	Status         RunStatus `gorm:"default:in_progress"`
	FilteredCount  int
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// StepResult is one append-only ledger entry of a run.
type StepResult struct {
	ID         int
	RunID      int `gorm:"uniqueIndex:idx_run_step"`
	StepNumber int `gorm:"uniqueIndex:idx_run_step"`
	StepName   StepName
	Payload    datatypes.JSON
	CreatedAt  time.Time
}

func NewStepResult(runID int, name StepName, payload any) (StepResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return StepResult{}, fmt.Errorf("couldn't encode %s payload: %w", name, err)
	}
	return StepResult{RunID: runID, StepName: name, Payload: data}, nil
}

func (s StepResult) Decode(v any) error {
	return json.Unmarshal(s.Payload, v)
}

type KeywordsPayload struct {
	Keywords    []string `json:"keywords"`
	Prompt      string   `json:"prompt"`
	RawResponse string   `json:"raw_response"`
	TemplateID  *int     `json:"template_id,omitempty"`
}

type QueryPayload struct {
	Query       string `json:"query"`
	Prompt      string `json:"prompt,omitempty"`
	RawResponse string `json:"raw_response,omitempty"`
}

// PromptsPayload snapshots template bodies used by a run, keyed by step.
type PromptsPayload map[StepName]string
