package services

import (
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"strings"
)

// KeywordResult is the working copy of one keyword step output.
type KeywordResult struct {
	Keywords     []string `json:"keywords"`
	Prompt       string   `json:"prompt"`
	RawResponse  string   `json:"raw_response"`
	TemplateID   *int     `json:"template_id,omitempty"`
	TemplateBody string   `json:"template_body"`
	Edited       bool     `json:"edited"`
	Recorded     bool     `json:"recorded"`
}

func (k *KeywordResult) Text() string {
	if k == nil {
		return ""
	}
	return strings.Join(k.Keywords, ", ")
}

func (k *KeywordResult) empty() bool {
	return k == nil || len(k.Keywords) == 0
}

func (k *KeywordResult) payload() entities.KeywordsPayload {
	return entities.KeywordsPayload{
		Keywords:    k.Keywords,
		Prompt:      k.Prompt,
		RawResponse: k.RawResponse,
		TemplateID:  k.TemplateID,
	}
}

// QueryDraft holds the generated query and the operator edit buffer.
type QueryDraft struct {
	Generated    string `json:"generated"`
	Text         string `json:"text"`
	Prompt       string `json:"prompt"`
	RawResponse  string `json:"raw_response"`
	TemplateID   *int   `json:"template_id,omitempty"`
	TemplateBody string `json:"template_body"`
	Recorded     bool   `json:"recorded"`
}

type SelectionState struct {
	Selected bool `json:"selected"`
	Fixed    bool `json:"fixed"`
}

// PipelineContext is the operator's working state. Stages take it by value
// and return the updated copy.
type PipelineContext struct {
	PositionID     int                       `json:"position_id"`
	JobDescription string                    `json:"job_description"`
	AdditionalInfo string                    `json:"additional_info"`
	JobType        string                    `json:"job_type"`
	RunID          int                       `json:"run_id"`
	Extracted      *KeywordResult            `json:"extracted,omitempty"`
	Refined        *KeywordResult            `json:"refined,omitempty"`
	Combined       *KeywordResult            `json:"combined,omitempty"`
	Query          *QueryDraft               `json:"query,omitempty"`
	Results        *entities.QueryResult     `json:"results,omitempty"`
	ResultsRunID   int                       `json:"results_run_id"`
	Selection      map[string]SelectionState `json:"selection,omitempty"`
	Finalists      []string                  `json:"finalists,omitempty"`
	Message        *entities.ScoutMessage    `json:"message,omitempty"`
}

// WithPosition switches the position and drops every derived artifact.
func (pc PipelineContext) WithPosition(positionID int, jobDescription string) PipelineContext {
	return PipelineContext{PositionID: positionID, JobDescription: jobDescription}
}

// WithJobDescription starts a new run for the same position when the text changes.
func (pc PipelineContext) WithJobDescription(jobDescription, additionalInfo string) PipelineContext {
	if jobDescription == pc.JobDescription && additionalInfo == pc.AdditionalInfo {
		return pc
	}
	next := pc.WithPosition(pc.PositionID, jobDescription)
	next.AdditionalInfo = additionalInfo
	next.JobType = pc.JobType
	return next
}

// Restart abandons the current run and keeps only the operator inputs.
func (pc PipelineContext) Restart() PipelineContext {
	next := pc.WithPosition(pc.PositionID, pc.JobDescription)
	next.AdditionalInfo = pc.AdditionalInfo
	next.JobType = pc.JobType
	return next
}

// invalidateAfter clears everything derived from the given step.
func (pc PipelineContext) invalidateAfter(step entities.StepName) PipelineContext {
	switch step {
	case entities.StepKeywordExtraction, entities.StepKeywordRefinement:
		pc.Combined = nil
		pc.Query = nil
	case entities.StepKeywordCombination:
		pc.Query = nil
	}
	return pc
}

func (pc PipelineContext) keywordResult(step entities.StepName) *KeywordResult {
	switch step {
	case entities.StepKeywordExtraction:
		return pc.Extracted
	case entities.StepKeywordRefinement:
		return pc.Refined
	case entities.StepKeywordCombination:
		return pc.Combined
	default:
		return nil
	}
}

func (pc PipelineContext) withKeywordResult(step entities.StepName, result *KeywordResult) PipelineContext {
	return pc.replaceKeywordResult(step, result).invalidateAfter(step)
}

// EditQuery replaces the edit buffer. Execution always uses this text.
func (pc PipelineContext) EditQuery(text string) PipelineContext {
	draft := QueryDraft{}
	if pc.Query != nil {
		draft = *pc.Query
	}
	draft.Text = text
	pc.Query = &draft
	return pc
}

func (pc PipelineContext) SelectedKeys() []string {
	if pc.Results == nil {
		return nil
	}
	var keys []string
	for _, key := range pc.Results.Keys() {
		if pc.Selection[key].Selected {
			keys = append(keys, key)
		}
	}
	return keys
}

// replaceKeywordResult swaps a keyword result without invalidating later steps.
func (pc PipelineContext) replaceKeywordResult(step entities.StepName, result *KeywordResult) PipelineContext {
	switch step {
	case entities.StepKeywordExtraction:
		pc.Extracted = result
	case entities.StepKeywordRefinement:
		pc.Refined = result
	case entities.StepKeywordCombination:
		pc.Combined = result
	}
	return pc
}
