package services

import (
	"context"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/maxaizer/scout-pipeline/internal/prompts"
	"regexp"
	"strings"
	"unicode"
)

const (
	maxExtractedKeywords = 10
	refinedKeywordsCount = 5
	maxCombinedKeywords  = 20
)

var listMarker = regexp.MustCompile(`^\s*(\d+[.)]|[-*•·])\s*`)

// KeywordService derives search keywords: extract, refine, then combine.
type KeywordService struct {
	runner promptRunner
}

func NewKeywordService(ai completionClient, templates templateSource, executions executionRecorder) *KeywordService {
	return &KeywordService{runner: newPromptRunner(ai, templates, executions)}
}

func (s *KeywordService) Extract(ctx context.Context, pc PipelineContext) (PipelineContext, error) {
	jd := strings.TrimSpace(pc.JobDescription)
	if jd == "" {
		return pc, ErrEmptyJobDescription
	}

	result, err := s.derive(ctx, pc, entities.StepKeywordExtraction, prompts.Variables{prompts.JobDescription: jd})
	if err != nil {
		return pc, err
	}
	return pc.withKeywordResult(entities.StepKeywordExtraction, result), nil
}

func (s *KeywordService) Refine(ctx context.Context, pc PipelineContext, jobType string) (PipelineContext, error) {
	jobType = strings.TrimSpace(jobType)
	if jobType == "" {
		return pc, ErrEmptyJobType
	}

	result, err := s.derive(ctx, pc, entities.StepKeywordRefinement, prompts.Variables{prompts.JobType: jobType})
	if err != nil {
		return pc, err
	}
	if len(result.Keywords) < refinedKeywordsCount {
		return pc, ErrKeywordCount
	}

	pc.JobType = jobType
	return pc.withKeywordResult(entities.StepKeywordRefinement, result), nil
}

func (s *KeywordService) Combine(ctx context.Context, pc PipelineContext) (PipelineContext, error) {
	if pc.Extracted.empty() || pc.Refined.empty() {
		return pc, ErrCombinePreconditions
	}

	result, err := s.derive(ctx, pc, entities.StepKeywordCombination, prompts.Variables{
		prompts.ExtractedKeywords: pc.Extracted.Text(),
		prompts.RefinedKeywords:   pc.Refined.Text(),
	})
	if err != nil {
		return pc, err
	}
	return pc.withKeywordResult(entities.StepKeywordCombination, result), nil
}

// Override replaces a step result with operator text. Empty text clears the result.
func (s *KeywordService) Override(pc PipelineContext, step entities.StepName, text string) (PipelineContext, error) {
	limit, ok := keywordLimits[step]
	if !ok {
		return pc, ErrUnknownStep
	}

	keywords := ParseKeywords(text, limit)
	if len(keywords) == 0 {
		return pc.withKeywordResult(step, nil), nil
	}

	result := KeywordResult{Edited: true}
	if current := pc.keywordResult(step); current != nil {
		result = *current
		result.Edited, result.Recorded = true, false
	}
	result.Keywords = keywords
	return pc.withKeywordResult(step, &result), nil
}

var keywordLimits = map[entities.StepName]int{
	entities.StepKeywordExtraction:  maxExtractedKeywords,
	entities.StepKeywordRefinement:  refinedKeywordsCount,
	entities.StepKeywordCombination: maxCombinedKeywords,
}

func (s *KeywordService) derive(ctx context.Context, pc PipelineContext, step entities.StepName,
	vars prompts.Variables) (*KeywordResult, error) {

	c, err := s.runner.run(ctx, step, vars, pc.RunID)
	if err != nil {
		return nil, err
	}

	keywords := ParseKeywords(c.raw, keywordLimits[step])
	if len(keywords) == 0 {
		return nil, ErrKeywordCount
	}

	return &KeywordResult{
		Keywords:     keywords,
		Prompt:       c.prompt,
		RawResponse:  strings.TrimSpace(c.raw),
		TemplateID:   c.templateID,
		TemplateBody: c.templateBody,
	}, nil
}

// ParseKeywords splits completion output into single-token keywords, dropping
// list markers and duplicates, and keeps at most limit of them.
func ParseKeywords(raw string, limit int) []string {
	items := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == ',' || r == '，' || r == '、'
	})

	seen := make(map[string]struct{}, len(items))
	keywords := make([]string, 0, limit)
	for _, item := range items {
		item = listMarker.ReplaceAllString(item, "")
		item = strings.Trim(item, "*\"'`[] \t\r")
		item = strings.Join(strings.FieldsFunc(item, unicode.IsSpace), "")
		if item == "" {
			continue
		}

		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		keywords = append(keywords, item)
		if len(keywords) == limit {
			break
		}
	}
	return keywords
}
