package services

import (
	"context"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/maxaizer/scout-pipeline/internal/prompts"
	"github.com/samber/lo"
	"strings"
)

type templateStore interface {
	GetLatest(ctx context.Context, step entities.StepName) (*entities.PromptTemplate, error)
	List(ctx context.Context, step entities.StepName) ([]entities.PromptTemplate, error)
	Save(ctx context.Context, template entities.PromptTemplate) (int, error)
}

type TemplateService struct {
	store templateStore
}

func NewTemplateService(store templateStore) *TemplateService {
	return &TemplateService{store: store}
}

// Save stores a new template row. Saved templates are never changed afterwards.
func (s *TemplateService) Save(ctx context.Context, step entities.StepName, name, body string, isDefault bool) (int, error) {
	if !lo.Contains(entities.TemplateSteps, step) {
		return 0, ErrUnknownStep
	}
	if err := prompts.Validate(step, body); err != nil {
		return 0, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = string(step)
	}

	return s.store.Save(ctx, entities.PromptTemplate{
		StepName:  step,
		Name:      name,
		Body:      body,
		IsDefault: isDefault,
	})
}

func (s *TemplateService) List(ctx context.Context, step entities.StepName) ([]entities.PromptTemplate, error) {
	return s.store.List(ctx, step)
}

// Current returns the template the next call of the step will use.
func (s *TemplateService) Current(ctx context.Context, step entities.StepName) (entities.PromptTemplate, error) {
	stored, err := s.store.GetLatest(ctx, step)
	if err != nil {
		return entities.PromptTemplate{}, err
	}
	if stored != nil {
		return *stored, nil
	}
	fallback, ok := prompts.Default(step)
	if !ok {
		return entities.PromptTemplate{}, ErrUnknownStep
	}
	return fallback, nil
}
