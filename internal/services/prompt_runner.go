package services

import (
	"context"
	"fmt"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/maxaizer/scout-pipeline/internal/logger"
	"github.com/maxaizer/scout-pipeline/internal/metrics"
	"github.com/maxaizer/scout-pipeline/internal/prompts"
	log "github.com/sirupsen/logrus"
	"time"
)

type completionClient interface {
	Complete(ctx context.Context, systemInstruction string, prompt string) (string, error)
}

type templateSource interface {
	GetLatest(ctx context.Context, step entities.StepName) (*entities.PromptTemplate, error)
}

type executionRecorder interface {
	Record(ctx context.Context, execution entities.PromptExecution) error
}

type completion struct {
	prompt       string
	raw          string
	templateID   *int
	templateBody string
}

// promptRunner fills the current template of a step and runs the completion.
type promptRunner struct {
	ai         completionClient
	templates  templateSource
	executions executionRecorder
}

func newPromptRunner(ai completionClient, templates templateSource, executions executionRecorder) promptRunner {
	return promptRunner{ai: ai, templates: templates, executions: executions}
}

func (r promptRunner) template(ctx context.Context, step entities.StepName) (entities.PromptTemplate, error) {
	stored, err := r.templates.GetLatest(ctx, step)
	if err != nil {
		return entities.PromptTemplate{}, fmt.Errorf("couldn't load %s template: %w", step, err)
	}
	if stored != nil {
		return *stored, nil
	}

	fallback, ok := prompts.Default(step)
	if !ok {
		return entities.PromptTemplate{}, fmt.Errorf("no template for step %s", step)
	}
	return fallback, nil
}

func (r promptRunner) run(ctx context.Context, step entities.StepName, vars prompts.Variables, runID int) (completion, error) {

	template, err := r.template(ctx, step)
	if err != nil {
		return completion{}, err
	}

	prompt, err := prompts.Fill(template.Body, vars)
	if err != nil {
		return completion{}, fmt.Errorf("template %q: %w", template.Name, err)
	}

	start := time.Now()
	raw, err := r.ai.Complete(ctx, prompts.SystemInstruction(step), prompt)
	metrics.StageDuration.WithLabelValues(string(step)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CompletionCalls.WithLabelValues(string(step), "error").Inc()
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeAiApi).Errorf("%s completion failed: %v", step, err)
		return completion{}, fmt.Errorf("%s completion failed: %w", step, err)
	}
	metrics.CompletionCalls.WithLabelValues(string(step), "ok").Inc()

	result := completion{prompt: prompt, raw: raw, templateBody: template.Body}
	if template.ID != 0 {
		id := template.ID
		result.templateID = &id
	}

	r.record(ctx, step, vars, runID, result)
	return result, nil
}

// record writes the audit row. The pipeline never reads it back, so failures are only logged.
func (r promptRunner) record(ctx context.Context, step entities.StepName, vars prompts.Variables, runID int, c completion) {
	if r.executions == nil {
		return
	}

	variables := make(map[string]any, len(vars))
	for k, v := range vars {
		variables[string(k)] = v
	}

	execution := entities.PromptExecution{
		StepName:    step,
		TemplateID:  c.templateID,
		Prompt:      c.prompt,
		RawResponse: c.raw,
		Variables:   variables,
	}
	if runID != 0 {
		execution.RunID = &runID
	}

	if err := r.executions.Record(ctx, execution); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("couldn't record %s execution: %v", step, err)
	}
}
