// Package prompts fills prompt templates from a closed set of placeholders.
package prompts

import (
	"fmt"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/samber/lo"
	"regexp"
	"strings"
)

type Placeholder string

const (
	JobDescription    Placeholder = "job_description"
	JobType           Placeholder = "job_type"
	ExtractedKeywords Placeholder = "extracted_keywords"
	RefinedKeywords   Placeholder = "refined_keywords"
	Keywords          Placeholder = "keywords"
)

type Variables map[Placeholder]string

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

var stepPlaceholders = map[entities.StepName][]Placeholder{
	entities.StepKeywordExtraction:  {JobDescription},
	entities.StepKeywordRefinement:  {JobType},
	entities.StepKeywordCombination: {ExtractedKeywords, RefinedKeywords},
	entities.StepSqlGeneration:      {Keywords, JobDescription},
}

func PlaceholdersFor(step entities.StepName) []Placeholder {
	return stepPlaceholders[step]
}

type UnresolvedError struct {
	Names []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved placeholders: {%s}", strings.Join(e.Names, "}, {"))
}

// Fill substitutes every placeholder of the body. Any placeholder without a
// supplied value is an error.
func Fill(body string, vars Variables) (string, error) {
	var missing []string
	for _, match := range placeholderPattern.FindAllStringSubmatch(body, -1) {
		if _, ok := vars[Placeholder(match[1])]; !ok {
			missing = append(missing, match[1])
		}
	}
	if len(missing) > 0 {
		return "", &UnresolvedError{Names: lo.Uniq(missing)}
	}

	return placeholderPattern.ReplaceAllStringFunc(body, func(token string) string {
		return vars[Placeholder(token[1:len(token)-1])]
	}), nil
}

// Validate checks that the body only references placeholders the step supplies.
func Validate(step entities.StepName, body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("template body is empty")
	}

	allowed := PlaceholdersFor(step)
	var unknown []string
	for _, match := range placeholderPattern.FindAllStringSubmatch(body, -1) {
		if !lo.Contains(allowed, Placeholder(match[1])) {
			unknown = append(unknown, match[1])
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("step %s doesn't supply placeholders: %s", step, strings.Join(lo.Uniq(unknown), ", "))
	}
	return nil
}
