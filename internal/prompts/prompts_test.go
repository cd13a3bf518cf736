package prompts

import (
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

func Test_Fill_WhenAllSupplied_ShouldSubstituteEveryOccurrence(t *testing.T) {
	prompt, err := Fill("{keywords} / {job_description} / {keywords}", Variables{
		Keywords:       "go,grpc",
		JobDescription: "백엔드",
	})
	require.NoError(t, err)
	assert.Equal(t, "go,grpc / 백엔드 / go,grpc", prompt)
}

func Test_Fill_WhenPlaceholderMissing_ShouldFail(t *testing.T) {
	_, err := Fill("{extracted_keywords} {refined_keywords}", Variables{ExtractedKeywords: "a"})

	var unresolved *UnresolvedError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, []string{"refined_keywords"}, unresolved.Names)
}

func Test_Fill_WhenValueContainsBraces_ShouldNotExpandAgain(t *testing.T) {
	prompt, err := Fill("{job_type}", Variables{JobType: "{job_description}"})
	require.NoError(t, err)
	assert.Equal(t, "{job_description}", prompt)
}

func Test_Validate_WhenForeignPlaceholder_ShouldFail(t *testing.T) {
	assert.NoError(t, Validate(entities.StepKeywordRefinement, "직무: {job_type}"))
	assert.Error(t, Validate(entities.StepKeywordRefinement, "{job_description}"))
	assert.Error(t, Validate(entities.StepKeywordRefinement, "   "))
}

func Test_Default_ShouldExistForEveryTemplateStepAndValidate(t *testing.T) {
	for _, step := range entities.TemplateSteps {
		template, ok := Default(step)
		require.True(t, ok, step)
		assert.NoError(t, Validate(step, template.Body), step)
	}

	_, ok := Default(entities.StepFinalQuery)
	assert.False(t, ok)
}

func Test_SystemInstruction_ShouldDifferForSql(t *testing.T) {
	assert.True(t, strings.Contains(SystemInstruction(entities.StepSqlGeneration), "SQL"))
	assert.Equal(t, RecruiterInstruction, SystemInstruction(entities.StepKeywordExtraction))
}

func Test_Default_SqlGeneration_ShouldAskForCaseInsensitiveMatching(t *testing.T) {
	template, ok := Default(entities.StepSqlGeneration)
	require.True(t, ok)

	assert.Contains(t, template.Body, "LOWER(컬럼) LIKE LOWER('%키워드%')")
	assert.NotContains(t, strings.ReplaceAll(template.Body, "ILIKE는 사용하지 않는다", ""), "ILIKE")
}
