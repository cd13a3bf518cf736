package gemini

import (
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"testing"
)

func Test_ResponseText_WhenSeveralTextParts_ShouldJoin(t *testing.T) {
	response := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []genai.Part{genai.Text("골랑,"), genai.Text("쿠버네티스")}}},
	}}

	text, err := responseText(response)
	assert.NoError(t, err)
	assert.Equal(t, "골랑,쿠버네티스", text)
}

func Test_ResponseText_WhenNoCandidates_ShouldFail(t *testing.T) {
	_, err := responseText(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []genai.Part{genai.Text("  ")}}},
	}})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func Test_SetRateLimits_WhenZero_ShouldStayUnlimited(t *testing.T) {
	c := &Client{}
	c.SetMinuteRateLimit(0)
	c.SetDayRateLimit(0)
	assert.Nil(t, c.minuteRateLimiter)
	assert.Nil(t, c.dayRateLimiter)

	c.SetMinuteRateLimit(60)
	assert.NotNil(t, c.minuteRateLimiter)
}
