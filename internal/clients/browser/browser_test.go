package browser

import (
	"context"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/stretchr/testify/assert"
	"testing"
	"time"
)

func Test_Send_WhenPageURLMissing_ShouldReportErrorWithoutBrowser(t *testing.T) {
	b := New(context.Background(), true, time.Second)
	defer b.Close()

	var reportedKey string
	var reportedErr error
	b.SetErrorCallback(func(candidateKey string, err error) {
		reportedKey, reportedErr = candidateKey, err
	})

	ok := b.Send(context.Background(), entities.Candidate{SourceKey: "A"}, entities.ScoutMessage{Title: "t"})

	assert.False(t, ok)
	assert.Equal(t, "A", reportedKey)
	assert.ErrorIs(t, reportedErr, ErrNoPageURL)
}

func Test_Fetch_WhenURLEmpty_ShouldFailFast(t *testing.T) {
	b := New(context.Background(), true, time.Second)
	defer b.Close()

	_, err := b.FetchStatus(context.Background(), "", entities.Candidate{SourceKey: "A"})
	assert.Error(t, err)

	_, err = b.FetchContactInfo(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoPageURL)
}
