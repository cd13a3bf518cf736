package events

import "github.com/maxaizer/scout-pipeline/internal/entities"

const (
	OutreachProgressTopic = "OutreachProgressEvent"
	OutreachFinishedTopic = "OutreachFinishedEvent"
	DeliveryFailedTopic   = "DeliveryFailedEvent"
	RunCompletedTopic     = "RunCompletedEvent"
	ResponsesCheckedTopic = "ResponsesCheckedEvent"
)

// OutreachProgress is published after every delivery attempt of a job.
type OutreachProgress struct {
	JobID     string
	ChatID    int64
	Completed int
	Total     int
}

type OutreachFinished struct {
	JobID        string
	ChatID       int64
	SuccessCount int
	Failed       []string
	Cancelled    bool
}

type DeliveryFailed struct {
	JobID        string
	ChatID       int64
	CandidateKey string
	Error        string
}

type RunCompleted struct {
	Run          entities.PipelineRun
	ChatID       int64
	FilteredRows int
}

type ResponsesChecked struct {
	PositionID int
	ChatID     int64
	Updated    map[entities.ScoutStatus]int
	Errors     []string
}
