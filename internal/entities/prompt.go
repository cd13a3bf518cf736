package entities

import (
	"gorm.io/datatypes"
	"time"
)

type PromptTemplate struct {
	ID        int
	StepName  StepName `gorm:"index"`
	Name      string
	Body      string
	IsDefault bool
	CreatedAt time.Time
}

// PromptExecution is a write-once audit row of a completion call.
type PromptExecution struct {
	ID          int
	RunID       *int
	StepName    StepName
	TemplateID  *int
	Prompt      string
	RawResponse string
	Variables   datatypes.JSONMap
	CreatedAt   time.Time
}
