package entities

import "time"

type ScoutMessage struct {
	ID         int
	PositionID int `gorm:"index"`
	RunID      int `gorm:"uniqueIndex"`
	Title      string
	Content    string
	ValidUntil time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ScoutHistory struct {
	ID                  int
	PositionCandidateID int `gorm:"index"`
	MessageID           *int
	Status              ScoutStatus
	CreatedAt           time.Time
}
