package entities

import (
	"fmt"
	"time"
)

// Candidate is a scraped profile. Pointer fields are optional and may be absent.
type Candidate struct {
	SourceKey              string `gorm:"primaryKey"`
	Name                   *string
	CareerStatus           *string
	BirthYear              *string
	Location               *string
	DesiredAnnualSalary    *string
	MySkills               *string
	WorkExperience         *string
	CareerTechnicalDetails *string
	AcademicBackground     *string
	DesiredJob             *string
	Keywords               *string
	DesiredWorkRegion      *string
	WorkYear               *string
	LoginDt                *string
	BriefIntroduction      *string
	CertificatesAwards     *string
	ResumeUpdateDt         *string
	PageURL                *string
	ContactInfo            *string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (c Candidate) DisplayName() string {
	if c.Name != nil && *c.Name != "" {
		return *c.Name
	}
	return c.SourceKey
}

type ScoutStatus string

const (
	StatusExtracted          ScoutStatus = "extracted"
	StatusSent               ScoutStatus = "sent"
	StatusAccepted           ScoutStatus = "accepted"
	StatusRejected           ScoutStatus = "rejected"
	StatusNoResponseRejected ScoutStatus = "no_response_rejected"
)

var ScoutStatuses = []ScoutStatus{StatusExtracted, StatusSent, StatusAccepted, StatusRejected, StatusNoResponseRejected}

func ParseScoutStatus(s string) (ScoutStatus, error) {
	for _, status := range ScoutStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown scout status: %q", s)
}

// PositionCandidate places a candidate in the outreach funnel of one position.
type PositionCandidate struct {
	ID            int
	PositionID    int    `gorm:"uniqueIndex:idx_position_candidate"`
	CandidateKey  string `gorm:"uniqueIndex:idx_position_candidate"`
	ScoutStatus   ScoutStatus
	LastCheckedAt time.Time
	CreatedAt     time.Time
	Candidate     *Candidate `gorm:"foreignKey:CandidateKey;references:SourceKey"`
}

type ContactInfo struct {
	Name    string
	Contact string
}
