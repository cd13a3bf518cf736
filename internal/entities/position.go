package entities

import "time"

// Position is a hiring requisition. Only ScoutURL changes after ingestion.
type Position struct {
	ID             int
	PoolName       string
	CompanyName    string
	CandidateCount int
	Demand         string
	ScoutURL       string
	CreatedAt      time.Time
}

func (p Position) DisplayName() string {
	if p.CompanyName == "" {
		return p.PoolName
	}
	return p.PoolName + " (" + p.CompanyName + ")"
}
