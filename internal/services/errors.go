package services

import "errors"

var (
	ErrNoPosition           = errors.New("no position selected")
	ErrPositionNotFound     = errors.New("position not found")
	ErrEmptyJobDescription  = errors.New("job description is empty")
	ErrEmptyJobType         = errors.New("job type is empty")
	ErrCombinePreconditions = errors.New("extract and refine results are required before combining")
	ErrEmptyKeywords        = errors.New("combined keywords are empty")
	ErrKeywordCount         = errors.New("completion returned an unexpected number of keywords")
	ErrEmptyQuery           = errors.New("query is empty")
	ErrNoResults            = errors.New("no query results to select from")
	ErrUnknownCandidate     = errors.New("candidate is not part of the result set")
	ErrNoSelection          = errors.New("at least one candidate must be selected")
	ErrInvalidRun           = errors.New("pipeline run is missing or belongs to another position")
	ErrNoMessage            = errors.New("scout message is not composed")
	ErrMessageLocked        = errors.New("scout message was already sent and can't be edited")
	ErrCandidateNotFound    = errors.New("candidate is not mapped to the position")
	ErrNoScoutURL           = errors.New("position has no scout url")
	ErrUnrecognizedStatus   = errors.New("unrecognized response status")
	ErrUnknownStep          = errors.New("step has no editable keywords")
	ErrInvalidExpiry        = errors.New("message expiry must be between today and 30 days from now")
	ErrContactNotCollected  = errors.New("accepted but contact not collected")
)
