package services

import (
	"context"
	"fmt"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/maxaizer/scout-pipeline/internal/events"
	"github.com/maxaizer/scout-pipeline/internal/logger"
	"github.com/maxaizer/scout-pipeline/internal/metrics"
	log "github.com/sirupsen/logrus"
	"strings"
	"time"
)

type StatusSource interface {
	FetchStatus(ctx context.Context, url string, candidate entities.Candidate) (string, error)
	FetchContactInfo(ctx context.Context, pageURL string) (entities.ContactInfo, error)
}

type responseRepository interface {
	ListByStatus(ctx context.Context, positionID int, statuses ...entities.ScoutStatus) ([]entities.PositionCandidate, error)
	Get(ctx context.Context, positionID int, candidateKey string) (*entities.PositionCandidate, error)
	SetStatus(ctx context.Context, id int, status entities.ScoutStatus, messageID *int) error
}

type contactRepository interface {
	UpdateContact(ctx context.Context, key string, name string, contact string) error
}

type positionSource interface {
	Get(ctx context.Context, id int) (*entities.Position, error)
	WithScoutURL(ctx context.Context) ([]entities.Position, error)
}

type ResponseReport struct {
	PositionID int
	Checked    int
	Updated    map[entities.ScoutStatus]int
	Errors     []string
}

type ResponseService struct {
	positions  positionSource
	candidates responseRepository
	contacts   contactRepository
	source     StatusSource
	bus        EventBus.Bus
}

func NewResponseService(positions positionSource, candidates responseRepository, contacts contactRepository,
	source StatusSource, bus EventBus.Bus) *ResponseService {
	return &ResponseService{
		positions:  positions,
		candidates: candidates,
		contacts:   contacts,
		source:     source,
		bus:        bus,
	}
}

// ParseResponseStatus maps the label read from the scout page to a funnel status.
func ParseResponseStatus(raw string) (entities.ScoutStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "accepted", "수락":
		return entities.StatusAccepted, nil
	case "rejected", "거절":
		return entities.StatusRejected, nil
	case "no_response", "미응답":
		return entities.StatusNoResponseRejected, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnrecognizedStatus, raw)
	}
}

// CheckPosition reads the response of every sent candidate of the position.
// A failure for one candidate is reported and the check moves on.
func (s *ResponseService) CheckPosition(ctx context.Context, positionID int, chatID int64) (ResponseReport, error) {
	position, err := s.positions.Get(ctx, positionID)
	if err != nil {
		return ResponseReport{}, err
	}
	if position == nil {
		return ResponseReport{}, ErrPositionNotFound
	}
	if position.ScoutURL == "" {
		return ResponseReport{}, ErrNoScoutURL
	}

	rows, err := s.candidates.ListByStatus(ctx, positionID, entities.StatusSent)
	if err != nil {
		return ResponseReport{}, err
	}

	start := time.Now()
	report := ResponseReport{PositionID: positionID, Updated: map[entities.ScoutStatus]int{}}
	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}
		report.Checked++
		if err := s.check(context.WithoutCancel(ctx), position.ScoutURL, row, &report); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", row.CandidateKey, err))
		}
	}
	metrics.StageDuration.WithLabelValues("response_tracking").Observe(time.Since(start).Seconds())

	if s.bus != nil {
		s.bus.Publish(events.ResponsesCheckedTopic, events.ResponsesChecked{
			PositionID: positionID,
			ChatID:     chatID,
			Updated:    report.Updated,
			Errors:     report.Errors,
		})
	}
	return report, nil
}

func (s *ResponseService) check(ctx context.Context, url string, row entities.PositionCandidate, report *ResponseReport) error {
	candidate := entities.Candidate{SourceKey: row.CandidateKey}
	if row.Candidate != nil {
		candidate = *row.Candidate
	}

	raw, err := s.source.FetchStatus(ctx, url, candidate)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeBrowser).Errorf("status check failed: %v", err)
		return err
	}
	status, err := ParseResponseStatus(raw)
	if err != nil {
		log.Warnf("candidate %s left unchanged: %v", row.CandidateKey, err)
		return err
	}

	if err = s.candidates.SetStatus(ctx, row.ID, status, nil); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("couldn't update status of %s: %v", row.CandidateKey, err)
		return err
	}
	report.Updated[status]++
	metrics.ResponseStatuses.WithLabelValues(string(status)).Inc()

	if status == entities.StatusAccepted {
		return s.collectContact(ctx, candidate)
	}
	return nil
}

func (s *ResponseService) collectContact(ctx context.Context, candidate entities.Candidate) error {
	pageURL := ""
	if candidate.PageURL != nil {
		pageURL = *candidate.PageURL
	}

	info, err := s.source.FetchContactInfo(ctx, pageURL)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeBrowser).Errorf("contact collection failed: %v", err)
		return fmt.Errorf("%w: %w", ErrContactNotCollected, err)
	}
	if err = s.contacts.UpdateContact(ctx, candidate.SourceKey, info.Name, info.Contact); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("couldn't save contact of %s: %v", candidate.SourceKey, err)
		return err
	}
	return nil
}

// SetStatusManually applies any status, including moves back in the funnel.
// An accepted candidate gets the given contact, or the one read from the page
// when contact is nil.
func (s *ResponseService) SetStatusManually(ctx context.Context, positionID int, key string,
	status entities.ScoutStatus, contact *entities.ContactInfo) error {
	if _, err := entities.ParseScoutStatus(string(status)); err != nil {
		return err
	}

	row, err := s.candidates.Get(ctx, positionID, key)
	if err != nil {
		return err
	}
	if row == nil {
		return ErrCandidateNotFound
	}

	if err = s.candidates.SetStatus(ctx, row.ID, status, nil); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("couldn't update status of %s: %v", key, err)
		return err
	}
	metrics.ResponseStatuses.WithLabelValues(string(status)).Inc()

	if status != entities.StatusAccepted {
		return nil
	}
	if contact == nil {
		candidate := entities.Candidate{SourceKey: key}
		if row.Candidate != nil {
			candidate = *row.Candidate
		}
		return s.collectContact(ctx, candidate)
	}
	if err = s.contacts.UpdateContact(ctx, key, contact.Name, contact.Contact); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("couldn't save contact of %s: %v", key, err)
		return err
	}
	return nil
}

// CheckAll runs CheckPosition for every position with a scout url.
func (s *ResponseService) CheckAll(ctx context.Context) ([]ResponseReport, error) {
	positions, err := s.positions.WithScoutURL(ctx)
	if err != nil {
		return nil, err
	}

	var reports []ResponseReport
	for _, position := range positions {
		if ctx.Err() != nil {
			return reports, ctx.Err()
		}
		report, err := s.CheckPosition(ctx, position.ID, 0)
		if err != nil {
			log.Errorf("response check of position %d failed: %v", position.ID, err)
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}
