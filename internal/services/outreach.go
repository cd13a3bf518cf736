package services

import (
	"context"
	"fmt"
	"github.com/asaskevich/EventBus"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/maxaizer/scout-pipeline/internal/events"
	"github.com/maxaizer/scout-pipeline/internal/logger"
	"github.com/maxaizer/scout-pipeline/internal/metrics"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"strings"
	"time"
)

const (
	defaultMessageValidity = 7 * 24 * time.Hour
	maxMessageValidity     = 30 * 24 * time.Hour
)

// Sender delivers a scout message. Failures are reported through the sender's
// own error callback, the pipeline only sees the boolean.
type Sender interface {
	Send(ctx context.Context, candidate entities.Candidate, message entities.ScoutMessage) bool
}

type messageRepository interface {
	GetByRun(ctx context.Context, runID int) (*entities.ScoutMessage, error)
	SaveForRun(ctx context.Context, message entities.ScoutMessage) (*entities.ScoutMessage, error)
	WasSent(ctx context.Context, messageID int) (bool, error)
}

type outreachRepository interface {
	ListByStatus(ctx context.Context, positionID int, statuses ...entities.ScoutStatus) ([]entities.PositionCandidate, error)
	Get(ctx context.Context, positionID int, candidateKey string) (*entities.PositionCandidate, error)
	MarkSent(ctx context.Context, id int, messageID *int) (bool, error)
}

type messageDraft struct {
	Title   string `validate:"required,max=200"`
	Content string `validate:"required,max=5000"`
}

// DeliveryJob is the resumable state of one outreach loop. SuccessCount and
// Failed accumulate across RetryFailed calls. A job must not be delivered
// from two goroutines at once.
type DeliveryJob struct {
	ID           string
	ChatID       int64
	PositionID   int
	Message      entities.ScoutMessage
	Total        int
	Completed    int
	SuccessCount int
	Failed       []string
	Cancelled    bool
}

type ProgressFunc func(completed, total int)

type OutreachService struct {
	messages   messageRepository
	candidates outreachRepository
	sender     Sender
	bus        EventBus.Bus
	delay      time.Duration
	validate   *validator.Validate
}

func NewOutreachService(messages messageRepository, candidates outreachRepository, sender Sender,
	bus EventBus.Bus, delay time.Duration) *OutreachService {
	return &OutreachService{
		messages:   messages,
		candidates: candidates,
		sender:     sender,
		bus:        bus,
		delay:      delay,
		validate:   validator.New(),
	}
}

// ComposeMessage saves the single message of the run. A zero validUntil means a week from now.
func (s *OutreachService) ComposeMessage(ctx context.Context, pc PipelineContext, title, content string,
	validUntil time.Time) (PipelineContext, error) {

	if pc.RunID == 0 {
		return pc, ErrInvalidRun
	}

	draft := messageDraft{Title: strings.TrimSpace(title), Content: strings.TrimSpace(content)}
	if err := s.validate.Struct(draft); err != nil {
		return pc, fmt.Errorf("invalid scout message: %w", err)
	}

	now := time.Now()
	if validUntil.IsZero() {
		validUntil = now.Add(defaultMessageValidity)
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if validUntil.Before(today) || validUntil.After(now.Add(maxMessageValidity)) {
		return pc, ErrInvalidExpiry
	}

	existing, err := s.messages.GetByRun(ctx, pc.RunID)
	if err != nil {
		return pc, err
	}
	if existing != nil {
		sent, err := s.messages.WasSent(ctx, existing.ID)
		if err != nil {
			return pc, err
		}
		if sent {
			return pc, ErrMessageLocked
		}
	}

	saved, err := s.messages.SaveForRun(ctx, entities.ScoutMessage{
		PositionID: pc.PositionID,
		RunID:      pc.RunID,
		Title:      draft.Title,
		Content:    draft.Content,
		ValidUntil: validUntil,
	})
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("couldn't save scout message: %v", err)
		return pc, err
	}

	pc.Message = saved
	return pc, nil
}

// StartDelivery sends the run message to every finalist still in status extracted.
func (s *OutreachService) StartDelivery(ctx context.Context, pc PipelineContext, chatID int64,
	progress ProgressFunc) (*DeliveryJob, error) {

	if pc.Message == nil {
		return nil, ErrNoMessage
	}

	rows, err := s.candidates.ListByStatus(ctx, pc.PositionID, entities.StatusExtracted)
	if err != nil {
		return nil, err
	}

	targets := lo.Map(rows, func(row entities.PositionCandidate, _ int) string { return row.CandidateKey })
	if len(pc.Finalists) > 0 {
		targets = lo.Intersect(targets, pc.Finalists)
	}
	if len(targets) == 0 {
		return nil, ErrNoSelection
	}

	job := &DeliveryJob{
		ID:         uuid.NewString(),
		ChatID:     chatID,
		PositionID: pc.PositionID,
		Message:    *pc.Message,
	}
	log.Infof("outreach job %s started for position %d, %d candidates", job.ID, job.PositionID, len(targets))

	s.deliver(ctx, job, targets, progress)
	return job, nil
}

// RetryFailed re-enters the delivery loop over the job's failure list only.
func (s *OutreachService) RetryFailed(ctx context.Context, job *DeliveryJob, progress ProgressFunc) error {
	if len(job.Failed) == 0 {
		return nil
	}
	targets := job.Failed
	job.Failed = nil
	job.Cancelled = false

	s.deliver(ctx, job, targets, progress)
	return nil
}

// MarkSentManually records a delivery made outside the sender.
func (s *OutreachService) MarkSentManually(ctx context.Context, pc PipelineContext, job *DeliveryJob, key string) error {
	row, err := s.candidates.Get(ctx, pc.PositionID, key)
	if err != nil {
		return err
	}
	if row == nil {
		return ErrCandidateNotFound
	}

	var messageID *int
	if pc.Message != nil {
		messageID = &pc.Message.ID
	}

	transitioned, err := s.candidates.MarkSent(ctx, row.ID, messageID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("couldn't mark %s sent: %v", key, err)
		return err
	}
	metrics.OutreachAttempts.WithLabelValues("manual").Inc()

	if job != nil && transitioned {
		job.SuccessCount++
		job.Failed = lo.Without(job.Failed, key)
	}
	return nil
}

// deliver attempts targets one at a time, waiting the configured delay between
// attempts. Cancellation is checked between attempts only; the remaining
// targets go to the failure list so a retry can pick them up.
func (s *OutreachService) deliver(ctx context.Context, job *DeliveryJob, targets []string, progress ProgressFunc) {
	limiter := rate.NewLimiter(rate.Every(s.delay), 1)
	job.Total = len(targets)
	job.Completed = 0

	for i, key := range targets {
		if err := limiter.Wait(ctx); err != nil {
			job.Cancelled = true
			job.Failed = append(job.Failed, targets[i:]...)
			log.Infof("outreach job %s cancelled after %d of %d", job.ID, job.Completed, job.Total)
			break
		}

		if err := s.attempt(context.WithoutCancel(ctx), job, key); err != nil {
			job.Failed = append(job.Failed, key)
			s.publish(events.DeliveryFailedTopic, events.DeliveryFailed{
				JobID: job.ID, ChatID: job.ChatID, CandidateKey: key, Error: err.Error(),
			})
		}

		job.Completed++
		if progress != nil {
			progress(job.Completed, job.Total)
		}
		s.publish(events.OutreachProgressTopic, events.OutreachProgress{
			JobID: job.ID, ChatID: job.ChatID, Completed: job.Completed, Total: job.Total,
		})
	}

	s.publish(events.OutreachFinishedTopic, events.OutreachFinished{
		JobID:        job.ID,
		ChatID:       job.ChatID,
		SuccessCount: job.SuccessCount,
		Failed:       append([]string(nil), job.Failed...),
		Cancelled:    job.Cancelled,
	})
}

func (s *OutreachService) attempt(ctx context.Context, job *DeliveryJob, key string) error {
	row, err := s.candidates.Get(ctx, job.PositionID, key)
	if err != nil {
		return err
	}
	if row == nil {
		return ErrCandidateNotFound
	}
	if row.ScoutStatus != entities.StatusExtracted {
		return nil
	}

	candidate := entities.Candidate{SourceKey: key}
	if row.Candidate != nil {
		candidate = *row.Candidate
	}

	if !s.sender.Send(ctx, candidate, job.Message) {
		metrics.OutreachAttempts.WithLabelValues("failed").Inc()
		return fmt.Errorf("delivery to %s failed", candidate.DisplayName())
	}

	transitioned, err := s.candidates.MarkSent(ctx, row.ID, &job.Message.ID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("message sent to %s but status not saved: %v", key, err)
		return err
	}
	metrics.OutreachAttempts.WithLabelValues("sent").Inc()
	if transitioned {
		job.SuccessCount++
	}
	return nil
}

func (s *OutreachService) publish(topic string, event any) {
	if s.bus != nil {
		s.bus.Publish(topic, event)
	}
}
