package services

import (
	"context"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/maxaizer/scout-pipeline/internal/logger"
	log "github.com/sirupsen/logrus"
)

type scrapeRequester interface {
	RequestScraping(ctx context.Context, platform string) error
}

type scrapingTaskRepository interface {
	CountPending(ctx context.Context) (int64, error)
	Recent(ctx context.Context, limit int) ([]entities.ScrapingTask, error)
}

type ScrapingStatus struct {
	Pending int64
	Recent  []entities.ScrapingTask
}

type ScrapingService struct {
	client scrapeRequester
	tasks  scrapingTaskRepository
}

func NewScrapingService(client scrapeRequester, tasks scrapingTaskRepository) *ScrapingService {
	return &ScrapingService{client: client, tasks: tasks}
}

func (s *ScrapingService) RequestScraping(ctx context.Context, platform string) error {
	if err := s.client.RequestScraping(ctx, platform); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeWebhook).Errorf("scraping request failed: %v", err)
		return err
	}
	log.Infof("scraping of %s requested", platform)
	return nil
}

// Status reports the task queue filled by the external scraper.
func (s *ScrapingService) Status(ctx context.Context) (ScrapingStatus, error) {
	pending, err := s.tasks.CountPending(ctx)
	if err != nil {
		return ScrapingStatus{}, err
	}
	recent, err := s.tasks.Recent(ctx, 5)
	if err != nil {
		return ScrapingStatus{}, err
	}
	return ScrapingStatus{Pending: pending, Recent: recent}, nil
}
