package services

import (
	"context"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"sync"
)

type responseChecker interface {
	CheckAll(ctx context.Context) ([]ResponseReport, error)
}

// ResponsePoller runs response tracking for all positions on a cron schedule.
type ResponsePoller struct {
	responses responseChecker
	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
	running   sync.Mutex
}

func NewResponsePoller(responses responseChecker, schedule string) (*ResponsePoller, error) {

	if schedule == "" {
		return nil, errors.New("response check schedule must not be empty")
	}

	ctx, cancel := context.WithCancel(context.Background())
	rp := &ResponsePoller{
		responses: responses,
		cron:      cron.New(),
		ctx:       ctx,
		cancel:    cancel,
	}

	_, err := rp.cron.AddFunc(schedule, rp.checkResponses)
	if err != nil {
		cancel()
		return nil, errors.Wrapf(err, "invalid response check schedule %q", schedule)
	}

	rp.cron.Start()
	log.Infof("response poller started, schedule: %s", schedule)
	return rp, nil
}

func (rp *ResponsePoller) Stop() {
	rp.cancel()
	<-rp.cron.Stop().Done()
}

func (rp *ResponsePoller) checkResponses() {
	if !rp.running.TryLock() {
		log.Warn("previous response check is still running, skipping")
		return
	}
	defer rp.running.Unlock()

	reports, err := rp.responses.CheckAll(rp.ctx)
	if err != nil {
		log.Errorf("Failed to check responses: %v", err)
		return
	}

	updated, failed := 0, 0
	for _, report := range reports {
		for _, count := range report.Updated {
			updated += count
		}
		failed += len(report.Errors)
	}
	log.Infof("Responses checked for %d positions, updated: %d, errors: %d", len(reports), updated, failed)
}
