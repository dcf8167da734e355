package sync

import (
	"context"
	"time"

	"go.uber.org/zap"

	domainsync "github.com/circletel/backend/internal/domain/sync"
)

// retryQueueLimit caps how many due records one retry pass loads.
const retryQueueLimit = 50

// retryPacing is the pause between retried records.
const retryPacing = time.Second

// RetryTally summarizes one retry pass.
type RetryTally struct {
	// Total is the number of due records processed
	Total int `json:"total"`
	// Succeeded is the number of records that reached ok state
	Succeeded int `json:"succeeded"`
	// Failed is the number of records that failed again
	Failed int `json:"failed"`
}

// RetryService drains the queue of failed integration records whose retry
// time has come.
type RetryService struct {
	records  domainsync.IntegrationRecordFinder
	entities *EntitySyncService
	schedule domainsync.RetrySchedule
	logger   *zap.Logger

	queueLimit int
	pacing     time.Duration
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewRetryService creates a new RetryService
func NewRetryService(records domainsync.IntegrationRecordFinder, entities *EntitySyncService, logger *zap.Logger) *RetryService {
	return &RetryService{
		records:    records,
		entities:   entities,
		schedule:   domainsync.DefaultRetrySchedule(),
		logger:     logger.Named("sync.retry"),
		queueLimit: retryQueueLimit,
		pacing:     retryPacing,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// Tune overrides the queue defaults. Zero values keep the defaults.
func (s *RetryService) Tune(queueLimit int, pacing time.Duration) {
	if queueLimit > 0 {
		s.queueLimit = queueLimit
	}
	if pacing > 0 {
		s.pacing = pacing
	}
}

// SyncWithRetry runs one entity sync attempt for a record. Failure handling
// (structured error, next retry time, terminal cutoff) lives in the entity
// service; this wrapper exists so orchestrators share one entry point.
func (s *RetryService) SyncWithRetry(ctx context.Context, record domainsync.IntegrationRecord) SyncOutcome {
	return s.entities.Sync(ctx, record.EntityType, record.EntityID, false)
}

// RetryQueue returns failed records that are due, under the retry budget,
// ordered by next retry time ascending.
func (s *RetryService) RetryQueue(ctx context.Context) ([]domainsync.IntegrationRecord, error) {
	return s.records.FindRetryDue(ctx, s.now(), s.schedule.MaxAttempts, s.queueLimit)
}

// ProcessRetryQueue retries due records sequentially with pacing between
// items. Returns the tally; a context cancel stops the pass early.
func (s *RetryService) ProcessRetryQueue(ctx context.Context) (RetryTally, error) {
	queue, err := s.RetryQueue(ctx)
	if err != nil {
		return RetryTally{}, err
	}

	tally := RetryTally{Total: len(queue)}
	if len(queue) == 0 {
		return tally, nil
	}

	s.logger.Info("processing retry queue", zap.Int("due", len(queue)))

	for i, record := range queue {
		if i > 0 {
			if err := s.sleep(ctx, s.pacing); err != nil {
				return tally, err
			}
		}

		outcome := s.SyncWithRetry(ctx, record)
		if outcome.Success {
			tally.Succeeded++
		} else {
			tally.Failed++
		}
	}

	s.logger.Info("retry queue processed",
		zap.Int("total", tally.Total),
		zap.Int("succeeded", tally.Succeeded),
		zap.Int("failed", tally.Failed),
	)
	return tally, nil
}

// sleepCtx sleeps for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
