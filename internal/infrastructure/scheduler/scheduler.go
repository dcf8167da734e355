package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrInvalidCronSchedule indicates an unsupported cron expression
	ErrInvalidCronSchedule = errors.New("scheduler: invalid cron schedule")
	// ErrAlreadyRunning indicates the scheduler was started twice
	ErrAlreadyRunning = errors.New("scheduler: already running")
)

// JobRunner executes the scheduled synchronization work.
type JobRunner interface {
	// RunDailySync executes one orchestrated daily sync pass
	RunDailySync(ctx context.Context) error

	// ProcessRetryQueue drains due retries
	ProcessRetryQueue(ctx context.Context) error
}

// Config holds the scheduler configuration.
type Config struct {
	// CronSchedule is a five-field cron line for the daily run. Only
	// fixed minute and hour are supported ("0 2 * * *" for 02:00).
	CronSchedule string

	// RetryInterval is how often the retry queue is drained
	RetryInterval time.Duration

	// CheckInterval is how often the cron clock is checked
	CheckInterval time.Duration

	// JobTimeout bounds one daily run
	JobTimeout time.Duration
}

// DefaultConfig returns the production schedule: daily at 02:00, retries
// every 5 minutes.
func DefaultConfig() Config {
	return Config{
		CronSchedule:  "0 2 * * *",
		RetryInterval: 5 * time.Minute,
		CheckInterval: time.Minute,
		JobTimeout:    30 * time.Minute,
	}
}

// cronTime is the parsed minute and hour of a daily cron line.
type cronTime struct {
	minute int
	hour   int
}

// parseCronSchedule parses a five-field cron line with fixed minute and
// hour and wildcard day fields.
func parseCronSchedule(schedule string) (cronTime, error) {
	fields := strings.Fields(schedule)
	if len(fields) != 5 {
		return cronTime{}, fmt.Errorf("%w: %q", ErrInvalidCronSchedule, schedule)
	}
	minute, err := strconv.Atoi(fields[0])
	if err != nil || minute < 0 || minute > 59 {
		return cronTime{}, fmt.Errorf("%w: minute %q", ErrInvalidCronSchedule, fields[0])
	}
	hour, err := strconv.Atoi(fields[1])
	if err != nil || hour < 0 || hour > 23 {
		return cronTime{}, fmt.Errorf("%w: hour %q", ErrInvalidCronSchedule, fields[1])
	}
	for _, field := range fields[2:] {
		if field != "*" {
			return cronTime{}, fmt.Errorf("%w: only daily schedules are supported", ErrInvalidCronSchedule)
		}
	}
	return cronTime{minute: minute, hour: hour}, nil
}

// matches reports whether the clock is at the scheduled minute.
func (c cronTime) matches(now time.Time) bool {
	return now.Hour() == c.hour && now.Minute() == c.minute
}

// Scheduler triggers the daily sync run at the configured time and drains
// the retry queue periodically. A poll loop with a per-date guard replaces
// a cron library; at one check per minute the drift is at most the check
// interval.
type Scheduler struct {
	config Config
	at     cronTime
	runner JobRunner
	logger *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string

	now func() time.Time
}

// New creates a scheduler for the given runner.
func New(config Config, runner JobRunner, logger *zap.Logger) (*Scheduler, error) {
	at, err := parseCronSchedule(config.CronSchedule)
	if err != nil {
		return nil, err
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = 5 * time.Minute
	}
	return &Scheduler{
		config: config,
		at:     at,
		runner: runner,
		logger: logger.Named("scheduler"),
		now:    time.Now,
	}, nil
}

// Start launches the cron and retry loops.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go s.cronLoop(ctx)
	go s.retryLoop(ctx)

	s.logger.Info("scheduler started",
		zap.String("daily_schedule", s.config.CronSchedule),
		zap.Duration("retry_interval", s.config.RetryInterval),
	)
	return nil
}

// Stop stops the loops and waits for in-flight work, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *Scheduler) cronLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger runs the daily sync when the clock matches, at most once
// per calendar date.
func (s *Scheduler) checkAndTrigger(ctx context.Context) {
	now := s.now()
	if !s.at.matches(now) {
		return
	}

	currentDate := now.Format("2006-01-02")
	s.mu.Lock()
	if s.lastRunDate == currentDate {
		s.mu.Unlock()
		return
	}
	s.lastRunDate = currentDate
	s.mu.Unlock()

	s.logger.Info("triggering daily sync run", zap.String("date", currentDate))

	runCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	if err := s.runner.RunDailySync(runCtx); err != nil {
		s.logger.Error("daily sync run failed", zap.Error(err))
	}
}

func (s *Scheduler) retryLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.runner.ProcessRetryQueue(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("retry pass failed", zap.Error(err))
			}
		}
	}
}
