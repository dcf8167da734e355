package sync

import (
	"context"
	"time"

	"go.uber.org/zap"

	domainsync "github.com/circletel/backend/internal/domain/sync"
)

// Daily run tuning. Values are deliberately conservative so a full run stays
// well inside the provider quotas.
const (
	defaultDailyCap   = 100
	defaultBatchSize  = 20
	defaultItemDelay  = 700 * time.Millisecond
	defaultBatchDelay = 15 * time.Second
	defaultStaleAge   = 24 * time.Hour
)

// DailySyncOptions tunes one orchestrated run.
type DailySyncOptions struct {
	// DryRun reports candidates without making external calls
	DryRun bool
	// Cap overrides the candidate ceiling, 0 for default
	Cap int
	// BatchSize overrides the batch size, 0 for default
	BatchSize int
}

// TargetTally counts outcomes per external target.
type TargetTally struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// SyncSummary reports one orchestrated run.
type SyncSummary struct {
	// DryRun indicates no external calls were made
	DryRun bool `json:"dry_run"`
	// TotalCandidates is how many records were selected
	TotalCandidates int `json:"total_candidates"`
	// Processed is how many records were attempted
	Processed int `json:"processed"`
	// Succeeded is how many records reached ok state or were skipped safely
	Succeeded int `json:"succeeded"`
	// Failed is how many records failed
	Failed int `json:"failed"`
	// PerTarget tallies outcomes per external target
	PerTarget map[domainsync.SyncTarget]*TargetTally `json:"per_target"`
	// Duration is the wall time of the run
	Duration time.Duration `json:"duration"`
	// Results are the per-record outcomes in processing order
	Results []SyncOutcome `json:"results"`
}

// DailySyncService selects the records most in need of a sync and pushes
// them in paced batches. Priority: failed, then never synced, then stale.
type DailySyncService struct {
	records  domainsync.IntegrationRecordFinder
	entities *EntitySyncService
	logger   *zap.Logger

	cap        int
	batchSize  int
	itemDelay  time.Duration
	batchDelay time.Duration
	staleAge   time.Duration
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewDailySyncService creates a new DailySyncService
func NewDailySyncService(records domainsync.IntegrationRecordFinder, entities *EntitySyncService, logger *zap.Logger) *DailySyncService {
	return &DailySyncService{
		records:    records,
		entities:   entities,
		logger:     logger.Named("sync.daily"),
		cap:        defaultDailyCap,
		batchSize:  defaultBatchSize,
		itemDelay:  defaultItemDelay,
		batchDelay: defaultBatchDelay,
		staleAge:   defaultStaleAge,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// Tune overrides the pacing defaults. Zero values keep the defaults.
func (s *DailySyncService) Tune(cap, batchSize int, itemDelay, batchDelay, staleAge time.Duration) {
	if cap > 0 {
		s.cap = cap
	}
	if batchSize > 0 {
		s.batchSize = batchSize
	}
	if itemDelay > 0 {
		s.itemDelay = itemDelay
	}
	if batchDelay > 0 {
		s.batchDelay = batchDelay
	}
	if staleAge > 0 {
		s.staleAge = staleAge
	}
}

// Run executes one orchestrated sync pass.
func (s *DailySyncService) Run(ctx context.Context, opts DailySyncOptions) (*SyncSummary, error) {
	started := s.now()

	cap := opts.Cap
	if cap <= 0 {
		cap = s.cap
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = s.batchSize
	}
	if batchSize > cap {
		batchSize = cap
	}

	candidates, err := s.Candidates(ctx, cap)
	if err != nil {
		return nil, err
	}

	summary := &SyncSummary{
		DryRun:          opts.DryRun,
		TotalCandidates: len(candidates),
		PerTarget:       make(map[domainsync.SyncTarget]*TargetTally),
	}

	s.logger.Info("sync run starting",
		zap.Int("candidates", len(candidates)),
		zap.Int("batch_size", batchSize),
		zap.Bool("dry_run", opts.DryRun),
	)

	if opts.DryRun {
		for _, record := range candidates {
			summary.Results = append(summary.Results, SyncOutcome{
				EntityType: record.EntityType,
				EntityID:   record.EntityID,
				Action:     domainsync.ActionSkip,
				Skipped:    true,
			})
		}
		summary.Duration = s.now().Sub(started)
		return summary, nil
	}

	for batchStart := 0; batchStart < len(candidates); batchStart += batchSize {
		if batchStart > 0 {
			if err := s.sleep(ctx, s.batchDelay); err != nil {
				summary.Duration = s.now().Sub(started)
				return summary, err
			}
		}

		batchEnd := batchStart + batchSize
		if batchEnd > len(candidates) {
			batchEnd = len(candidates)
		}

		for i, record := range candidates[batchStart:batchEnd] {
			if i > 0 {
				if err := s.sleep(ctx, s.itemDelay); err != nil {
					summary.Duration = s.now().Sub(started)
					return summary, err
				}
			}

			outcome := s.entities.Sync(ctx, record.EntityType, record.EntityID, false)
			summary.Processed++
			summary.Results = append(summary.Results, outcome)

			tally := summary.PerTarget[outcome.Target]
			if tally == nil {
				tally = &TargetTally{}
				summary.PerTarget[outcome.Target] = tally
			}
			if outcome.Success {
				summary.Succeeded++
				tally.Succeeded++
			} else {
				summary.Failed++
				tally.Failed++
			}
		}
	}

	summary.Duration = s.now().Sub(started)
	s.logger.Info("sync run finished",
		zap.Int("processed", summary.Processed),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// Candidates selects up to limit records, failed first, then never synced,
// then records whose last sync is older than the stale cutoff.
func (s *DailySyncService) Candidates(ctx context.Context, limit int) ([]domainsync.IntegrationRecord, error) {
	candidates, err := s.records.FindFailed(ctx, limit)
	if err != nil {
		return nil, err
	}

	if remaining := limit - len(candidates); remaining > 0 {
		neverSynced, err := s.records.FindNeverSynced(ctx, remaining)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, neverSynced...)
	}

	if remaining := limit - len(candidates); remaining > 0 {
		stale, err := s.records.FindStale(ctx, s.now().Add(-s.staleAge), remaining)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, stale...)
	}

	return candidates, nil
}
