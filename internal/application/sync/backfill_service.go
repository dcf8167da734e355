package sync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/circletel/backend/internal/domain/catalog"
	domainsync "github.com/circletel/backend/internal/domain/sync"
)

// BackfillOptions tunes a catalog backfill.
type BackfillOptions struct {
	// DryRun lists what would be synced without making external calls
	DryRun bool
	// BatchSize is the number of packages per paced batch, 0 for default
	BatchSize int
	// Limit caps the number of packages, 0 for all
	Limit int
	// ActiveOnly restricts the backfill to sellable packages
	ActiveOnly bool
	// Force re-syncs packages that are already in ok state
	Force bool
}

// BackfillService pushes the whole service package catalog to the provider.
// Used for initial seeding and for repairing drift after an incident.
type BackfillService struct {
	packages catalog.ServicePackageFinder
	entities *EntitySyncService
	logger   *zap.Logger

	batchSize  int
	itemDelay  time.Duration
	batchDelay time.Duration
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewBackfillService creates a new BackfillService
func NewBackfillService(packages catalog.ServicePackageFinder, entities *EntitySyncService, logger *zap.Logger) *BackfillService {
	return &BackfillService{
		packages:   packages,
		entities:   entities,
		logger:     logger.Named("sync.backfill"),
		batchSize:  defaultBatchSize,
		itemDelay:  defaultItemDelay,
		batchDelay: defaultBatchDelay,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// Tune overrides the pacing defaults. Zero values keep the defaults.
func (s *BackfillService) Tune(batchSize int, itemDelay, batchDelay time.Duration) {
	if batchSize > 0 {
		s.batchSize = batchSize
	}
	if itemDelay > 0 {
		s.itemDelay = itemDelay
	}
	if batchDelay > 0 {
		s.batchDelay = batchDelay
	}
}

// Run backfills the catalog in paced batches and returns the summary.
func (s *BackfillService) Run(ctx context.Context, opts BackfillOptions) (*SyncSummary, error) {
	started := s.now()

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = s.batchSize
	}

	ids, err := s.packages.FindIDs(ctx, opts.ActiveOnly)
	if err != nil {
		return nil, err
	}
	if opts.Limit > 0 && len(ids) > opts.Limit {
		ids = ids[:opts.Limit]
	}

	summary := &SyncSummary{
		DryRun:          opts.DryRun,
		TotalCandidates: len(ids),
		PerTarget:       make(map[domainsync.SyncTarget]*TargetTally),
	}

	s.logger.Info("backfill starting",
		zap.Int("packages", len(ids)),
		zap.Int("batch_size", batchSize),
		zap.Bool("dry_run", opts.DryRun),
		zap.Bool("force", opts.Force),
	)

	if opts.DryRun {
		for _, id := range ids {
			summary.Results = append(summary.Results, SyncOutcome{
				EntityType: domainsync.EntityProduct,
				EntityID:   id,
				Action:     domainsync.ActionSkip,
				Skipped:    true,
			})
		}
		summary.Duration = s.now().Sub(started)
		return summary, nil
	}

	for batchStart := 0; batchStart < len(ids); batchStart += batchSize {
		if batchStart > 0 {
			if err := s.sleep(ctx, s.batchDelay); err != nil {
				summary.Duration = s.now().Sub(started)
				return summary, err
			}
		}

		batchEnd := batchStart + batchSize
		if batchEnd > len(ids) {
			batchEnd = len(ids)
		}

		for i, id := range ids[batchStart:batchEnd] {
			if i > 0 {
				if err := s.sleep(ctx, s.itemDelay); err != nil {
					summary.Duration = s.now().Sub(started)
					return summary, err
				}
			}

			outcome := s.entities.SyncProduct(ctx, id, opts.Force)
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

			s.logger.Info("backfill progress",
				zap.Int("done", summary.Processed),
				zap.Int("total", len(ids)),
				zap.String("package_id", id.String()),
				zap.Bool("success", outcome.Success),
			)
		}
	}

	summary.Duration = s.now().Sub(started)
	s.logger.Info("backfill finished",
		zap.Int("processed", summary.Processed),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}
