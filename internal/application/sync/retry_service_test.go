package sync

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainsync "github.com/circletel/backend/internal/domain/sync"
)

// cannedFinder returns fixed candidate lists and records the limits it was
// asked for.
type cannedFinder struct {
	retryDue    []domainsync.IntegrationRecord
	failed      []domainsync.IntegrationRecord
	neverSynced []domainsync.IntegrationRecord
	stale       []domainsync.IntegrationRecord
	counts      map[domainsync.SyncPhase]int64

	failedLimit int
	neverLimit  int
	staleLimit  int
	staleCutoff time.Time
	dueMax      int
	dueLimit    int
}

func clampRecords(records []domainsync.IntegrationRecord, limit int) []domainsync.IntegrationRecord {
	if len(records) > limit {
		return records[:limit]
	}
	return records
}

func (f *cannedFinder) FindRetryDue(_ context.Context, _ time.Time, maxAttempts, limit int) ([]domainsync.IntegrationRecord, error) {
	f.dueMax = maxAttempts
	f.dueLimit = limit
	return clampRecords(f.retryDue, limit), nil
}

func (f *cannedFinder) FindFailed(_ context.Context, limit int) ([]domainsync.IntegrationRecord, error) {
	f.failedLimit = limit
	return clampRecords(f.failed, limit), nil
}

func (f *cannedFinder) FindNeverSynced(_ context.Context, limit int) ([]domainsync.IntegrationRecord, error) {
	f.neverLimit = limit
	return clampRecords(f.neverSynced, limit), nil
}

func (f *cannedFinder) FindStale(_ context.Context, olderThan time.Time, limit int) ([]domainsync.IntegrationRecord, error) {
	f.staleCutoff = olderThan
	f.staleLimit = limit
	return clampRecords(f.stale, limit), nil
}

func (f *cannedFinder) CountByPhase(_ context.Context) (map[domainsync.SyncPhase]int64, error) {
	return f.counts, nil
}

var _ domainsync.IntegrationRecordFinder = (*cannedFinder)(nil)

// sleepRecorder captures requested pauses without waiting.
type sleepRecorder struct {
	pauses []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.pauses = append(r.pauses, d)
	return nil
}

func productRecord(t *testing.T, packageID uuid.UUID) domainsync.IntegrationRecord {
	t.Helper()
	record, err := domainsync.NewIntegrationRecord(domainsync.EntityProduct, packageID)
	require.NoError(t, err)
	return *record
}

func TestRetryService_ProcessRetryQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("retries due records with pacing", func(t *testing.T) {
		f := newSyncFixture(t)
		good := f.addPackage(t, "FIBRE-100", "Fibre 100/50", 699)
		missing := uuid.New() // package does not exist, sync will fail

		finder := &cannedFinder{retryDue: []domainsync.IntegrationRecord{
			productRecord(t, good.ID),
			productRecord(t, missing),
		}}
		recorder := &sleepRecorder{}

		retry := NewRetryService(finder, f.entities, zap.NewNop())
		retry.sleep = recorder.sleep

		tally, err := retry.ProcessRetryQueue(ctx)
		require.NoError(t, err)

		assert.Equal(t, RetryTally{Total: 2, Succeeded: 1, Failed: 1}, tally)
		assert.Equal(t, 5, finder.dueMax)
		assert.Equal(t, retryQueueLimit, finder.dueLimit)

		// one pause between the two items
		require.Len(t, recorder.pauses, 1)
		assert.Equal(t, retryPacing, recorder.pauses[0])
	})

	t.Run("empty queue is a no-op", func(t *testing.T) {
		f := newSyncFixture(t)
		recorder := &sleepRecorder{}

		retry := NewRetryService(&cannedFinder{}, f.entities, zap.NewNop())
		retry.sleep = recorder.sleep

		tally, err := retry.ProcessRetryQueue(ctx)
		require.NoError(t, err)
		assert.Equal(t, RetryTally{}, tally)
		assert.Empty(t, recorder.pauses)
	})

	t.Run("context cancel stops the pass", func(t *testing.T) {
		f := newSyncFixture(t)
		good := f.addPackage(t, "FIBRE-100", "Fibre 100/50", 699)

		finder := &cannedFinder{retryDue: []domainsync.IntegrationRecord{
			productRecord(t, good.ID),
			productRecord(t, good.ID),
		}}

		retry := NewRetryService(finder, f.entities, zap.NewNop())
		retry.sleep = func(ctx context.Context, _ time.Duration) error { return context.Canceled }

		tally, err := retry.ProcessRetryQueue(ctx)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, tally.Succeeded)
	})
}
