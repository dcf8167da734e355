package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainsync "github.com/circletel/backend/internal/domain/sync"
)

func TestDailySyncService_Candidates(t *testing.T) {
	f := newSyncFixture(t)
	failedPkg := f.addPackage(t, "FIBRE-100", "Fibre 100/50", 699)
	newPkg := f.addPackage(t, "FIBRE-200", "Fibre 200/100", 899)
	stalePkg := f.addPackage(t, "LTE-50", "LTE 50", 399)

	finder := &cannedFinder{
		failed:      []domainsync.IntegrationRecord{productRecord(t, failedPkg.ID)},
		neverSynced: []domainsync.IntegrationRecord{productRecord(t, newPkg.ID)},
		stale:       []domainsync.IntegrationRecord{productRecord(t, stalePkg.ID)},
	}

	daily := NewDailySyncService(finder, f.entities, zap.NewNop())
	daily.now = func() time.Time { return f.now }

	candidates, err := daily.Candidates(context.Background(), 100)
	require.NoError(t, err)

	// failed first, then never synced, then stale
	require.Len(t, candidates, 3)
	assert.Equal(t, failedPkg.ID, candidates[0].EntityID)
	assert.Equal(t, newPkg.ID, candidates[1].EntityID)
	assert.Equal(t, stalePkg.ID, candidates[2].EntityID)

	// each class only gets the budget the previous classes left over
	assert.Equal(t, 100, finder.failedLimit)
	assert.Equal(t, 99, finder.neverLimit)
	assert.Equal(t, 98, finder.staleLimit)
	assert.Equal(t, f.now.Add(-24*time.Hour), finder.staleCutoff)
}

func TestDailySyncService_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("processes candidates and tallies outcomes", func(t *testing.T) {
		f := newSyncFixture(t)
		pkg1 := f.addPackage(t, "FIBRE-100", "Fibre 100/50", 699)
		pkg2 := f.addPackage(t, "FIBRE-200", "Fibre 200/100", 899)
		customer := f.addCustomer(t, "thandi@example.co.za")

		customerRecord, err := domainsync.NewIntegrationRecord(domainsync.EntityCustomer, customer.ID)
		require.NoError(t, err)

		finder := &cannedFinder{neverSynced: []domainsync.IntegrationRecord{
			productRecord(t, pkg1.ID),
			productRecord(t, pkg2.ID),
			*customerRecord,
		}}
		recorder := &sleepRecorder{}

		daily := NewDailySyncService(finder, f.entities, zap.NewNop())
		daily.now = func() time.Time { return f.now }
		daily.sleep = recorder.sleep

		summary, err := daily.Run(ctx, DailySyncOptions{})
		require.NoError(t, err)

		assert.Equal(t, 3, summary.TotalCandidates)
		assert.Equal(t, 3, summary.Processed)
		assert.Equal(t, 3, summary.Succeeded)
		assert.Zero(t, summary.Failed)
		require.Len(t, summary.Results, 3)

		assert.Equal(t, 1, summary.PerTarget[domainsync.TargetBillingCustomer].Succeeded)
		assert.Equal(t, 2, summary.PerTarget[domainsync.TargetBillingItem].Succeeded)

		// all three fit one batch: item pacing only
		assert.Equal(t, []time.Duration{defaultItemDelay, defaultItemDelay}, recorder.pauses)
	})

	t.Run("pauses between batches", func(t *testing.T) {
		f := newSyncFixture(t)
		pkg := f.addPackage(t, "FIBRE-100", "Fibre 100/50", 699)

		var candidates []domainsync.IntegrationRecord
		for i := 0; i < 3; i++ {
			candidates = append(candidates, productRecord(t, pkg.ID))
		}
		finder := &cannedFinder{neverSynced: candidates}
		recorder := &sleepRecorder{}

		daily := NewDailySyncService(finder, f.entities, zap.NewNop())
		daily.now = func() time.Time { return f.now }
		daily.sleep = recorder.sleep

		_, err := daily.Run(ctx, DailySyncOptions{BatchSize: 2})
		require.NoError(t, err)

		// one item pause inside the first batch, then the batch pause
		assert.Equal(t, []time.Duration{defaultItemDelay, defaultBatchDelay}, recorder.pauses)
	})

	t.Run("dry run makes no provider calls", func(t *testing.T) {
		f := newSyncFixture(t)
		pkg := f.addPackage(t, "FIBRE-100", "Fibre 100/50", 699)

		finder := &cannedFinder{neverSynced: []domainsync.IntegrationRecord{productRecord(t, pkg.ID)}}

		daily := NewDailySyncService(finder, f.entities, zap.NewNop())
		daily.now = func() time.Time { return f.now }

		summary, err := daily.Run(ctx, DailySyncOptions{DryRun: true})
		require.NoError(t, err)

		assert.True(t, summary.DryRun)
		assert.Equal(t, 1, summary.TotalCandidates)
		assert.Zero(t, summary.Processed)
		require.Len(t, summary.Results, 1)
		assert.True(t, summary.Results[0].Skipped)
		assert.Zero(t, f.crm.productCalls)
	})

	t.Run("cap bounds the candidate selection", func(t *testing.T) {
		f := newSyncFixture(t)
		pkg := f.addPackage(t, "FIBRE-100", "Fibre 100/50", 699)

		var failed []domainsync.IntegrationRecord
		for i := 0; i < 10; i++ {
			failed = append(failed, productRecord(t, pkg.ID))
		}
		finder := &cannedFinder{failed: failed}
		recorder := &sleepRecorder{}

		daily := NewDailySyncService(finder, f.entities, zap.NewNop())
		daily.now = func() time.Time { return f.now }
		daily.sleep = recorder.sleep

		summary, err := daily.Run(ctx, DailySyncOptions{Cap: 5})
		require.NoError(t, err)

		assert.Equal(t, 5, summary.TotalCandidates)
		assert.Equal(t, 5, finder.failedLimit)
	})
}
