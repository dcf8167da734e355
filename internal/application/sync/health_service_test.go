package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainsync "github.com/circletel/backend/internal/domain/sync"
)

type fakeTokenSource struct {
	err error
}

func (s *fakeTokenSource) AccessToken(_ context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "token-1", nil
}

type fakeOrgProbe struct {
	err error
}

func (p *fakeOrgProbe) CheckOrganization(_ context.Context) error {
	return p.err
}

func TestHealthService_Check(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	quota := func() map[string]int {
		return map[string]int{"crm": 90, "billing": 88, "oauth": 10}
	}

	newService := func(tokens *fakeTokenSource, orgs *fakeOrgProbe, finder *cannedFinder) *HealthService {
		svc := NewHealthService(tokens, orgs, quota, finder, zap.NewNop())
		svc.now = func() time.Time { return now }
		return svc
	}

	t.Run("healthy when all probes pass", func(t *testing.T) {
		finder := &cannedFinder{counts: map[domainsync.SyncPhase]int64{
			domainsync.PhaseOK:       12,
			domainsync.PhaseFailed:   3,
			domainsync.PhaseTerminal: 1,
		}}

		report, err := newService(&fakeTokenSource{}, &fakeOrgProbe{}, finder).Check(ctx)
		require.NoError(t, err)

		assert.True(t, report.Healthy)
		require.Len(t, report.Checks, 2)
		assert.Equal(t, "token", report.Checks[0].Name)
		assert.Equal(t, "organization", report.Checks[1].Name)
		assert.Equal(t, int64(3), report.PendingRetries)
		assert.Equal(t, int64(1), report.TerminalFailures)
		assert.Equal(t, 88, report.Quota["billing"])
	})

	t.Run("token failure marks the report unhealthy", func(t *testing.T) {
		report, err := newService(
			&fakeTokenSource{err: errors.New("invalid refresh token")},
			&fakeOrgProbe{},
			&cannedFinder{counts: map[domainsync.SyncPhase]int64{}},
		).Check(ctx)
		require.NoError(t, err)

		assert.False(t, report.Healthy)
		assert.False(t, report.Checks[0].Healthy)
		assert.Contains(t, report.Checks[0].Detail, "invalid refresh token")
		assert.True(t, report.Checks[1].Healthy)
	})

	t.Run("organization failure marks the report unhealthy", func(t *testing.T) {
		report, err := newService(
			&fakeTokenSource{},
			&fakeOrgProbe{err: errors.New("organization not visible")},
			&cannedFinder{counts: map[domainsync.SyncPhase]int64{}},
		).Check(ctx)
		require.NoError(t, err)

		assert.False(t, report.Healthy)
		assert.True(t, report.Checks[0].Healthy)
		assert.False(t, report.Checks[1].Healthy)
	})
}
