package sync

import (
	"context"
	"time"

	"go.uber.org/zap"

	domainsync "github.com/circletel/backend/internal/domain/sync"
)

// TokenSource yields a valid provider access token.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// OrganizationProbe verifies the configured billing organization is visible.
type OrganizationProbe interface {
	CheckOrganization(ctx context.Context) error
}

// QuotaFunc reports the remaining call budget per provider API class.
type QuotaFunc func() map[string]int

// HealthCheck is one named probe result.
type HealthCheck struct {
	// Name identifies the probe
	Name string `json:"name"`
	// Healthy is the probe verdict
	Healthy bool `json:"healthy"`
	// Detail carries the failure message or a short status
	Detail string `json:"detail,omitempty"`
	// Duration is the probe wall time
	Duration time.Duration `json:"duration"`
}

// HealthReport aggregates all probe results.
type HealthReport struct {
	// Healthy is false when any probe failed
	Healthy bool `json:"healthy"`
	// Checks are the individual probe results
	Checks []HealthCheck `json:"checks"`
	// Quota is the remaining call budget per API class
	Quota map[string]int `json:"quota,omitempty"`
	// PendingRetries is the number of records in failed state
	PendingRetries int64 `json:"pending_retries"`
	// TerminalFailures is the number of records past the retry budget
	TerminalFailures int64 `json:"terminal_failures"`
	// CheckedAt is when the report was produced
	CheckedAt time.Time `json:"checked_at"`
}

// HealthService probes provider connectivity, token acquisition, organization
// visibility and the local retry backlog. Intended for the healthcheck CLI
// and the admin status endpoint.
type HealthService struct {
	tokens  TokenSource
	orgs    OrganizationProbe
	quota   QuotaFunc
	records domainsync.IntegrationRecordFinder
	logger  *zap.Logger

	now func() time.Time
}

// NewHealthService creates a new HealthService
func NewHealthService(
	tokens TokenSource,
	orgs OrganizationProbe,
	quota QuotaFunc,
	records domainsync.IntegrationRecordFinder,
	logger *zap.Logger,
) *HealthService {
	return &HealthService{
		tokens:  tokens,
		orgs:    orgs,
		quota:   quota,
		records: records,
		logger:  logger.Named("sync.health"),
		now:     time.Now,
	}
}

// Check runs all probes and returns the aggregate report. Probe failures go
// into the report, not the error return; the error covers the local database
// only.
func (s *HealthService) Check(ctx context.Context) (*HealthReport, error) {
	report := &HealthReport{Healthy: true, CheckedAt: s.now()}

	report.Checks = append(report.Checks, s.probe("token", func() error {
		_, err := s.tokens.AccessToken(ctx)
		return err
	}))
	report.Checks = append(report.Checks, s.probe("organization", func() error {
		return s.orgs.CheckOrganization(ctx)
	}))

	if s.quota != nil {
		report.Quota = s.quota()
	}

	counts, err := s.records.CountByPhase(ctx)
	if err != nil {
		return nil, err
	}
	report.PendingRetries = counts[domainsync.PhaseFailed]
	report.TerminalFailures = counts[domainsync.PhaseTerminal]

	for _, check := range report.Checks {
		if !check.Healthy {
			report.Healthy = false
		}
	}

	s.logger.Info("health check completed",
		zap.Bool("healthy", report.Healthy),
		zap.Int64("pending_retries", report.PendingRetries),
		zap.Int64("terminal_failures", report.TerminalFailures),
	)
	return report, nil
}

func (s *HealthService) probe(name string, fn func() error) HealthCheck {
	started := s.now()
	check := HealthCheck{Name: name, Healthy: true}
	if err := fn(); err != nil {
		check.Healthy = false
		check.Detail = err.Error()
		s.logger.Warn("health probe failed", zap.String("probe", name), zap.Error(err))
	}
	check.Duration = s.now().Sub(started)
	return check
}
