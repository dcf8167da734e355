package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/circletel/backend/internal/domain/sync"
	"github.com/circletel/backend/internal/infrastructure/persistence/models"
)

// GormIntegrationRecordRepository implements IntegrationRecordRepository using GORM
type GormIntegrationRecordRepository struct {
	db *gorm.DB
}

// NewGormIntegrationRecordRepository creates a new GormIntegrationRecordRepository
func NewGormIntegrationRecordRepository(db *gorm.DB) *GormIntegrationRecordRepository {
	return &GormIntegrationRecordRepository{db: db}
}

// ---------------------------------------------------------------------------
// IntegrationRecordReader implementation
// ---------------------------------------------------------------------------

// FindByID finds a record by its ID
func (r *GormIntegrationRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.IntegrationRecord, error) {
	var model models.IntegrationRecordModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByEntity finds the record tracking a specific internal entity
func (r *GormIntegrationRecordRepository) FindByEntity(ctx context.Context, entityType sync.EntityType, entityID uuid.UUID) (*sync.IntegrationRecord, error) {
	var model models.IntegrationRecordModel
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", string(entityType), entityID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ---------------------------------------------------------------------------
// IntegrationRecordFinder implementation
// ---------------------------------------------------------------------------

// FindRetryDue finds failed records due for a retry, oldest due first
func (r *GormIntegrationRecordRepository) FindRetryDue(ctx context.Context, now time.Time, maxAttempts int, limit int) ([]sync.IntegrationRecord, error) {
	var recordModels []models.IntegrationRecordModel
	if err := r.db.WithContext(ctx).
		Where("sync_phase = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ? AND retry_count < ?",
			sync.PhaseFailed.String(), now, maxAttempts).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&recordModels).Error; err != nil {
		return nil, err
	}
	return toDomainRecords(recordModels), nil
}

// FindFailed finds records in failed state regardless of due time
func (r *GormIntegrationRecordRepository) FindFailed(ctx context.Context, limit int) ([]sync.IntegrationRecord, error) {
	var recordModels []models.IntegrationRecordModel
	if err := r.db.WithContext(ctx).
		Where("sync_phase = ?", sync.PhaseFailed.String()).
		Order("updated_at ASC").
		Limit(limit).
		Find(&recordModels).Error; err != nil {
		return nil, err
	}
	return toDomainRecords(recordModels), nil
}

// FindNeverSynced finds records that have never reached ok state
func (r *GormIntegrationRecordRepository) FindNeverSynced(ctx context.Context, limit int) ([]sync.IntegrationRecord, error) {
	var recordModels []models.IntegrationRecordModel
	if err := r.db.WithContext(ctx).
		Where("sync_phase = ? AND last_synced_at IS NULL", sync.PhasePending.String()).
		Order("created_at ASC").
		Limit(limit).
		Find(&recordModels).Error; err != nil {
		return nil, err
	}
	return toDomainRecords(recordModels), nil
}

// FindStale finds ok records whose last sync is older than the cutoff
func (r *GormIntegrationRecordRepository) FindStale(ctx context.Context, olderThan time.Time, limit int) ([]sync.IntegrationRecord, error) {
	var recordModels []models.IntegrationRecordModel
	if err := r.db.WithContext(ctx).
		Where("sync_phase = ? AND last_synced_at IS NOT NULL AND last_synced_at < ?",
			sync.PhaseOK.String(), olderThan).
		Order("last_synced_at ASC").
		Limit(limit).
		Find(&recordModels).Error; err != nil {
		return nil, err
	}
	return toDomainRecords(recordModels), nil
}

// CountByPhase counts records per sync phase
func (r *GormIntegrationRecordRepository) CountByPhase(ctx context.Context) (map[sync.SyncPhase]int64, error) {
	type phaseCount struct {
		SyncPhase string
		Count     int64
	}
	var rows []phaseCount
	if err := r.db.WithContext(ctx).
		Model(&models.IntegrationRecordModel{}).
		Select("sync_phase, count(*) as count").
		Group("sync_phase").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[sync.SyncPhase]int64, len(rows))
	for _, row := range rows {
		counts[sync.SyncPhase(row.SyncPhase)] = row.Count
	}
	return counts, nil
}

// ---------------------------------------------------------------------------
// IntegrationRecordWriter implementation
// ---------------------------------------------------------------------------

// Save creates or updates a record
func (r *GormIntegrationRecordRepository) Save(ctx context.Context, record *sync.IntegrationRecord) error {
	var model models.IntegrationRecordModel
	model.FromDomain(record)
	return r.db.WithContext(ctx).Save(&model).Error
}

func toDomainRecords(recordModels []models.IntegrationRecordModel) []sync.IntegrationRecord {
	records := make([]sync.IntegrationRecord, len(recordModels))
	for i, model := range recordModels {
		records[i] = *model.ToDomain()
	}
	return records
}

// Ensure the repository satisfies the domain interface
var _ sync.IntegrationRecordRepository = (*GormIntegrationRecordRepository)(nil)
