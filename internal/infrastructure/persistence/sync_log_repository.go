package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/circletel/backend/internal/domain/sync"
	"github.com/circletel/backend/internal/infrastructure/persistence/models"
)

// defaultLogLimit caps unbounded log queries
const defaultLogLimit = 100

// GormSyncLogRepository implements SyncLogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Append writes a new entry. Entries are never updated.
func (r *GormSyncLogRepository) Append(ctx context.Context, entry *sync.SyncLogEntry) error {
	var model models.SyncLogModel
	model.FromDomain(entry)
	return r.db.WithContext(ctx).Create(&model).Error
}

// Find returns entries matching the filter, newest first
func (r *GormSyncLogRepository) Find(ctx context.Context, filter sync.SyncLogFilter) ([]sync.SyncLogEntry, error) {
	query := r.db.WithContext(ctx).Model(&models.SyncLogModel{})

	if filter.EntityType != nil {
		query = query.Where("entity_type = ?", string(*filter.EntityType))
	}
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.Success != nil {
		query = query.Where("success = ?", *filter.Success)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLogLimit
	}

	var logModels []models.SyncLogModel
	if err := query.Order("created_at DESC").Limit(limit).Find(&logModels).Error; err != nil {
		return nil, err
	}

	entries := make([]sync.SyncLogEntry, len(logModels))
	for i, model := range logModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// Ensure the repository satisfies the domain interface
var _ sync.SyncLogRepository = (*GormSyncLogRepository)(nil)
