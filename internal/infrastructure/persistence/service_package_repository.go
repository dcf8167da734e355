package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/circletel/backend/internal/domain/catalog"
	"github.com/circletel/backend/internal/infrastructure/persistence/models"
)

// GormServicePackageRepository implements ServicePackageRepository using GORM
type GormServicePackageRepository struct {
	db *gorm.DB
}

// NewGormServicePackageRepository creates a new GormServicePackageRepository
func NewGormServicePackageRepository(db *gorm.DB) *GormServicePackageRepository {
	return &GormServicePackageRepository{db: db}
}

// FindByID finds a package by its ID
func (r *GormServicePackageRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.ServicePackage, error) {
	var model models.ServicePackageModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrPackageNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySKU finds a package by its business key
func (r *GormServicePackageRepository) FindBySKU(ctx context.Context, sku string) (*catalog.ServicePackage, error) {
	var model models.ServicePackageModel
	if err := r.db.WithContext(ctx).
		Where("sku = ?", strings.ToUpper(strings.TrimSpace(sku))).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrPackageNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists packages, optionally restricted to active ones
func (r *GormServicePackageRepository) FindAll(ctx context.Context, activeOnly bool) ([]catalog.ServicePackage, error) {
	query := r.db.WithContext(ctx).Model(&models.ServicePackageModel{})
	if activeOnly {
		query = query.Where("status = ?", string(catalog.PackageStatusActive))
	}

	var packageModels []models.ServicePackageModel
	if err := query.Order("sku ASC").Find(&packageModels).Error; err != nil {
		return nil, err
	}

	packages := make([]catalog.ServicePackage, len(packageModels))
	for i, model := range packageModels {
		packages[i] = *model.ToDomain()
	}
	return packages, nil
}

// FindIDs lists all package IDs, active first
func (r *GormServicePackageRepository) FindIDs(ctx context.Context, activeOnly bool) ([]uuid.UUID, error) {
	query := r.db.WithContext(ctx).Model(&models.ServicePackageModel{})
	if activeOnly {
		query = query.Where("status = ?", string(catalog.PackageStatusActive))
	}

	var ids []uuid.UUID
	if err := query.Order("status ASC, sku ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Save creates or updates a package
func (r *GormServicePackageRepository) Save(ctx context.Context, pkg *catalog.ServicePackage) error {
	var model models.ServicePackageModel
	model.FromDomain(pkg)
	return r.db.WithContext(ctx).Save(&model).Error
}

// Ensure the repository satisfies the domain interface
var _ catalog.ServicePackageRepository = (*GormServicePackageRepository)(nil)
