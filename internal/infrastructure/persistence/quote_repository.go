package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/circletel/backend/internal/domain/trade"
	"github.com/circletel/backend/internal/infrastructure/persistence/models"
)

// GormQuoteRepository implements QuoteRepository using GORM
type GormQuoteRepository struct {
	db *gorm.DB
}

// NewGormQuoteRepository creates a new GormQuoteRepository
func NewGormQuoteRepository(db *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: db}
}

// FindByID finds a quote by ID
func (r *GormQuoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Quote, error) {
	var model models.QuoteModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, trade.ErrQuoteNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByNumber finds a quote by business key
func (r *GormQuoteRepository) FindByNumber(ctx context.Context, quoteNumber string) (*trade.Quote, error) {
	var model models.QuoteModel
	if err := r.db.WithContext(ctx).
		Where("quote_number = ?", strings.ToUpper(strings.TrimSpace(quoteNumber))).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, trade.ErrQuoteNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// Save creates or updates a quote
func (r *GormQuoteRepository) Save(ctx context.Context, quote *trade.Quote) error {
	var model models.QuoteModel
	if err := model.FromDomain(quote); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(&model).Error
}

// Ensure the repository satisfies the domain interface
var _ trade.QuoteRepository = (*GormQuoteRepository)(nil)
