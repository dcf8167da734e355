package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/circletel/backend/internal/domain/partner"
	"github.com/circletel/backend/internal/infrastructure/persistence/models"
)

// GormCustomerRepository implements CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByID finds a customer by ID
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, partner.ErrCustomerNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByEmail finds a customer by business key
func (r *GormCustomerRepository) FindByEmail(ctx context.Context, email string) (*partner.Customer, error) {
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, partner.ErrCustomerNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a customer
func (r *GormCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	var model models.CustomerModel
	model.FromDomain(customer)
	return r.db.WithContext(ctx).Save(&model).Error
}

// Ensure the repository satisfies the domain interface
var _ partner.CustomerRepository = (*GormCustomerRepository)(nil)

// GormCustomerServiceRepository implements CustomerServiceRepository using GORM
type GormCustomerServiceRepository struct {
	db *gorm.DB
}

// NewGormCustomerServiceRepository creates a new GormCustomerServiceRepository
func NewGormCustomerServiceRepository(db *gorm.DB) *GormCustomerServiceRepository {
	return &GormCustomerServiceRepository{db: db}
}

// FindByID finds a service by ID
func (r *GormCustomerServiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.CustomerService, error) {
	var model models.CustomerServiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, partner.ErrServiceNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCustomer lists services for a customer
func (r *GormCustomerServiceRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]partner.CustomerService, error) {
	var serviceModels []models.CustomerServiceModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&serviceModels).Error; err != nil {
		return nil, err
	}

	services := make([]partner.CustomerService, len(serviceModels))
	for i, model := range serviceModels {
		services[i] = *model.ToDomain()
	}
	return services, nil
}

// Save creates or updates a service
func (r *GormCustomerServiceRepository) Save(ctx context.Context, service *partner.CustomerService) error {
	var model models.CustomerServiceModel
	model.FromDomain(service)
	return r.db.WithContext(ctx).Save(&model).Error
}

// Ensure the repository satisfies the domain interface
var _ partner.CustomerServiceRepository = (*GormCustomerServiceRepository)(nil)

// GormPaymentTransactionRepository implements PaymentTransactionRepository using GORM
type GormPaymentTransactionRepository struct {
	db *gorm.DB
}

// NewGormPaymentTransactionRepository creates a new GormPaymentTransactionRepository
func NewGormPaymentTransactionRepository(db *gorm.DB) *GormPaymentTransactionRepository {
	return &GormPaymentTransactionRepository{db: db}
}

// FindByID finds a payment by ID
func (r *GormPaymentTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.PaymentTransaction, error) {
	var model models.PaymentTransactionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, partner.ErrPaymentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCustomer lists payments for a customer, newest first
func (r *GormPaymentTransactionRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]partner.PaymentTransaction, error) {
	var paymentModels []models.PaymentTransactionModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("paid_at DESC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}

	payments := make([]partner.PaymentTransaction, len(paymentModels))
	for i, model := range paymentModels {
		payments[i] = *model.ToDomain()
	}
	return payments, nil
}

// Save creates or updates a payment
func (r *GormPaymentTransactionRepository) Save(ctx context.Context, payment *partner.PaymentTransaction) error {
	var model models.PaymentTransactionModel
	model.FromDomain(payment)
	return r.db.WithContext(ctx).Save(&model).Error
}

// Ensure the repository satisfies the domain interface
var _ partner.PaymentTransactionRepository = (*GormPaymentTransactionRepository)(nil)
