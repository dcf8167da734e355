package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/circletel/backend/internal/domain/catalog"
	"github.com/circletel/backend/internal/domain/partner"
	domainsync "github.com/circletel/backend/internal/domain/sync"
)

// vatRate is the South African VAT fraction applied to activation invoices.
var vatRate = decimal.NewFromFloat(0.15)

// ActivationResult reports the provider objects created for one activation.
type ActivationResult struct {
	// ServiceID is the activated customer service
	ServiceID uuid.UUID `json:"service_id"`
	// ContactID is the CRM contact
	ContactID string `json:"contact_id"`
	// BillingCustomerID is the billing customer
	BillingCustomerID string `json:"billing_customer_id"`
	// InvoiceID is the activation invoice
	InvoiceID string `json:"invoice_id"`
	// InvoiceNumber is the provider invoice number
	InvoiceNumber string `json:"invoice_number"`
	// InvoiceTotal is the invoiced total including VAT
	InvoiceTotal decimal.Decimal `json:"invoice_total"`
	// InvoiceURL is the provider-hosted invoice page
	InvoiceURL string `json:"invoice_url,omitempty"`
	// SubscriptionID is the recurring subscription
	SubscriptionID string `json:"subscription_id"`
}

// ActivationService runs the go-live chain for a customer service: contact
// and billing customer upserts, the activation invoice (package, installation
// and optional router lines, VAT inclusive) and the monthly subscription.
// Unlike the batch sync paths this is a command with an error return; a
// partial chain leaves the linked IDs persisted so a rerun picks up where it
// stopped.
type ActivationService struct {
	records   domainsync.IntegrationRecordRepository
	customers partner.CustomerReader
	services  partner.CustomerServiceRepository
	packages  catalog.ServicePackageReader
	entities  *EntitySyncService
	billing   domainsync.BillingPort
	logger    *zap.Logger

	now func() time.Time
}

// NewActivationService creates a new ActivationService
func NewActivationService(
	records domainsync.IntegrationRecordRepository,
	customers partner.CustomerReader,
	services partner.CustomerServiceRepository,
	packages catalog.ServicePackageReader,
	entities *EntitySyncService,
	billing domainsync.BillingPort,
	logger *zap.Logger,
) *ActivationService {
	return &ActivationService{
		records:   records,
		customers: customers,
		services:  services,
		packages:  packages,
		entities:  entities,
		billing:   billing,
		logger:    logger.Named("sync.activation"),
		now:       time.Now,
	}
}

// ActivateService marks the service live and runs the provider chain.
func (s *ActivationService) ActivateService(ctx context.Context, serviceID uuid.UUID, activatedAt time.Time) (*ActivationResult, error) {
	service, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	pkg, err := s.packages.FindByID(ctx, service.PackageID)
	if err != nil {
		return nil, err
	}

	if !service.IsBillable() {
		service.Activate(activatedAt)
		if err := s.services.Save(ctx, service); err != nil {
			return nil, fmt.Errorf("failed to persist activation: %w", err)
		}
	}

	// Contact and billing customer via the regular customer sync
	if outcome := s.entities.SyncCustomer(ctx, service.CustomerID, false); !outcome.Success {
		return nil, fmt.Errorf("customer sync failed: %s", outcome.Err.Message)
	}
	customerRecord, err := s.records.FindByEntity(ctx, domainsync.EntityCustomer, service.CustomerID)
	if err != nil {
		return nil, err
	}
	contactID := customerRecord.Refs.Ref(domainsync.TargetCRMContact)
	billingCustomerID := customerRecord.Refs.Ref(domainsync.TargetBillingCustomer)

	result := &ActivationResult{
		ServiceID:         serviceID,
		ContactID:         contactID,
		BillingCustomerID: billingCustomerID,
	}

	// Activation invoice, reusing an already-created one on rerun
	serviceRecord, err := s.ensureServiceRecord(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if existing := serviceRecord.Refs.Ref(domainsync.TargetBillingInvoice); existing != "" {
		result.InvoiceID = existing
	} else {
		invoice, err := s.billing.CreateInvoice(ctx, domainsync.BillingInvoice{
			CustomerID: billingCustomerID,
			Lines:      s.invoiceLines(service, pkg),
			VATRate:    vatRate,
			Date:       activatedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("invoice creation failed: %w", err)
		}
		result.InvoiceID = invoice.InvoiceID
		result.InvoiceNumber = invoice.InvoiceNumber
		result.InvoiceTotal = invoice.Total
		result.InvoiceURL = invoice.URL

		if err := serviceRecord.LinkRef(domainsync.TargetBillingInvoice, invoice.InvoiceID); err != nil {
			return nil, err
		}
		if err := s.records.Save(ctx, serviceRecord); err != nil {
			return nil, fmt.Errorf("failed to persist invoice link: %w", err)
		}
	}

	// Monthly subscription via the regular subscription sync
	if outcome := s.entities.SyncSubscription(ctx, serviceID, false); !outcome.Success {
		return nil, fmt.Errorf("subscription sync failed: %s", outcome.Err.Message)
	}
	serviceRecord, err = s.records.FindByEntity(ctx, domainsync.EntitySubscription, serviceID)
	if err != nil {
		return nil, err
	}
	result.SubscriptionID = serviceRecord.Refs.Ref(domainsync.TargetBillingSubscription)

	s.logger.Info("service activated",
		zap.String("service_id", serviceID.String()),
		zap.String("invoice_id", result.InvoiceID),
		zap.String("subscription_id", result.SubscriptionID),
	)
	return result, nil
}

// invoiceLines builds the activation invoice lines: the first month, the
// installation fee when charged, and the router when supplied by us.
func (s *ActivationService) invoiceLines(service *partner.CustomerService, pkg *catalog.ServicePackage) []domainsync.BillingInvoiceLine {
	one := decimal.NewFromInt(1)
	lines := []domainsync.BillingInvoiceLine{
		{Description: pkg.Name + " (first month)", Quantity: one, Rate: service.MonthlyPrice},
	}
	if service.InstallationFee.IsPositive() {
		lines = append(lines, domainsync.BillingInvoiceLine{
			Description: "Installation", Quantity: one, Rate: service.InstallationFee,
		})
	}
	if service.HasRouter() {
		lines = append(lines, domainsync.BillingInvoiceLine{
			Description: "Router", Quantity: one, Rate: service.RouterFee,
		})
	}
	return lines
}

func (s *ActivationService) ensureServiceRecord(ctx context.Context, serviceID uuid.UUID) (*domainsync.IntegrationRecord, error) {
	record, err := s.records.FindByEntity(ctx, domainsync.EntitySubscription, serviceID)
	if errors.Is(err, domainsync.ErrRecordNotFound) {
		record, err = domainsync.NewIntegrationRecord(domainsync.EntitySubscription, serviceID)
		if err != nil {
			return nil, err
		}
		if err := s.records.Save(ctx, record); err != nil {
			return nil, err
		}
		return record, nil
	}
	return record, err
}
