package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/circletel/backend/internal/domain/catalog"
	"github.com/circletel/backend/internal/domain/partner"
	domainsync "github.com/circletel/backend/internal/domain/sync"
	"github.com/circletel/backend/internal/domain/trade"
)

// ---------------------------------------------------------------------------
// SyncOutcome
// ---------------------------------------------------------------------------

// SyncOutcome is the structured result of one entity sync. Sync methods never
// return an error to their caller; failures are carried inside the outcome so
// orchestrators can tally and continue.
type SyncOutcome struct {
	// EntityType is the kind of internal entity synced
	EntityType domainsync.EntityType `json:"entity_type"`
	// EntityID is the internal entity's ID
	EntityID uuid.UUID `json:"entity_id"`
	// Target is the final external object addressed
	Target domainsync.SyncTarget `json:"target"`
	// Action is what happened against the provider
	Action domainsync.SyncAction `json:"action"`
	// Success indicates whether the sync succeeded or was safely skipped
	Success bool `json:"success"`
	// Skipped is true when no external call was needed
	Skipped bool `json:"skipped"`
	// ExternalID is the provider ID produced or confirmed
	ExternalID string `json:"external_id,omitempty"`
	// Err carries the structured failure, nil on success
	Err *domainsync.SyncError `json:"error,omitempty"`
}

// ---------------------------------------------------------------------------
// EntitySyncService
// ---------------------------------------------------------------------------

// EntitySyncService pushes internal entities to the provider. One method per
// entity type; prerequisites (a subscription needs its customer's billing ID)
// are synced recursively when missing.
type EntitySyncService struct {
	records   domainsync.IntegrationRecordRepository
	logs      domainsync.SyncLogWriter
	packages  catalog.ServicePackageReader
	customers partner.CustomerReader
	services  partner.CustomerServiceReader
	payments  partner.PaymentTransactionReader
	quotes    trade.QuoteReader
	crm       domainsync.CRMPort
	billing   domainsync.BillingPort
	schedule  domainsync.RetrySchedule
	logger    *zap.Logger

	now func() time.Time
}

// NewEntitySyncService creates a new EntitySyncService
func NewEntitySyncService(
	records domainsync.IntegrationRecordRepository,
	logs domainsync.SyncLogWriter,
	packages catalog.ServicePackageReader,
	customers partner.CustomerReader,
	services partner.CustomerServiceReader,
	payments partner.PaymentTransactionReader,
	quotes trade.QuoteReader,
	crm domainsync.CRMPort,
	billing domainsync.BillingPort,
	logger *zap.Logger,
) *EntitySyncService {
	return &EntitySyncService{
		records:   records,
		logs:      logs,
		packages:  packages,
		customers: customers,
		services:  services,
		payments:  payments,
		quotes:    quotes,
		crm:       crm,
		billing:   billing,
		schedule:  domainsync.DefaultRetrySchedule(),
		logger:    logger.Named("sync.entity"),
		now:       time.Now,
	}
}

// Sync dispatches to the entity-specific sync method.
func (s *EntitySyncService) Sync(ctx context.Context, entityType domainsync.EntityType, entityID uuid.UUID, force bool) SyncOutcome {
	switch entityType {
	case domainsync.EntityProduct:
		return s.SyncProduct(ctx, entityID, force)
	case domainsync.EntityCustomer:
		return s.SyncCustomer(ctx, entityID, force)
	case domainsync.EntitySubscription:
		return s.SyncSubscription(ctx, entityID, force)
	case domainsync.EntityPayment:
		return s.SyncPayment(ctx, entityID, force)
	case domainsync.EntityQuote:
		return s.SyncQuote(ctx, entityID, force)
	}
	return SyncOutcome{
		EntityType: entityType,
		EntityID:   entityID,
		Err:        s.plainError(domainsync.ErrInvalidEntityType),
	}
}

// ---------------------------------------------------------------------------
// Product
// ---------------------------------------------------------------------------

// SyncProduct pushes a service package to the CRM product catalog, the
// billing plan book and the billing item list.
func (s *EntitySyncService) SyncProduct(ctx context.Context, packageID uuid.UUID, force bool) SyncOutcome {
	record, outcome, ok := s.begin(ctx, domainsync.EntityProduct, packageID, force,
		domainsync.TargetCRMProduct, domainsync.TargetBillingPlan, domainsync.TargetBillingItem)
	if !ok {
		return outcome
	}

	pkg, err := s.packages.FindByID(ctx, packageID)
	if err != nil {
		return s.fail(ctx, record, domainsync.TargetCRMProduct, err, nil)
	}

	crmPayload := MapPackageToCRMProduct(pkg)
	crmResult, err := s.upsertAndLink(ctx, record, domainsync.TargetCRMProduct, crmPayload, func() (domainsync.UpsertResult, error) {
		return s.crm.UpsertProduct(ctx, crmPayload)
	})
	if err != nil {
		return s.fail(ctx, record, domainsync.TargetCRMProduct, err, crmPayload)
	}

	planPayload := MapPackageToBillingPlan(pkg)
	if _, err := s.upsertAndLink(ctx, record, domainsync.TargetBillingPlan, planPayload, func() (domainsync.UpsertResult, error) {
		return s.billing.UpsertPlan(ctx, planPayload)
	}); err != nil {
		return s.fail(ctx, record, domainsync.TargetBillingPlan, err, planPayload)
	}

	itemPayload := MapPackageToBillingItem(pkg)
	itemResult, err := s.upsertAndLink(ctx, record, domainsync.TargetBillingItem, itemPayload, func() (domainsync.UpsertResult, error) {
		return s.billing.UpsertItem(ctx, itemPayload)
	})
	if err != nil {
		return s.fail(ctx, record, domainsync.TargetBillingItem, err, itemPayload)
	}

	return s.succeed(ctx, record, domainsync.TargetBillingItem, itemResult, crmResult.ExternalID)
}

// ---------------------------------------------------------------------------
// Customer
// ---------------------------------------------------------------------------

// SyncCustomer pushes a customer to the CRM contact module and the billing
// customer book.
func (s *EntitySyncService) SyncCustomer(ctx context.Context, customerID uuid.UUID, force bool) SyncOutcome {
	record, outcome, ok := s.begin(ctx, domainsync.EntityCustomer, customerID, force,
		domainsync.TargetCRMContact, domainsync.TargetBillingCustomer)
	if !ok {
		return outcome
	}

	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return s.fail(ctx, record, domainsync.TargetCRMContact, err, nil)
	}

	contactPayload := MapCustomerToCRMContact(customer)
	if _, err := s.upsertAndLink(ctx, record, domainsync.TargetCRMContact, contactPayload, func() (domainsync.UpsertResult, error) {
		return s.crm.UpsertContact(ctx, contactPayload)
	}); err != nil {
		return s.fail(ctx, record, domainsync.TargetCRMContact, err, contactPayload)
	}

	billingPayload := MapCustomerToBillingCustomer(customer)
	billingResult, err := s.upsertAndLink(ctx, record, domainsync.TargetBillingCustomer, billingPayload, func() (domainsync.UpsertResult, error) {
		return s.billing.UpsertCustomer(ctx, billingPayload)
	})
	if err != nil {
		return s.fail(ctx, record, domainsync.TargetBillingCustomer, err, billingPayload)
	}

	return s.succeed(ctx, record, domainsync.TargetBillingCustomer, billingResult, billingResult.ExternalID)
}

// ---------------------------------------------------------------------------
// Subscription
// ---------------------------------------------------------------------------

// SyncSubscription creates a billing subscription for a billable customer
// service. Requires the customer's billing ID and the package's plan, both
// synced recursively when missing.
func (s *EntitySyncService) SyncSubscription(ctx context.Context, serviceID uuid.UUID, force bool) SyncOutcome {
	record, outcome, ok := s.begin(ctx, domainsync.EntitySubscription, serviceID, force,
		domainsync.TargetBillingSubscription)
	if !ok {
		return outcome
	}

	service, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		return s.fail(ctx, record, domainsync.TargetBillingSubscription, err, nil)
	}
	if !service.IsBillable() {
		return s.skip(ctx, record, domainsync.TargetBillingSubscription, "service is not billable yet")
	}

	billingCustomerID, err := s.requireRef(ctx, domainsync.EntityCustomer, service.CustomerID,
		domainsync.TargetBillingCustomer, func() SyncOutcome {
			return s.SyncCustomer(ctx, service.CustomerID, false)
		})
	if err != nil {
		return s.fail(ctx, record, domainsync.TargetBillingSubscription, err, nil)
	}

	pkg, err := s.packages.FindByID(ctx, service.PackageID)
	if err != nil {
		return s.fail(ctx, record, domainsync.TargetBillingSubscription, err, nil)
	}
	if _, err := s.requireRef(ctx, domainsync.EntityProduct, service.PackageID,
		domainsync.TargetBillingPlan, func() SyncOutcome {
			return s.SyncProduct(ctx, service.PackageID, false)
		}); err != nil {
		return s.fail(ctx, record, domainsync.TargetBillingSubscription, err, nil)
	}

	subPayload := domainsync.BillingSubscription{
		CustomerID: billingCustomerID,
		PlanCode:   pkg.PlanCode(),
		PlanPrice:  service.MonthlyPrice,
		Quantity:   1,
		StartsAt:   service.ActivatedAt,
	}
	started := s.now()
	subscriptionID, err := s.billing.CreateSubscription(ctx, subPayload)
	if err != nil {
		return s.fail(ctx, record, domainsync.TargetBillingSubscription, err, subPayload)
	}

	result := domainsync.UpsertResult{ExternalID: subscriptionID, Created: true}
	s.appendLog(ctx, record, domainsync.TargetBillingSubscription, result.Action(), result.ExternalID, s.now().Sub(started))
	return s.succeed(ctx, record, domainsync.TargetBillingSubscription, result, subscriptionID)
}

// ---------------------------------------------------------------------------
// Payment
// ---------------------------------------------------------------------------

// SyncPayment records a settled payment against the invoice of the linked
// service. The customer and the invoice are prerequisites.
func (s *EntitySyncService) SyncPayment(ctx context.Context, paymentID uuid.UUID, force bool) SyncOutcome {
	record, outcome, ok := s.begin(ctx, domainsync.EntityPayment, paymentID, force,
		domainsync.TargetBillingPayment)
	if !ok {
		return outcome
	}

	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return s.fail(ctx, record, domainsync.TargetBillingPayment, err, nil)
	}
	if !payment.IsSettled() {
		return s.skip(ctx, record, domainsync.TargetBillingPayment, "payment is not settled")
	}

	billingCustomerID, err := s.requireRef(ctx, domainsync.EntityCustomer, payment.CustomerID,
		domainsync.TargetBillingCustomer, func() SyncOutcome {
			return s.SyncCustomer(ctx, payment.CustomerID, false)
		})
	if err != nil {
		return s.fail(ctx, record, domainsync.TargetBillingPayment, err, nil)
	}

	invoiceID, err := s.linkedInvoiceID(ctx, payment)
	if err != nil {
		return s.fail(ctx, record, domainsync.TargetBillingPayment, err, nil)
	}

	paymentPayload := domainsync.BillingPayment{
		CustomerID:  billingCustomerID,
		InvoiceID:   invoiceID,
		Amount:      payment.Amount,
		Mode:        MapPaymentMode(payment.Method),
		Reference:   payment.Reference,
		Date:        payment.PaidAt,
		Description: "Payment " + payment.Reference,
	}
	started := s.now()
	providerPaymentID, err := s.billing.RecordPayment(ctx, paymentPayload)
	if err != nil {
		return s.fail(ctx, record, domainsync.TargetBillingPayment, err, paymentPayload)
	}

	result := domainsync.UpsertResult{ExternalID: providerPaymentID, Created: true}
	s.appendLog(ctx, record, domainsync.TargetBillingPayment, result.Action(), result.ExternalID, s.now().Sub(started))
	return s.succeed(ctx, record, domainsync.TargetBillingPayment, result, providerPaymentID)
}

// linkedInvoiceID resolves the provider invoice the payment applies to via
// the linked service's integration record.
func (s *EntitySyncService) linkedInvoiceID(ctx context.Context, payment *partner.PaymentTransaction) (string, error) {
	if payment.ServiceID == nil {
		return "", fmt.Errorf("%w: payment %s has no service link", domainsync.ErrMissingPrerequisite, payment.ID)
	}
	serviceRecord, err := s.records.FindByEntity(ctx, domainsync.EntitySubscription, *payment.ServiceID)
	if err != nil {
		if errors.Is(err, domainsync.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: service %s has no invoice yet", domainsync.ErrMissingPrerequisite, *payment.ServiceID)
		}
		return "", err
	}
	invoiceID := serviceRecord.Refs.Ref(domainsync.TargetBillingInvoice)
	if invoiceID == "" {
		return "", fmt.Errorf("%w: service %s has no invoice yet", domainsync.ErrMissingPrerequisite, *payment.ServiceID)
	}
	return invoiceID, nil
}

// ---------------------------------------------------------------------------
// Quote
// ---------------------------------------------------------------------------

// SyncQuote pushes a quote to the CRM. The contact and every quoted package's
// CRM product are prerequisites, synced recursively when missing.
func (s *EntitySyncService) SyncQuote(ctx context.Context, quoteID uuid.UUID, force bool) SyncOutcome {
	record, outcome, ok := s.begin(ctx, domainsync.EntityQuote, quoteID, force,
		domainsync.TargetCRMQuote)
	if !ok {
		return outcome
	}

	quote, err := s.quotes.FindByID(ctx, quoteID)
	if err != nil {
		return s.fail(ctx, record, domainsync.TargetCRMQuote, err, nil)
	}

	contactID, err := s.requireRef(ctx, domainsync.EntityCustomer, quote.CustomerID,
		domainsync.TargetCRMContact, func() SyncOutcome {
			return s.SyncCustomer(ctx, quote.CustomerID, false)
		})
	if err != nil {
		return s.fail(ctx, record, domainsync.TargetCRMQuote, err, nil)
	}

	lineProductIDs := make([]string, len(quote.Lines))
	for i, line := range quote.Lines {
		packageID := line.PackageID
		productID, err := s.requireRef(ctx, domainsync.EntityProduct, packageID,
			domainsync.TargetCRMProduct, func() SyncOutcome {
				return s.SyncProduct(ctx, packageID, false)
			})
		if err != nil {
			return s.fail(ctx, record, domainsync.TargetCRMQuote, err, nil)
		}
		lineProductIDs[i] = productID
	}

	quotePayload := MapQuoteToCRMQuote(quote, contactID, lineProductIDs)
	quoteResult, err := s.upsertAndLink(ctx, record, domainsync.TargetCRMQuote, quotePayload, func() (domainsync.UpsertResult, error) {
		return s.crm.UpsertQuote(ctx, quotePayload)
	})
	if err != nil {
		return s.fail(ctx, record, domainsync.TargetCRMQuote, err, quotePayload)
	}

	return s.succeed(ctx, record, domainsync.TargetCRMQuote, quoteResult, quoteResult.ExternalID)
}

// ---------------------------------------------------------------------------
// Internals
// ---------------------------------------------------------------------------

// begin loads or creates the integration record and decides whether work is
// needed. Returns ok=false with a final outcome for short-circuits, terminal
// records and load failures.
func (s *EntitySyncService) begin(ctx context.Context, entityType domainsync.EntityType, entityID uuid.UUID, force bool, targets ...domainsync.SyncTarget) (*domainsync.IntegrationRecord, SyncOutcome, bool) {
	record, err := s.records.FindByEntity(ctx, entityType, entityID)
	if errors.Is(err, domainsync.ErrRecordNotFound) {
		record, err = domainsync.NewIntegrationRecord(entityType, entityID)
	}
	if err != nil {
		return nil, SyncOutcome{EntityType: entityType, EntityID: entityID, Err: s.plainError(err)}, false
	}

	primary := targets[len(targets)-1]

	if !force {
		if record.State.Phase() == domainsync.PhaseTerminal {
			return nil, SyncOutcome{
				EntityType: entityType,
				EntityID:   entityID,
				Target:     primary,
				Err:        s.plainError(domainsync.ErrTerminallyFailed),
			}, false
		}
		if record.State.Phase() == domainsync.PhaseOK && s.allLinked(record, targets) {
			return nil, SyncOutcome{
				EntityType: entityType,
				EntityID:   entityID,
				Target:     primary,
				Action:     domainsync.ActionSkip,
				Success:    true,
				Skipped:    true,
				ExternalID: record.Refs.Ref(primary),
			}, false
		}
	}

	record.MarkSyncing()
	if err := s.records.Save(ctx, record); err != nil {
		return nil, SyncOutcome{EntityType: entityType, EntityID: entityID, Target: primary, Err: s.plainError(err)}, false
	}
	return record, SyncOutcome{}, true
}

func (s *EntitySyncService) allLinked(record *domainsync.IntegrationRecord, targets []domainsync.SyncTarget) bool {
	for _, target := range targets {
		if record.Refs.Ref(target) == "" {
			return false
		}
	}
	return true
}

// upsertAndLink runs one provider upsert, links the resulting ID on the
// record and appends an audit row.
func (s *EntitySyncService) upsertAndLink(ctx context.Context, record *domainsync.IntegrationRecord, target domainsync.SyncTarget, payload any, call func() (domainsync.UpsertResult, error)) (domainsync.UpsertResult, error) {
	started := s.now()
	result, err := call()
	if err != nil {
		return domainsync.UpsertResult{}, err
	}
	if err := record.LinkRef(target, result.ExternalID); err != nil {
		return domainsync.UpsertResult{}, err
	}
	s.appendLog(ctx, record, target, result.Action(), result.ExternalID, s.now().Sub(started))
	return result, nil
}

// succeed marks the record ok, persists it and returns the success outcome.
func (s *EntitySyncService) succeed(ctx context.Context, record *domainsync.IntegrationRecord, target domainsync.SyncTarget, result domainsync.UpsertResult, externalID string) SyncOutcome {
	if err := record.MarkSynced(target, result.ExternalID); err != nil {
		return s.fail(ctx, record, target, err, nil)
	}
	if err := s.records.Save(ctx, record); err != nil {
		return s.fail(ctx, record, target, err, nil)
	}
	s.logger.Info("entity synced",
		zap.String("entity_type", record.EntityType.String()),
		zap.String("entity_id", record.EntityID.String()),
		zap.String("target", target.String()),
		zap.String("external_id", externalID),
	)
	return SyncOutcome{
		EntityType: record.EntityType,
		EntityID:   record.EntityID,
		Target:     target,
		Action:     result.Action(),
		Success:    true,
		ExternalID: externalID,
	}
}

// skip records a no-op run without touching the retry budget. The record
// stays in its current phase and will be picked up again by a later run.
func (s *EntitySyncService) skip(ctx context.Context, record *domainsync.IntegrationRecord, target domainsync.SyncTarget, reason string) SyncOutcome {
	// undo the syncing mark so the record remains a candidate
	record.State = domainsync.RestoreState(domainsync.PhasePending, record.State.RetryCount(), nil, nil)
	if err := s.records.Save(ctx, record); err != nil {
		s.logger.Warn("failed to restore record after skip", zap.Error(err))
	}

	entry := domainsync.NewSyncLogEntry(record, target, domainsync.ActionSkip, true)
	entry.Message = reason
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to append sync log", zap.Error(err))
	}

	s.logger.Info("entity sync skipped",
		zap.String("entity_type", record.EntityType.String()),
		zap.String("entity_id", record.EntityID.String()),
		zap.String("reason", reason),
	)
	return SyncOutcome{
		EntityType: record.EntityType,
		EntityID:   record.EntityID,
		Target:     target,
		Action:     domainsync.ActionSkip,
		Success:    true,
		Skipped:    true,
	}
}

// fail builds the structured error, advances the retry state, persists the
// record and appends the audit row.
func (s *EntitySyncService) fail(ctx context.Context, record *domainsync.IntegrationRecord, target domainsync.SyncTarget, cause error, payload any) SyncOutcome {
	syncErr := s.buildSyncError(cause, record.State.RetryCount()+1, payload)
	record.MarkFailed(syncErr, s.schedule, s.now())
	if err := s.records.Save(ctx, record); err != nil {
		s.logger.Error("failed to persist failed record", zap.Error(err))
	}

	entry := domainsync.NewSyncLogEntry(record, target, domainsync.ActionCreate, false).
		WithFailure(syncErr, 0)
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to append sync log", zap.Error(err))
	}

	s.logger.Warn("entity sync failed",
		zap.String("entity_type", record.EntityType.String()),
		zap.String("entity_id", record.EntityID.String()),
		zap.String("target", target.String()),
		zap.Int("attempt", syncErr.Attempt),
		zap.String("phase", string(record.State.Phase())),
		zap.Error(cause),
	)
	return SyncOutcome{
		EntityType: record.EntityType,
		EntityID:   record.EntityID,
		Target:     target,
		Err:        &syncErr,
	}
}

// buildSyncError captures the provider detail and a payload snapshot.
func (s *EntitySyncService) buildSyncError(cause error, attempt int, payload any) domainsync.SyncError {
	syncErr := domainsync.SyncError{
		Message:    cause.Error(),
		Attempt:    attempt,
		OccurredAt: s.now(),
	}
	var providerErr domainsync.ProviderFailure
	if errors.As(cause, &providerErr) {
		syncErr.HTTPStatus = providerErr.StatusCode()
		syncErr.ProviderCode = providerErr.ErrorCode()
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			syncErr.Payload = string(raw)
		}
	}
	return syncErr
}

func (s *EntitySyncService) plainError(cause error) *domainsync.SyncError {
	return &domainsync.SyncError{Message: cause.Error(), OccurredAt: s.now()}
}

// requireRef resolves the external ID a dependent entity must already have,
// syncing it recursively when missing.
func (s *EntitySyncService) requireRef(ctx context.Context, entityType domainsync.EntityType, entityID uuid.UUID, target domainsync.SyncTarget, syncFn func() SyncOutcome) (string, error) {
	record, err := s.records.FindByEntity(ctx, entityType, entityID)
	if err == nil {
		if id := record.Refs.Ref(target); id != "" {
			return id, nil
		}
	} else if !errors.Is(err, domainsync.ErrRecordNotFound) {
		return "", err
	}

	if outcome := syncFn(); !outcome.Success {
		return "", fmt.Errorf("%w: %s %s", domainsync.ErrMissingPrerequisite, entityType, entityID)
	}

	record, err = s.records.FindByEntity(ctx, entityType, entityID)
	if err != nil {
		return "", err
	}
	if id := record.Refs.Ref(target); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("%w: %s %s missing %s", domainsync.ErrMissingPrerequisite, entityType, entityID, target)
}

func (s *EntitySyncService) appendLog(ctx context.Context, record *domainsync.IntegrationRecord, target domainsync.SyncTarget, action domainsync.SyncAction, externalID string, took time.Duration) {
	entry := domainsync.NewSyncLogEntry(record, target, action, true).WithResult(externalID, took)
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to append sync log", zap.Error(err))
	}
}
