package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/circletel/backend/internal/domain/catalog"
	"github.com/circletel/backend/internal/domain/partner"
	domainsync "github.com/circletel/backend/internal/domain/sync"
	"github.com/circletel/backend/internal/domain/trade"
)

// ---------------------------------------------------------------------------
// In-memory repositories
// ---------------------------------------------------------------------------

type fakeRecordRepo struct {
	mu      stdsync.Mutex
	records map[string]domainsync.IntegrationRecord
	saveErr error
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: make(map[string]domainsync.IntegrationRecord)}
}

func recordKey(entityType domainsync.EntityType, entityID uuid.UUID) string {
	return string(entityType) + "/" + entityID.String()
}

func (r *fakeRecordRepo) FindByID(_ context.Context, id uuid.UUID) (*domainsync.IntegrationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.ID == id {
			copied := record
			return &copied, nil
		}
	}
	return nil, domainsync.ErrRecordNotFound
}

func (r *fakeRecordRepo) FindByEntity(_ context.Context, entityType domainsync.EntityType, entityID uuid.UUID) (*domainsync.IntegrationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[recordKey(entityType, entityID)]
	if !ok {
		return nil, domainsync.ErrRecordNotFound
	}
	copied := record
	return &copied, nil
}

func (r *fakeRecordRepo) Save(_ context.Context, record *domainsync.IntegrationRecord) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[recordKey(record.EntityType, record.EntityID)] = *record
	return nil
}

func (r *fakeRecordRepo) FindRetryDue(_ context.Context, now time.Time, maxAttempts, limit int) ([]domainsync.IntegrationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []domainsync.IntegrationRecord
	for _, record := range r.records {
		if record.State.IsDue(now) && record.State.RetryCount() < maxAttempts {
			due = append(due, record)
		}
		if len(due) >= limit {
			break
		}
	}
	return due, nil
}

func (r *fakeRecordRepo) FindFailed(_ context.Context, limit int) ([]domainsync.IntegrationRecord, error) {
	return r.findByPhase(domainsync.PhaseFailed, limit), nil
}

func (r *fakeRecordRepo) FindNeverSynced(_ context.Context, limit int) ([]domainsync.IntegrationRecord, error) {
	return r.findByPhase(domainsync.PhasePending, limit), nil
}

func (r *fakeRecordRepo) FindStale(_ context.Context, olderThan time.Time, limit int) ([]domainsync.IntegrationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stale []domainsync.IntegrationRecord
	for _, record := range r.records {
		if record.LastSyncedAt != nil && record.LastSyncedAt.Before(olderThan) {
			stale = append(stale, record)
		}
		if len(stale) >= limit {
			break
		}
	}
	return stale, nil
}

func (r *fakeRecordRepo) CountByPhase(_ context.Context) (map[domainsync.SyncPhase]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[domainsync.SyncPhase]int64)
	for _, record := range r.records {
		counts[record.State.Phase()]++
	}
	return counts, nil
}

func (r *fakeRecordRepo) findByPhase(phase domainsync.SyncPhase, limit int) []domainsync.IntegrationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []domainsync.IntegrationRecord
	for _, record := range r.records {
		if record.State.Phase() == phase {
			found = append(found, record)
		}
		if len(found) >= limit {
			break
		}
	}
	return found
}

// mustGet returns the stored record, failing the test when absent.
func (r *fakeRecordRepo) mustGet(t *testing.T, entityType domainsync.EntityType, entityID uuid.UUID) domainsync.IntegrationRecord {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[recordKey(entityType, entityID)]
	if !ok {
		t.Fatalf("no integration record for %s %s", entityType, entityID)
	}
	return record
}

// seed stores a record directly, bypassing Save error injection.
func (r *fakeRecordRepo) seed(record *domainsync.IntegrationRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[recordKey(record.EntityType, record.EntityID)] = *record
}

type fakeLogWriter struct {
	mu      stdsync.Mutex
	entries []domainsync.SyncLogEntry
}

func (w *fakeLogWriter) Append(_ context.Context, entry *domainsync.SyncLogEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, *entry)
	return nil
}

// ---------------------------------------------------------------------------
// Entity readers
// ---------------------------------------------------------------------------

type fakePackageRepo struct {
	packages map[uuid.UUID]*catalog.ServicePackage
	ids      []uuid.UUID
}

func newFakePackageRepo() *fakePackageRepo {
	return &fakePackageRepo{packages: make(map[uuid.UUID]*catalog.ServicePackage)}
}

func (r *fakePackageRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.ServicePackage, error) {
	pkg, ok := r.packages[id]
	if !ok {
		return nil, catalog.ErrPackageNotFound
	}
	return pkg, nil
}

func (r *fakePackageRepo) FindBySKU(_ context.Context, sku string) (*catalog.ServicePackage, error) {
	for _, pkg := range r.packages {
		if pkg.SKU == sku {
			return pkg, nil
		}
	}
	return nil, catalog.ErrPackageNotFound
}

func (r *fakePackageRepo) FindAll(_ context.Context, activeOnly bool) ([]catalog.ServicePackage, error) {
	var all []catalog.ServicePackage
	for _, id := range r.ids {
		pkg := r.packages[id]
		if activeOnly && !pkg.IsActive() {
			continue
		}
		all = append(all, *pkg)
	}
	return all, nil
}

func (r *fakePackageRepo) FindIDs(_ context.Context, activeOnly bool) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, id := range r.ids {
		if activeOnly && !r.packages[id].IsActive() {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *fakePackageRepo) add(pkg *catalog.ServicePackage) {
	r.packages[pkg.ID] = pkg
	r.ids = append(r.ids, pkg.ID)
}

type fakeCustomerRepo struct {
	customers map[uuid.UUID]*partner.Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[uuid.UUID]*partner.Customer)}
}

func (r *fakeCustomerRepo) FindByID(_ context.Context, id uuid.UUID) (*partner.Customer, error) {
	customer, ok := r.customers[id]
	if !ok {
		return nil, partner.ErrCustomerNotFound
	}
	return customer, nil
}

func (r *fakeCustomerRepo) FindByEmail(_ context.Context, email string) (*partner.Customer, error) {
	for _, customer := range r.customers {
		if customer.Email == email {
			return customer, nil
		}
	}
	return nil, partner.ErrCustomerNotFound
}

type fakeServiceRepo struct {
	services map[uuid.UUID]*partner.CustomerService
	saveErr  error
}

func newFakeServiceRepo() *fakeServiceRepo {
	return &fakeServiceRepo{services: make(map[uuid.UUID]*partner.CustomerService)}
}

func (r *fakeServiceRepo) FindByID(_ context.Context, id uuid.UUID) (*partner.CustomerService, error) {
	service, ok := r.services[id]
	if !ok {
		return nil, partner.ErrServiceNotFound
	}
	return service, nil
}

func (r *fakeServiceRepo) FindByCustomer(_ context.Context, customerID uuid.UUID) ([]partner.CustomerService, error) {
	var found []partner.CustomerService
	for _, service := range r.services {
		if service.CustomerID == customerID {
			found = append(found, *service)
		}
	}
	return found, nil
}

func (r *fakeServiceRepo) Save(_ context.Context, service *partner.CustomerService) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.services[service.ID] = service
	return nil
}

type fakePaymentRepo struct {
	payments map[uuid.UUID]*partner.PaymentTransaction
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]*partner.PaymentTransaction)}
}

func (r *fakePaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*partner.PaymentTransaction, error) {
	payment, ok := r.payments[id]
	if !ok {
		return nil, partner.ErrPaymentNotFound
	}
	return payment, nil
}

func (r *fakePaymentRepo) FindByCustomer(_ context.Context, customerID uuid.UUID) ([]partner.PaymentTransaction, error) {
	var found []partner.PaymentTransaction
	for _, payment := range r.payments {
		if payment.CustomerID == customerID {
			found = append(found, *payment)
		}
	}
	return found, nil
}

type fakeQuoteRepo struct {
	quotes map[uuid.UUID]*trade.Quote
}

func newFakeQuoteRepo() *fakeQuoteRepo {
	return &fakeQuoteRepo{quotes: make(map[uuid.UUID]*trade.Quote)}
}

func (r *fakeQuoteRepo) FindByID(_ context.Context, id uuid.UUID) (*trade.Quote, error) {
	quote, ok := r.quotes[id]
	if !ok {
		return nil, trade.ErrQuoteNotFound
	}
	return quote, nil
}

func (r *fakeQuoteRepo) FindByNumber(_ context.Context, quoteNumber string) (*trade.Quote, error) {
	for _, quote := range r.quotes {
		if quote.QuoteNumber == quoteNumber {
			return quote, nil
		}
	}
	return nil, trade.ErrQuoteNotFound
}

// ---------------------------------------------------------------------------
// Provider ports
// ---------------------------------------------------------------------------

// fakeProviderError mimics a transport error carrying provider detail.
type fakeProviderError struct {
	status int
	code   string
	msg    string
}

func (e *fakeProviderError) Error() string     { return e.msg }
func (e *fakeProviderError) StatusCode() int   { return e.status }
func (e *fakeProviderError) ErrorCode() string { return e.code }

var _ domainsync.ProviderFailure = (*fakeProviderError)(nil)

type fakeCRM struct {
	productCalls int
	contactCalls int
	quoteCalls   int

	productErr error
	contactErr error
	quoteErr   error

	lastProduct domainsync.CRMProduct
	lastContact domainsync.CRMContact
	lastQuote   domainsync.CRMQuote

	// updated flips Created to false, simulating an existing record
	updated bool
}

func (c *fakeCRM) UpsertProduct(_ context.Context, product domainsync.CRMProduct) (domainsync.UpsertResult, error) {
	c.productCalls++
	c.lastProduct = product
	if c.productErr != nil {
		return domainsync.UpsertResult{}, c.productErr
	}
	return domainsync.UpsertResult{ExternalID: "crm-prod-" + product.SKU, Created: !c.updated}, nil
}

func (c *fakeCRM) UpsertContact(_ context.Context, contact domainsync.CRMContact) (domainsync.UpsertResult, error) {
	c.contactCalls++
	c.lastContact = contact
	if c.contactErr != nil {
		return domainsync.UpsertResult{}, c.contactErr
	}
	return domainsync.UpsertResult{ExternalID: "crm-contact-" + contact.Email, Created: !c.updated}, nil
}

func (c *fakeCRM) UpsertQuote(_ context.Context, quote domainsync.CRMQuote) (domainsync.UpsertResult, error) {
	c.quoteCalls++
	c.lastQuote = quote
	if c.quoteErr != nil {
		return domainsync.UpsertResult{}, c.quoteErr
	}
	return domainsync.UpsertResult{ExternalID: "crm-quote-" + quote.QuoteNumber, Created: !c.updated}, nil
}

var _ domainsync.CRMPort = (*fakeCRM)(nil)

type fakeBilling struct {
	planCalls     int
	itemCalls     int
	productCalls  int
	customerCalls int
	subCalls      int
	invoiceCalls  int
	paymentCalls  int

	planErr     error
	itemErr     error
	customerErr error
	subErr      error
	invoiceErr  error
	paymentErr  error

	lastPlan     domainsync.BillingPlan
	lastCustomer domainsync.BillingCustomer
	lastSub      domainsync.BillingSubscription
	lastInvoice  domainsync.BillingInvoice
	lastPayment  domainsync.BillingPayment
}

func (b *fakeBilling) UpsertPlan(_ context.Context, plan domainsync.BillingPlan) (domainsync.UpsertResult, error) {
	b.planCalls++
	b.lastPlan = plan
	if b.planErr != nil {
		return domainsync.UpsertResult{}, b.planErr
	}
	return domainsync.UpsertResult{ExternalID: "plan-" + plan.PlanCode, Created: true}, nil
}

func (b *fakeBilling) UpsertItem(_ context.Context, item domainsync.BillingItem) (domainsync.UpsertResult, error) {
	b.itemCalls++
	if b.itemErr != nil {
		return domainsync.UpsertResult{}, b.itemErr
	}
	return domainsync.UpsertResult{ExternalID: "item-" + item.SKU, Created: true}, nil
}

func (b *fakeBilling) UpsertProduct(_ context.Context, product domainsync.BillingProduct) (domainsync.UpsertResult, error) {
	b.productCalls++
	return domainsync.UpsertResult{ExternalID: "bprod-" + product.Name, Created: true}, nil
}

func (b *fakeBilling) UpsertCustomer(_ context.Context, customer domainsync.BillingCustomer) (domainsync.UpsertResult, error) {
	b.customerCalls++
	b.lastCustomer = customer
	if b.customerErr != nil {
		return domainsync.UpsertResult{}, b.customerErr
	}
	return domainsync.UpsertResult{ExternalID: "bcust-" + customer.Email, Created: true}, nil
}

func (b *fakeBilling) CreateSubscription(_ context.Context, sub domainsync.BillingSubscription) (string, error) {
	b.subCalls++
	b.lastSub = sub
	if b.subErr != nil {
		return "", b.subErr
	}
	return fmt.Sprintf("sub-%d", b.subCalls), nil
}

func (b *fakeBilling) CreateInvoice(_ context.Context, invoice domainsync.BillingInvoice) (domainsync.BillingInvoiceResult, error) {
	b.invoiceCalls++
	b.lastInvoice = invoice
	if b.invoiceErr != nil {
		return domainsync.BillingInvoiceResult{}, b.invoiceErr
	}
	total := decimal.Zero
	for _, line := range invoice.Lines {
		total = total.Add(line.Rate.Mul(line.Quantity))
	}
	total = total.Mul(decimal.NewFromInt(1).Add(invoice.VATRate))
	return domainsync.BillingInvoiceResult{
		InvoiceID:     fmt.Sprintf("inv-%d", b.invoiceCalls),
		InvoiceNumber: fmt.Sprintf("INV-%03d", b.invoiceCalls),
		Total:         total,
		URL:           "https://billing.example/invoice",
	}, nil
}

func (b *fakeBilling) RecordPayment(_ context.Context, payment domainsync.BillingPayment) (string, error) {
	b.paymentCalls++
	b.lastPayment = payment
	if b.paymentErr != nil {
		return "", b.paymentErr
	}
	return fmt.Sprintf("pay-%d", b.paymentCalls), nil
}

var _ domainsync.BillingPort = (*fakeBilling)(nil)

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type syncFixture struct {
	records   *fakeRecordRepo
	logs      *fakeLogWriter
	packages  *fakePackageRepo
	customers *fakeCustomerRepo
	services  *fakeServiceRepo
	payments  *fakePaymentRepo
	quotes    *fakeQuoteRepo
	crm       *fakeCRM
	billing   *fakeBilling
	entities  *EntitySyncService
	now       time.Time
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	f := &syncFixture{
		records:   newFakeRecordRepo(),
		logs:      &fakeLogWriter{},
		packages:  newFakePackageRepo(),
		customers: newFakeCustomerRepo(),
		services:  newFakeServiceRepo(),
		payments:  newFakePaymentRepo(),
		quotes:    newFakeQuoteRepo(),
		crm:       &fakeCRM{},
		billing:   &fakeBilling{},
		now:       time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
	}
	f.entities = NewEntitySyncService(
		f.records, f.logs,
		f.packages, f.customers, f.services, f.payments, f.quotes,
		f.crm, f.billing,
		zap.NewNop(),
	)
	f.entities.now = func() time.Time { return f.now }
	return f
}

func (f *syncFixture) addPackage(t *testing.T, sku, name string, monthly int64) *catalog.ServicePackage {
	t.Helper()
	pkg, err := catalog.NewServicePackage(sku, name, decimal.NewFromInt(monthly), decimal.NewFromInt(999))
	if err != nil {
		t.Fatalf("new package: %v", err)
	}
	f.packages.add(pkg)
	return pkg
}

func (f *syncFixture) addCustomer(t *testing.T, email string) *partner.Customer {
	t.Helper()
	customer, err := partner.NewCustomer(email, "Thandi", "Mokoena")
	if err != nil {
		t.Fatalf("new customer: %v", err)
	}
	customer.Phone = "+27 82 555 0100"
	customer.SetAddress("12 Protea Rd", "Centurion", "Gauteng", "0157")
	f.customers.customers[customer.ID] = customer
	return customer
}

func (f *syncFixture) addService(t *testing.T, customerID, packageID uuid.UUID, active bool) *partner.CustomerService {
	t.Helper()
	service, err := partner.NewCustomerService(customerID, packageID, decimal.NewFromInt(699), decimal.NewFromInt(999))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if active {
		service.Activate(f.now.Add(-48 * time.Hour))
	}
	f.services.services[service.ID] = service
	return service
}
