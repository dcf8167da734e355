package sync

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainsync "github.com/circletel/backend/internal/domain/sync"
)

func newActivationService(f *syncFixture) *ActivationService {
	svc := NewActivationService(f.records, f.customers, f.services, f.packages, f.entities, f.billing, zap.NewNop())
	svc.now = func() time.Time { return f.now }
	return svc
}

func TestActivationService_ActivateService(t *testing.T) {
	ctx := context.Background()

	t.Run("runs the full chain", func(t *testing.T) {
		f := newSyncFixture(t)
		customer := f.addCustomer(t, "thandi@example.co.za")
		pkg := f.addPackage(t, "FIBRE-100", "Fibre 100/50", 699)
		service := f.addService(t, customer.ID, pkg.ID, false)
		service.RouterFee = decimal.NewFromInt(250)

		activation := newActivationService(f)
		activatedAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

		result, err := activation.ActivateService(ctx, service.ID, activatedAt)
		require.NoError(t, err)

		// service went live
		assert.True(t, service.IsBillable())
		require.NotNil(t, service.ActivatedAt)
		assert.Equal(t, activatedAt, *service.ActivatedAt)

		// contact and billing customer
		assert.Equal(t, "crm-contact-thandi@example.co.za", result.ContactID)
		assert.Equal(t, "bcust-thandi@example.co.za", result.BillingCustomerID)

		// invoice with monthly, installation and router lines at 15% VAT
		require.Len(t, f.billing.lastInvoice.Lines, 3)
		assert.Equal(t, "Fibre 100/50 (first month)", f.billing.lastInvoice.Lines[0].Description)
		assert.True(t, decimal.NewFromInt(699).Equal(f.billing.lastInvoice.Lines[0].Rate))
		assert.Equal(t, "Installation", f.billing.lastInvoice.Lines[1].Description)
		assert.Equal(t, "Router", f.billing.lastInvoice.Lines[2].Description)
		assert.True(t, decimal.NewFromFloat(0.15).Equal(f.billing.lastInvoice.VATRate))
		assert.Equal(t, "inv-1", result.InvoiceID)
		assert.Equal(t, "INV-001", result.InvoiceNumber)
		// (699 + 999 + 250) * 1.15
		assert.True(t, decimal.NewFromFloat(2240.20).Equal(result.InvoiceTotal), "got %s", result.InvoiceTotal)

		// subscription started on the activation date
		assert.Equal(t, "sub-1", result.SubscriptionID)
		require.NotNil(t, f.billing.lastSub.StartsAt)
		assert.Equal(t, activatedAt, *f.billing.lastSub.StartsAt)

		// invoice and subscription IDs persisted on the service record
		record := f.records.mustGet(t, domainsync.EntitySubscription, service.ID)
		assert.Equal(t, "inv-1", record.Refs.BillingInvoiceID)
		assert.Equal(t, "sub-1", record.Refs.BillingSubscriptionID)
		assert.Equal(t, domainsync.PhaseOK, record.State.Phase())
	})

	t.Run("omits zero fee lines", func(t *testing.T) {
		f := newSyncFixture(t)
		customer := f.addCustomer(t, "thandi@example.co.za")
		pkg := f.addPackage(t, "FIBRE-100", "Fibre 100/50", 699)
		service := f.addService(t, customer.ID, pkg.ID, false)
		service.InstallationFee = decimal.Zero

		activation := newActivationService(f)
		_, err := activation.ActivateService(ctx, service.ID, f.now)
		require.NoError(t, err)

		require.Len(t, f.billing.lastInvoice.Lines, 1)
		assert.Equal(t, "Fibre 100/50 (first month)", f.billing.lastInvoice.Lines[0].Description)
	})

	t.Run("rerun reuses the existing invoice", func(t *testing.T) {
		f := newSyncFixture(t)
		customer := f.addCustomer(t, "thandi@example.co.za")
		pkg := f.addPackage(t, "FIBRE-100", "Fibre 100/50", 699)
		service := f.addService(t, customer.ID, pkg.ID, false)

		activation := newActivationService(f)
		first, err := activation.ActivateService(ctx, service.ID, f.now)
		require.NoError(t, err)

		second, err := activation.ActivateService(ctx, service.ID, f.now)
		require.NoError(t, err)

		assert.Equal(t, first.InvoiceID, second.InvoiceID)
		assert.Equal(t, 1, f.billing.invoiceCalls)
		// the subscription sync short-circuits on the second run
		assert.Equal(t, 1, f.billing.subCalls)
	})

	t.Run("invoice failure aborts before the subscription", func(t *testing.T) {
		f := newSyncFixture(t)
		customer := f.addCustomer(t, "thandi@example.co.za")
		pkg := f.addPackage(t, "FIBRE-100", "Fibre 100/50", 699)
		service := f.addService(t, customer.ID, pkg.ID, false)
		f.billing.invoiceErr = &fakeProviderError{status: 500, code: "INTERNAL", msg: "server error"}

		activation := newActivationService(f)
		_, err := activation.ActivateService(ctx, service.ID, f.now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invoice creation failed")
		assert.Zero(t, f.billing.subCalls)
	})
}
