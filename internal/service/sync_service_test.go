package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/models"
	"github.com/partnerhub/internal/orders"
)

type stubOrderSource struct {
	invoices []orders.Invoice
	err      error
	calls    int
	since    time.Time
	until    time.Time
}

func (s *stubOrderSource) ListUpdatedInvoices(_ context.Context, since, until time.Time) ([]orders.Invoice, error) {
	s.calls++
	s.since = since
	s.until = until
	return s.invoices, s.err
}

func TestSyncCommissionsIngestsAndCancels(t *testing.T) {
	env := setupCommissionServiceTest(t)
	partner := createApprovedPartner(t, env, "F0Y1")
	ingest(t, env, paidEvent(partner.PartnerCode, "INV-Y1-OLD", "CUST-0", 1000000, true))

	now := time.Now()
	source := &stubOrderSource{invoices: []orders.Invoice{
		{InvoiceCode: "INV-Y1-1", InvoiceAmount: money(1000000), InvoiceDate: now, InvoiceStatus: constants.InvoiceStatusPaid, PartnerReference: partner.PartnerCode, CustomerReference: "CUST-1", IsFirstOrder: true},
		{InvoiceCode: "INV-Y1-2", InvoiceAmount: money(500000), InvoiceDate: now, InvoiceStatus: constants.InvoiceStatusPending, PartnerReference: partner.PartnerCode, CustomerReference: "CUST-2"},
		{InvoiceCode: "INV-Y1-OLD", InvoiceAmount: money(1000000), InvoiceDate: now, InvoiceStatus: constants.InvoiceStatusCancelled, PartnerReference: partner.PartnerCode, CustomerReference: "CUST-0", CancelledAt: &now},
		{InvoiceCode: "INV-Y1-3", InvoiceAmount: money(100), InvoiceDate: now, InvoiceStatus: constants.InvoiceStatusPaid, PartnerReference: "UNKNOWN", CustomerReference: "CUST-3"},
	}}
	svc := NewSyncService(source, env.commissions, time.Hour)

	summary, err := svc.SyncCommissions(context.Background(), time.Time{}, now)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if summary.Fetched != 4 || summary.Created != 1 || summary.Ignored != 1 || summary.Cancelled != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !source.since.Equal(now.Add(-time.Hour)) {
		t.Fatalf("expected lookback window start, got %v", source.since)
	}

	var old models.CommissionRecord
	if err := env.db.Where("invoice_code = ?", "INV-Y1-OLD").First(&old).Error; err != nil {
		t.Fatalf("load record failed: %v", err)
	}
	if old.Status != constants.CommissionStatusCancelled {
		t.Fatalf("expected cancelled, got %s", old.Status)
	}

	// 重复同步不会产生新记录或新调整
	again, err := svc.SyncCommissions(context.Background(), now.Add(-time.Hour), now)
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	// 已取消发票的重复投递按重复计，不再计入取消
	if again.Created != 0 || again.Duplicate != 2 || again.Cancelled != 0 {
		t.Fatalf("expected duplicates on re-run, got %+v", again)
	}
	var adjustments int64
	env.db.Model(&models.StatsAdjustment{}).Count(&adjustments)
	if adjustments != 1 {
		t.Fatalf("expected single adjustment after re-run, got %d", adjustments)
	}
}

func TestSyncCommissionsWithoutSource(t *testing.T) {
	svc := NewSyncService(nil, nil, 0)
	if svc.Enabled() {
		t.Fatalf("expected disabled sync service")
	}
	if _, err := svc.SyncCommissions(context.Background(), time.Time{}, time.Time{}); !errors.Is(err, ErrOrderSourceUnavailable) {
		t.Fatalf("expected ErrOrderSourceUnavailable, got %v", err)
	}
}

func TestSyncCommissionsSourceFailure(t *testing.T) {
	source := &stubOrderSource{err: errors.New("connection refused")}
	svc := NewSyncService(source, nil, time.Minute)
	_, err := svc.SyncCommissions(context.Background(), time.Time{}, time.Now())
	if !errors.Is(err, ErrSystem) {
		t.Fatalf("expected system error, got %v", err)
	}
}
