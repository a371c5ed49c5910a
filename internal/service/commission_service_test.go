package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/metrics"
	"github.com/partnerhub/internal/models"
	"github.com/partnerhub/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type commissionTestEnv struct {
	db          *gorm.DB
	partners    *PartnerService
	tiers       *TierService
	commissions *CommissionService
	batches     *PaymentBatchService
	withdrawals *WithdrawalService
	dashboard   *DashboardService
}

func setupCommissionServiceTest(t *testing.T) *commissionTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:commission_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	if err := models.InitDefaultTiers(db); err != nil {
		t.Fatalf("init tiers failed: %v", err)
	}
	if err := models.InitDefaultLockPaymentSetting(db); err != nil {
		t.Fatalf("init lock setting failed: %v", err)
	}

	partnerRepo := repository.NewPartnerRepository(db)
	tierRepo := repository.NewTierRepository(db)
	voucherRepo := repository.NewVoucherRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	adjustmentRepo := repository.NewAdjustmentRepository(db)
	batchRepo := repository.NewPaymentBatchRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)
	lockSettings := NewLockPaymentSettingService(repository.NewLockPaymentSettingRepository(db))
	registry := metrics.NewForTest()

	tiers := NewTierService(tierRepo, partnerRepo, commissionRepo, adjustmentRepo, nil, registry, time.Minute)
	commissions := NewCommissionService(partnerRepo, voucherRepo, commissionRepo, adjustmentRepo, lockSettings, tiers, registry)
	return &commissionTestEnv{
		db:          db,
		partners:    NewPartnerService(partnerRepo, voucherRepo, tiers),
		tiers:       tiers,
		commissions: commissions,
		batches:     NewPaymentBatchService(batchRepo, commissionRepo, withdrawalRepo, commissions, nil),
		withdrawals: NewWithdrawalService(withdrawalRepo, partnerRepo, commissionRepo),
		dashboard: NewDashboardService(partnerRepo, voucherRepo, commissionRepo, adjustmentRepo,
			batchRepo, withdrawalRepo, tiers, lockSettings, time.Minute),
	}
}

func createApprovedPartner(t *testing.T, env *commissionTestEnv, code string) *models.Partner {
	t.Helper()
	partner, err := env.partners.RegisterPartner(RegisterPartnerInput{PartnerCode: code, FullName: "Partner " + code})
	if err != nil {
		t.Fatalf("register partner failed: %v", err)
	}
	approved, err := env.partners.ApprovePartner(context.Background(), partner.ID)
	if err != nil {
		t.Fatalf("approve partner failed: %v", err)
	}
	return approved
}

func money(v int64) models.Money {
	return models.NewMoneyFromDecimal(decimal.NewFromInt(v))
}

func paidEvent(partnerCode, invoice, customer string, amount int64, firstOrder bool) OrderEvent {
	return OrderEvent{
		InvoiceCode:       invoice,
		InvoiceAmount:     money(amount),
		InvoiceDate:       time.Now(),
		InvoiceStatus:     constants.InvoiceStatusPaid,
		PartnerReference:  partnerCode,
		CustomerReference: customer,
		IsFirstOrder:      firstOrder,
	}
}

func ingest(t *testing.T, env *commissionTestEnv, event OrderEvent) *models.CommissionRecord {
	t.Helper()
	res, err := env.commissions.IngestOrder(context.Background(), event, metrics.RejectSourceWebhook)
	if err != nil {
		t.Fatalf("ingest %s failed: %v", event.InvoiceCode, err)
	}
	if res.Action != IngestActionCreated || res.Record == nil {
		t.Fatalf("expected created record for %s, got %+v", event.InvoiceCode, res)
	}
	return res.Record
}

func lockAll(t *testing.T, env *commissionTestEnv) *LockSweepResult {
	t.Helper()
	res, err := env.commissions.LockDueCommissions(context.Background(), time.Now().AddDate(0, 0, models.DefaultLockPeriodDays+1), 50)
	if err != nil {
		t.Fatalf("lock sweep failed: %v", err)
	}
	return res
}

func reloadCommission(t *testing.T, env *commissionTestEnv, id uint) models.CommissionRecord {
	t.Helper()
	var row models.CommissionRecord
	if err := env.db.First(&row, id).Error; err != nil {
		t.Fatalf("reload commission %d failed: %v", id, err)
	}
	return row
}

func assertMoney(t *testing.T, field string, got models.Money, want int64) {
	t.Helper()
	if !got.Decimal.Equal(decimal.NewFromInt(want)) {
		t.Fatalf("%s want %d, got %s", field, want, got.String())
	}
}

func TestIngestOrderFirstOrderAtBaseTier(t *testing.T) {
	env := setupCommissionServiceTest(t)
	partner := createApprovedPartner(t, env, "F0A")

	record := ingest(t, env, paidEvent(partner.PartnerCode, "INV-A-1", "CUST-1", 2000000, true))

	assertMoney(t, "first_order_amount", record.FirstOrderAmount, 200000)
	assertMoney(t, "basic_amount", record.BasicAmount, 0)
	assertMoney(t, "tier_bonus_amount", record.TierBonusAmount, 0)
	assertMoney(t, "total_commission", record.TotalCommission, 200000)
	if record.Status != constants.CommissionStatusPending {
		t.Fatalf("expected pending, got %s", record.Status)
	}
	if record.TierCode != "SILVER" {
		t.Fatalf("expected SILVER snapshot, got %s", record.TierCode)
	}
	if !record.LockDate.After(record.QualifiedAt) {
		t.Fatalf("expected lock_date after qualified_at, got %v <= %v", record.LockDate, record.QualifiedAt)
	}
}

func TestIngestOrderRepeatOrderUsesLifetimeRate(t *testing.T) {
	env := setupCommissionServiceTest(t)
	partner := createApprovedPartner(t, env, "F0B")

	ingest(t, env, paidEvent(partner.PartnerCode, "INV-B-1", "CUST-1", 2000000, true))
	repeat := ingest(t, env, paidEvent(partner.PartnerCode, "INV-B-2", "CUST-1", 1000000, false))

	assertMoney(t, "basic_amount", repeat.BasicAmount, 50000)
	assertMoney(t, "first_order_amount", repeat.FirstOrderAmount, 0)
	assertMoney(t, "total_commission", repeat.TotalCommission, 50000)

	// 客户已有有效佣金时，即使事件标记首单也按复购计算
	again := ingest(t, env, paidEvent(partner.PartnerCode, "INV-B-3", "CUST-1", 1000000, true))
	if again.IsFirstOrder {
		t.Fatalf("expected repeat purchase to be treated as non first order")
	}
	assertMoney(t, "total_commission", again.TotalCommission, 50000)
}

func TestIngestOrderIsIdempotentPerInvoice(t *testing.T) {
	env := setupCommissionServiceTest(t)
	partner := createApprovedPartner(t, env, "F0C")
	event := paidEvent(partner.PartnerCode, "INV-DUP-1", "CUST-1", 1000000, true)

	first := ingest(t, env, event)
	res, err := env.commissions.IngestOrder(context.Background(), event, metrics.RejectSourceSync)
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if res.Action != IngestActionDuplicate || res.Record == nil || res.Record.ID != first.ID {
		t.Fatalf("expected duplicate of %d, got %+v", first.ID, res)
	}
	var count int64
	env.db.Model(&models.CommissionRecord{}).Where("invoice_code = ?", "INV-DUP-1").Count(&count)
	if count != 1 {
		t.Fatalf("expected one record, got %d", count)
	}
}

func TestIngestOrderIgnoresNonQualifyingStatus(t *testing.T) {
	env := setupCommissionServiceTest(t)
	partner := createApprovedPartner(t, env, "F0D")
	event := paidEvent(partner.PartnerCode, "INV-DRAFT-1", "CUST-1", 1000000, true)
	event.InvoiceStatus = constants.InvoiceStatusDraft

	res, err := env.commissions.IngestOrder(context.Background(), event, metrics.RejectSourceWebhook)
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if res.Action != IngestActionIgnored {
		t.Fatalf("expected ignored, got %s", res.Action)
	}
}

func TestIngestOrderRejectsIneligiblePartner(t *testing.T) {
	env := setupCommissionServiceTest(t)
	partner, err := env.partners.RegisterPartner(RegisterPartnerInput{PartnerCode: "F0E", FullName: "Pending"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	_, err = env.commissions.IngestOrder(context.Background(), paidEvent(partner.PartnerCode, "INV-E-1", "CUST-1", 1000, true), metrics.RejectSourceWebhook)
	if !errors.Is(err, ErrPartnerNotEligible) {
		t.Fatalf("expected ErrPartnerNotEligible, got %v", err)
	}

	_, err = env.commissions.IngestOrder(context.Background(), paidEvent("NOPE", "INV-E-2", "CUST-1", 1000, true), metrics.RejectSourceWebhook)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	bad := paidEvent(partner.PartnerCode, "", "CUST-1", 1000, true)
	_, err = env.commissions.IngestOrder(context.Background(), bad, metrics.RejectSourceWebhook)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIngestOrderUsesReferralTierSnapshot(t *testing.T) {
	env := setupCommissionServiceTest(t)
	partner := createApprovedPartner(t, env, "F0F")
	voucher, err := env.partners.IssueVoucher(context.Background(), partner.ID, IssueVoucherInput{CustomerRef: "CUST-G"})
	if err != nil {
		t.Fatalf("issue voucher failed: %v", err)
	}
	// 推荐建立时等级为 GOLD，之后发生的订单仍按 GOLD 计算
	if err := env.db.Model(&models.VoucherTracking{}).Where("id = ?", voucher.ID).Update("tier_at_referral", "GOLD").Error; err != nil {
		t.Fatalf("update voucher failed: %v", err)
	}
	event := paidEvent(partner.PartnerCode, "INV-F-1", "CUST-G", 1000000, true)
	event.VoucherCode = voucher.VoucherCode
	record := ingest(t, env, event)

	if record.TierCode != "GOLD" {
		t.Fatalf("expected GOLD, got %s", record.TierCode)
	}
	assertMoney(t, "first_order_amount", record.FirstOrderAmount, 100000)
	assertMoney(t, "tier_bonus_amount", record.TierBonusAmount, 20000)
	assertMoney(t, "total_commission", record.TotalCommission, 120000)
}

func TestLockSweepLocksDueRecordsOnce(t *testing.T) {
	env := setupCommissionServiceTest(t)
	partner := createApprovedPartner(t, env, "F0G")
	record := ingest(t, env, paidEvent(partner.PartnerCode, "INV-G-1", "CUST-1", 1000000, true))

	notYet, err := env.commissions.LockDueCommissions(context.Background(), time.Now(), 50)
	if err != nil {
		t.Fatalf("early sweep failed: %v", err)
	}
	if notYet.Locked != 0 {
		t.Fatalf("expected nothing locked before lock_date, got %d", notYet.Locked)
	}

	first := lockAll(t, env)
	if first.Locked != 1 || len(first.Partners) != 1 || first.Partners[0] != partner.ID {
		t.Fatalf("unexpected first sweep result: %+v", first)
	}
	locked := reloadCommission(t, env, record.ID)
	if locked.Status != constants.CommissionStatusLocked || locked.LockedAt == nil {
		t.Fatalf("expected locked record with locked_at, got %+v", locked)
	}

	second := lockAll(t, env)
	if second.Locked != 0 {
		t.Fatalf("expected re-run to lock nothing, got %d", second.Locked)
	}
	again := reloadCommission(t, env, record.ID)
	if again.LockedAt == nil || !again.LockedAt.Equal(*locked.LockedAt) {
		t.Fatalf("expected locked_at unchanged, got %v want %v", again.LockedAt, locked.LockedAt)
	}
}

func TestCancelLockedRecordEmitsSingleAdjustment(t *testing.T) {
	env := setupCommissionServiceTest(t)
	partner := createApprovedPartner(t, env, "F0H")
	record := ingest(t, env, paidEvent(partner.PartnerCode, "INV-H-1", "CUST-1", 5000000, true))
	assertMoney(t, "total_commission", record.TotalCommission, 500000)
	lockAll(t, env)

	res, err := env.commissions.CancelInvoice(context.Background(), CancelEvent{InvoiceCode: "INV-H-1", CancelledAt: time.Now()}, metrics.RejectSourceWebhook)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if res.Action != CancelActionCancelled || res.Adjustment == nil {
		t.Fatalf("expected cancelled with adjustment, got %+v", res)
	}
	if res.Adjustment.AdjustmentType != constants.AdjustmentTypeCancelledBeforePaid {
		t.Fatalf("unexpected adjustment type: %s", res.Adjustment.AdjustmentType)
	}
	assertMoney(t, "revenue_adjustment", res.Adjustment.RevenueAdjustment, -5000000)
	assertMoney(t, "commission_adjustment", res.Adjustment.CommissionAdjustment, -500000)
	if res.Adjustment.F1Adjustment != -1 {
		t.Fatalf("expected f1 -1 for sole qualifying record, got %d", res.Adjustment.F1Adjustment)
	}
	if got := reloadCommission(t, env, record.ID); got.Status != constants.CommissionStatusCancelled || got.CancelledAt == nil {
		t.Fatalf("expected cancelled record, got %+v", got)
	}

	repeat, err := env.commissions.CancelInvoice(context.Background(), CancelEvent{InvoiceCode: "INV-H-1"}, metrics.RejectSourceWebhook)
	if err != nil {
		t.Fatalf("repeat cancel failed: %v", err)
	}
	if repeat.Action != CancelActionNoop {
		t.Fatalf("expected noop on repeat cancel, got %s", repeat.Action)
	}
	var count int64
	env.db.Model(&models.StatsAdjustment{}).Where("commission_record_id = ?", record.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one adjustment, got %d", count)
	}
}

func TestCancelKeepsReferralCountWhenCustomerHasOtherRecords(t *testing.T) {
	env := setupCommissionServiceTest(t)
	partner := createApprovedPartner(t, env, "F0I")
	ingest(t, env, paidEvent(partner.PartnerCode, "INV-I-1", "CUST-1", 1000000, true))
	ingest(t, env, paidEvent(partner.PartnerCode, "INV-I-2", "CUST-1", 1000000, false))
	lockAll(t, env)

	res, err := env.commissions.CancelInvoice(context.Background(), CancelEvent{InvoiceCode: "INV-I-2"}, metrics.RejectSourceWebhook)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if res.Adjustment == nil || res.Adjustment.F1Adjustment != 0 {
		t.Fatalf("expected f1 0 when customer keeps another record, got %+v", res.Adjustment)
	}
}

func TestCancelPendingBeforeSweepWins(t *testing.T) {
	env := setupCommissionServiceTest(t)
	partner := createApprovedPartner(t, env, "F0J")
	record := ingest(t, env, paidEvent(partner.PartnerCode, "INV-J-1", "CUST-1", 1000000, true))

	res, err := env.commissions.CancelInvoice(context.Background(), CancelEvent{InvoiceCode: "INV-J-1"}, metrics.RejectSourceWebhook)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if res.Adjustment == nil || res.Adjustment.F1Adjustment != 0 {
		t.Fatalf("pending record was never qualifying, expected f1 0, got %+v", res.Adjustment)
	}
	sweep := lockAll(t, env)
	if sweep.Locked != 0 {
		t.Fatalf("expected sweep to skip cancelled record, got %+v", sweep)
	}
	if got := reloadCommission(t, env, record.ID); got.Status != constants.CommissionStatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
}

func TestCancelAfterPaidKeepsPaidStatus(t *testing.T) {
	env := setupCommissionServiceTest(t)
	ctx := context.Background()
	partner := createApprovedPartner(t, env, "F0K")
	record := ingest(t, env, paidEvent(partner.PartnerCode, "INV-K-1", "CUST-1", 1000000, true))
	lockAll(t, env)
	if _, err := env.batches.CreatePaymentBatch(ctx, CreatePaymentBatchInput{PartnerIDs: []uint{partner.ID}, CreatedBy: "admin"}); err != nil {
		t.Fatalf("create batch failed: %v", err)
	}

	before, err := env.dashboard.GetPartnerDashboard(ctx, DashboardQueryInput{PartnerID: partner.ID, ForceRefresh: true})
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if before.Stats.QualifiedF1Count != 1 {
		t.Fatalf("expected one qualified customer, got %d", before.Stats.QualifiedF1Count)
	}

	res, err := env.commissions.CancelInvoice(ctx, CancelEvent{InvoiceCode: "INV-K-1"}, metrics.RejectSourceWebhook)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if res.Action != CancelActionCancelledAfterPaid {
		t.Fatalf("expected cancelled_after_paid, got %s", res.Action)
	}
	if res.Adjustment.AdjustmentType != constants.AdjustmentTypeCancelledAfterPaid || res.Adjustment.F1Adjustment != 0 {
		t.Fatalf("unexpected adjustment %+v", res.Adjustment)
	}
	got := reloadCommission(t, env, record.ID)
	if got.Status != constants.CommissionStatusPaid || !got.InvoiceCancelledAfterPaid {
		t.Fatalf("expected paid record flagged cancelled after paid, got %+v", got)
	}

	after, err := env.dashboard.GetPartnerDashboard(ctx, DashboardQueryInput{PartnerID: partner.ID, ForceRefresh: true})
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if !after.Stats.PaidCommission.Decimal.Equal(before.Stats.PaidCommission.Decimal) {
		t.Fatalf("paid commission changed: %s -> %s", before.Stats.PaidCommission.String(), after.Stats.PaidCommission.String())
	}
	if after.Stats.QualifiedF1Count != 0 {
		t.Fatalf("expected adjusted referral count 0, got %d", after.Stats.QualifiedF1Count)
	}
	assertMoney(t, "totalF1Revenue", after.Stats.TotalF1Revenue, 0)

	repeat, err := env.commissions.CancelInvoice(ctx, CancelEvent{InvoiceCode: "INV-K-1"}, metrics.RejectSourceWebhook)
	if err != nil {
		t.Fatalf("repeat cancel failed: %v", err)
	}
	if repeat.Action != CancelActionNoop {
		t.Fatalf("expected noop, got %s", repeat.Action)
	}
}

func TestCancelMixedRecordsOfOneCustomerInEitherOrder(t *testing.T) {
	cases := []struct {
		name  string
		order []string
	}{
		{name: "paid first", order: []string{"INV-Z-1", "INV-Z-2"}},
		{name: "locked first", order: []string{"INV-Z-2", "INV-Z-1"}},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := setupCommissionServiceTest(t)
			ctx := context.Background()
			partner := createApprovedPartner(t, env, fmt.Sprintf("F0Z%d", i))
			ingest(t, env, paidEvent(partner.PartnerCode, "INV-Z-1", "CUST-Z", 1000000, true))
			lockAll(t, env)
			if _, err := env.batches.CreatePaymentBatch(ctx, CreatePaymentBatchInput{PartnerIDs: []uint{partner.ID}, CreatedBy: "admin"}); err != nil {
				t.Fatalf("create batch failed: %v", err)
			}
			ingest(t, env, paidEvent(partner.PartnerCode, "INV-Z-2", "CUST-Z", 400000, false))
			lockAll(t, env)

			q, err := env.tiers.Qualification(partner.ID)
			if err != nil {
				t.Fatalf("qualification failed: %v", err)
			}
			if q.AdjustedReferralCount != 1 {
				t.Fatalf("expected one referral before cancel, got %+v", q)
			}

			for _, invoice := range tc.order {
				if _, err := env.commissions.CancelInvoice(ctx, CancelEvent{InvoiceCode: invoice}, metrics.RejectSourceWebhook); err != nil {
					t.Fatalf("cancel %s failed: %v", invoice, err)
				}
			}

			q, err = env.tiers.Qualification(partner.ID)
			if err != nil {
				t.Fatalf("qualification failed: %v", err)
			}
			if q.AdjustedReferralCount != 0 {
				t.Fatalf("expected adjusted referral count 0, got %+v", q)
			}
			if !q.AdjustedRevenue.IsZero() {
				t.Fatalf("expected adjusted revenue 0, got %s", q.AdjustedRevenue)
			}
			dash, err := env.dashboard.GetPartnerDashboard(ctx, DashboardQueryInput{PartnerID: partner.ID, ForceRefresh: true})
			if err != nil {
				t.Fatalf("dashboard failed: %v", err)
			}
			if dash.Stats.QualifiedF1Count != 0 {
				t.Fatalf("expected qualified f1 count 0, got %d", dash.Stats.QualifiedF1Count)
			}
			assertMoney(t, "totalF1Revenue", dash.Stats.TotalF1Revenue, 0)
		})
	}
}

func TestIngestCancelledEventRedeliveryIsDuplicate(t *testing.T) {
	env := setupCommissionServiceTest(t)
	partner := createApprovedPartner(t, env, "F0R")
	record := ingest(t, env, paidEvent(partner.PartnerCode, "INV-R-1", "CUST-1", 1000000, true))

	event := paidEvent(partner.PartnerCode, "INV-R-1", "CUST-1", 1000000, true)
	event.InvoiceStatus = constants.InvoiceStatusCancelled
	first, err := env.commissions.IngestOrder(context.Background(), event, metrics.RejectSourceWebhook)
	if err != nil {
		t.Fatalf("cancel ingest failed: %v", err)
	}
	if first.Action != IngestActionCancelled {
		t.Fatalf("expected cancelled, got %s", first.Action)
	}

	again, err := env.commissions.IngestOrder(context.Background(), event, metrics.RejectSourceWebhook)
	if err != nil {
		t.Fatalf("redelivered cancel failed: %v", err)
	}
	if again.Action != IngestActionDuplicate || again.Record == nil || again.Record.ID != record.ID {
		t.Fatalf("expected duplicate of %d, got %+v", record.ID, again)
	}
	var count int64
	env.db.Model(&models.StatsAdjustment{}).Where("commission_record_id = ?", record.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one adjustment, got %d", count)
	}
}

func TestCancelUnknownInvoiceIsNotFound(t *testing.T) {
	env := setupCommissionServiceTest(t)
	_, err := env.commissions.CancelInvoice(context.Background(), CancelEvent{InvoiceCode: "MISSING"}, metrics.RejectSourceWebhook)
	if !errors.Is(err, ErrCommissionNotFound) {
		t.Fatalf("expected ErrCommissionNotFound, got %v", err)
	}

	partner := createApprovedPartner(t, env, "F0L")
	event := paidEvent(partner.PartnerCode, "MISSING", "CUST-1", 1000, false)
	event.InvoiceStatus = constants.InvoiceStatusCancelled
	res, err := env.commissions.IngestOrder(context.Background(), event, metrics.RejectSourceSync)
	if err != nil {
		t.Fatalf("cancelled event ingest failed: %v", err)
	}
	if res.Action != IngestActionIgnored {
		t.Fatalf("expected ignored, got %s", res.Action)
	}
}

func TestTransitionCommissionAdminRules(t *testing.T) {
	env := setupCommissionServiceTest(t)
	ctx := context.Background()
	partner := createApprovedPartner(t, env, "F0M")
	record := ingest(t, env, paidEvent(partner.PartnerCode, "INV-M-1", "CUST-1", 1000000, true))

	locked, err := env.commissions.TransitionCommission(ctx, record.ID, constants.CommissionEventLock, TransitionOptions{})
	if err != nil {
		t.Fatalf("manual lock failed: %v", err)
	}
	if locked.Status != constants.CommissionStatusLocked {
		t.Fatalf("expected locked, got %s", locked.Status)
	}
	if _, err := env.commissions.TransitionCommission(ctx, record.ID, constants.CommissionEventLock, TransitionOptions{}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on double lock, got %v", err)
	}
	if _, err := env.commissions.TransitionCommission(ctx, record.ID, constants.CommissionEventPay, TransitionOptions{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for direct pay, got %v", err)
	}
	cancelled, err := env.commissions.TransitionCommission(ctx, record.ID, constants.CommissionEventCancel, TransitionOptions{Reason: "fraud"})
	if err != nil {
		t.Fatalf("manual cancel failed: %v", err)
	}
	if cancelled.Status != constants.CommissionStatusCancelled || cancelled.CancelReason != "fraud" {
		t.Fatalf("unexpected cancelled record: %+v", cancelled)
	}
	if _, err := env.commissions.TransitionCommission(ctx, record.ID, constants.CommissionEventCancel, TransitionOptions{}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on cancelled record, got %v", err)
	}
	if _, err := env.commissions.TransitionCommission(ctx, 9999, constants.CommissionEventLock, TransitionOptions{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTotalCommissionEqualsComponents(t *testing.T) {
	env := setupCommissionServiceTest(t)
	partner := createApprovedPartner(t, env, "F0N")
	amounts := []int64{1, 333, 999999, 1234567}
	for i, amount := range amounts {
		record := ingest(t, env, paidEvent(partner.PartnerCode, fmt.Sprintf("INV-N-%d", i), fmt.Sprintf("CUST-%d", i%2), amount, i < 2))
		sum := record.BasicAmount.Decimal.Add(record.FirstOrderAmount.Decimal).Add(record.TierBonusAmount.Decimal)
		if !sum.Equal(record.TotalCommission.Decimal) {
			t.Fatalf("invoice %d: total %s != components %s", i, record.TotalCommission.String(), sum.StringFixed(2))
		}
	}
}
