package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/models"

	"github.com/shopspring/decimal"
)

func TestCreatePaymentBatchPaysLockedRecordsOnly(t *testing.T) {
	env := setupCommissionServiceTest(t)
	ctx := context.Background()
	partner := createApprovedPartner(t, env, "F0P1")
	lockedRecord := ingest(t, env, paidEvent(partner.PartnerCode, "INV-P1-1", "CUST-1", 1000000, true))
	lockAll(t, env)
	pendingRecord := ingest(t, env, paidEvent(partner.PartnerCode, "INV-P1-2", "CUST-2", 1000000, true))

	out, err := env.batches.CreatePaymentBatch(ctx, CreatePaymentBatchInput{PartnerIDs: []uint{partner.ID}, Note: "march", CreatedBy: "ops"})
	if err != nil {
		t.Fatalf("create batch failed: %v", err)
	}
	if !strings.HasPrefix(out.Batch.BatchCode, paymentBatchCodePrefix) {
		t.Fatalf("unexpected batch code %q", out.Batch.BatchCode)
	}
	if out.Batch.Status != constants.PaymentBatchStatusOpen || out.Batch.RecordCount != 1 || out.Batch.PartnerCount != 1 {
		t.Fatalf("unexpected batch: %+v", out.Batch)
	}
	assertMoney(t, "batch total", out.Batch.TotalAmount, 100000)

	paid := reloadCommission(t, env, lockedRecord.ID)
	if paid.Status != constants.CommissionStatusPaid || paid.PaymentBatchID == nil || *paid.PaymentBatchID != out.Batch.ID || paid.PaidAt == nil {
		t.Fatalf("expected paid record in batch, got %+v", paid)
	}
	if still := reloadCommission(t, env, pendingRecord.ID); still.Status != constants.CommissionStatusPending {
		t.Fatalf("pending record must not be paid, got %s", still.Status)
	}

	if _, err := env.batches.CreatePaymentBatch(ctx, CreatePaymentBatchInput{PartnerIDs: []uint{partner.ID}}); !errors.Is(err, ErrPaymentBatchEmpty) {
		t.Fatalf("expected ErrPaymentBatchEmpty, got %v", err)
	}
}

func TestPaymentBatchAttachAndComplete(t *testing.T) {
	env := setupCommissionServiceTest(t)
	ctx := context.Background()
	partner := createApprovedPartner(t, env, "F0P2")
	ingest(t, env, paidEvent(partner.PartnerCode, "INV-P2-1", "CUST-1", 1000000, true))
	lockAll(t, env)
	out, err := env.batches.CreatePaymentBatch(ctx, CreatePaymentBatchInput{PartnerIDs: []uint{partner.ID}})
	if err != nil {
		t.Fatalf("create batch failed: %v", err)
	}

	second := ingest(t, env, paidEvent(partner.PartnerCode, "INV-P2-2", "CUST-2", 2000000, true))
	lockAll(t, env)
	attached, err := env.batches.AttachToPaymentBatch(ctx, out.Batch.ID, []uint{second.ID})
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if attached.Batch.RecordCount != 2 {
		t.Fatalf("expected two records after attach, got %d", attached.Batch.RecordCount)
	}
	assertMoney(t, "batch total", attached.Batch.TotalAmount, 300000)

	completed, err := env.batches.CompletePaymentBatch(ctx, out.Batch.ID)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if completed.Status != constants.PaymentBatchStatusCompleted || completed.CompletedAt == nil {
		t.Fatalf("unexpected completed batch: %+v", completed)
	}
	third := ingest(t, env, paidEvent(partner.PartnerCode, "INV-P2-3", "CUST-3", 1000000, true))
	lockAll(t, env)
	if _, err := env.batches.AttachToPaymentBatch(ctx, out.Batch.ID, []uint{third.ID}); !errors.Is(err, ErrPaymentBatchClosed) {
		t.Fatalf("expected closed batch error, got %v", err)
	}
	if _, err := env.batches.CompletePaymentBatch(ctx, out.Batch.ID); !errors.Is(err, ErrPaymentBatchClosed) {
		t.Fatalf("expected closed batch error on second completion, got %v", err)
	}
}

func TestCreatePaymentBatchValidatesMonth(t *testing.T) {
	env := setupCommissionServiceTest(t)
	_, err := env.batches.CreatePaymentBatch(context.Background(), CreatePaymentBatchInput{MonthUntil: "2024/01"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWithdrawalLimitedToAvailableCommission(t *testing.T) {
	env := setupCommissionServiceTest(t)
	ctx := context.Background()
	partner := createApprovedPartner(t, env, "F0W1")
	ingest(t, env, paidEvent(partner.PartnerCode, "INV-W1-1", "CUST-1", 1000000, true))

	if _, err := env.withdrawals.ApplyWithdrawal(ctx, partner.ID, WithdrawApplyInput{Amount: decimal.NewFromInt(1)}); !errors.Is(err, ErrWithdrawInsufficient) {
		t.Fatalf("pending commission is not withdrawable, got %v", err)
	}
	lockAll(t, env)

	if _, err := env.withdrawals.ApplyWithdrawal(ctx, partner.ID, WithdrawApplyInput{Amount: decimal.Zero}); !errors.Is(err, ErrWithdrawAmountInvalid) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	req, err := env.withdrawals.ApplyWithdrawal(ctx, partner.ID, WithdrawApplyInput{Amount: decimal.NewFromInt(60000)})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if req.Status != constants.WithdrawalStatusPendingReview {
		t.Fatalf("unexpected status %s", req.Status)
	}
	if _, err := env.withdrawals.ApplyWithdrawal(ctx, partner.ID, WithdrawApplyInput{Amount: decimal.NewFromInt(50000)}); !errors.Is(err, ErrWithdrawInsufficient) {
		t.Fatalf("expected open request to reduce availability, got %v", err)
	}

	dashboard, err := env.dashboard.GetPartnerDashboard(ctx, DashboardQueryInput{PartnerID: partner.ID, ForceRefresh: true})
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	assertMoney(t, "available_for_withdrawal", dashboard.Payment.AvailableForWithdrawal, 40000)
	assertMoney(t, "pending_withdrawal", dashboard.Payment.PendingWithdrawal, 60000)

	out, err := env.batches.CreatePaymentBatch(ctx, CreatePaymentBatchInput{PartnerIDs: []uint{partner.ID}})
	if err != nil {
		t.Fatalf("create batch failed: %v", err)
	}
	if _, err := env.batches.CompletePaymentBatch(ctx, out.Batch.ID); err != nil {
		t.Fatalf("complete batch failed: %v", err)
	}
	var done models.WithdrawalRequest
	if err := env.db.First(&done, req.ID).Error; err != nil {
		t.Fatalf("reload withdrawal failed: %v", err)
	}
	if done.Status != constants.WithdrawalStatusCompleted || done.PaymentBatchID == nil || *done.PaymentBatchID != out.Batch.ID {
		t.Fatalf("expected withdrawal completed with batch, got %+v", done)
	}
}

func TestReviewWithdrawalReject(t *testing.T) {
	env := setupCommissionServiceTest(t)
	ctx := context.Background()
	partner := createApprovedPartner(t, env, "F0W2")
	ingest(t, env, paidEvent(partner.PartnerCode, "INV-W2-1", "CUST-1", 1000000, true))
	lockAll(t, env)
	req, err := env.withdrawals.ApplyWithdrawal(ctx, partner.ID, WithdrawApplyInput{Amount: decimal.NewFromInt(100000)})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if _, err := env.withdrawals.ReviewWithdrawal(ctx, req.ID, "approve", ""); !errors.Is(err, ErrWithdrawStatusInvalid) {
		t.Fatalf("expected only reject to be supported, got %v", err)
	}
	rejected, err := env.withdrawals.ReviewWithdrawal(ctx, req.ID, constants.WithdrawalActionReject, "bank details missing")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != constants.WithdrawalStatusRejected || rejected.ProcessedAt == nil {
		t.Fatalf("unexpected rejected withdrawal: %+v", rejected)
	}
	if _, err := env.withdrawals.ReviewWithdrawal(ctx, req.ID, constants.WithdrawalActionReject, ""); !errors.Is(err, ErrWithdrawStatusInvalid) {
		t.Fatalf("expected second review rejected, got %v", err)
	}
	// 驳回后额度恢复
	if _, err := env.withdrawals.ApplyWithdrawal(ctx, partner.ID, WithdrawApplyInput{Amount: decimal.NewFromInt(100000)}); err != nil {
		t.Fatalf("expected availability restored, got %v", err)
	}
}
