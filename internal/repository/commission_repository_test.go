package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCommissionRepositoryTest(t *testing.T) (*GormCommissionRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:commission_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewCommissionRepository(db), db
}

func createRepoTestCommission(t *testing.T, db *gorm.DB, partnerID uint, invoice, customer, status string, amount int64, lockDate time.Time) models.CommissionRecord {
	t.Helper()
	row := models.CommissionRecord{
		PartnerID:       partnerID,
		CustomerRef:     customer,
		InvoiceCode:     invoice,
		InvoiceAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(amount)),
		InvoiceDate:     lockDate,
		TotalCommission: models.NewMoneyFromDecimal(decimal.NewFromInt(amount / 10)),
		Status:          status,
		QualifiedAt:     lockDate.Add(-time.Hour),
		LockDate:        lockDate,
		CommissionMonth: models.CommissionMonthOf(lockDate),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create commission %s failed: %v", invoice, err)
	}
	return row
}

func TestCommissionRepositoryTransitionStatusIsConditional(t *testing.T) {
	repo, db := setupCommissionRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)
	row := createRepoTestCommission(t, db, 1, "INV-T-1", "C1", constants.CommissionStatusPending, 1000, now)

	ok, err := repo.TransitionStatus(row.ID, []string{constants.CommissionStatusPending}, map[string]interface{}{
		"status":    constants.CommissionStatusLocked,
		"locked_at": now,
	})
	if err != nil || !ok {
		t.Fatalf("first transition want ok, got ok=%v err=%v", ok, err)
	}

	ok, err = repo.TransitionStatus(row.ID, []string{constants.CommissionStatusPending}, map[string]interface{}{
		"status":    constants.CommissionStatusLocked,
		"locked_at": now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("second transition failed: %v", err)
	}
	if ok {
		t.Fatalf("second transition should not apply")
	}

	stored, err := repo.GetByID(row.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload failed: %v", err)
	}
	if stored.LockedAt == nil || !stored.LockedAt.Equal(now) {
		t.Fatalf("locked_at should keep first value, got %v", stored.LockedAt)
	}
}

func TestCommissionRepositoryListDueForLock(t *testing.T) {
	repo, db := setupCommissionRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	due := createRepoTestCommission(t, db, 1, "INV-D-1", "C1", constants.CommissionStatusPending, 1000, now.Add(-time.Hour))
	createRepoTestCommission(t, db, 1, "INV-D-2", "C2", constants.CommissionStatusPending, 1000, now.Add(time.Hour))
	createRepoTestCommission(t, db, 1, "INV-D-3", "C3", constants.CommissionStatusLocked, 1000, now.Add(-time.Hour))
	cancelled := createRepoTestCommission(t, db, 1, "INV-D-4", "C4", constants.CommissionStatusPending, 1000, now.Add(-time.Hour))
	if err := db.Model(&models.CommissionRecord{}).Where("id = ?", cancelled.ID).Update("invoice_cancelled_at", now).Error; err != nil {
		t.Fatalf("mark cancelled failed: %v", err)
	}

	rows, err := repo.ListDueForLock(now, 10)
	if err != nil {
		t.Fatalf("list due failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != due.ID {
		t.Fatalf("expected only %d due, got %+v", due.ID, rows)
	}
}

func TestCommissionRepositoryQualificationAggregate(t *testing.T) {
	repo, db := setupCommissionRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	createRepoTestCommission(t, db, 7, "INV-Q-1", "C1", constants.CommissionStatusLocked, 1000, now)
	createRepoTestCommission(t, db, 7, "INV-Q-2", "C1", constants.CommissionStatusPaid, 500, now)
	createRepoTestCommission(t, db, 7, "INV-Q-3", "C2", constants.CommissionStatusPaid, 250, now)
	createRepoTestCommission(t, db, 7, "INV-Q-4", "C3", constants.CommissionStatusPending, 9000, now)
	createRepoTestCommission(t, db, 7, "INV-Q-5", "C4", constants.CommissionStatusCancelled, 9000, now)
	createRepoTestCommission(t, db, 8, "INV-Q-6", "C9", constants.CommissionStatusLocked, 9000, now)
	flagged := createRepoTestCommission(t, db, 7, "INV-Q-7", "C5", constants.CommissionStatusPaid, 300, now)
	if err := db.Model(&models.CommissionRecord{}).Where("id = ?", flagged.ID).
		Update("invoice_cancelled_after_paid", true).Error; err != nil {
		t.Fatalf("flag record failed: %v", err)
	}

	agg, err := repo.GetQualificationAggregate(7)
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if agg.ReferralCount != 2 {
		t.Fatalf("referrals want 2 got %d", agg.ReferralCount)
	}
	if !agg.Revenue.Equal(decimal.NewFromInt(2050)) {
		t.Fatalf("revenue want 2050 got %s", agg.Revenue)
	}

	count, err := repo.CountQualifyingForCustomer(7, "C1")
	if err != nil {
		t.Fatalf("count qualifying failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("qualifying count want 2 got %d", count)
	}
}

func TestCommissionRepositoryPayableExcludesBatched(t *testing.T) {
	repo, db := setupCommissionRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	free := createRepoTestCommission(t, db, 3, "INV-P-1", "C1", constants.CommissionStatusLocked, 1000, now)
	batched := createRepoTestCommission(t, db, 3, "INV-P-2", "C2", constants.CommissionStatusLocked, 1000, now)
	batchID := uint(99)
	if err := db.Model(&models.CommissionRecord{}).Where("id = ?", batched.ID).Update("payment_batch_id", batchID).Error; err != nil {
		t.Fatalf("set batch failed: %v", err)
	}
	createRepoTestCommission(t, db, 3, "INV-P-3", "C3", constants.CommissionStatusPending, 1000, now)

	rows, err := repo.ListPayableForUpdate(PayableCommissionFilter{PartnerIDs: []uint{3}})
	if err != nil {
		t.Fatalf("list payable failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != free.ID {
		t.Fatalf("expected only free locked record, got %+v", rows)
	}

	sum, err := repo.SumByPartner(3, []string{constants.CommissionStatusLocked}, true)
	if err != nil {
		t.Fatalf("sum failed: %v", err)
	}
	if !sum.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unbatched locked sum want 100 got %s", sum)
	}
}

func TestAdjustmentRepositorySumByType(t *testing.T) {
	_, db := setupCommissionRepositoryTest(t)
	repo := NewAdjustmentRepository(db)

	rows := []models.StatsAdjustment{
		{
			PartnerID:            5,
			CommissionRecordID:   1,
			InvoiceCode:          "INV-A-1",
			AdjustmentType:       constants.AdjustmentTypeCancelledBeforePaid,
			F1Adjustment:         -1,
			RevenueAdjustment:    models.NewMoneyFromDecimal(decimal.NewFromInt(-1000)),
			CommissionAdjustment: models.NewMoneyFromDecimal(decimal.NewFromInt(-100)),
		},
		{
			PartnerID:            5,
			CommissionRecordID:   2,
			InvoiceCode:          "INV-A-2",
			AdjustmentType:       constants.AdjustmentTypeCancelledAfterPaid,
			F1Adjustment:         0,
			RevenueAdjustment:    models.NewMoneyFromDecimal(decimal.NewFromInt(-400)),
			CommissionAdjustment: models.NewMoneyFromDecimal(decimal.NewFromInt(-40)),
		},
	}
	for i := range rows {
		if err := repo.Create(&rows[i]); err != nil {
			t.Fatalf("create adjustment failed: %v", err)
		}
	}

	all, err := repo.SumByPartner(5, nil)
	if err != nil {
		t.Fatalf("sum all failed: %v", err)
	}
	if all.Count != 2 || all.F1 != -1 || !all.Revenue.Equal(decimal.NewFromInt(-1400)) {
		t.Fatalf("unexpected totals %+v", all)
	}

	afterPaid, err := repo.SumByPartner(5, []string{constants.AdjustmentTypeCancelledAfterPaid})
	if err != nil {
		t.Fatalf("sum after paid failed: %v", err)
	}
	if afterPaid.Count != 1 || !afterPaid.Commission.Equal(decimal.NewFromInt(-40)) {
		t.Fatalf("unexpected after-paid totals %+v", afterPaid)
	}

	duplicate := rows[0]
	duplicate.ID = 0
	if err := repo.Create(&duplicate); err == nil {
		t.Fatalf("second adjustment for same commission record should be rejected")
	}
}

func TestVoucherRepositoryListCustomersGroupsByCustomer(t *testing.T) {
	_, db := setupCommissionRepositoryTest(t)
	repo := NewVoucherRepository(db)

	vouchers := []models.VoucherTracking{
		{VoucherCode: "V-1", PartnerID: 4, CustomerRef: "C1", RecipientName: "An", RecipientPhone: "0901000001", ActivationStatus: constants.VoucherStatusUsed},
		{VoucherCode: "V-2", PartnerID: 4, CustomerRef: "C1", RecipientName: "An", RecipientPhone: "0901000001", ActivationStatus: constants.VoucherStatusIssued},
		{VoucherCode: "V-3", PartnerID: 4, CustomerRef: "C2", RecipientName: "Binh", RecipientPhone: "0912000002", ActivationStatus: constants.VoucherStatusActivated},
		{VoucherCode: "V-4", PartnerID: 9, CustomerRef: "C3", RecipientName: "Chi", RecipientPhone: "0901000003", ActivationStatus: constants.VoucherStatusUsed},
	}
	for i := range vouchers {
		if err := repo.Create(&vouchers[i]); err != nil {
			t.Fatalf("create voucher failed: %v", err)
		}
	}

	rows, total, err := repo.ListCustomers(CustomerListFilter{PartnerID: 4, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list customers failed: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("expected 2 customers, got total=%d rows=%+v", total, rows)
	}
	if rows[0].CustomerRef != "C2" {
		t.Fatalf("latest referred customer should come first, got %+v", rows)
	}

	rows, total, err = repo.ListCustomers(CustomerListFilter{PartnerID: 4, SearchPhone: "0901", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("search customers failed: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].CustomerRef != "C1" {
		t.Fatalf("phone search should match C1 only, got total=%d rows=%+v", total, rows)
	}
}
