package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/partnerhub/internal/cache"
	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/logger"
	"github.com/partnerhub/internal/models"
	"github.com/partnerhub/internal/repository"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const paymentBatchCodePrefix = "PB"

// PaymentBatchService 佣金付款批次
type PaymentBatchService struct {
	batchRepo         repository.PaymentBatchRepository
	commissionRepo    repository.CommissionRepository
	withdrawalRepo    repository.WithdrawalRepository
	commissionService *CommissionService
	node              *snowflake.Node
}

// NewPaymentBatchService 创建付款批次服务
func NewPaymentBatchService(
	batchRepo repository.PaymentBatchRepository,
	commissionRepo repository.CommissionRepository,
	withdrawalRepo repository.WithdrawalRepository,
	commissionService *CommissionService,
	node *snowflake.Node,
) *PaymentBatchService {
	if node == nil {
		node, _ = snowflake.NewNode(1)
	}
	return &PaymentBatchService{
		batchRepo:         batchRepo,
		commissionRepo:    commissionRepo,
		withdrawalRepo:    withdrawalRepo,
		commissionService: commissionService,
		node:              node,
	}
}

// CreatePaymentBatchInput 创建付款批次输入
type CreatePaymentBatchInput struct {
	PartnerIDs  []uint     `json:"partner_ids"`
	RecordIDs   []uint     `json:"record_ids"`
	MonthUntil  string     `json:"month_until"`
	PaymentDate *time.Time `json:"payment_date"`
	Note        string     `json:"note"`
	CreatedBy   string     `json:"-"`
}

// PaymentBatchWithRecords 批次及其佣金记录
type PaymentBatchWithRecords struct {
	Batch   *models.PaymentBatch      `json:"batch"`
	Records []models.CommissionRecord `json:"records"`
}

// CreatePaymentBatch 开启付款批次并支付选中的已锁定佣金
func (s *PaymentBatchService) CreatePaymentBatch(ctx context.Context, input CreatePaymentBatchInput) (*PaymentBatchWithRecords, error) {
	now := time.Now()
	paymentDate := now
	if input.PaymentDate != nil && !input.PaymentDate.IsZero() {
		paymentDate = *input.PaymentDate
	}
	if month := strings.TrimSpace(input.MonthUntil); month != "" {
		if _, err := time.Parse("2006-01", month); err != nil {
			return nil, fmt.Errorf("%w: month_until must be YYYY-MM", ErrValidation)
		}
	}

	var out *PaymentBatchWithRecords
	err := s.batchRepo.Transaction(func(tx *gorm.DB) error {
		batchRepo := s.batchRepo.WithTx(tx)
		rows, err := s.commissionRepo.WithTx(tx).ListPayableForUpdate(repository.PayableCommissionFilter{
			PartnerIDs: input.PartnerIDs,
			RecordIDs:  input.RecordIDs,
			MonthUntil: strings.TrimSpace(input.MonthUntil),
		})
		if err != nil {
			return wrapStoreError(err)
		}
		if len(rows) == 0 {
			return ErrPaymentBatchEmpty
		}

		batch := &models.PaymentBatch{
			BatchCode:   s.nextBatchCode(),
			PaymentDate: paymentDate,
			TotalAmount: models.NewMoneyFromDecimal(decimal.Zero),
			Status:      constants.PaymentBatchStatusOpen,
			Note:        strings.TrimSpace(input.Note),
			CreatedBy:   strings.TrimSpace(input.CreatedBy),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := batchRepo.Create(batch); err != nil {
			return wrapStoreError(err)
		}
		paid, err := s.payRecords(tx, batch.ID, rows, now)
		if err != nil {
			return err
		}
		if len(paid) == 0 {
			return ErrPaymentBatchEmpty
		}
		if err := s.refreshTotals(tx, batch, now); err != nil {
			return err
		}
		out = &PaymentBatchWithRecords{Batch: batch, Records: paid}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateRecordPartners(ctx, out.Records)
	logger.Infow("payment_batch_created",
		"batch_id", out.Batch.ID,
		"batch_code", out.Batch.BatchCode,
		"record_count", out.Batch.RecordCount,
		"partner_count", out.Batch.PartnerCount,
		"total_amount", out.Batch.TotalAmount.String(),
		"created_by", out.Batch.CreatedBy,
	)
	return out, nil
}

// AttachToPaymentBatch 向未完成的批次追加已锁定佣金
func (s *PaymentBatchService) AttachToPaymentBatch(ctx context.Context, batchID uint, recordIDs []uint) (*PaymentBatchWithRecords, error) {
	if len(recordIDs) == 0 {
		return nil, ErrPaymentBatchEmpty
	}
	now := time.Now()
	var out *PaymentBatchWithRecords
	err := s.batchRepo.Transaction(func(tx *gorm.DB) error {
		batch, err := s.batchRepo.WithTx(tx).GetByIDForUpdate(batchID)
		if err != nil {
			return wrapStoreError(err)
		}
		if batch == nil {
			return ErrPaymentBatchNotFound
		}
		if batch.Status != constants.PaymentBatchStatusOpen {
			return ErrPaymentBatchClosed
		}
		rows, err := s.commissionRepo.WithTx(tx).ListPayableForUpdate(repository.PayableCommissionFilter{RecordIDs: recordIDs})
		if err != nil {
			return wrapStoreError(err)
		}
		paid, err := s.payRecords(tx, batch.ID, rows, now)
		if err != nil {
			return err
		}
		if len(paid) == 0 {
			return ErrPaymentBatchEmpty
		}
		if err := s.refreshTotals(tx, batch, now); err != nil {
			return err
		}
		out = &PaymentBatchWithRecords{Batch: batch, Records: paid}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateRecordPartners(ctx, out.Records)
	logger.Infow("payment_batch_attached",
		"batch_id", batchID,
		"attached", len(out.Records),
		"total_amount", out.Batch.TotalAmount.String(),
	)
	return out, nil
}

// CompletePaymentBatch 完成批次，之后不可再修改；同时结清涉及合作伙伴的待审核提现
func (s *PaymentBatchService) CompletePaymentBatch(ctx context.Context, batchID uint) (*models.PaymentBatch, error) {
	now := time.Now()
	var batch *models.PaymentBatch
	var partnerIDs []uint
	var completedWithdrawals int64
	err := s.batchRepo.Transaction(func(tx *gorm.DB) error {
		batchRepo := s.batchRepo.WithTx(tx)
		row, err := batchRepo.GetByIDForUpdate(batchID)
		if err != nil {
			return wrapStoreError(err)
		}
		if row == nil {
			return ErrPaymentBatchNotFound
		}
		if row.Status != constants.PaymentBatchStatusOpen {
			return ErrPaymentBatchClosed
		}
		records, err := s.commissionRepo.WithTx(tx).ListByBatch(row.ID, 0)
		if err != nil {
			return wrapStoreError(err)
		}
		partnerIDs = uniquePartnerIDs(records)
		completedWithdrawals, err = s.withdrawalRepo.WithTx(tx).CompletePendingByPartners(partnerIDs, row.ID, now)
		if err != nil {
			return wrapStoreError(err)
		}
		row.Status = constants.PaymentBatchStatusCompleted
		row.CompletedAt = &now
		row.UpdatedAt = now
		if err := batchRepo.Update(row); err != nil {
			return wrapStoreError(err)
		}
		batch = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := cache.InvalidatePartner(ctx, partnerIDs...); err != nil {
		logger.Warnw("partner_cache_invalidate_failed", "partners", partnerIDs, "error", err)
	}
	logger.Infow("payment_batch_completed",
		"batch_id", batch.ID,
		"batch_code", batch.BatchCode,
		"partners", len(partnerIDs),
		"withdrawals_completed", completedWithdrawals,
	)
	return batch, nil
}

// GetPaymentBatch 查询批次及其佣金记录
func (s *PaymentBatchService) GetPaymentBatch(batchID uint) (*PaymentBatchWithRecords, error) {
	batch, err := s.batchRepo.GetByID(batchID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if batch == nil {
		return nil, ErrPaymentBatchNotFound
	}
	records, err := s.commissionRepo.ListByBatch(batch.ID, 0)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	return &PaymentBatchWithRecords{Batch: batch, Records: records}, nil
}

// ListPaymentBatches 管理端批次列表
func (s *PaymentBatchService) ListPaymentBatches(filter repository.PaymentBatchListFilter) ([]models.PaymentBatch, int64, error) {
	rows, total, err := s.batchRepo.List(filter)
	if err != nil {
		return nil, 0, wrapStoreError(err)
	}
	return rows, total, nil
}

func (s *PaymentBatchService) payRecords(tx *gorm.DB, batchID uint, rows []models.CommissionRecord, now time.Time) ([]models.CommissionRecord, error) {
	paid := make([]models.CommissionRecord, 0, len(rows))
	for i := range rows {
		record := rows[i]
		ok, err := s.commissionService.payInTx(tx, &record, batchID, now)
		if err != nil {
			return nil, wrapStoreError(err)
		}
		if ok {
			paid = append(paid, record)
		}
	}
	return paid, nil
}

// refreshTotals 按批次内记录重新计算批次汇总
func (s *PaymentBatchService) refreshTotals(tx *gorm.DB, batch *models.PaymentBatch, now time.Time) error {
	records, err := s.commissionRepo.WithTx(tx).ListByBatch(batch.ID, 0)
	if err != nil {
		return wrapStoreError(err)
	}
	total := decimal.Zero
	for _, record := range records {
		total = total.Add(record.TotalCommission.Decimal)
	}
	batch.TotalAmount = models.NewMoneyFromDecimal(total)
	batch.RecordCount = len(records)
	batch.PartnerCount = len(uniquePartnerIDs(records))
	batch.UpdatedAt = now
	return wrapStoreError(s.batchRepo.WithTx(tx).Update(batch))
}

func (s *PaymentBatchService) nextBatchCode() string {
	return paymentBatchCodePrefix + s.node.Generate().String()
}

func (s *PaymentBatchService) invalidateRecordPartners(ctx context.Context, records []models.CommissionRecord) {
	ids := uniquePartnerIDs(records)
	if err := cache.InvalidatePartner(ctx, ids...); err != nil {
		logger.Warnw("partner_cache_invalidate_failed", "partners", ids, "error", err)
	}
}

func uniquePartnerIDs(records []models.CommissionRecord) []uint {
	seen := make(map[uint]struct{}, len(records))
	ids := make([]uint, 0, len(records))
	for _, record := range records {
		if _, ok := seen[record.PartnerID]; ok {
			continue
		}
		seen[record.PartnerID] = struct{}{}
		ids = append(ids, record.PartnerID)
	}
	return ids
}
