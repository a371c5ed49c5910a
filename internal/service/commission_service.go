package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/partnerhub/internal/cache"
	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/logger"
	"github.com/partnerhub/internal/metrics"
	"github.com/partnerhub/internal/models"
	"github.com/partnerhub/internal/repository"

	"gorm.io/gorm"
)

const (
	defaultLockSweepBatchSize = 200
	voucherCodePrefix         = "RF"
	voucherCodeLength         = 8
)

// 订单事件处理结果
const (
	IngestActionCreated   = "created"
	IngestActionDuplicate = "duplicate"
	IngestActionIgnored   = "ignored"
	IngestActionCancelled = "cancelled"
)

// 取消事件处理结果
const (
	CancelActionCancelled          = "cancelled"
	CancelActionCancelledAfterPaid = "cancelled_after_paid"
	CancelActionNoop               = "noop"
)

// CommissionService 佣金记录引擎
type CommissionService struct {
	partnerRepo    repository.PartnerRepository
	voucherRepo    repository.VoucherRepository
	commissionRepo repository.CommissionRepository
	adjustmentRepo repository.AdjustmentRepository
	lockSettings   *LockPaymentSettingService
	tierService    *TierService
	metrics        *metrics.Registry
}

// NewCommissionService 创建佣金服务
func NewCommissionService(
	partnerRepo repository.PartnerRepository,
	voucherRepo repository.VoucherRepository,
	commissionRepo repository.CommissionRepository,
	adjustmentRepo repository.AdjustmentRepository,
	lockSettings *LockPaymentSettingService,
	tierService *TierService,
	registry *metrics.Registry,
) *CommissionService {
	return &CommissionService{
		partnerRepo:    partnerRepo,
		voucherRepo:    voucherRepo,
		commissionRepo: commissionRepo,
		adjustmentRepo: adjustmentRepo,
		lockSettings:   lockSettings,
		tierService:    tierService,
		metrics:        registry,
	}
}

// IngestResult 订单事件处理结果
type IngestResult struct {
	Action string                   `json:"action"`
	Record *models.CommissionRecord `json:"record,omitempty"`
}

// CancelResult 取消事件处理结果
type CancelResult struct {
	Action     string                   `json:"action"`
	Record     *models.CommissionRecord `json:"record,omitempty"`
	Adjustment *models.StatsAdjustment  `json:"adjustment,omitempty"`
}

// LockSweepResult 锁定扫描结果
type LockSweepResult struct {
	Scanned  int    `json:"scanned"`
	Locked   int    `json:"locked"`
	Skipped  int    `json:"skipped"`
	Partners []uint `json:"partners"`
}

// TransitionOptions 管理端状态迁移参数
type TransitionOptions struct {
	Reason      string
	CancelledAt *time.Time
}

// transitionParams 状态迁移附带写入的字段
type transitionParams struct {
	now            time.Time
	paymentBatchID uint
	cancelledAt    time.Time
	reason         string
}

// IngestOrder 处理订单事件：合格发票创建 pending 佣金，按发票号幂等
func (s *CommissionService) IngestOrder(ctx context.Context, event OrderEvent, source string) (*IngestResult, error) {
	if err := ValidateOrderEvent(&event); err != nil {
		return nil, err
	}

	if event.InvoiceStatus == constants.InvoiceStatusCancelled {
		cancelledAt := event.InvoiceDate
		if event.CancelledAt != nil && !event.CancelledAt.IsZero() {
			cancelledAt = *event.CancelledAt
		}
		res, err := s.CancelInvoice(ctx, CancelEvent{
			InvoiceCode: event.InvoiceCode,
			CancelledAt: cancelledAt,
			Reason:      "invoice cancelled at source",
		}, source)
		if err != nil {
			if errors.Is(err, ErrCommissionNotFound) {
				return &IngestResult{Action: IngestActionIgnored}, nil
			}
			return nil, err
		}
		if res.Action == CancelActionNoop {
			// 已取消发票的重复投递
			return &IngestResult{Action: IngestActionDuplicate, Record: res.Record}, nil
		}
		return &IngestResult{Action: IngestActionCancelled, Record: res.Record}, nil
	}
	if !isQualifyingInvoiceStatus(event.InvoiceStatus) {
		logger.Debugw("order_event_ignored",
			"invoice_code", event.InvoiceCode,
			"invoice_status", event.InvoiceStatus,
			"source", source,
		)
		return &IngestResult{Action: IngestActionIgnored}, nil
	}

	existing, err := s.commissionRepo.GetByInvoiceCode(event.InvoiceCode)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if existing != nil {
		return &IngestResult{Action: IngestActionDuplicate, Record: existing}, nil
	}

	partner, err := s.resolvePartner(event.PartnerReference)
	if err != nil {
		return nil, err
	}
	if !partner.Eligible() {
		return nil, ErrPartnerNotEligible
	}

	ladder, err := s.tierService.LoadLadder(ctx)
	if err != nil {
		return nil, err
	}
	setting, err := s.lockSettings.Get()
	if err != nil {
		return nil, err
	}
	evaluation, err := s.tierService.evaluate(ladder, partner.ID)
	if err != nil {
		return nil, err
	}
	snapshotIndex := ladder.rateTierIndex(evaluation.index)

	now := time.Now()
	var record *models.CommissionRecord
	err = s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		voucherRepo := s.voucherRepo.WithTx(tx)
		commissionRepo := s.commissionRepo.WithTx(tx)

		voucher, err := s.resolveVoucher(voucherRepo, partner.ID, event)
		if err != nil {
			return err
		}
		if voucher == nil {
			code, err := generateCode(voucherCodePrefix, voucherCodeLength)
			if err != nil {
				return wrapStoreError(err)
			}
			voucher = &models.VoucherTracking{
				VoucherCode:      code,
				PartnerID:        partner.ID,
				CustomerRef:      event.CustomerReference,
				RecipientName:    event.CustomerName,
				RecipientPhone:   event.CustomerPhone,
				ActivationStatus: constants.VoucherStatusActivated,
				TierAtReferral:   ladder.Code(snapshotIndex),
				ActivatedAt:      &now,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			if err := voucherRepo.Create(voucher); err != nil {
				return wrapStoreError(err)
			}
		}
		if strings.TrimSpace(voucher.TierAtReferral) == "" {
			voucher.TierAtReferral = ladder.Code(snapshotIndex)
		}

		rateIndex := ladder.IndexOf(voucher.TierAtReferral)
		if rateIndex < 0 {
			logger.Warnw("referral_tier_snapshot_unknown",
				"voucher_id", voucher.ID,
				"tier_at_referral", voucher.TierAtReferral,
				"fallback_tier", ladder.Code(snapshotIndex),
			)
			rateIndex = snapshotIndex
		}

		hasActive, err := commissionRepo.HasActiveForCustomer(partner.ID, event.CustomerReference, 0)
		if err != nil {
			return wrapStoreError(err)
		}
		breakdown := ComputeCommission(CommissionInput{
			InvoiceAmount: event.InvoiceAmount,
			Tier:          ladder[rateIndex],
			BaseTier:      rateIndex == 0,
			FirstOrder:    event.IsFirstOrder && !hasActive,
		})

		voucherID := voucher.ID
		record = &models.CommissionRecord{
			PartnerID:         partner.ID,
			VoucherTrackingID: &voucherID,
			CustomerRef:       event.CustomerReference,
			CustomerName:      firstNonEmpty(event.CustomerName, voucher.RecipientName),
			InvoiceCode:       event.InvoiceCode,
			InvoiceAmount:     event.InvoiceAmount,
			InvoiceDate:       event.InvoiceDate,
			IsFirstOrder:      event.IsFirstOrder && !hasActive,
			Status:            constants.CommissionStatusPending,
			QualifiedAt:       now,
			LockDate:          LockDateFor(setting, now),
			CommissionMonth:   models.CommissionMonthOf(event.InvoiceDate),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		applyBreakdown(record, breakdown)
		if err := commissionRepo.Create(record); err != nil {
			return err
		}

		voucher.InvoiceCode = event.InvoiceCode
		voucher.InvoiceAmount = event.InvoiceAmount
		voucher.InvoiceStatus = event.InvoiceStatus
		voucher.CommissionStatus = record.Status
		voucher.ActivationStatus = constants.VoucherStatusUsed
		if voucher.ActivatedAt == nil {
			voucher.ActivatedAt = &now
		}
		if voucher.UsedAt == nil {
			voucher.UsedAt = &now
		}
		voucher.UpdatedAt = now
		return wrapStoreError(voucherRepo.Update(voucher))
	})
	if err != nil {
		if isUniqueViolation(err) {
			// 并发事件已经创建了同一张发票的佣金
			existing, readErr := s.commissionRepo.GetByInvoiceCode(event.InvoiceCode)
			if readErr == nil && existing != nil {
				return &IngestResult{Action: IngestActionDuplicate, Record: existing}, nil
			}
		}
		return nil, wrapStoreError(err)
	}

	s.metrics.IncTransition("new", constants.CommissionStatusPending)
	s.invalidatePartners(ctx, partner.ID)
	logger.Infow("commission_record_created",
		"commission_id", record.ID,
		"partner_id", partner.ID,
		"invoice_code", record.InvoiceCode,
		"tier_code", record.TierCode,
		"is_first_order", record.IsFirstOrder,
		"total_commission", record.TotalCommission.String(),
		"lock_date", record.LockDate,
		"source", source,
	)
	return &IngestResult{Action: IngestActionCreated, Record: record}, nil
}

// CancelInvoice 处理发票取消：pending/locked 转为 cancelled，paid 仅打标记；每条记录只产生一条统计调整
func (s *CommissionService) CancelInvoice(ctx context.Context, event CancelEvent, source string) (*CancelResult, error) {
	if err := ValidateCancelEvent(&event); err != nil {
		return nil, err
	}
	now := time.Now()
	cancelledAt := event.CancelledAt
	if cancelledAt.IsZero() {
		cancelledAt = now
	}
	reason := event.Reason
	if reason == "" {
		reason = "invoice cancelled"
	}

	result := &CancelResult{Action: CancelActionNoop}
	var transition CommissionTransition
	var rejectErr error
	wasQualifying := false

	err := s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		commissionRepo := s.commissionRepo.WithTx(tx)
		record, err := commissionRepo.GetByInvoiceCodeForUpdate(event.InvoiceCode)
		if err != nil {
			return wrapStoreError(err)
		}
		if record == nil {
			return ErrCommissionNotFound
		}
		result.Record = record

		transition, rejectErr = ResolveCommissionTransition(record.Status, record.InvoiceCancelledAfterPaid, constants.CommissionEventCancel)
		if rejectErr != nil {
			return nil
		}
		wasQualifying = isQualifyingStatus(record.Status)

		// 付款后取消的记录直接退出客户计数，f1 调整只记录付款前取消
		f1Delta := 0
		if wasQualifying && !transition.MarkCancelledAfterPaid {
			count, err := commissionRepo.CountQualifyingForCustomer(record.PartnerID, record.CustomerRef)
			if err != nil {
				return wrapStoreError(err)
			}
			if count <= 1 {
				f1Delta = -1
			}
		}

		var applied bool
		adjustmentType := constants.AdjustmentTypeCancelledBeforePaid
		if transition.MarkCancelledAfterPaid {
			adjustmentType = constants.AdjustmentTypeCancelledAfterPaid
			applied, err = commissionRepo.MarkCancelledAfterPaid(record.ID, cancelledAt, now, reason)
			if err == nil && applied {
				record.InvoiceCancelledAfterPaid = true
				record.InvoiceCancelledAt = &cancelledAt
				record.CancelReason = reason
				record.UpdatedAt = now
			}
		} else {
			applied, err = s.applyTransition(commissionRepo, record, transition, transitionParams{
				now:         now,
				cancelledAt: cancelledAt,
				reason:      reason,
			})
		}
		if err != nil {
			return wrapStoreError(err)
		}
		if !applied {
			rejectErr = fmt.Errorf("%w: record %d changed concurrently", ErrInvalidTransition, record.ID)
			return nil
		}

		adjustment := &models.StatsAdjustment{
			PartnerID:            record.PartnerID,
			CommissionRecordID:   record.ID,
			InvoiceCode:          record.InvoiceCode,
			AdjustmentType:       adjustmentType,
			F1Adjustment:         f1Delta,
			RevenueAdjustment:    record.InvoiceAmount.Neg(),
			CommissionAdjustment: record.TotalCommission.Neg(),
			Reason:               reason,
			CreatedAt:            now,
		}
		if err := s.adjustmentRepo.WithTx(tx).Create(adjustment); err != nil {
			return wrapStoreError(err)
		}
		result.Adjustment = adjustment

		if record.VoucherTrackingID != nil {
			if err := s.voucherRepo.WithTx(tx).UpdateCommissionMirror(*record.VoucherTrackingID, record.Status, constants.InvoiceStatusCancelled, now); err != nil {
				return wrapStoreError(err)
			}
		}
		if transition.MarkCancelledAfterPaid {
			result.Action = CancelActionCancelledAfterPaid
		} else {
			result.Action = CancelActionCancelled
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if rejectErr != nil {
		if isAlreadyCancelled(result.Record) {
			logger.Debugw("commission_cancel_redelivered",
				"invoice_code", event.InvoiceCode,
				"status", result.Record.Status,
				"source", source,
			)
			return result, nil
		}
		s.metrics.IncRejectedTransition(constants.CommissionEventCancel, source)
		logger.Warnw("commission_transition_rejected",
			"invoice_code", event.InvoiceCode,
			"event", constants.CommissionEventCancel,
			"status", result.Record.Status,
			"source", source,
			"error", rejectErr,
		)
		return result, nil
	}

	record := result.Record
	if transition.MarkCancelledAfterPaid {
		s.metrics.IncTransition(constants.CommissionStatusPaid, "paid_invoice_cancelled")
	} else {
		s.metrics.IncTransition(transition.From, transition.To)
	}
	s.invalidatePartners(ctx, record.PartnerID)
	if wasQualifying {
		s.tierService.ScheduleRecalc(ctx, "invoice_cancelled", record.PartnerID)
	}
	logger.Infow("commission_invoice_cancelled",
		"commission_id", record.ID,
		"partner_id", record.PartnerID,
		"invoice_code", record.InvoiceCode,
		"from", transition.From,
		"adjustment_type", result.Adjustment.AdjustmentType,
		"f1_adjustment", result.Adjustment.F1Adjustment,
		"revenue_adjustment", result.Adjustment.RevenueAdjustment.String(),
		"commission_adjustment", result.Adjustment.CommissionAdjustment.String(),
		"source", source,
	)
	return result, nil
}

func isAlreadyCancelled(record *models.CommissionRecord) bool {
	return record != nil &&
		(record.Status == constants.CommissionStatusCancelled || record.InvoiceCancelledAfterPaid)
}

// LockDueCommissions 锁定扫描：锁定期已到的 pending 记录转为 locked，重复执行不会改变已锁定记录
func (s *CommissionService) LockDueCommissions(ctx context.Context, now time.Time, batchSize int) (*LockSweepResult, error) {
	if batchSize <= 0 {
		batchSize = defaultLockSweepBatchSize
	}
	result := &LockSweepResult{Partners: []uint{}}
	touched := make(map[uint]struct{})

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		rows, err := s.commissionRepo.ListDueForLock(now, batchSize)
		if err != nil {
			return result, wrapStoreError(err)
		}
		if len(rows) == 0 {
			break
		}
		lockedInBatch := 0
		for i := range rows {
			record := &rows[i]
			result.Scanned++
			transition, err := ResolveCommissionTransition(record.Status, record.InvoiceCancelledAfterPaid, constants.CommissionEventLock)
			if err != nil {
				result.Skipped++
				s.rejectTransition(record, constants.CommissionEventLock, metrics.RejectSourceSweep, err)
				continue
			}
			applied, err := s.applyTransition(s.commissionRepo, record, transition, transitionParams{now: now})
			if err != nil {
				return result, wrapStoreError(err)
			}
			if !applied {
				// 取消事件先提交，保持取消结果
				result.Skipped++
				s.rejectTransition(record, constants.CommissionEventLock, metrics.RejectSourceSweep, ErrInvalidTransition)
				continue
			}
			if record.VoucherTrackingID != nil {
				if err := s.voucherRepo.UpdateCommissionMirror(*record.VoucherTrackingID, record.Status, "", now); err != nil {
					logger.Warnw("voucher_mirror_update_failed", "voucher_id", *record.VoucherTrackingID, "error", err)
				}
			}
			s.metrics.IncTransition(transition.From, transition.To)
			lockedInBatch++
			result.Locked++
			if _, ok := touched[record.PartnerID]; !ok {
				touched[record.PartnerID] = struct{}{}
				result.Partners = append(result.Partners, record.PartnerID)
			}
		}
		if lockedInBatch == 0 || len(rows) < batchSize {
			break
		}
	}

	if len(result.Partners) > 0 {
		s.invalidatePartners(ctx, result.Partners...)
		s.tierService.ScheduleRecalc(ctx, "lock_sweep", result.Partners...)
	}
	logger.Infow("commission_lock_sweep_done",
		"scanned", result.Scanned,
		"locked", result.Locked,
		"skipped", result.Skipped,
		"partners", len(result.Partners),
	)
	return result, nil
}

// TransitionCommission 管理端手动迁移佣金状态，非法迁移返回 ErrInvalidTransition
func (s *CommissionService) TransitionCommission(ctx context.Context, id uint, event string, opts TransitionOptions) (*models.CommissionRecord, error) {
	event = strings.ToLower(strings.TrimSpace(event))
	switch event {
	case constants.CommissionEventCancel:
		record, err := s.commissionRepo.GetByID(id)
		if err != nil {
			return nil, wrapStoreError(err)
		}
		if record == nil {
			return nil, ErrCommissionNotFound
		}
		cancelledAt := time.Time{}
		if opts.CancelledAt != nil {
			cancelledAt = *opts.CancelledAt
		}
		res, err := s.CancelInvoice(ctx, CancelEvent{
			InvoiceCode: record.InvoiceCode,
			CancelledAt: cancelledAt,
			Reason:      opts.Reason,
		}, metrics.RejectSourceAdmin)
		if err != nil {
			return nil, err
		}
		if res.Action == CancelActionNoop {
			return nil, fmt.Errorf("%w: cancel from %q", ErrInvalidTransition, res.Record.Status)
		}
		return res.Record, nil
	case constants.CommissionEventLock:
		return s.lockOne(ctx, id)
	case constants.CommissionEventPay:
		return nil, fmt.Errorf("%w: commissions are paid through a payment batch", ErrValidation)
	default:
		return nil, fmt.Errorf("%w: unknown event %q", ErrValidation, event)
	}
}

// GetCommission 查询佣金记录
func (s *CommissionService) GetCommission(id uint) (*models.CommissionRecord, error) {
	record, err := s.commissionRepo.GetByID(id)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if record == nil {
		return nil, ErrCommissionNotFound
	}
	return record, nil
}

// ListCommissions 管理端佣金列表
func (s *CommissionService) ListCommissions(filter repository.CommissionListFilter) ([]models.CommissionRecord, int64, error) {
	rows, total, err := s.commissionRepo.List(filter)
	if err != nil {
		return nil, 0, wrapStoreError(err)
	}
	return rows, total, nil
}

func (s *CommissionService) lockOne(ctx context.Context, id uint) (*models.CommissionRecord, error) {
	now := time.Now()
	var record *models.CommissionRecord
	var transition CommissionTransition
	err := s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.commissionRepo.WithTx(tx)
		row, err := repo.GetByIDForUpdate(id)
		if err != nil {
			return wrapStoreError(err)
		}
		if row == nil {
			return ErrCommissionNotFound
		}
		record = row
		if row.InvoiceCancelledAt != nil {
			return fmt.Errorf("%w: invoice already cancelled", ErrInvalidTransition)
		}
		transition, err = ResolveCommissionTransition(row.Status, row.InvoiceCancelledAfterPaid, constants.CommissionEventLock)
		if err != nil {
			return err
		}
		applied, err := s.applyTransition(repo, row, transition, transitionParams{now: now})
		if err != nil {
			return wrapStoreError(err)
		}
		if !applied {
			return fmt.Errorf("%w: record %d changed concurrently", ErrInvalidTransition, row.ID)
		}
		if row.VoucherTrackingID != nil {
			return wrapStoreError(s.voucherRepo.WithTx(tx).UpdateCommissionMirror(*row.VoucherTrackingID, row.Status, "", now))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) && record != nil {
			s.rejectTransition(record, constants.CommissionEventLock, metrics.RejectSourceAdmin, err)
		}
		return nil, err
	}
	s.metrics.IncTransition(transition.From, transition.To)
	s.invalidatePartners(ctx, record.PartnerID)
	s.tierService.ScheduleRecalc(ctx, "manual_lock", record.PartnerID)
	return record, nil
}

// applyTransition 以期望的源状态为条件更新记录，返回是否生效
func (s *CommissionService) applyTransition(repo repository.CommissionRepository, record *models.CommissionRecord, transition CommissionTransition, params transitionParams) (bool, error) {
	updates := map[string]interface{}{
		"status":     transition.To,
		"updated_at": params.now,
	}
	switch transition.Event {
	case constants.CommissionEventLock:
		updates["locked_at"] = params.now
	case constants.CommissionEventPay:
		if params.paymentBatchID == 0 {
			return false, fmt.Errorf("%w: payment batch is required", ErrValidation)
		}
		updates["paid_at"] = params.now
		updates["payment_batch_id"] = params.paymentBatchID
	case constants.CommissionEventCancel:
		updates["cancelled_at"] = params.now
		updates["invoice_cancelled_at"] = params.cancelledAt
		updates["cancel_reason"] = params.reason
	}

	applied, err := repo.TransitionStatus(record.ID, []string{transition.From}, updates)
	if err != nil || !applied {
		return applied, err
	}

	record.Status = transition.To
	record.UpdatedAt = params.now
	switch transition.Event {
	case constants.CommissionEventLock:
		lockedAt := params.now
		record.LockedAt = &lockedAt
	case constants.CommissionEventPay:
		paidAt := params.now
		batchID := params.paymentBatchID
		record.PaidAt = &paidAt
		record.PaymentBatchID = &batchID
	case constants.CommissionEventCancel:
		cancelledAt := params.now
		invoiceCancelledAt := params.cancelledAt
		record.CancelledAt = &cancelledAt
		record.InvoiceCancelledAt = &invoiceCancelledAt
		record.CancelReason = params.reason
	}
	return true, nil
}

// payInTx 付款批次内将 locked 记录转为 paid
func (s *CommissionService) payInTx(tx *gorm.DB, record *models.CommissionRecord, batchID uint, now time.Time) (bool, error) {
	transition, err := ResolveCommissionTransition(record.Status, record.InvoiceCancelledAfterPaid, constants.CommissionEventPay)
	if err != nil {
		s.rejectTransition(record, constants.CommissionEventPay, metrics.RejectSourceAdmin, err)
		return false, nil
	}
	applied, err := s.applyTransition(s.commissionRepo.WithTx(tx), record, transition, transitionParams{
		now:            now,
		paymentBatchID: batchID,
	})
	if err != nil {
		return false, err
	}
	if !applied {
		s.rejectTransition(record, constants.CommissionEventPay, metrics.RejectSourceAdmin, ErrInvalidTransition)
		return false, nil
	}
	if record.VoucherTrackingID != nil {
		if err := s.voucherRepo.WithTx(tx).UpdateCommissionMirror(*record.VoucherTrackingID, record.Status, "", now); err != nil {
			return false, err
		}
	}
	s.metrics.IncTransition(transition.From, transition.To)
	return true, nil
}

func (s *CommissionService) rejectTransition(record *models.CommissionRecord, event, source string, err error) {
	s.metrics.IncRejectedTransition(event, source)
	logger.Warnw("commission_transition_rejected",
		"commission_id", record.ID,
		"invoice_code", record.InvoiceCode,
		"event", event,
		"status", record.Status,
		"source", source,
		"error", err,
	)
}

func (s *CommissionService) resolvePartner(reference string) (*models.Partner, error) {
	ref := strings.TrimSpace(reference)
	partner, err := s.partnerRepo.GetByCode(ref)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if partner != nil {
		return partner, nil
	}
	if id, parseErr := strconv.ParseUint(ref, 10, 64); parseErr == nil && id > 0 {
		partner, err = s.partnerRepo.GetByID(uint(id))
		if err != nil {
			return nil, wrapStoreError(err)
		}
		if partner != nil {
			return partner, nil
		}
	}
	return nil, ErrPartnerNotFound
}

func (s *CommissionService) resolveVoucher(repo repository.VoucherRepository, partnerID uint, event OrderEvent) (*models.VoucherTracking, error) {
	if event.VoucherCode != "" {
		voucher, err := repo.GetByCode(event.VoucherCode)
		if err != nil {
			return nil, wrapStoreError(err)
		}
		if voucher != nil {
			if voucher.PartnerID != partnerID {
				return nil, fmt.Errorf("%w: voucher %s belongs to another partner", ErrInvalidOrderEvent, event.VoucherCode)
			}
			if voucher.CustomerRef == "" {
				voucher.CustomerRef = event.CustomerReference
			}
			return voucher, nil
		}
	}
	voucher, err := repo.GetLatestByCustomerForUpdate(partnerID, event.CustomerReference)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	return voucher, nil
}

func (s *CommissionService) invalidatePartners(ctx context.Context, partnerIDs ...uint) {
	if err := cache.InvalidatePartner(ctx, partnerIDs...); err != nil {
		logger.Warnw("partner_cache_invalidate_failed", "partners", partnerIDs, "error", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
