package service

import (
	"context"
	"strings"
	"time"

	"github.com/partnerhub/internal/cache"
	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/logger"
	"github.com/partnerhub/internal/models"
	"github.com/partnerhub/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WithdrawalService 合作伙伴提现申请
type WithdrawalService struct {
	repo           repository.WithdrawalRepository
	partnerRepo    repository.PartnerRepository
	commissionRepo repository.CommissionRepository
}

// NewWithdrawalService 创建提现服务
func NewWithdrawalService(
	repo repository.WithdrawalRepository,
	partnerRepo repository.PartnerRepository,
	commissionRepo repository.CommissionRepository,
) *WithdrawalService {
	return &WithdrawalService{
		repo:           repo,
		partnerRepo:    partnerRepo,
		commissionRepo: commissionRepo,
	}
}

// WithdrawApplyInput 提现申请输入
type WithdrawApplyInput struct {
	Amount decimal.Decimal `json:"amount"`
}

// ApplyWithdrawal 提交提现申请：金额不超过已锁定未付款佣金减去待审核申请
func (s *WithdrawalService) ApplyWithdrawal(ctx context.Context, partnerID uint, input WithdrawApplyInput) (*models.WithdrawalRequest, error) {
	amount := input.Amount.Round(2)
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrWithdrawAmountInvalid
	}
	partner, err := s.partnerRepo.GetByID(partnerID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if partner == nil {
		return nil, ErrPartnerNotFound
	}
	if !partner.Eligible() {
		return nil, ErrPartnerNotEligible
	}

	var created *models.WithdrawalRequest
	err = s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		// 锁住可提现佣金行，串行化同一合作伙伴的并发申请
		rows, err := s.commissionRepo.WithTx(tx).ListPayableForUpdate(repository.PayableCommissionFilter{
			PartnerIDs: []uint{partnerID},
		})
		if err != nil {
			return wrapStoreError(err)
		}
		locked := decimal.Zero
		for _, row := range rows {
			locked = locked.Add(row.TotalCommission.Decimal)
		}
		repo := s.repo.WithTx(tx)
		pending, err := repo.SumPendingByPartner(partnerID)
		if err != nil {
			return wrapStoreError(err)
		}
		if amount.GreaterThan(locked.Sub(pending)) {
			return ErrWithdrawInsufficient
		}

		now := time.Now()
		req := &models.WithdrawalRequest{
			PartnerID: partnerID,
			Amount:    models.NewMoneyFromDecimal(amount),
			Status:    constants.WithdrawalStatusPendingReview,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.Create(req); err != nil {
			return wrapStoreError(err)
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := cache.InvalidatePartner(ctx, partnerID); err != nil {
		logger.Warnw("partner_cache_invalidate_failed", "partner_id", partnerID, "error", err)
	}
	logger.Infow("withdrawal_requested",
		"withdrawal_id", created.ID,
		"partner_id", partnerID,
		"amount", created.Amount.String(),
	)
	return created, nil
}

// ListWithdrawals 查询提现申请
func (s *WithdrawalService) ListWithdrawals(filter repository.WithdrawalListFilter) ([]models.WithdrawalRequest, int64, error) {
	rows, total, err := s.repo.List(filter)
	if err != nil {
		return nil, 0, wrapStoreError(err)
	}
	return rows, total, nil
}

// ReviewWithdrawal 管理端审核提现；通过的申请随付款批次完成
func (s *WithdrawalService) ReviewWithdrawal(ctx context.Context, withdrawalID uint, action, rejectReason string) (*models.WithdrawalRequest, error) {
	act := strings.ToLower(strings.TrimSpace(action))
	if act != constants.WithdrawalActionReject {
		return nil, ErrWithdrawStatusInvalid
	}
	rejectReason = strings.TrimSpace(rejectReason)

	var req *models.WithdrawalRequest
	err := s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.GetByIDForUpdate(withdrawalID)
		if err != nil {
			return wrapStoreError(err)
		}
		if row == nil {
			return ErrWithdrawalNotFound
		}
		if row.Status != constants.WithdrawalStatusPendingReview {
			return ErrWithdrawStatusInvalid
		}
		now := time.Now()
		row.Status = constants.WithdrawalStatusRejected
		row.RejectReason = rejectReason
		row.ProcessedAt = &now
		row.UpdatedAt = now
		if err := repo.Update(row); err != nil {
			return wrapStoreError(err)
		}
		req = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := cache.InvalidatePartner(ctx, req.PartnerID); err != nil {
		logger.Warnw("partner_cache_invalidate_failed", "partner_id", req.PartnerID, "error", err)
	}
	logger.Infow("withdrawal_rejected", "withdrawal_id", req.ID, "partner_id", req.PartnerID, "reason", rejectReason)
	return req, nil
}
