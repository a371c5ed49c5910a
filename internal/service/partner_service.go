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
)

const (
	partnerCodePrefix = "F0"
	partnerCodeLength = 8
	codeRetryLimit    = 5
)

// PartnerService 合作伙伴与推荐券管理
type PartnerService struct {
	repo        repository.PartnerRepository
	voucherRepo repository.VoucherRepository
	tierService *TierService
}

// NewPartnerService 创建合作伙伴服务
func NewPartnerService(repo repository.PartnerRepository, voucherRepo repository.VoucherRepository, tierService *TierService) *PartnerService {
	return &PartnerService{repo: repo, voucherRepo: voucherRepo, tierService: tierService}
}

// RegisterPartnerInput 合作伙伴注册输入
type RegisterPartnerInput struct {
	PartnerCode       string `json:"partner_code" validate:"omitempty,alphanum,max=32"`
	FullName          string `json:"full_name" validate:"required,max=120"`
	Phone             string `json:"phone" validate:"omitempty,max=32"`
	Email             string `json:"email" validate:"omitempty,email,max=255"`
	BankName          string `json:"bank_name" validate:"max=120"`
	BankAccountNumber string `json:"bank_account_number" validate:"max=64"`
	BankAccountName   string `json:"bank_account_name" validate:"max=120"`
}

// IssueVoucherInput 发放推荐券输入
type IssueVoucherInput struct {
	VoucherCode    string `json:"voucher_code" validate:"omitempty,alphanum,max=64"`
	CustomerRef    string `json:"customer_ref" validate:"required,max=64"`
	RecipientName  string `json:"recipient_name" validate:"max=120"`
	RecipientPhone string `json:"recipient_phone" validate:"max=32"`
	RecipientEmail string `json:"recipient_email" validate:"omitempty,email,max=255"`
}

// RegisterPartner 注册合作伙伴，默认待审核
func (s *PartnerService) RegisterPartner(input RegisterPartnerInput) (*models.Partner, error) {
	input.PartnerCode = strings.ToUpper(strings.TrimSpace(input.PartnerCode))
	input.FullName = strings.TrimSpace(input.FullName)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Email = strings.TrimSpace(input.Email)
	if err := eventValidate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, DescribeValidationError(err))
	}

	now := time.Now()
	partner := &models.Partner{
		PartnerCode:       input.PartnerCode,
		FullName:          input.FullName,
		Phone:             input.Phone,
		Email:             input.Email,
		BankName:          strings.TrimSpace(input.BankName),
		BankAccountNumber: strings.TrimSpace(input.BankAccountNumber),
		BankAccountName:   strings.TrimSpace(input.BankAccountName),
		IsActive:          true,
		IsApproved:        false,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if partner.PartnerCode != "" {
		existing, err := s.repo.GetByCode(partner.PartnerCode)
		if err != nil {
			return nil, wrapStoreError(err)
		}
		if existing != nil {
			return nil, ErrPartnerCodeExists
		}
		if err := s.repo.Create(partner); err != nil {
			if isUniqueViolation(err) {
				return nil, ErrPartnerCodeExists
			}
			return nil, wrapStoreError(err)
		}
	} else {
		var lastErr error
		for i := 0; i < codeRetryLimit; i++ {
			code, err := generateCode(partnerCodePrefix, partnerCodeLength)
			if err != nil {
				return nil, wrapStoreError(err)
			}
			partner.PartnerCode = code
			lastErr = s.repo.Create(partner)
			if lastErr == nil || !isUniqueViolation(lastErr) {
				break
			}
			partner.ID = 0
		}
		if lastErr != nil {
			return nil, wrapStoreError(lastErr)
		}
	}
	logger.Infow("partner_registered", "partner_id", partner.ID, "partner_code", partner.PartnerCode)
	return partner, nil
}

// ApprovePartner 审核通过合作伙伴，并计算初始等级
func (s *PartnerService) ApprovePartner(ctx context.Context, partnerID uint) (*models.Partner, error) {
	partner, err := s.GetPartner(partnerID)
	if err != nil {
		return nil, err
	}
	if !partner.IsApproved {
		now := time.Now()
		partner.IsApproved = true
		partner.ApprovedAt = &now
		partner.UpdatedAt = now
		if err := s.repo.Update(partner); err != nil {
			return nil, wrapStoreError(err)
		}
		if err := cache.InvalidatePartner(ctx, partnerID); err != nil {
			logger.Warnw("partner_cache_invalidate_failed", "partner_id", partnerID, "error", err)
		}
		logger.Infow("partner_approved", "partner_id", partner.ID)
	}
	if _, err := s.tierService.RecalculatePartnerTier(ctx, partner.ID); err != nil {
		return nil, err
	}
	return s.GetPartner(partnerID)
}

// SetPartnerActive 启用或停用合作伙伴
func (s *PartnerService) SetPartnerActive(ctx context.Context, partnerID uint, active bool) (*models.Partner, error) {
	partner, err := s.GetPartner(partnerID)
	if err != nil {
		return nil, err
	}
	if partner.IsActive == active {
		return partner, nil
	}
	partner.IsActive = active
	partner.UpdatedAt = time.Now()
	if err := s.repo.Update(partner); err != nil {
		return nil, wrapStoreError(err)
	}
	if err := cache.InvalidatePartner(ctx, partnerID); err != nil {
		logger.Warnw("partner_cache_invalidate_failed", "partner_id", partnerID, "error", err)
	}
	logger.Infow("partner_active_changed", "partner_id", partnerID, "is_active", active)
	return partner, nil
}

// GetPartner 查询合作伙伴
func (s *PartnerService) GetPartner(partnerID uint) (*models.Partner, error) {
	partner, err := s.repo.GetByID(partnerID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if partner == nil {
		return nil, ErrPartnerNotFound
	}
	return partner, nil
}

// ListPartners 查询合作伙伴列表
func (s *PartnerService) ListPartners(filter repository.PartnerListFilter) ([]models.Partner, int64, error) {
	rows, total, err := s.repo.List(filter)
	if err != nil {
		return nil, 0, wrapStoreError(err)
	}
	return rows, total, nil
}

// IssueVoucher 为合作伙伴发放推荐券，并记录推荐建立时的等级
func (s *PartnerService) IssueVoucher(ctx context.Context, partnerID uint, input IssueVoucherInput) (*models.VoucherTracking, error) {
	input.VoucherCode = strings.ToUpper(strings.TrimSpace(input.VoucherCode))
	input.CustomerRef = strings.TrimSpace(input.CustomerRef)
	if err := eventValidate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, DescribeValidationError(err))
	}
	partner, err := s.GetPartner(partnerID)
	if err != nil {
		return nil, err
	}
	if !partner.Eligible() {
		return nil, ErrPartnerNotEligible
	}
	tierCode, err := s.tierService.SnapshotTierCode(ctx, partner.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	voucher := &models.VoucherTracking{
		VoucherCode:      input.VoucherCode,
		PartnerID:        partner.ID,
		CustomerRef:      input.CustomerRef,
		RecipientName:    strings.TrimSpace(input.RecipientName),
		RecipientPhone:   strings.TrimSpace(input.RecipientPhone),
		RecipientEmail:   strings.TrimSpace(input.RecipientEmail),
		ActivationStatus: constants.VoucherStatusIssued,
		TierAtReferral:   tierCode,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if voucher.VoucherCode != "" {
		if err := s.voucherRepo.Create(voucher); err != nil {
			if isUniqueViolation(err) {
				return nil, ErrVoucherCodeExists
			}
			return nil, wrapStoreError(err)
		}
	} else {
		var lastErr error
		for i := 0; i < codeRetryLimit; i++ {
			code, err := generateCode(voucherCodePrefix, voucherCodeLength)
			if err != nil {
				return nil, wrapStoreError(err)
			}
			voucher.VoucherCode = code
			lastErr = s.voucherRepo.Create(voucher)
			if lastErr == nil || !isUniqueViolation(lastErr) {
				break
			}
			voucher.ID = 0
		}
		if lastErr != nil {
			return nil, wrapStoreError(lastErr)
		}
	}
	logger.Infow("voucher_issued",
		"voucher_id", voucher.ID,
		"voucher_code", voucher.VoucherCode,
		"partner_id", partner.ID,
		"tier_at_referral", voucher.TierAtReferral,
	)
	return voucher, nil
}

// ActivateVoucher 激活已发放的推荐券
func (s *PartnerService) ActivateVoucher(code string) (*models.VoucherTracking, error) {
	voucher, err := s.voucherRepo.GetByCode(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if voucher == nil {
		return nil, ErrVoucherNotFound
	}
	switch voucher.ActivationStatus {
	case constants.VoucherStatusActivated:
		return voucher, nil
	case constants.VoucherStatusIssued:
	default:
		return nil, ErrVoucherStatusInvalid
	}
	now := time.Now()
	voucher.ActivationStatus = constants.VoucherStatusActivated
	voucher.ActivatedAt = &now
	voucher.UpdatedAt = now
	if err := s.voucherRepo.Update(voucher); err != nil {
		return nil, wrapStoreError(err)
	}
	return voucher, nil
}

// ListVouchers 查询推荐券
func (s *PartnerService) ListVouchers(filter repository.VoucherListFilter) ([]models.VoucherTracking, int64, error) {
	rows, total, err := s.voucherRepo.List(filter)
	if err != nil {
		return nil, 0, wrapStoreError(err)
	}
	return rows, total, nil
}
