package service

import (
	"fmt"
	"time"

	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/models"
	"github.com/partnerhub/internal/repository"
)

const (
	lockPeriodDaysMin = 0
	lockPeriodDaysMax = 365
	paymentDayMin     = 1
	paymentDayMax     = 28
)

// LockPaymentSettingInput 锁定与付款配置更新输入
type LockPaymentSettingInput struct {
	LockPeriodDays int `json:"lock_period_days"`
	PaymentDay     int `json:"payment_day"`
}

// ValidateLockPaymentSetting 校验锁定与付款配置
func ValidateLockPaymentSetting(input LockPaymentSettingInput) error {
	if input.LockPeriodDays < lockPeriodDaysMin || input.LockPeriodDays > lockPeriodDaysMax {
		return fmt.Errorf("%w: lock_period_days must be within %d-%d", ErrLockSettingInvalid, lockPeriodDaysMin, lockPeriodDaysMax)
	}
	if input.PaymentDay < paymentDayMin || input.PaymentDay > paymentDayMax {
		return fmt.Errorf("%w: payment_day must be within %d-%d", ErrLockSettingInvalid, paymentDayMin, paymentDayMax)
	}
	return nil
}

// LockPaymentSettingService 锁定期与付款日配置服务
type LockPaymentSettingService struct {
	repo repository.LockPaymentSettingRepository
}

// NewLockPaymentSettingService 创建锁定与付款配置服务
func NewLockPaymentSettingService(repo repository.LockPaymentSettingRepository) *LockPaymentSettingService {
	return &LockPaymentSettingService{repo: repo}
}

// Get 读取配置，缺失时返回配置错误
func (s *LockPaymentSettingService) Get() (*models.LockPaymentSetting, error) {
	if s == nil || s.repo == nil {
		return nil, ErrLockSettingMissing
	}
	setting, err := s.repo.Get()
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if setting == nil {
		return nil, ErrLockSettingMissing
	}
	return setting, nil
}

// Update 校验并保存配置
func (s *LockPaymentSettingService) Update(input LockPaymentSettingInput) (*models.LockPaymentSetting, error) {
	if err := ValidateLockPaymentSetting(input); err != nil {
		return nil, err
	}
	setting := &models.LockPaymentSetting{
		ID:             constants.LockPaymentSettingID,
		LockPeriodDays: input.LockPeriodDays,
		PaymentDay:     input.PaymentDay,
		UpdatedAt:      time.Now(),
	}
	if err := s.repo.Upsert(setting); err != nil {
		return nil, wrapStoreError(err)
	}
	return s.Get()
}

// LockDateFor 根据合格时间计算锁定日期
func LockDateFor(setting *models.LockPaymentSetting, qualifiedAt time.Time) time.Time {
	if setting == nil || setting.LockPeriodDays <= 0 {
		return qualifiedAt
	}
	return qualifiedAt.AddDate(0, 0, setting.LockPeriodDays)
}

// NextPaymentDate 计算 now 之后（含当天）的下一个付款日
func NextPaymentDate(setting *models.LockPaymentSetting, now time.Time) time.Time {
	day := models.DefaultPaymentDay
	if setting != nil && setting.PaymentDay >= paymentDayMin && setting.PaymentDay <= paymentDayMax {
		day = setting.PaymentDay
	}
	candidate := time.Date(now.Year(), now.Month(), day, 0, 0, 0, 0, now.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if candidate.Before(today) {
		candidate = candidate.AddDate(0, 1, 0)
	}
	return candidate
}
