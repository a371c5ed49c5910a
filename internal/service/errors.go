package service

import (
	"errors"
	"fmt"
)

// 错误分类，调用方可对分类使用 errors.Is
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrValidation        = errors.New("validation failed")
	ErrConfiguration     = errors.New("configuration error")
	ErrSystem            = errors.New("system error")
)

// 具体错误
var (
	ErrPartnerNotFound        = fmt.Errorf("%w: partner", ErrNotFound)
	ErrCommissionNotFound     = fmt.Errorf("%w: commission record", ErrNotFound)
	ErrPaymentBatchNotFound   = fmt.Errorf("%w: payment batch", ErrNotFound)
	ErrVoucherNotFound        = fmt.Errorf("%w: voucher", ErrNotFound)
	ErrWithdrawalNotFound     = fmt.Errorf("%w: withdrawal request", ErrNotFound)
	ErrTierNotFound           = fmt.Errorf("%w: tier", ErrNotFound)
	ErrPartnerNotEligible     = fmt.Errorf("%w: partner is inactive or not approved", ErrValidation)
	ErrPartnerCodeExists      = fmt.Errorf("%w: partner code already exists", ErrValidation)
	ErrVoucherCodeExists      = fmt.Errorf("%w: voucher code already exists", ErrValidation)
	ErrVoucherStatusInvalid   = fmt.Errorf("%w: voucher status does not allow this action", ErrValidation)
	ErrInvalidOrderEvent      = fmt.Errorf("%w: order event", ErrValidation)
	ErrInvalidCancelEvent     = fmt.Errorf("%w: cancellation event", ErrValidation)
	ErrLockSettingInvalid     = fmt.Errorf("%w: lock payment setting", ErrValidation)
	ErrTierInvalid            = fmt.Errorf("%w: tier definition", ErrValidation)
	ErrPaymentBatchClosed     = fmt.Errorf("%w: payment batch is completed", ErrValidation)
	ErrPaymentBatchEmpty      = fmt.Errorf("%w: no payable commission records", ErrValidation)
	ErrWithdrawAmountInvalid  = fmt.Errorf("%w: withdrawal amount", ErrValidation)
	ErrWithdrawInsufficient   = fmt.Errorf("%w: withdrawal exceeds available commission", ErrValidation)
	ErrWithdrawStatusInvalid  = fmt.Errorf("%w: withdrawal status does not allow review", ErrValidation)
	ErrTierConfigMissing      = fmt.Errorf("%w: tier ladder is empty", ErrConfiguration)
	ErrTierConfigInvalid      = fmt.Errorf("%w: tier ladder is not monotonic", ErrConfiguration)
	ErrLockSettingMissing     = fmt.Errorf("%w: lock payment setting is missing", ErrConfiguration)
	ErrOrderSourceUnavailable = fmt.Errorf("%w: order source is not configured", ErrConfiguration)
)

// wrapStoreError 将存储层错误归为系统错误
func wrapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if isCategorized(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrSystem, err)
}

func isCategorized(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrSystem)
}

// isConfigurationError 配置错误会中止整批计算
func isConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
