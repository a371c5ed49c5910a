package service

import (
	"fmt"
	"strings"

	"github.com/partnerhub/internal/models"

	"github.com/shopspring/decimal"
)

// TierLadder 按等级升序排列的等级定义
type TierLadder []models.TierDefinition

// Validate 校验等级阶梯：非空、等级序号严格递增、门槛不递减
func (l TierLadder) Validate() error {
	if len(l) == 0 {
		return ErrTierConfigMissing
	}
	seen := make(map[string]struct{}, len(l))
	for i, tier := range l {
		code := strings.TrimSpace(tier.TierCode)
		if code == "" {
			return fmt.Errorf("%w: tier at level %d has empty code", ErrTierConfigInvalid, tier.TierLevel)
		}
		if _, ok := seen[code]; ok {
			return fmt.Errorf("%w: duplicated tier code %s", ErrTierConfigInvalid, code)
		}
		seen[code] = struct{}{}
		if tier.MinReferrals < 0 || tier.MinRevenue.Decimal.IsNegative() {
			return fmt.Errorf("%w: tier %s has negative threshold", ErrTierConfigInvalid, code)
		}
		if i == 0 {
			continue
		}
		prev := l[i-1]
		if tier.TierLevel <= prev.TierLevel {
			return fmt.Errorf("%w: tier %s level %d is not above %s level %d",
				ErrTierConfigInvalid, code, tier.TierLevel, prev.TierCode, prev.TierLevel)
		}
		if tier.MinReferrals < prev.MinReferrals {
			return fmt.Errorf("%w: tier %s min_referrals %d is below %s",
				ErrTierConfigInvalid, code, tier.MinReferrals, prev.TierCode)
		}
		if tier.MinRevenue.Decimal.LessThan(prev.MinRevenue.Decimal) {
			return fmt.Errorf("%w: tier %s min_revenue %s is below %s",
				ErrTierConfigInvalid, code, tier.MinRevenue.String(), prev.TierCode)
		}
	}
	return nil
}

// Evaluate 返回满足条件的最高等级下标，遇到第一个不满足的等级即停止；都不满足返回 -1
func (l TierLadder) Evaluate(referrals int64, revenue decimal.Decimal) int {
	matched := -1
	for i, tier := range l {
		if referrals < int64(tier.MinReferrals) || revenue.LessThan(tier.MinRevenue.Decimal) {
			break
		}
		matched = i
	}
	return matched
}

// IndexOf 按编码查找等级下标
func (l TierLadder) IndexOf(code string) int {
	target := strings.ToUpper(strings.TrimSpace(code))
	if target == "" {
		return -1
	}
	for i, tier := range l {
		if strings.ToUpper(tier.TierCode) == target {
			return i
		}
	}
	return -1
}

// At 返回下标对应的等级，越界返回 nil
func (l TierLadder) At(index int) *models.TierDefinition {
	if index < 0 || index >= len(l) {
		return nil
	}
	tier := l[index]
	return &tier
}

// Code 返回下标对应的等级编码，越界返回空
func (l TierLadder) Code(index int) string {
	if tier := l.At(index); tier != nil {
		return tier.TierCode
	}
	return ""
}

// rateTierIndex 计算佣金时使用的等级：未达到任何等级时按基础等级计
func (l TierLadder) rateTierIndex(index int) int {
	if index < 0 {
		return 0
	}
	return index
}
