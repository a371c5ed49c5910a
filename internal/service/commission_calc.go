package service

import (
	"github.com/partnerhub/internal/models"

	"github.com/shopspring/decimal"
)

// CommissionInput 佣金计算输入
type CommissionInput struct {
	InvoiceAmount models.Money
	Tier          models.TierDefinition
	BaseTier      bool // 合作伙伴处于基础等级时不计等级加成
	FirstOrder    bool
}

// CommissionBreakdown 佣金构成
type CommissionBreakdown struct {
	TierCode         string       `json:"tier_code"`
	BasicRate        models.Rate  `json:"basic_rate"`
	FirstOrderRate   models.Rate  `json:"first_order_rate"`
	TierBonusRate    models.Rate  `json:"tier_bonus_rate"`
	BasicAmount      models.Money `json:"basic_amount"`
	FirstOrderAmount models.Money `json:"first_order_amount"`
	TierBonusAmount  models.Money `json:"tier_bonus_amount"`
	TotalCommission  models.Money `json:"total_commission"`
}

// ComputeCommission 计算单张发票的佣金，各部分先按 2 位小数取整再求和
func ComputeCommission(input CommissionInput) CommissionBreakdown {
	zeroRate := models.NewRateFromDecimal(decimal.Zero)
	out := CommissionBreakdown{
		TierCode:       input.Tier.TierCode,
		BasicRate:      zeroRate,
		FirstOrderRate: zeroRate,
		TierBonusRate:  zeroRate,
	}
	amount := input.InvoiceAmount
	if amount.Decimal.LessThanOrEqual(decimal.Zero) {
		out.BasicAmount = models.NewMoneyFromDecimal(decimal.Zero)
		out.FirstOrderAmount = models.NewMoneyFromDecimal(decimal.Zero)
		out.TierBonusAmount = models.NewMoneyFromDecimal(decimal.Zero)
		out.TotalCommission = models.NewMoneyFromDecimal(decimal.Zero)
		return out
	}

	if input.FirstOrder {
		out.FirstOrderRate = input.Tier.FirstOrderRate
	} else {
		out.BasicRate = input.Tier.LifetimeRate
	}
	if !input.BaseTier {
		out.TierBonusRate = input.Tier.TierBonusRate
	}

	out.BasicAmount = amount.MulRate(out.BasicRate)
	out.FirstOrderAmount = amount.MulRate(out.FirstOrderRate)
	out.TierBonusAmount = amount.MulRate(out.TierBonusRate)
	out.TotalCommission = out.BasicAmount.Add(out.FirstOrderAmount).Add(out.TierBonusAmount)
	return out
}

// applyBreakdown 将计算结果写入佣金记录
func applyBreakdown(record *models.CommissionRecord, breakdown CommissionBreakdown) {
	record.TierCode = breakdown.TierCode
	record.BasicRate = breakdown.BasicRate
	record.FirstOrderRate = breakdown.FirstOrderRate
	record.TierBonusRate = breakdown.TierBonusRate
	record.BasicAmount = breakdown.BasicAmount
	record.FirstOrderAmount = breakdown.FirstOrderAmount
	record.TierBonusAmount = breakdown.TierBonusAmount
	record.TotalCommission = breakdown.TotalCommission
}
