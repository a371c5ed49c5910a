package service

import (
	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/models"

	"github.com/shopspring/decimal"
)

// StatusAmounts 按佣金状态拆分的金额，Total 不含已取消
type StatusAmounts struct {
	Pending   models.Money `json:"pending"`
	Locked    models.Money `json:"locked"`
	Paid      models.Money `json:"paid"`
	Cancelled models.Money `json:"cancelled"`
	Total     models.Money `json:"total"`
}

// OrderCounts 按佣金状态拆分的订单数，Total 不含已取消
type OrderCounts struct {
	Pending   int `json:"pending"`
	Locked    int `json:"locked"`
	Paid      int `json:"paid"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}

// ComponentTotals 未取消佣金的构成汇总
type ComponentTotals struct {
	Basic      models.Money `json:"basic"`
	FirstOrder models.Money `json:"first_order"`
	TierBonus  models.Money `json:"tier_bonus"`
}

// CommissionStats 佣金记录汇总
type CommissionStats struct {
	Commission StatusAmounts   `json:"commission"`
	Revenue    StatusAmounts   `json:"revenue"`
	Orders     OrderCounts     `json:"orders"`
	Breakdown  ComponentTotals `json:"breakdown"`
}

type statusAccumulator struct {
	pending, locked, paid, cancelled decimal.Decimal
}

func (a *statusAccumulator) add(status string, amount decimal.Decimal) {
	switch status {
	case constants.CommissionStatusPending:
		a.pending = a.pending.Add(amount)
	case constants.CommissionStatusLocked:
		a.locked = a.locked.Add(amount)
	case constants.CommissionStatusPaid:
		a.paid = a.paid.Add(amount)
	case constants.CommissionStatusCancelled:
		a.cancelled = a.cancelled.Add(amount)
	}
}

func (a statusAccumulator) amounts() StatusAmounts {
	return StatusAmounts{
		Pending:   models.NewMoneyFromDecimal(a.pending),
		Locked:    models.NewMoneyFromDecimal(a.locked),
		Paid:      models.NewMoneyFromDecimal(a.paid),
		Cancelled: models.NewMoneyFromDecimal(a.cancelled),
		Total:     models.NewMoneyFromDecimal(a.pending.Add(a.locked).Add(a.paid)),
	}
}

// FoldCommissionStats 汇总佣金记录
func FoldCommissionStats(records []models.CommissionRecord) CommissionStats {
	commission := statusAccumulator{}
	revenue := statusAccumulator{}
	orders := OrderCounts{}
	basic, firstOrder, tierBonus := decimal.Zero, decimal.Zero, decimal.Zero

	for i := range records {
		record := &records[i]
		commission.add(record.Status, record.TotalCommission.Decimal)
		revenue.add(record.Status, record.InvoiceAmount.Decimal)
		switch record.Status {
		case constants.CommissionStatusPending:
			orders.Pending++
		case constants.CommissionStatusLocked:
			orders.Locked++
		case constants.CommissionStatusPaid:
			orders.Paid++
		case constants.CommissionStatusCancelled:
			orders.Cancelled++
			continue
		default:
			continue
		}
		basic = basic.Add(record.BasicAmount.Decimal)
		firstOrder = firstOrder.Add(record.FirstOrderAmount.Decimal)
		tierBonus = tierBonus.Add(record.TierBonusAmount.Decimal)
	}
	orders.Total = orders.Pending + orders.Locked + orders.Paid

	return CommissionStats{
		Commission: commission.amounts(),
		Revenue:    revenue.amounts(),
		Orders:     orders,
		Breakdown: ComponentTotals{
			Basic:      models.NewMoneyFromDecimal(basic),
			FirstOrder: models.NewMoneyFromDecimal(firstOrder),
			TierBonus:  models.NewMoneyFromDecimal(tierBonus),
		},
	}
}

// FoldCommissionStatsByCustomer 按被推荐客户分组汇总
func FoldCommissionStatsByCustomer(records []models.CommissionRecord) map[string]CommissionStats {
	grouped := make(map[string][]models.CommissionRecord)
	for _, record := range records {
		grouped[record.CustomerRef] = append(grouped[record.CustomerRef], record)
	}
	out := make(map[string]CommissionStats, len(grouped))
	for ref, rows := range grouped {
		out[ref] = FoldCommissionStats(rows)
	}
	return out
}
