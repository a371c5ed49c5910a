package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	moneyScale = 2
	rateScale  = 4
)

// Money 统一金额类型（保留 2 位小数）
type Money struct {
	decimal.Decimal
}

// NewMoneyFromDecimal 从 decimal 创建金额
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(moneyScale)}
}

// NewMoneyFromString 从字符串创建金额
func NewMoneyFromString(raw string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Money{}, err
	}
	return NewMoneyFromDecimal(d), nil
}

// Add 金额相加
func (m Money) Add(other Money) Money {
	return NewMoneyFromDecimal(m.Decimal.Add(other.Decimal))
}

// Neg 取反
func (m Money) Neg() Money {
	return NewMoneyFromDecimal(m.Decimal.Neg())
}

// MulRate 金额乘以比例并按币种精度取整
func (m Money) MulRate(rate Rate) Money {
	return NewMoneyFromDecimal(m.Decimal.Mul(rate.Decimal))
}

// MarshalJSON 统一输出 2 位小数的字符串
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Decimal.Round(moneyScale).StringFixed(moneyScale))
}

// UnmarshalJSON 解析金额（字符串或数字）
func (m *Money) UnmarshalJSON(b []byte) error {
	d, err := unmarshalDecimal(b)
	if err != nil {
		return err
	}
	m.Decimal = d.Round(moneyScale)
	return nil
}

// Value 用于数据库写入
func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Round(moneyScale).Value()
}

// Scan 用于数据库读取
func (m *Money) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = m.Decimal.Round(moneyScale)
	return nil
}

// String 返回 2 位小数格式
func (m Money) String() string {
	return m.Decimal.Round(moneyScale).StringFixed(moneyScale)
}

// Rate 佣金比例（小数形式，保留 4 位，例如 0.1000 表示 10%）
type Rate struct {
	decimal.Decimal
}

// NewRateFromDecimal 从 decimal 创建比例
func NewRateFromDecimal(rate decimal.Decimal) Rate {
	return Rate{Decimal: rate.Round(rateScale)}
}

// NewRateFromString 从字符串创建比例
func NewRateFromString(raw string) (Rate, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Rate{}, err
	}
	return NewRateFromDecimal(d), nil
}

// MarshalJSON 输出 4 位小数字符串
func (r Rate) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Decimal.Round(rateScale).StringFixed(rateScale))
}

// UnmarshalJSON 解析比例（字符串或数字）
func (r *Rate) UnmarshalJSON(b []byte) error {
	d, err := unmarshalDecimal(b)
	if err != nil {
		return err
	}
	r.Decimal = d.Round(rateScale)
	return nil
}

// Value 用于数据库写入
func (r Rate) Value() (driver.Value, error) {
	return r.Decimal.Round(rateScale).Value()
}

// Scan 用于数据库读取
func (r *Rate) Scan(value interface{}) error {
	if err := r.Decimal.Scan(value); err != nil {
		return err
	}
	r.Decimal = r.Decimal.Round(rateScale)
	return nil
}

// String 返回 4 位小数格式
func (r Rate) String() string {
	return r.Decimal.Round(rateScale).StringFixed(rateScale)
}

func unmarshalDecimal(b []byte) (decimal.Decimal, error) {
	if len(b) == 0 || string(b) == "null" {
		return decimal.Zero, nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return decimal.Zero, err
		}
		if strings.TrimSpace(s) == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(strings.TrimSpace(s))
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(f), nil
}
