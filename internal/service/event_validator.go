package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/models"

	"github.com/go-playground/validator/v10"
)

var eventValidate = validator.New(validator.WithRequiredStructEnabled())

// OrderEvent 外部订单/发票事件
type OrderEvent struct {
	InvoiceCode       string       `json:"invoice_code" validate:"required,max=64"`
	InvoiceAmount     models.Money `json:"invoice_amount"`
	InvoiceDate       time.Time    `json:"invoice_date"`
	InvoiceStatus     string       `json:"invoice_status" validate:"required,oneof=draft pending paid completed cancelled"`
	PartnerReference  string       `json:"partner_reference" validate:"required,max=64"`
	CustomerReference string       `json:"referred_customer_reference" validate:"required,max=64"`
	IsFirstOrder      bool         `json:"is_first_order"`
	CustomerName      string       `json:"customer_name" validate:"max=120"`
	CustomerPhone     string       `json:"customer_phone" validate:"max=32"`
	VoucherCode       string       `json:"voucher_code" validate:"max=64"`
	CancelledAt       *time.Time   `json:"cancelled_at,omitempty"`
}

// CancelEvent 发票取消事件
type CancelEvent struct {
	InvoiceCode string    `json:"invoice_code" validate:"required,max=64"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason" validate:"max=255"`
}

// normalize 清理事件字段
func (e *OrderEvent) normalize() {
	e.InvoiceCode = strings.TrimSpace(e.InvoiceCode)
	e.InvoiceStatus = strings.ToLower(strings.TrimSpace(e.InvoiceStatus))
	e.PartnerReference = strings.TrimSpace(e.PartnerReference)
	e.CustomerReference = strings.TrimSpace(e.CustomerReference)
	e.CustomerName = strings.TrimSpace(e.CustomerName)
	e.CustomerPhone = strings.TrimSpace(e.CustomerPhone)
	e.VoucherCode = strings.ToUpper(strings.TrimSpace(e.VoucherCode))
}

// ValidateOrderEvent 校验订单事件
func ValidateOrderEvent(event *OrderEvent) error {
	if event == nil {
		return ErrInvalidOrderEvent
	}
	event.normalize()
	if err := eventValidate.Struct(event); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidOrderEvent, DescribeValidationError(err))
	}
	if event.InvoiceDate.IsZero() {
		return fmt.Errorf("%w: invoice_date is required", ErrInvalidOrderEvent)
	}
	if event.InvoiceStatus != constants.InvoiceStatusCancelled && event.InvoiceAmount.Decimal.IsNegative() {
		return fmt.Errorf("%w: invoice_amount must not be negative", ErrInvalidOrderEvent)
	}
	return nil
}

// ValidateCancelEvent 校验取消事件
func ValidateCancelEvent(event *CancelEvent) error {
	if event == nil {
		return ErrInvalidCancelEvent
	}
	event.InvoiceCode = strings.TrimSpace(event.InvoiceCode)
	event.Reason = strings.TrimSpace(event.Reason)
	if err := eventValidate.Struct(event); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCancelEvent, DescribeValidationError(err))
	}
	return nil
}

// isQualifyingInvoiceStatus 发票状态是否可以产生佣金
func isQualifyingInvoiceStatus(status string) bool {
	return status == constants.InvoiceStatusPaid || status == constants.InvoiceStatusCompleted
}

// DescribeValidationError 把字段校验错误转成可读描述，其它错误原样返回
func DescribeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
