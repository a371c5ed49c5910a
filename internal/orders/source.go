package orders

import (
	"context"
	"errors"
	"time"

	"github.com/partnerhub/internal/models"
)

// ErrSourceNotConfigured 未配置外部订单源
var ErrSourceNotConfigured = errors.New("order source is not configured")

// Invoice 外部订单源返回的发票
type Invoice struct {
	InvoiceCode       string       `json:"invoice_code"`
	InvoiceAmount     models.Money `json:"invoice_amount"`
	InvoiceDate       time.Time    `json:"invoice_date"`
	InvoiceStatus     string       `json:"invoice_status"`
	PartnerReference  string       `json:"partner_reference"`
	CustomerReference string       `json:"referred_customer_reference"`
	CustomerName      string       `json:"customer_name"`
	CustomerPhone     string       `json:"customer_phone"`
	VoucherCode       string       `json:"voucher_code"`
	IsFirstOrder      bool         `json:"is_first_order"`
	CancelledAt       *time.Time   `json:"cancelled_at,omitempty"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Source 外部订单源
type Source interface {
	// ListUpdatedInvoices 返回 [since, until] 内有变化的发票
	ListUpdatedInvoices(ctx context.Context, since, until time.Time) ([]Invoice, error)
}
