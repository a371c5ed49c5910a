package service

import (
	"context"
	"errors"
	"time"

	"github.com/partnerhub/internal/logger"
	"github.com/partnerhub/internal/metrics"
	"github.com/partnerhub/internal/orders"
)

// SyncService 从外部订单源拉取发票并写入佣金引擎
type SyncService struct {
	source            orders.Source
	commissionService *CommissionService
	lookback          time.Duration
}

// NewSyncService 创建订单同步服务，source 可为 nil
func NewSyncService(source orders.Source, commissionService *CommissionService, lookback time.Duration) *SyncService {
	if lookback <= 0 {
		lookback = time.Hour
	}
	return &SyncService{source: source, commissionService: commissionService, lookback: lookback}
}

// SyncSummary 同步结果汇总
type SyncSummary struct {
	Since     time.Time `json:"since"`
	Until     time.Time `json:"until"`
	Fetched   int       `json:"fetched"`
	Created   int       `json:"created"`
	Duplicate int       `json:"duplicate"`
	Ignored   int       `json:"ignored"`
	Cancelled int       `json:"cancelled"`
	Failed    int       `json:"failed"`
}

// Enabled 是否配置了订单源
func (s *SyncService) Enabled() bool {
	return s != nil && s.source != nil
}

// Window 按回看窗口推算同步区间
func (s *SyncService) Window(now time.Time) (time.Time, time.Time) {
	return now.Add(-s.lookback), now
}

// SyncCommissions 同步时间窗口内变化的发票；单张发票失败只计数，不中断整批
func (s *SyncService) SyncCommissions(ctx context.Context, since, until time.Time) (*SyncSummary, error) {
	if !s.Enabled() {
		return nil, ErrOrderSourceUnavailable
	}
	if until.IsZero() {
		until = time.Now()
	}
	if since.IsZero() || !since.Before(until) {
		since = until.Add(-s.lookback)
	}
	invoices, err := s.source.ListUpdatedInvoices(ctx, since, until)
	if err != nil {
		if errors.Is(err, orders.ErrSourceNotConfigured) {
			return nil, ErrOrderSourceUnavailable
		}
		return nil, wrapStoreError(err)
	}

	summary := &SyncSummary{Since: since, Until: until, Fetched: len(invoices)}
	for _, invoice := range invoices {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res, err := s.commissionService.IngestOrder(ctx, invoiceToEvent(invoice), metrics.RejectSourceSync)
		if err != nil {
			summary.Failed++
			logger.Warnw("commission_sync_invoice_failed",
				"invoice_code", invoice.InvoiceCode,
				"invoice_status", invoice.InvoiceStatus,
				"error", err,
			)
			if isConfigurationError(err) {
				return summary, err
			}
			continue
		}
		switch res.Action {
		case IngestActionCreated:
			summary.Created++
		case IngestActionDuplicate:
			summary.Duplicate++
		case IngestActionCancelled:
			summary.Cancelled++
		default:
			summary.Ignored++
		}
	}
	logger.Infow("commission_sync_done",
		"since", since,
		"until", until,
		"fetched", summary.Fetched,
		"created", summary.Created,
		"duplicate", summary.Duplicate,
		"ignored", summary.Ignored,
		"cancelled", summary.Cancelled,
		"failed", summary.Failed,
	)
	return summary, nil
}

func invoiceToEvent(invoice orders.Invoice) OrderEvent {
	return OrderEvent{
		InvoiceCode:       invoice.InvoiceCode,
		InvoiceAmount:     invoice.InvoiceAmount,
		InvoiceDate:       invoice.InvoiceDate,
		InvoiceStatus:     invoice.InvoiceStatus,
		PartnerReference:  invoice.PartnerReference,
		CustomerReference: invoice.CustomerReference,
		IsFirstOrder:      invoice.IsFirstOrder,
		CustomerName:      invoice.CustomerName,
		CustomerPhone:     invoice.CustomerPhone,
		VoucherCode:       invoice.VoucherCode,
		CancelledAt:       invoice.CancelledAt,
	}
}
