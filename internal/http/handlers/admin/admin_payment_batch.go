package admin

import (
	"strings"

	"github.com/partnerhub/internal/http/response"
	"github.com/partnerhub/internal/repository"
	"github.com/partnerhub/internal/service"

	"github.com/gin-gonic/gin"
)

// AttachRecordsRequest 追加佣金记录请求
type AttachRecordsRequest struct {
	RecordIDs []uint `json:"record_ids" binding:"required"`
}

// CreatePaymentBatch 选取已锁定佣金创建付款批次
func (h *Handler) CreatePaymentBatch(c *gin.Context) {
	var req service.CreatePaymentBatchInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.CreatedBy = getAdminSubject(c)
	res, err := h.PaymentBatchService.CreatePaymentBatch(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_payment_batch_created",
		"batch_id", res.Batch.ID,
		"batch_code", res.Batch.BatchCode,
		"records", len(res.Records),
		"admin", req.CreatedBy,
	)
	response.Success(c, res)
}

// AttachToPaymentBatch 向未完成批次追加佣金记录
func (h *Handler) AttachToPaymentBatch(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req AttachRecordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res, err := h.PaymentBatchService.AttachToPaymentBatch(c.Request.Context(), id, req.RecordIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, res)
}

// CompletePaymentBatch 完成付款批次
func (h *Handler) CompletePaymentBatch(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	batch, err := h.PaymentBatchService.CompletePaymentBatch(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_payment_batch_completed", "batch_id", id, "admin", getAdminSubject(c))
	response.Success(c, batch)
}

// GetPaymentBatch 付款批次详情
func (h *Handler) GetPaymentBatch(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	res, err := h.PaymentBatchService.GetPaymentBatch(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, res)
}

// ListPaymentBatches 付款批次列表
func (h *Handler) ListPaymentBatches(c *gin.Context) {
	page, pageSize := paginationFromQuery(c)
	rows, total, err := h.PaymentBatchService.ListPaymentBatches(repository.PaymentBatchListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
		Code:     strings.TrimSpace(c.Query("code")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}
