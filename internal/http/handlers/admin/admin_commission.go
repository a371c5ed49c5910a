package admin

import (
	"strings"
	"time"

	"github.com/partnerhub/internal/http/response"
	"github.com/partnerhub/internal/repository"
	"github.com/partnerhub/internal/service"

	"github.com/gin-gonic/gin"
)

// CommissionTransitionRequest 手动状态迁移请求
type CommissionTransitionRequest struct {
	Event       string     `json:"event" binding:"required"`
	Reason      string     `json:"reason"`
	CancelledAt *time.Time `json:"cancelled_at"`
}

// ListCommissions 佣金记录列表
func (h *Handler) ListCommissions(c *gin.Context) {
	page, pageSize := paginationFromQuery(c)
	rows, total, err := h.CommissionService.ListCommissions(repository.CommissionListFilter{
		Page:            page,
		PageSize:        pageSize,
		PartnerID:       queryUint(c, "partner_id"),
		Status:          strings.TrimSpace(c.Query("status")),
		InvoiceCode:     strings.TrimSpace(c.Query("invoice_code")),
		CommissionMonth: strings.TrimSpace(c.Query("commission_month")),
		PaymentBatchID:  queryUint(c, "payment_batch_id"),
		CreatedFrom:     queryTimePtr(c, "created_from"),
		CreatedTo:       queryTimePtr(c, "created_to"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// GetCommission 佣金记录详情
func (h *Handler) GetCommission(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	record, err := h.CommissionService.GetCommission(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, record)
}

// TransitionCommission 手动执行状态迁移，非法迁移返回冲突
func (h *Handler) TransitionCommission(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req CommissionTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	event := strings.ToLower(strings.TrimSpace(req.Event))
	record, err := h.CommissionService.TransitionCommission(c.Request.Context(), id, event, service.TransitionOptions{
		Reason:      strings.TrimSpace(req.Reason),
		CancelledAt: req.CancelledAt,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_commission_transition",
		"commission_id", id,
		"event", event,
		"status", record.Status,
		"admin", getAdminSubject(c),
	)
	response.Success(c, record)
}
