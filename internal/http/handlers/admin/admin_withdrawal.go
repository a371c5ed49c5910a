package admin

import (
	"strings"

	"github.com/partnerhub/internal/http/response"
	"github.com/partnerhub/internal/repository"

	"github.com/gin-gonic/gin"
)

// WithdrawalReviewRequest 提现审核请求
type WithdrawalReviewRequest struct {
	Action       string `json:"action" binding:"required"`
	RejectReason string `json:"reject_reason"`
}

// ListWithdrawals 提现申请列表
func (h *Handler) ListWithdrawals(c *gin.Context) {
	page, pageSize := paginationFromQuery(c)
	rows, total, err := h.WithdrawalService.ListWithdrawals(repository.WithdrawalListFilter{
		Page:      page,
		PageSize:  pageSize,
		PartnerID: queryUint(c, "partner_id"),
		Status:    strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// ReviewWithdrawal 审核提现申请，通过由付款批次完成
func (h *Handler) ReviewWithdrawal(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req WithdrawalReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	row, err := h.WithdrawalService.ReviewWithdrawal(c.Request.Context(), id, req.Action, req.RejectReason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_withdrawal_reviewed",
		"withdrawal_id", id,
		"action", req.Action,
		"admin", getAdminSubject(c),
	)
	response.Success(c, row)
}
