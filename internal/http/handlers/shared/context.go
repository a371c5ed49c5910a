package shared

import (
	"strconv"
	"strings"

	"github.com/partnerhub/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 鉴权中间件写入的上下文 key
const (
	ContextKeyPartnerID   = "partner_id"
	ContextKeyPartnerCode = "partner_code"
	ContextKeyAdminSub    = "admin_subject"
)

// GetContextUint 读取鉴权中间件写入的 ID，缺失时按未登录处理
func GetContextUint(c *gin.Context, key string) (uint, bool) {
	raw, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return 0, false
	}
	id, ok := raw.(uint)
	if !ok || id == 0 {
		RespondError(c, response.CodeInternal, key+" type invalid", nil)
		return 0, false
	}
	return id, true
}

// ParseUintParam 解析正整数路径参数，失败时写入 400
func ParseUintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id == 0 {
		RespondError(c, response.CodeBadRequest, name+" invalid", nil)
		return 0, false
	}
	return uint(id), true
}
