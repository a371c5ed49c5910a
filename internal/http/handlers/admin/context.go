package admin

import (
	"strconv"
	"strings"
	"time"

	handlershared "github.com/partnerhub/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

// getAdminSubject 管理员令牌的 subject，用于审计日志与操作人字段
func getAdminSubject(c *gin.Context) string {
	return c.GetString(handlershared.ContextKeyAdminSub)
}

func parseIDParam(c *gin.Context) (uint, bool) {
	return handlershared.ParseUintParam(c, "id")
}

func queryUint(c *gin.Context, key string) uint {
	value, _ := strconv.ParseUint(strings.TrimSpace(c.Query(key)), 10, 64)
	return uint(value)
}

// queryBoolPtr 未传或无法解析时返回 nil
func queryBoolPtr(c *gin.Context, key string) *bool {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &value
}

// queryTimePtr 支持 RFC3339 与 2006-01-02
func queryTimePtr(c *gin.Context, key string) *time.Time {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, time.Local); err == nil {
		return &t
	}
	return nil
}

func paginationFromQuery(c *gin.Context) (int, int) {
	return handlershared.PaginationFromQuery(c)
}
