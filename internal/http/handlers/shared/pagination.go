package shared

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// NormalizePagination 归一化分页参数。
func NormalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// PaginationFromQuery 读取 page / page_size（兼容 limit）。
func PaginationFromQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size := c.Query("page_size")
	if size == "" {
		size = c.DefaultQuery("limit", "20")
	}
	pageSize, _ := strconv.Atoi(size)
	return NormalizePagination(page, pageSize)
}
