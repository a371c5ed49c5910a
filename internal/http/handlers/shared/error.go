package shared

import (
	"github.com/partnerhub/internal/http/response"
	"github.com/partnerhub/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 携带 request_id 的日志实例
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if id := c.GetString("request_id"); id != "" {
		return logger.SW("request_id", id)
	}
	return logger.S()
}

// RespondError 返回指定业务码的错误
func RespondError(c *gin.Context, code int, msg string, err error) {
	respond(c, response.WrapError(code, msg, err))
}

// RespondBindError 请求体或参数校验失败
func RespondBindError(c *gin.Context, err error) {
	respond(c, response.FromBindError(err))
}

// RespondServiceError 按 service 错误分类返回响应
func RespondServiceError(c *gin.Context, err error) {
	respond(c, response.FromServiceError(err))
}

// respond 5xx 记 error，其余客户端错误只记 debug
func respond(c *gin.Context, appErr *response.AppError) {
	if appErr == nil {
		return
	}
	log := RequestLog(c)
	switch {
	case appErr.Code >= response.CodeInternal:
		log.Errorw("handler_error", "code", appErr.Code, "message", appErr.Message, "error", appErr.Err)
	case appErr.Err != nil:
		log.Debugw("handler_rejected", "code", appErr.Code, "error", appErr.Err)
	}
	response.Error(c, appErr.Code, appErr.Message)
}
