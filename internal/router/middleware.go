package router

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/partnerhub/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
	maxRequestIDLen = 128
)

// 探活与指标抓取频繁，访问日志降为 debug
var quietPaths = map[string]struct{}{
	"/healthz": {},
	"/metrics": {},
}

// RequestIDMiddleware 沿用调用方传入的请求 ID，缺失或过长时重新生成
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// LoggerMiddleware 访问日志，按响应状态选择级别
func LoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.L()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := accessLogLevel(c.Request.URL.Path, status, len(c.Errors) > 0)
		ce := log.Check(level, "request")
		if ce == nil {
			return
		}
		fields := []zap.Field{
			zap.String("request_id", getRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		ce.Write(fields...)
	}
}

func accessLogLevel(path string, status int, hasErrors bool) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError || hasErrors:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	}
	if _, quiet := quietPaths[path]; quiet {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

// RecoveryMiddleware 捕获 panic，记录堆栈并返回 500 信封
func RecoveryMiddleware(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.L()
	}
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			log.Error("panic_recovered",
				zap.String("request_id", getRequestID(c)),
				zap.String("path", c.Request.URL.Path),
				zap.String("panic", fmt.Sprint(recovered)),
				zap.Stack("stack"),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.ErrorWithStatus(c, http.StatusInternalServerError, response.CodeInternal, "internal error")
			c.Abort()
		}()
		c.Next()
	}
}
