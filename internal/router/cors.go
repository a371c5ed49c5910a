package router

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/partnerhub/internal/config"

	"github.com/gin-gonic/gin"
)

var (
	defaultCORSMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	defaultCORSHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Webhook-Signature"}
)

// corsPolicy 预先计算好的跨域响应头
type corsPolicy struct {
	origins     []string
	credentials bool
	methods     string
	headers     string
	maxAge      string
}

func newCORSPolicy(cfg config.CORSConfig) corsPolicy {
	p := corsPolicy{
		origins:     cfg.AllowedOrigins,
		credentials: cfg.AllowCredentials,
		methods:     strings.Join(orDefault(cfg.AllowedMethods, defaultCORSMethods), ", "),
		headers:     strings.Join(orDefault(cfg.AllowedHeaders, defaultCORSHeaders), ", "),
	}
	if len(p.origins) == 0 {
		p.origins = []string{"*"}
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

func (p corsPolicy) apply(h http.Header, origin string) {
	if allowed := resolveAllowedOrigin(origin, p.origins, p.credentials); allowed != "" {
		h.Set("Access-Control-Allow-Origin", allowed)
		if allowed != "*" {
			h.Add("Vary", "Origin")
		}
	}
	if p.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	h.Set("Access-Control-Allow-Methods", p.methods)
	h.Set("Access-Control-Allow-Headers", p.headers)
	if p.maxAge != "" {
		h.Set("Access-Control-Max-Age", p.maxAge)
	}
}

// CORSMiddleware 跨域中间件，预检请求直接返回 204
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	policy := newCORSPolicy(cfg)
	return func(c *gin.Context) {
		policy.apply(c.Writer.Header(), c.GetHeader("Origin"))
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// resolveAllowedOrigin 通配符在携带凭证时回显来源，否则按白名单精确匹配
func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	wildcard := false
	matched := false
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			wildcard = true
			break
		}
		if origin != "" && strings.EqualFold(allowed, origin) {
			matched = true
		}
	}
	switch {
	case wildcard && allowCredentials && origin != "":
		return origin
	case wildcard:
		return "*"
	case matched:
		return origin
	default:
		return ""
	}
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}
