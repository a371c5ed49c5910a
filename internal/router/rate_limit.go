package router

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/partnerhub/internal/http/response"
	"github.com/partnerhub/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 从请求中提取限流维度
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	// BlockSeconds 首次超限后封禁时长，0 表示等窗口过期
	BlockSeconds int
	// RealStatus 为 true 时返回真实 429/503，否则走 200 信封
	RealStatus bool
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

// KEYS[1]=计数键 ARGV: window, max, block；返回 {count, ttl}
var fixedWindowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local block = tonumber(ARGV[3])
if block > 0 and n == tonumber(ARGV[2]) + 1 then
	redis.call("EXPIRE", KEYS[1], block)
end
return {n, redis.call("TTL", KEYS[1])}
`)

// rateDecision 单次计数结果
type rateDecision struct {
	count int64
	ttl   int64
}

func (d rateDecision) exceeded(rule RateLimitRule) bool {
	return d.count > int64(rule.MaxRequests)
}

func countRequest(ctx context.Context, client *redis.Client, key string, rule RateLimitRule) (rateDecision, error) {
	values, err := fixedWindowScript.Run(ctx, client, []string{key},
		rule.WindowSeconds, rule.MaxRequests, rule.BlockSeconds).Int64Slice()
	if err != nil {
		return rateDecision{}, err
	}
	if len(values) < 2 {
		return rateDecision{}, fmt.Errorf("unexpected rate limit reply: %v", values)
	}
	return rateDecision{count: values[0], ttl: values[1]}, nil
}

// RateLimitMiddleware 基于 Redis 的固定窗口限流，未配置 Redis 或规则时放行
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	if client == nil || !rule.enabled() {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		key := rateLimitKey(c, rule, keyFunc)
		decision, err := countRequest(c.Request.Context(), client, key, rule)
		if err != nil {
			logger.Warnw("rate_limit_unavailable", "key", key, "error", err)
			rejectRateLimited(c, rule, http.StatusServiceUnavailable, response.CodeInternal, "rate limit unavailable")
			return
		}
		if decision.exceeded(rule) {
			wait := retryAfterSeconds(rule, decision.ttl)
			c.Header("Retry-After", strconv.Itoa(wait))
			rejectRateLimited(c, rule, http.StatusTooManyRequests, response.CodeTooManyRequests,
				fmt.Sprintf("too many requests, retry in %d seconds", wait))
			return
		}
		c.Next()
	}
}

func rateLimitKey(c *gin.Context, rule RateLimitRule, keyFunc RateLimitKeyFunc) string {
	var id string
	if keyFunc != nil {
		id = strings.TrimSpace(keyFunc(c))
	}
	if id == "" {
		id = c.ClientIP()
	}
	if rule.Prefix == "" {
		return id
	}
	return rule.Prefix + ":" + id
}

// retryAfterSeconds 优先使用键的剩余 TTL，其次封禁时长与窗口，至少 1 秒
func retryAfterSeconds(rule RateLimitRule, ttlSeconds int64) int {
	for _, candidate := range []int{int(ttlSeconds), rule.BlockSeconds, rule.WindowSeconds} {
		if candidate >= 1 {
			return candidate
		}
	}
	return 1
}

func rejectRateLimited(c *gin.Context, rule RateLimitRule, httpStatus, code int, msg string) {
	status := http.StatusOK
	if rule.RealStatus {
		status = httpStatus
	}
	response.ErrorWithStatus(c, status, code, msg)
	c.Abort()
}

// KeyByIP 按客户端 IP 限流
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}
