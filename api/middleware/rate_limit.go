/*
 * @module api/middleware/rate_limit
 * @description 按客户端地址限流的中间件，计数保存在Redis中由多实例共享
 * @architecture 中间件模式 - HTTP请求拦截
 * @documentReference DESIGN.md
 * @stateFlow 提取客户端地址 -> 限流检查 -> 写入限流响应头 -> 下一个处理器或429
 * @rules Redis故障时放行请求，只记录警告
 * @dependencies github.com/go-chi/render
 * @refs service/rate_limiter/redis_rate_limiter.go, api/routes.go
 */

package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	"plantops-service/service/rate_limiter"
)

// Limiter 限流检查能力
type Limiter interface {
	Allow(ctx context.Context, rule rate_limiter.Rule, clientID string) (*rate_limiter.Result, error)
}

// RateLimit 返回限流中间件，limiter 为 nil 时直接放行
func RateLimit(limiter Limiter, rule rate_limiter.Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		fn := func(w http.ResponseWriter, r *http.Request) {
			result, err := limiter.Allow(r.Context(), rule, clientAddr(r))
			if err != nil {
				slog.Warn("限流检查失败，已放行请求", "scope", rule.Scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))
			if !result.Allowed {
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, map[string]interface{}{
					"status": http.StatusTooManyRequests,
					"msg":    "请求过于频繁，请稍后重试",
				})
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

// clientAddr 客户端地址，去掉端口
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
