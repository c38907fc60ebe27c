/*
 * @module api/middleware/metrics
 * @description HTTP 请求指标中间件，按路由模板记录请求数与耗时
 * @architecture 中间件模式 - HTTP请求拦截
 * @documentReference DESIGN.md
 * @stateFlow 包装ResponseWriter -> 下一个处理器 -> 读取路由模板 -> 记录指标
 * @rules 使用路由模板而不是原始路径作为标签，避免高基数
 * @dependencies github.com/go-chi/chi/v5
 * @refs service/monitoring/metrics.go, api/routes.go
 */

package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"plantops-service/service/monitoring"
)

// unmatchedRoute 未匹配路由的标签值
const unmatchedRoute = "unmatched"

// HTTPMetrics 返回记录请求指标的中间件
func HTTPMetrics(metrics *monitoring.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.ObserveHTTP(routePattern(r), r.Method, status, time.Since(start))
		}
		return http.HandlerFunc(fn)
	}
}

// routePattern 读取 chi 匹配到的路由模板
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return unmatchedRoute
}
