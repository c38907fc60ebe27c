/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference DESIGN.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers
 */

package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"plantops-service/api/controllers"
	apimw "plantops-service/api/middleware"
	"plantops-service/service/config"
	"plantops-service/service/dashboard"
	"plantops-service/service/monitoring"
	"plantops-service/service/rate_limiter"
)

// Dependencies 路由依赖
type Dependencies struct {
	Config    *config.ApplicationConfig
	Dashboard *dashboard.Service
	Metrics   *monitoring.Metrics
	Limiter   apimw.Limiter // 为 nil 时不限流
}

// rule 指定范围的限流规则
func (d Dependencies) rule(scope string) rate_limiter.Rule {
	return rate_limiter.Rule{
		Scope:       scope,
		Window:      d.Config.RateLimit.Window,
		MaxRequests: d.Config.RateLimit.MaxRequests,
	}
}

// InitRoute 初始化所有API路由
func InitRoute(r chi.Router, deps Dependencies) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apimw.HTTPMetrics(deps.Metrics))
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.CORS.AllowedOrigins,
		AllowedMethods:   deps.Config.Server.CORS.AllowedMethods,
		AllowedHeaders:   deps.Config.Server.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController(deps.Dashboard, deps.Config.App.Version)
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 分析计算，调用方提供完整快照
	r.Route("/analytics", func(r chi.Router) {
		r.Use(apimw.RateLimit(deps.Limiter, deps.rule("analytics")))
		analyticsController := controllers.NewAnalyticsController(deps.Metrics)
		r.Post("/compliance", analyticsController.Compliance)
		r.Post("/statistics", analyticsController.Statistics)
		r.Post("/anomalies", analyticsController.Anomalies)
		r.Post("/correlations", analyticsController.Correlations)
		r.Post("/forecast", analyticsController.Forecast)
		r.Post("/rankings", analyticsController.Rankings)
	})

	// 看板，从数据源读取快照
	r.Route("/dashboard", func(r chi.Router) {
		r.Use(apimw.RateLimit(deps.Limiter, deps.rule("dashboard")))
		dashboardController := controllers.NewDashboardController(deps.Dashboard)
		r.Get("/compliance", dashboardController.Compliance)
		r.Get("/analysis", dashboardController.Analysis)
		r.Get("/rankings", dashboardController.Rankings)
		r.Get("/daily-report", dashboardController.DailyReport)
	})
}
