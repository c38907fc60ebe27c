/*
 * @module api/controllers/health_controller
 * @description 健康检查控制器，提供存活与就绪检查
 * @architecture MVC架构 - 控制器层
 * @documentReference DESIGN.md
 * @stateFlow HTTP请求处理流程
 * @rules 存活检查不访问外部依赖；就绪检查探测数据源
 * @dependencies net/http, github.com/go-chi/render
 * @refs service/dashboard/service.go
 */

package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"plantops-service/service/monitoring"
)

// ReadyChecker 就绪探测
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

// HealthController 健康检查控制器
type HealthController struct {
	checker ReadyChecker
	version string
}

// NewHealthController 创建健康检查控制器实例
func NewHealthController(checker ReadyChecker, version string) *HealthController {
	return &HealthController{checker: checker, version: version}
}

// HealthResponse 健康检查响应结构
type HealthResponse struct {
	Status    string                    `json:"status" example:"ok"`
	Timestamp time.Time                 `json:"timestamp" example:"2024-01-01T00:00:00Z"`
	Version   string                    `json:"version" example:"1.0.0"`
	Service   string                    `json:"service" example:"plantops-service"`
	Runtime   *monitoring.SystemMetrics `json:"runtime,omitempty"`
	Error     string                    `json:"error,omitempty"`
}

// Health 健康检查
// @Summary 健康检查
// @Description 检查服务健康状态
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	runtime := monitoring.CollectSystemMetrics()
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   c.version,
		Service:   "plantops-service",
		Runtime:   &runtime,
	}

	render.JSON(w, r, response)
}

// Ready 就绪检查
// @Summary 就绪检查
// @Description 检查数据源是否可用
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /ready [get]
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   c.version,
		Service:   "plantops-service",
	}

	if c.checker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := c.checker.Ready(ctx); err != nil {
			response.Status = "unavailable"
			response.Error = err.Error()
			render.Status(r, http.StatusServiceUnavailable)
		}
	}

	render.JSON(w, r, response)
}
