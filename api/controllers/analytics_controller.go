/*
 * @module api/controllers/analytics_controller
 * @description 分析计算控制器，对调用方提供的快照直接执行分析核心
 * @architecture MVC架构 - 控制器层
 * @documentReference DESIGN.md
 * @stateFlow 解析请求快照 -> 分析核心 -> 统一响应
 * @rules 不访问数据源；空输入返回空结果而不是错误
 * @dependencies github.com/go-chi/render
 * @refs service/analytics
 */

package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"plantops-service/service/analytics"
	"plantops-service/service/models"
	"plantops-service/service/monitoring"
)

// AnalyticsController 分析计算控制器
type AnalyticsController struct {
	metrics *monitoring.Metrics
}

// NewAnalyticsController 创建分析计算控制器
func NewAnalyticsController(metrics *monitoring.Metrics) *AnalyticsController {
	return &AnalyticsController{metrics: metrics}
}

// ComplianceRequest 合规计算请求
type ComplianceRequest struct {
	Parameters []models.Parameter     `json:"parameters"`
	Readings   []models.HourlyReading `json:"readings"`
	Material   string                 `json:"material" example:"OPC"`
}

// SeriesRequest 序列分析请求，null 表示缺失值
type SeriesRequest struct {
	Series []*float64 `json:"series"`
}

// ForecastRequest 预测请求
type ForecastRequest struct {
	Series []*float64       `json:"series"`
	Bounds analytics.Bounds `json:"bounds"`
}

// CorrelationRequest 相关性请求
type CorrelationRequest struct {
	Series []analytics.ParameterSeries `json:"series"`
}

// RankingRequest 排名请求
type RankingRequest struct {
	Parameters []models.Parameter     `json:"parameters"`
	Readings   []models.HourlyReading `json:"readings"`
	Operators  []models.Operator      `json:"operators"`
	TopN       int                    `json:"top_n" example:"4"`
}

// Compliance 计算合规表
// @Summary 计算合规表
// @Description 按物料上下文计算每日合规百分比、月度平均与日/月 QAF
// @Tags 分析计算
// @Accept json
// @Produce json
// @Param request body ComplianceRequest true "参数与小时读数"
// @Success 200 {object} APIResponse{data=analytics.ComplianceTable}
// @Failure 400 {object} APIResponse
// @Router /analytics/compliance [post]
func (c *AnalyticsController) Compliance(w http.ResponseWriter, r *http.Request) {
	var req ComplianceRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeResponse(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}

	start := time.Now()
	table := analytics.BuildComplianceTable(req.Parameters, req.Readings, analytics.ParseMaterialType(req.Material))
	c.metrics.ObserveCompute("compliance", start)

	writeResponse(w, r, SuccessResponse("计算合规表成功", table))
}

// Statistics 计算统计摘要
// @Summary 计算统计摘要
// @Tags 分析计算
// @Accept json
// @Produce json
// @Param request body SeriesRequest true "序列"
// @Success 200 {object} APIResponse{data=analytics.StatisticsSummary}
// @Failure 400 {object} APIResponse
// @Router /analytics/statistics [post]
func (c *AnalyticsController) Statistics(w http.ResponseWriter, r *http.Request) {
	var req SeriesRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeResponse(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}

	start := time.Now()
	summary := analytics.ComputeStatistics(req.Series)
	c.metrics.ObserveCompute("statistics", start)

	writeResponse(w, r, SuccessResponse("计算统计摘要成功", summary))
}

// Anomalies 异常检测
// @Summary 异常检测
// @Description 3σ 离群点检测
// @Tags 分析计算
// @Accept json
// @Produce json
// @Param request body SeriesRequest true "序列"
// @Success 200 {object} APIResponse{data=analytics.AnomalyReport}
// @Failure 400 {object} APIResponse
// @Router /analytics/anomalies [post]
func (c *AnalyticsController) Anomalies(w http.ResponseWriter, r *http.Request) {
	var req SeriesRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeResponse(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}

	start := time.Now()
	report := analytics.DetectAnomalies(req.Series)
	c.metrics.ObserveCompute("anomalies", start)

	writeResponse(w, r, SuccessResponse("异常检测成功", report))
}

// Correlations 相关性矩阵
// @Summary 相关性矩阵
// @Tags 分析计算
// @Accept json
// @Produce json
// @Param request body CorrelationRequest true "参数日序列"
// @Success 200 {object} APIResponse{data=[]analytics.CorrelationPair}
// @Failure 400 {object} APIResponse
// @Router /analytics/correlations [post]
func (c *AnalyticsController) Correlations(w http.ResponseWriter, r *http.Request) {
	var req CorrelationRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeResponse(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}

	start := time.Now()
	pairs, err := analytics.ComputeCorrelationMatrix(req.Series)
	c.metrics.ObserveCompute("correlations", start)
	if err != nil {
		writeResponse(w, r, BadRequestResponse("计算相关性失败", err))
		return
	}

	writeResponse(w, r, SuccessResponse("计算相关性成功", pairs))
}

// Forecast 趋势预测
// @Summary 趋势预测
// @Description 线性趋势外推7天并评估越界风险
// @Tags 分析计算
// @Accept json
// @Produce json
// @Param request body ForecastRequest true "序列与目标范围"
// @Success 200 {object} APIResponse{data=analytics.ForecastResult}
// @Failure 400 {object} APIResponse
// @Router /analytics/forecast [post]
func (c *AnalyticsController) Forecast(w http.ResponseWriter, r *http.Request) {
	var req ForecastRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeResponse(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}

	start := time.Now()
	result := analytics.Forecast(req.Series, req.Bounds)
	c.metrics.ObserveCompute("forecast", start)

	writeResponse(w, r, SuccessResponse("趋势预测成功", result))
}

// Rankings 操作员排名
// @Summary 操作员达成率排名
// @Tags 分析计算
// @Accept json
// @Produce json
// @Param request body RankingRequest true "读数、参数与操作员"
// @Success 200 {object} APIResponse{data=[]analytics.CategoryRanking}
// @Failure 400 {object} APIResponse
// @Router /analytics/rankings [post]
func (c *AnalyticsController) Rankings(w http.ResponseWriter, r *http.Request) {
	var req RankingRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeResponse(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}
	if req.TopN < 0 {
		writeResponse(w, r, BadRequestResponse("top_n 不能为负数", nil))
		return
	}

	start := time.Now()
	rankings := analytics.RankOperators(req.Readings, req.Parameters, req.Operators, analytics.RankingOptions{TopN: req.TopN})
	c.metrics.ObserveCompute("ranking", start)

	writeResponse(w, r, SuccessResponse("计算排名成功", rankings))
}
