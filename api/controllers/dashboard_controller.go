/*
 * @module api/controllers/dashboard_controller
 * @description 看板控制器，按月份与工厂范围从数据源拉取快照并返回看板视图
 * @architecture MVC架构 - 控制器层
 * @documentReference DESIGN.md
 * @stateFlow 解析查询参数 -> 看板服务 -> 统一响应
 * @rules 查询条件错误返回400，数据源错误返回500
 * @dependencies github.com/spf13/cast
 * @refs service/dashboard
 */

package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cast"

	"plantops-service/service/dashboard"
	"plantops-service/service/models"
)

// DashboardReader 看板查询能力
type DashboardReader interface {
	Compliance(ctx context.Context, query dashboard.Query) (*dashboard.ComplianceView, error)
	Analysis(ctx context.Context, query dashboard.Query) (*dashboard.AnalysisView, error)
	Rankings(ctx context.Context, query dashboard.Query) (*dashboard.RankingView, error)
	DailyReport(ctx context.Context, scope dashboard.Query, day time.Time) (*dashboard.DailyReport, error)
}

// DashboardController 看板控制器
type DashboardController struct {
	reader DashboardReader
}

// NewDashboardController 创建看板控制器
func NewDashboardController(reader DashboardReader) *DashboardController {
	return &DashboardController{reader: reader}
}

// parseQuery 解析看板查询参数
func parseQuery(r *http.Request) (dashboard.Query, error) {
	values := r.URL.Query()
	query := dashboard.Query{
		Month:    strings.TrimSpace(values.Get("month")),
		Category: values.Get("category"),
		Unit:     values.Get("unit"),
		Material: values.Get("material"),
	}
	if raw := strings.TrimSpace(values.Get("top_n")); raw != "" {
		topN, err := cast.ToIntE(raw)
		if err != nil {
			return query, errors.New("top_n 必须是整数")
		}
		query.TopN = topN
	}
	return query, nil
}

// writeDashboardError 根据错误类型返回400或500
func writeDashboardError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, dashboard.ErrInvalidQuery) {
		writeResponse(w, r, BadRequestResponse(msg, err))
		return
	}
	writeResponse(w, r, InternalErrorResponse(msg, err))
}

// Compliance 月度合规看板
// @Summary 月度合规看板
// @Description 按类别与单元返回当月每日合规百分比、月度平均与 QAF
// @Tags 看板
// @Produce json
// @Param month query string true "月份 YYYY-MM"
// @Param category query string true "类别"
// @Param unit query string true "工厂单元"
// @Param material query string false "物料类型 OPC/PCC"
// @Success 200 {object} APIResponse{data=dashboard.ComplianceView}
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /dashboard/compliance [get]
func (c *DashboardController) Compliance(w http.ResponseWriter, r *http.Request) {
	query, err := parseQuery(r)
	if err != nil {
		writeResponse(w, r, BadRequestResponse("请求参数错误", err))
		return
	}

	view, err := c.reader.Compliance(r.Context(), query)
	if err != nil {
		writeDashboardError(w, r, "获取合规看板失败", err)
		return
	}
	writeResponse(w, r, SuccessResponse("获取合规看板成功", view))
}

// Analysis 参数分析看板
// @Summary 参数分析看板
// @Description 每个参数的统计摘要、异常点、趋势预测以及参数间相关性
// @Tags 看板
// @Produce json
// @Param month query string true "月份 YYYY-MM"
// @Param category query string true "类别"
// @Param unit query string true "工厂单元"
// @Param material query string false "物料类型 OPC/PCC"
// @Success 200 {object} APIResponse{data=dashboard.AnalysisView}
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /dashboard/analysis [get]
func (c *DashboardController) Analysis(w http.ResponseWriter, r *http.Request) {
	query, err := parseQuery(r)
	if err != nil {
		writeResponse(w, r, BadRequestResponse("请求参数错误", err))
		return
	}

	view, err := c.reader.Analysis(r.Context(), query)
	if err != nil {
		writeDashboardError(w, r, "获取参数分析失败", err)
		return
	}
	writeResponse(w, r, SuccessResponse("获取参数分析成功", view))
}

// Rankings 操作员排行榜
// @Summary 操作员排行榜
// @Description 按类别统计操作员达成率，类别为空时返回全部类别
// @Tags 看板
// @Produce json
// @Param month query string true "月份 YYYY-MM"
// @Param category query string false "类别"
// @Param top_n query int false "名次数"
// @Success 200 {object} APIResponse{data=dashboard.RankingView}
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /dashboard/rankings [get]
func (c *DashboardController) Rankings(w http.ResponseWriter, r *http.Request) {
	query, err := parseQuery(r)
	if err != nil {
		writeResponse(w, r, BadRequestResponse("请求参数错误", err))
		return
	}

	view, err := c.reader.Rankings(r.Context(), query)
	if err != nil {
		writeDashboardError(w, r, "获取排行榜失败", err)
		return
	}
	writeResponse(w, r, SuccessResponse("获取排行榜成功", view))
}

// DailyReport 单日报告
// @Summary 单日报告
// @Description 指定日期的 QAF、月初至当日 QAF 与参数分析
// @Tags 看板
// @Produce json
// @Param date query string true "日期 YYYY-MM-DD"
// @Param category query string true "类别"
// @Param unit query string true "工厂单元"
// @Param material query string false "物料类型 OPC/PCC"
// @Success 200 {object} APIResponse{data=dashboard.DailyReport}
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /dashboard/daily-report [get]
func (c *DashboardController) DailyReport(w http.ResponseWriter, r *http.Request) {
	query, err := parseQuery(r)
	if err != nil {
		writeResponse(w, r, BadRequestResponse("请求参数错误", err))
		return
	}
	day, err := time.Parse(models.ReadingDateLayout, strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		writeResponse(w, r, BadRequestResponse("日期格式错误，应为 YYYY-MM-DD", err))
		return
	}

	report, err := c.reader.DailyReport(r.Context(), query, day)
	if err != nil {
		writeDashboardError(w, r, "获取日报失败", err)
		return
	}
	writeResponse(w, r, SuccessResponse("获取日报成功", report))
}
