/*
 * @module service/scheduler/report_scheduler
 * @description 日报调度器：按 Cron 计算前一日各范围的 QAF、异常与预测风险，生成告警并投递
 * @architecture 基于 robfig/cron 的调度器模式
 * @documentReference DESIGN.md
 * @stateFlow Cron触发 -> 登记日期 -> 逐范围生成日报 -> 构建告警 -> 投递到全部通道 -> 写入完成标记
 * @rules 多实例部署时同一日期只成功执行一次，完成标记保留期内后续实例直接跳过；全部范围失败时撤销登记以便重试；单个范围或通道失败不影响其他范围与通道；告警只投递不落库
 * @dependencies github.com/robfig/cron/v3, github.com/google/uuid
 * @refs service/dashboard/service.go, client/connectors/publisher.go, service/distributed_lock/redis_lock.go
 */

package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"plantops-service/client/connectors"
	"plantops-service/service/analytics"
	"plantops-service/service/config"
	"plantops-service/service/dashboard"
	"plantops-service/service/distributed_lock"
	"plantops-service/service/models"
	"plantops-service/service/monitoring"
)

// AlertType 告警类型
type AlertType string

const (
	AlertLowQAF       AlertType = "low_qaf"
	AlertAnomaly      AlertType = "anomaly"
	AlertForecastRisk AlertType = "forecast_risk"
)

// Alert 告警消息
type Alert struct {
	ID            string    `json:"id"`
	RunID         string    `json:"run_id"`
	Type          AlertType `json:"type"`
	Severity      string    `json:"severity"`
	Date          string    `json:"date"`
	Category      string    `json:"category"`
	Unit          string    `json:"unit"`
	Material      string    `json:"material,omitempty"`
	ParameterID   string    `json:"parameter_id,omitempty"`
	ParameterName string    `json:"parameter_name,omitempty"`
	Value         *float64  `json:"value"`
	Threshold     *float64  `json:"threshold,omitempty"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReportSource 日报数据来源
type ReportSource interface {
	DailyReport(ctx context.Context, scope dashboard.Query, day time.Time) (*dashboard.DailyReport, error)
}

// RunSummary 一次日报执行的汇总
type RunSummary struct {
	RunID         string  `json:"run_id"`
	Date          string  `json:"date"`
	Skipped       bool    `json:"skipped"`
	Scopes        int     `json:"scopes"`
	FailedScopes  int     `json:"failed_scopes"`
	Alerts        []Alert `json:"alerts"`
	PublishErrors int     `json:"publish_errors"`
}

// ReportScheduler 日报调度器
type ReportScheduler struct {
	cfg        config.ReportConfig
	reports    ReportSource
	publishers []connectors.Publisher
	once       *distributed_lock.OnceRunner
	metrics    *monitoring.Metrics
	cron       *cron.Cron
	now        func() time.Time
	ctx        context.Context
	cancel     context.CancelFunc
	running    sync.Mutex
}

// NewReportScheduler 创建日报调度器，ledger 为 nil 时不做跨实例防重
func NewReportScheduler(cfg config.ReportConfig, reports ReportSource, publishers []connectors.Publisher, ledger distributed_lock.RunLedger, metrics *monitoring.Metrics) *ReportScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &ReportScheduler{
		cfg:        cfg,
		reports:    reports,
		publishers: publishers,
		metrics:    metrics,
		cron:       cron.New(cron.WithSeconds()),
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
	if ledger != nil {
		s.once = distributed_lock.NewOnceRunner(ledger)
	}
	return s
}

// Start 注册 Cron 任务并启动
func (s *ReportScheduler) Start() error {
	_, err := s.cron.AddFunc(s.cfg.Cron, func() {
		if _, err := s.RunOnce(s.ctx); err != nil {
			slog.Error("日报任务执行失败", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("添加Cron任务失败: %w", err)
	}

	s.cron.Start()
	slog.Info("日报调度器启动完成", "cron", s.cfg.Cron, "scopes", len(s.cfg.Scopes), "publishers", len(s.publishers))
	return nil
}

// Stop 停止调度器并等待正在执行的任务结束
func (s *ReportScheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	slog.Info("日报调度器已停止")
}

// RunOnce 计算前一日日报并投递告警
func (s *ReportScheduler) RunOnce(ctx context.Context) (*RunSummary, error) {
	day := s.now().AddDate(0, 0, -1)
	return s.RunForDate(ctx, day)
}

// RunForDate 计算指定日期的日报并投递告警
func (s *ReportScheduler) RunForDate(ctx context.Context, day time.Time) (*RunSummary, error) {
	s.running.Lock()
	defer s.running.Unlock()

	summary := &RunSummary{
		RunID:   uuid.New().String(),
		Date:    day.Format(models.ReadingDateLayout),
		Skipped: true,
		Alerts:  []Alert{},
	}

	var runErr error
	run := func(ctx context.Context) error {
		summary.Skipped = false
		runErr = s.run(ctx, day, summary)
		// 已有范围投递过告警时视为完成，避免重试造成重复告警
		if runErr != nil && summary.FailedScopes == summary.Scopes {
			return runErr
		}
		return nil
	}

	if s.once != nil {
		opts := distributed_lock.OnceOptions{TTL: s.cfg.LockTTL, Retain: s.cfg.Retention}
		if opts.TTL <= 0 {
			opts.TTL = 10 * time.Minute
		}
		if opts.Retain < 24*time.Hour {
			opts.Retain = 48 * time.Hour
		}
		if _, err := s.once.Run(ctx, "daily_report:"+summary.Date, opts, run); err != nil && runErr == nil {
			s.metrics.ReportRun("failed")
			return summary, err
		}
	} else {
		_ = run(ctx)
	}

	switch {
	case summary.Skipped:
		slog.Info("日报已由其他实例执行，跳过", "date", summary.Date)
		s.metrics.ReportRun("skipped")
	case runErr != nil:
		s.metrics.ReportRun("failed")
	default:
		s.metrics.ReportRun("success")
	}
	return summary, runErr
}

func (s *ReportScheduler) run(ctx context.Context, day time.Time, summary *RunSummary) error {
	if len(s.cfg.Scopes) == 0 {
		slog.Warn("未配置日报范围", "date", summary.Date)
		return nil
	}

	var errs []error
	for _, scope := range s.cfg.Scopes {
		summary.Scopes++
		query := dashboard.Query{Category: scope.Category, Unit: scope.Unit, Material: scope.Material}

		report, err := s.reports.DailyReport(ctx, query, day)
		if err != nil {
			summary.FailedScopes++
			errs = append(errs, fmt.Errorf("生成日报失败 [%s/%s]: %w", scope.Category, scope.Unit, err))
			continue
		}

		alerts := BuildAlerts(report, s.cfg.QAFThreshold, summary.RunID, s.now())
		for _, alert := range alerts {
			summary.PublishErrors += s.publish(ctx, alert)
		}
		summary.Alerts = append(summary.Alerts, alerts...)

		slog.Info("日报范围处理完成",
			"date", summary.Date,
			"category", report.Category,
			"unit", report.Unit,
			"alerts", len(alerts))
	}

	slog.Info("日报任务完成",
		"run_id", summary.RunID,
		"date", summary.Date,
		"scopes", summary.Scopes,
		"failed_scopes", summary.FailedScopes,
		"alerts", len(summary.Alerts),
		"publish_errors", summary.PublishErrors)
	return errors.Join(errs...)
}

// publish 投递到全部通道，返回失败次数
func (s *ReportScheduler) publish(ctx context.Context, alert Alert) int {
	payload, err := json.Marshal(alert)
	if err != nil {
		slog.Error("序列化告警失败", "alert_id", alert.ID, "error", err)
		return len(s.publishers)
	}

	failures := 0
	key := alertKey(alert)
	for _, p := range s.publishers {
		err := p.Publish(ctx, key, payload)
		s.metrics.AlertPublished(p.Name(), string(alert.Type), err)
		if err != nil {
			failures++
			slog.Error("告警投递失败", "channel", p.Name(), "alert_id", alert.ID, "error", err)
		}
	}
	return failures
}

// alertKey 消息key：小写的 类别-单元，空格替换为连字符
func alertKey(alert Alert) string {
	key := strings.ToLower(strings.TrimSpace(alert.Category) + "-" + strings.TrimSpace(alert.Unit))
	return strings.Join(strings.Fields(key), "-")
}

// BuildAlerts 根据日报构建告警
// 日QAF低于阈值、参数异常严重程度为 high、数据充分且预测风险为 high 时产生告警
func BuildAlerts(report *dashboard.DailyReport, qafThreshold float64, runID string, now time.Time) []Alert {
	alerts := make([]Alert, 0)
	if report == nil {
		return alerts
	}

	base := func(t AlertType, severity string) Alert {
		return Alert{
			ID:        uuid.New().String(),
			RunID:     runID,
			Type:      t,
			Severity:  severity,
			Date:      report.Date,
			Category:  report.Category,
			Unit:      report.Unit,
			Material:  string(report.Material),
			CreatedAt: now,
		}
	}

	if v := report.DailyQAF.Value; v != nil && *v < qafThreshold {
		severity := "medium"
		if *v < qafThreshold/2 {
			severity = "high"
		}
		alert := base(AlertLowQAF, severity)
		alert.Value = v
		threshold := qafThreshold
		alert.Threshold = &threshold
		alert.Message = fmt.Sprintf("%s %s 日QAF %.1f%% 低于阈值 %.1f%%", report.Category, report.Unit, *v, qafThreshold)
		alerts = append(alerts, alert)
	}

	for _, p := range report.Parameters {
		if p.Anomalies.Severity == analytics.SeverityHigh {
			alert := base(AlertAnomaly, string(analytics.SeverityHigh))
			alert.ParameterID = p.ParameterID
			alert.ParameterName = p.ParameterName
			count := float64(p.Anomalies.Count)
			alert.Value = &count
			alert.Message = fmt.Sprintf("%s 月内出现 %d 个离群点", p.ParameterName, p.Anomalies.Count)
			alerts = append(alerts, alert)
		}

		if p.Forecast.Sufficient && p.Forecast.Risk == analytics.RiskHigh {
			alert := base(AlertForecastRisk, string(analytics.RiskHigh))
			alert.ParameterID = p.ParameterID
			alert.ParameterName = p.ParameterName
			alert.Value = p.Forecast.Forecast
			alert.Message = fmt.Sprintf("%s 预计 %d 天后超出目标范围", p.ParameterName, p.Forecast.Horizon)
			alerts = append(alerts, alert)
		}
	}
	return alerts
}
