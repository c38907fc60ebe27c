/*
 * @module service/monitoring/metrics
 * @description Prometheus 指标定义与记录，覆盖分析计算、数据源查询、缓存、日报告警与HTTP请求
 * @architecture 分层架构 - 监控基础设施
 * @documentReference DESIGN.md
 * @stateFlow 指标注册 -> 业务记录 -> /metrics 暴露
 * @rules 标签取值必须是有限集合，禁止把参数名、操作员名等自由文本作为标签
 * @dependencies github.com/prometheus/client_golang/prometheus
 * @refs main.go, service/dashboard/service.go, service/scheduler/report_scheduler.go
 */

package monitoring

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "plantops"

// Metrics 服务指标集合
type Metrics struct {
	ComputeDuration  *prometheus.HistogramVec
	SourceRequests   *prometheus.CounterVec
	SourceDuration   *prometheus.HistogramVec
	CacheLookups     *prometheus.CounterVec
	ReportRuns       *prometheus.CounterVec
	AlertsPublished  *prometheus.CounterVec
	MonthlyQAF       *prometheus.GaugeVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	InvalidateEvents prometheus.Counter
}

// NewMetrics 创建指标并注册到 reg，reg 为 nil 时不注册
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ComputeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analytics_compute_duration_seconds",
			Help:      "分析计算耗时",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"operation"}),
		SourceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datasource_requests_total",
			Help:      "数据源查询次数",
		}, []string{"kind", "operation", "status"}),
		SourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "datasource_request_duration_seconds",
			Help:      "数据源查询耗时",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "operation"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cache_lookups_total",
			Help:      "主数据快照缓存查询次数",
		}, []string{"result"}),
		ReportRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_runs_total",
			Help:      "日报任务执行次数",
		}, []string{"status"}),
		AlertsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_published_total",
			Help:      "告警投递次数",
		}, []string{"channel", "type", "status"}),
		MonthlyQAF: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monthly_qaf_percent",
			Help:      "最近一次计算的月度QAF",
		}, []string{"category", "unit"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP请求次数",
		}, []string{"route", "method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP请求耗时",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		InvalidateEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidation_events_total",
			Help:      "收到的主数据变更通知次数",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ComputeDuration,
			m.SourceRequests,
			m.SourceDuration,
			m.CacheLookups,
			m.ReportRuns,
			m.AlertsPublished,
			m.MonthlyQAF,
			m.HTTPRequests,
			m.HTTPDuration,
			m.InvalidateEvents,
		)
	}
	return m
}

// ObserveCompute 记录分析计算耗时
func (m *Metrics) ObserveCompute(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.ComputeDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveSource 记录数据源查询结果与耗时
func (m *Metrics) ObserveSource(kind, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.SourceRequests.WithLabelValues(kind, operation, status).Inc()
	m.SourceDuration.WithLabelValues(kind, operation).Observe(time.Since(start).Seconds())
}

// CacheHit 记录缓存命中
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("hit").Inc()
}

// CacheMiss 记录缓存未命中
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

// ReportRun 记录日报任务执行状态：success、failed、skipped
func (m *Metrics) ReportRun(status string) {
	if m == nil {
		return
	}
	m.ReportRuns.WithLabelValues(status).Inc()
}

// AlertPublished 记录告警投递结果
func (m *Metrics) AlertPublished(channel, alertType string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.AlertsPublished.WithLabelValues(channel, alertType, status).Inc()
}

// SetMonthlyQAF 记录月度QAF，未定义时删除对应序列
func (m *Metrics) SetMonthlyQAF(category, unit string, value *float64) {
	if m == nil {
		return
	}
	if value == nil {
		m.MonthlyQAF.DeleteLabelValues(category, unit)
		return
	}
	m.MonthlyQAF.WithLabelValues(category, unit).Set(*value)
}

// ObserveHTTP 记录HTTP请求
func (m *Metrics) ObserveHTTP(route, method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, httpCodeClass(code)).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// InvalidationReceived 记录变更通知
func (m *Metrics) InvalidationReceived() {
	if m == nil {
		return
	}
	m.InvalidateEvents.Inc()
}

func httpCodeClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// SystemMetrics 进程运行时指标
type SystemMetrics struct {
	Timestamp      time.Time `json:"timestamp"`
	GoroutineCount int       `json:"goroutine_count"` // Goroutine数量
	HeapSize       uint64    `json:"heap_size"`       // 堆内存大小
	HeapObjects    uint64    `json:"heap_objects"`
	NumGC          uint32    `json:"num_gc"`
	Uptime         string    `json:"uptime"`
}

var startedAt = time.Now()

// CollectSystemMetrics 收集进程运行时指标
func CollectSystemMetrics() SystemMetrics {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return SystemMetrics{
		Timestamp:      time.Now(),
		GoroutineCount: runtime.NumGoroutine(),
		HeapSize:       memStats.HeapAlloc,
		HeapObjects:    memStats.HeapObjects,
		NumGC:          memStats.NumGC,
		Uptime:         time.Since(startedAt).Round(time.Second).String(),
	}
}
