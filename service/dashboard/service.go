/*
 * @module service/dashboard/service
 * @description 看板服务：按查询条件拉取主数据与读数快照，调用分析核心，返回看板视图
 * @architecture 分层架构 - 业务服务层
 * @documentReference DESIGN.md
 * @stateFlow 解析查询 -> 并发拉取快照(参数走缓存) -> 分析计算 -> 记录指标 -> 视图
 * @rules 分析核心只接收已完成的快照；缓存故障不影响主流程，只降级为直接查询
 * @dependencies plantops-service/service/analytics, plantops-service/service/datasource, plantops-service/service/monitoring
 * @refs api/controllers/dashboard_controller.go, service/scheduler/report_scheduler.go
 */

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"plantops-service/service/analytics"
	"plantops-service/service/cache"
	"plantops-service/service/datasource"
	"plantops-service/service/models"
	"plantops-service/service/monitoring"
)

// ErrInvalidQuery 查询条件错误
var ErrInvalidQuery = errors.New("查询条件错误")

// SnapshotCache 主数据快照缓存
type SnapshotCache interface {
	GetParameters(ctx context.Context, category, unit string) ([]models.Parameter, error)
	SetParameters(ctx context.Context, category, unit string, parameters []models.Parameter) error
	GetOperators(ctx context.Context) ([]models.Operator, error)
	SetOperators(ctx context.Context, operators []models.Operator) error
}

// Query 看板查询条件
type Query struct {
	Month    string `json:"month"` // YYYY-MM
	Category string `json:"category"`
	Unit     string `json:"unit"`
	Material string `json:"material"`
	TopN     int    `json:"top_n"`
}

type resolvedQuery struct {
	Query
	year     int
	month    time.Month
	material analytics.MaterialType
	dates    datasource.DateRange
}

func (q Query) resolve(requireScope bool) (resolvedQuery, error) {
	r := resolvedQuery{Query: q}
	r.Category = strings.TrimSpace(q.Category)
	r.Unit = strings.TrimSpace(q.Unit)

	year, month, err := analytics.ParseMonth(q.Month)
	if err != nil {
		return r, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if requireScope && (r.Category == "" || r.Unit == "") {
		return r, fmt.Errorf("%w: 类别与单元不能为空", ErrInvalidQuery)
	}
	if q.TopN < 0 {
		return r, fmt.Errorf("%w: top_n 不能为负数", ErrInvalidQuery)
	}

	r.year, r.month = year, month
	r.Month = fmt.Sprintf("%04d-%02d", year, int(month))
	r.material = analytics.ParseMaterialType(q.Material)
	r.dates = datasource.MonthRange(year, month)
	return r, nil
}

// Service 看板服务
type Service struct {
	source      datasource.Source
	cache       SnapshotCache
	metrics     *monitoring.Metrics
	defaultTopN int
}

// NewService 创建看板服务，cache 与 metrics 可为 nil
func NewService(source datasource.Source, snapshotCache SnapshotCache, metrics *monitoring.Metrics, defaultTopN int) *Service {
	if defaultTopN <= 0 {
		defaultTopN = analytics.DefaultTopN
	}
	return &Service{
		source:      source,
		cache:       snapshotCache,
		metrics:     metrics,
		defaultTopN: defaultTopN,
	}
}

// Source 当前数据源
func (s *Service) Source() datasource.Source {
	return s.source
}

// loadParameters 读取参数主数据，优先使用缓存
func (s *Service) loadParameters(ctx context.Context, filter datasource.ParameterFilter) ([]models.Parameter, error) {
	if s.cache != nil {
		parameters, err := s.cache.GetParameters(ctx, filter.Category, filter.Unit)
		if err == nil {
			s.metrics.CacheHit()
			return parameters, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			slog.Warn("读取参数缓存失败，改为直接查询", "error", err)
		}
		s.metrics.CacheMiss()
	}

	start := time.Now()
	parameters, err := s.source.ListParameters(ctx, filter)
	s.metrics.ObserveSource(s.source.Kind(), "list_parameters", start, err)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetParameters(ctx, filter.Category, filter.Unit, parameters); err != nil {
			slog.Warn("写入参数缓存失败", "error", err)
		}
	}
	return parameters, nil
}

// loadOperators 读取操作员主数据，优先使用缓存
func (s *Service) loadOperators(ctx context.Context) ([]models.Operator, error) {
	if s.cache != nil {
		operators, err := s.cache.GetOperators(ctx)
		if err == nil {
			s.metrics.CacheHit()
			return operators, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			slog.Warn("读取操作员缓存失败，改为直接查询", "error", err)
		}
		s.metrics.CacheMiss()
	}

	start := time.Now()
	operators, err := s.source.ListOperators(ctx)
	s.metrics.ObserveSource(s.source.Kind(), "list_operators", start, err)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetOperators(ctx, operators); err != nil {
			slog.Warn("写入操作员缓存失败", "error", err)
		}
	}
	return operators, nil
}

func (s *Service) loadReadings(ctx context.Context, dates datasource.DateRange, parameters []models.Parameter) ([]models.HourlyReading, error) {
	start := time.Now()
	readings, err := s.source.ListHourlyReadings(ctx, dates, datasource.ParameterIDs(parameters))
	s.metrics.ObserveSource(s.source.Kind(), "list_hourly_readings", start, err)
	return readings, err
}

// snapshot 一次查询所需的全部快照
type snapshot struct {
	parameters []models.Parameter
	readings   []models.HourlyReading
	operators  []models.Operator
}

// loadSnapshot 先取参数，再并发获取读数与操作员
func (s *Service) loadSnapshot(ctx context.Context, q resolvedQuery, withOperators bool) (*snapshot, error) {
	parameters, err := s.loadParameters(ctx, datasource.ParameterFilter{Category: q.Category, Unit: q.Unit})
	if err != nil {
		return nil, fmt.Errorf("获取参数主数据失败: %w", err)
	}

	snap := &snapshot{parameters: parameters}
	var (
		wg          sync.WaitGroup
		readingErr  error
		operatorErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		snap.readings, readingErr = s.loadReadings(ctx, q.dates, parameters)
	}()

	if withOperators {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap.operators, operatorErr = s.loadOperators(ctx)
		}()
	}
	wg.Wait()

	if readingErr != nil {
		return nil, fmt.Errorf("获取小时读数失败: %w", readingErr)
	}
	if operatorErr != nil {
		return nil, fmt.Errorf("获取操作员失败: %w", operatorErr)
	}
	return snap, nil
}

// ComplianceView 月度合规看板
type ComplianceView struct {
	Month    string                    `json:"month"`
	Category string                    `json:"category"`
	Unit     string                    `json:"unit"`
	Dates    []string                  `json:"dates"`
	Table    analytics.ComplianceTable `json:"table"`
}

// Compliance 月度合规表与 QAF
func (s *Service) Compliance(ctx context.Context, query Query) (*ComplianceView, error) {
	q, err := query.resolve(true)
	if err != nil {
		return nil, err
	}

	snap, err := s.loadSnapshot(ctx, q, false)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	parameters := analytics.FilterParameters(snap.parameters, q.Category, q.Unit)
	table := analytics.BuildComplianceTable(parameters, snap.readings, q.material)
	s.metrics.ObserveCompute("compliance", start)
	s.metrics.SetMonthlyQAF(q.Category, q.Unit, table.MonthlyQAF.Value)

	return &ComplianceView{
		Month:    q.Month,
		Category: q.Category,
		Unit:     q.Unit,
		Dates:    analytics.MonthDates(q.year, q.month),
		Table:    table,
	}, nil
}

// ParameterAnalysis 单个参数的统计、异常与预测
type ParameterAnalysis struct {
	ParameterID   string                      `json:"parameter_id"`
	ParameterName string                      `json:"parameter_name"`
	Unit          string                      `json:"unit"`
	Bounds        analytics.Bounds            `json:"bounds"`
	Series        []*float64                  `json:"series"`
	Statistics    analytics.StatisticsSummary `json:"statistics"`
	Anomalies     analytics.AnomalyReport     `json:"anomalies"`
	Forecast      analytics.ForecastResult    `json:"forecast"`
}

// AnalysisView 参数分析看板
type AnalysisView struct {
	Month        string                      `json:"month"`
	Category     string                      `json:"category"`
	Unit         string                      `json:"unit"`
	Material     analytics.MaterialType      `json:"material"`
	Dates        []string                    `json:"dates"`
	Parameters   []ParameterAnalysis         `json:"parameters"`
	Correlations []analytics.CorrelationPair `json:"correlations"`
}

// Analysis 参数统计、异常检测、趋势预测与相关性矩阵
func (s *Service) Analysis(ctx context.Context, query Query) (*AnalysisView, error) {
	q, err := query.resolve(true)
	if err != nil {
		return nil, err
	}

	snap, err := s.loadSnapshot(ctx, q, false)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	view, err := buildAnalysis(snap.parameters, snap.readings, q)
	s.metrics.ObserveCompute("analysis", start)
	if err != nil {
		return nil, err
	}
	return view, nil
}

// seriesDates 查询范围内的日期，截止到 dates.To
func (q resolvedQuery) seriesDates() []string {
	all := analytics.MonthDates(q.year, q.month)
	dates := make([]string, 0, len(all))
	for _, d := range all {
		if d <= q.dates.To {
			dates = append(dates, d)
		}
	}
	return dates
}

// buildAnalysis 基于快照构建分析视图
func buildAnalysis(parameters []models.Parameter, readings []models.HourlyReading, q resolvedQuery) (*AnalysisView, error) {
	selected := analytics.FilterParameters(parameters, q.Category, q.Unit)
	rows := analytics.ComputeComplianceRows(selected, readings, q.material)
	dates := q.seriesDates()

	view := &AnalysisView{
		Month:      q.Month,
		Category:   q.Category,
		Unit:       q.Unit,
		Material:   q.material,
		Dates:      dates,
		Parameters: make([]ParameterAnalysis, 0, len(selected)),
	}

	for i := range selected {
		p := &selected[i]
		bounds := analytics.ResolveRange(p, q.material)
		series := analytics.DailySeries(rows, p.ID, dates)
		stats := analytics.ComputeStatistics(series)

		var anomalies analytics.AnomalyReport
		if stats.Mean != nil && stats.StdDev != nil {
			anomalies = analytics.DetectAnomaliesWithStats(series, *stats.Mean, *stats.StdDev)
		} else {
			anomalies = analytics.DetectAnomalies(series)
		}

		view.Parameters = append(view.Parameters, ParameterAnalysis{
			ParameterID:   p.ID,
			ParameterName: p.Name,
			Unit:          p.Unit,
			Bounds:        bounds,
			Series:        series,
			Statistics:    stats,
			Anomalies:     anomalies,
			Forecast:      analytics.Forecast(series, bounds),
		})
	}

	correlations, err := analytics.ComputeCorrelationMatrix(analytics.SeriesFromRows(rows))
	if err != nil {
		return nil, fmt.Errorf("计算相关性失败: %w", err)
	}
	view.Correlations = correlations
	return view, nil
}

// RankingView 操作员排行榜
type RankingView struct {
	Month    string                      `json:"month"`
	Category string                      `json:"category,omitempty"`
	TopN     int                         `json:"top_n"`
	Rankings []analytics.CategoryRanking `json:"rankings"`
}

// Rankings 操作员达成率排行榜，类别为空时覆盖全部类别
func (s *Service) Rankings(ctx context.Context, query Query) (*RankingView, error) {
	query.Unit = ""
	q, err := query.resolve(false)
	if err != nil {
		return nil, err
	}
	topN := q.TopN
	if topN == 0 {
		topN = s.defaultTopN
	}

	snap, err := s.loadSnapshot(ctx, q, true)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rankings := analytics.RankOperators(snap.readings, snap.parameters, snap.operators, analytics.RankingOptions{TopN: topN})
	s.metrics.ObserveCompute("ranking", start)

	return &RankingView{
		Month:    q.Month,
		Category: q.Category,
		TopN:     topN,
		Rankings: rankings,
	}, nil
}

// DailyReport 指定日期的 QAF 以及月初至当日的参数分析
type DailyReport struct {
	Date           string                 `json:"date"`
	Category       string                 `json:"category"`
	Unit           string                 `json:"unit"`
	Material       analytics.MaterialType `json:"material"`
	DailyQAF       analytics.QAFResult    `json:"daily_qaf"`
	MonthToDateQAF analytics.QAFResult    `json:"month_to_date_qaf"`
	Parameters     []ParameterAnalysis    `json:"parameters"`
}

// DailyReport 计算单个范围的日报
func (s *Service) DailyReport(ctx context.Context, scope Query, day time.Time) (*DailyReport, error) {
	scope.Month = day.Format("2006-01")
	q, err := scope.resolve(true)
	if err != nil {
		return nil, err
	}
	date := day.Format(models.ReadingDateLayout)
	q.dates.To = date

	snap, err := s.loadSnapshot(ctx, q, false)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer s.metrics.ObserveCompute("daily_report", start)

	selected := analytics.FilterParameters(snap.parameters, q.Category, q.Unit)
	rows := analytics.ComputeComplianceRows(selected, snap.readings, q.material)

	report := &DailyReport{
		Date:           date,
		Category:       q.Category,
		Unit:           q.Unit,
		Material:       q.material,
		DailyQAF:       analytics.QAFResult{Date: date},
		MonthToDateQAF: analytics.ComputeMonthlyQAF(rows),
	}
	for _, daily := range analytics.ComputeDailyQAF(rows) {
		if daily.Date == date {
			report.DailyQAF = daily
		}
	}

	view, err := buildAnalysis(selected, snap.readings, q)
	if err != nil {
		return nil, err
	}
	report.Parameters = view.Parameters
	return report, nil
}

// Ready 检查数据源是否可用
func (s *Service) Ready(ctx context.Context) error {
	start := time.Now()
	err := s.source.Ping(ctx)
	s.metrics.ObserveSource(s.source.Kind(), "ping", start, err)
	return err
}
