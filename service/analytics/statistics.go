/*
 * @module service/analytics/statistics
 * @description 统计引擎：均值、中位数、总体标准差、极值、完整度与线性回归趋势
 * @architecture 纯函数计算核心
 * @documentReference DESIGN.md
 * @stateFlow 原始序列 -> 过滤无效值 -> 描述统计 -> 趋势分类
 * @rules 至少3个有效点才计算趋势；无有效值时统计量全部为 nil
 * @dependencies gonum.org/v1/gonum/stat, gonum.org/v1/gonum/floats
 * @refs anomaly.go, forecast.go
 */

package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	minTrendPoints = 3
	stableSlope    = 0.01
)

// StatisticsSummary 序列统计摘要
type StatisticsSummary struct {
	Mean         *float64       `json:"mean"`
	Median       *float64       `json:"median"`
	StdDev       *float64       `json:"std_dev"`
	Min          *float64       `json:"min"`
	Max          *float64       `json:"max"`
	Count        int            `json:"count"`
	Total        int            `json:"total"`
	Completeness float64        `json:"completeness"` // 有效值占比 (%)
	Slope        *float64       `json:"slope"`
	Trend        TrendDirection `json:"trend"`
}

// ComputeStatistics 计算序列统计摘要，nil/NaN/±Inf 在计算前被过滤
func ComputeStatistics(series []*float64) StatisticsSummary {
	values := finiteValues(series)
	summary := StatisticsSummary{
		Count: len(values),
		Total: len(series),
		Trend: TrendInsufficient,
	}
	if len(series) > 0 {
		summary.Completeness = float64(len(values)) / float64(len(series)) * 100
	}
	if len(values) == 0 {
		return summary
	}

	mean, stdDev := populationMeanStdDev(values)
	summary.Mean = floatPtr(mean)
	summary.StdDev = floatPtr(stdDev)
	summary.Median = floatPtr(median(values))
	summary.Min = floatPtr(floats.Min(values))
	summary.Max = floatPtr(floats.Max(values))

	if slope, ok := trendSlope(values); ok {
		summary.Slope = floatPtr(slope)
		summary.Trend = classifyTrend(slope)
	}
	return summary
}

// populationMeanStdDev 总体均值与标准差，单点时标准差为0
func populationMeanStdDev(values []float64) (float64, float64) {
	if len(values) == 1 {
		return values[0], 0
	}
	mean, stdDev := stat.PopMeanStdDev(values, nil)
	if math.IsNaN(stdDev) {
		stdDev = 0
	}
	return mean, stdDev
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// trendSlope 以位置下标 0..n-1 为自变量做最小二乘拟合，返回斜率
func trendSlope(values []float64) (float64, bool) {
	if len(values) < minTrendPoints {
		return 0, false
	}
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, values, nil, false)
	if !isFinite(slope) {
		return 0, false
	}
	return slope, true
}

func classifyTrend(slope float64) TrendDirection {
	switch {
	case math.Abs(slope) < stableSlope:
		return TrendStable
	case slope > 0:
		return TrendIncreasing
	default:
		return TrendDecreasing
	}
}
