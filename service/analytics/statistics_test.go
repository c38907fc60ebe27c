/*
 * @module service/analytics/statistics_test
 * @description 统计、异常检测与预测单元测试
 * @architecture 测试层 - 纯函数测试，无外部依赖
 * @documentReference DESIGN.md
 * @stateFlow 构造序列 -> 计算 -> 输出验证
 * @rules 少于3个有效点时趋势为 insufficient、预测为 nil
 * @dependencies testing, testify
 * @refs statistics.go, anomaly.go, forecast.go
 */

package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStatistics(t *testing.T) {
	s := ComputeStatistics(series(2, 4, 4, 4, 5, 5, 7, 9))

	require.NotNil(t, s.Mean)
	assert.InDelta(t, 5, *s.Mean, 1e-9)
	require.NotNil(t, s.StdDev)
	assert.InDelta(t, 2, *s.StdDev, 1e-9)
	assert.InDelta(t, 4.5, *s.Median, 1e-9)
	assert.Equal(t, 2.0, *s.Min)
	assert.Equal(t, 9.0, *s.Max)
	assert.Equal(t, 8, s.Count)
	assert.Equal(t, 100.0, s.Completeness)
	require.NotNil(t, s.Slope)
	assert.InDelta(t, 34.0/42.0, *s.Slope, 1e-9)
	assert.Equal(t, TrendIncreasing, s.Trend)
}

func TestComputeStatistics_Trend(t *testing.T) {
	testCases := []struct {
		name     string
		input    []*float64
		expected TrendDirection
	}{
		{name: "递减", input: series(9, 7, 5, 3), expected: TrendDecreasing},
		{name: "平稳", input: series(5, 5.001, 5, 5.002), expected: TrendStable},
		{name: "两个点不足以判断趋势", input: series(1, 100), expected: TrendInsufficient},
		{name: "有效点不足三个", input: []*float64{floatPtr(1), nil, floatPtr(2), floatPtr(math.NaN())}, expected: TrendInsufficient},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := ComputeStatistics(tc.input)
			assert.Equal(t, tc.expected, s.Trend)
			if tc.expected == TrendInsufficient {
				assert.Nil(t, s.Slope)
			}
		})
	}
}

func TestComputeStatistics_Empty(t *testing.T) {
	s := ComputeStatistics([]*float64{nil, floatPtr(math.Inf(1))})
	assert.Nil(t, s.Mean)
	assert.Nil(t, s.Median)
	assert.Nil(t, s.StdDev)
	assert.Nil(t, s.Min)
	assert.Nil(t, s.Max)
	assert.Equal(t, 0, s.Count)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 0.0, s.Completeness)
	assert.Equal(t, TrendInsufficient, s.Trend)

	empty := ComputeStatistics(nil)
	assert.Equal(t, 0.0, empty.Completeness)
}

func TestComputeStatistics_Completeness(t *testing.T) {
	s := ComputeStatistics([]*float64{floatPtr(1), nil, floatPtr(3), nil})
	assert.Equal(t, 50.0, s.Completeness)
	assert.InDelta(t, 2, *s.Median, 1e-9)

	single := ComputeStatistics(series(7))
	require.NotNil(t, single.StdDev)
	assert.Equal(t, 0.0, *single.StdDev)
}

func repeat(v float64, n int) []*float64 {
	out := make([]*float64, n)
	for i := range out {
		out[i] = floatPtr(v)
	}
	return out
}

func TestDetectAnomalies(t *testing.T) {
	t.Run("常数序列没有离群点", func(t *testing.T) {
		report := DetectAnomalies(repeat(1e6, 30))
		assert.Empty(t, report.Outliers)
		assert.Equal(t, SeverityLow, report.Severity)
		assert.Equal(t, 0.0, *report.StdDev)
	})

	t.Run("单个离群点为中等严重程度", func(t *testing.T) {
		input := append([]*float64{nil}, repeat(10, 20)...)
		input = append(input, floatPtr(100))

		report := DetectAnomalies(input)
		require.Len(t, report.Outliers, 1)
		assert.Equal(t, 21, report.Outliers[0].Index)
		assert.Equal(t, 100.0, report.Outliers[0].Value)
		assert.Greater(t, report.Outliers[0].ZScore, 3.0)
		assert.Equal(t, 1, report.Count)
		assert.Equal(t, SeverityMedium, report.Severity)
	})

	t.Run("三个离群点为高严重程度", func(t *testing.T) {
		input := append(repeat(10, 40), series(100, 100, 100)...)
		report := DetectAnomalies(input)
		assert.Equal(t, 3, report.Count)
		assert.Equal(t, SeverityHigh, report.Severity)
	})

	t.Run("有效值少于三个不做判定", func(t *testing.T) {
		report := DetectAnomalies(series(1, 1000))
		assert.Empty(t, report.Outliers)
		assert.Equal(t, SeverityLow, report.Severity)
	})

	t.Run("使用外部给定的统计量", func(t *testing.T) {
		report := DetectAnomaliesWithStats(series(10, 11, 40), 10, 1)
		require.Len(t, report.Outliers, 1)
		assert.Equal(t, 2, report.Outliers[0].Index)
		assert.InDelta(t, 30, report.Outliers[0].ZScore, 1e-9)
	})

	t.Run("标准差为0时不做判定", func(t *testing.T) {
		report := DetectAnomaliesWithStats(series(10, 11, 40), 10, 0)
		assert.Empty(t, report.Outliers)
	})
}

func TestForecast(t *testing.T) {
	bounds := NewBounds(0, 100)

	t.Run("线性外推7天", func(t *testing.T) {
		result := Forecast(series(1, 2, 3), bounds)
		require.True(t, result.Sufficient)
		require.NotNil(t, result.Forecast)
		assert.InDelta(t, 10, *result.Forecast, 1e-9)
		assert.InDelta(t, 3, *result.LastValue, 1e-9)
		assert.InDelta(t, 1, *result.Slope, 1e-9)
		assert.Equal(t, 7, result.Horizon)
		assert.Equal(t, RiskLow, result.Risk)
	})

	t.Run("预测值超出范围为高风险", func(t *testing.T) {
		result := Forecast(series(90, 95, 100), bounds)
		assert.InDelta(t, 135, *result.Forecast, 1e-9)
		assert.Equal(t, RiskHigh, result.Risk)
	})

	t.Run("预测值靠近边界为中等风险", func(t *testing.T) {
		result := Forecast(series(96, 96, 96), bounds)
		assert.InDelta(t, 96, *result.Forecast, 1e-9)
		assert.Equal(t, RiskMedium, result.Risk)

		result = Forecast(series(4, 4, 4), bounds)
		assert.Equal(t, RiskMedium, result.Risk)
	})

	t.Run("最后有效值之后的空值被忽略", func(t *testing.T) {
		input := []*float64{floatPtr(1), floatPtr(2), nil, floatPtr(3), nil}
		result := Forecast(input, bounds)
		assert.InDelta(t, 3, *result.LastValue, 1e-9)
	})

	t.Run("数据不足时预测未定义", func(t *testing.T) {
		result := Forecast([]*float64{floatPtr(1), nil, floatPtr(2)}, bounds)
		assert.Nil(t, result.Forecast)
		assert.False(t, result.Sufficient)
		assert.Equal(t, RiskLow, result.Risk)
	})

	t.Run("范围无效时仍计算预测但不评估风险", func(t *testing.T) {
		result := Forecast(series(90, 95, 100), NewBounds(10, 10))
		require.NotNil(t, result.Forecast)
		assert.False(t, result.BoundsValid)
		assert.Equal(t, RiskLow, result.Risk)
	})
}
