package analytics

// forecastHorizon 预测步数（天）
const forecastHorizon = 7

// riskMarginRatio 靠近边界的预警带宽，占范围宽度的比例
const riskMarginRatio = 0.05

// ForecastResult 短期预测结果
// Sufficient=false 时 Risk 固定为 low，仅代表"没有风险证据"，不代表已确认安全
type ForecastResult struct {
	Forecast    *float64  `json:"forecast"`
	LastValue   *float64  `json:"last_value"`
	Slope       *float64  `json:"slope"`
	Horizon     int       `json:"horizon"`
	Risk        RiskLevel `json:"risk"`
	Sufficient  bool      `json:"sufficient"`
	BoundsValid bool      `json:"bounds_valid"`
}

// Forecast 线性趋势外推：最后一个有效值 + 斜率 × 7
func Forecast(series []*float64, bounds Bounds) ForecastResult {
	result := ForecastResult{
		Horizon:     forecastHorizon,
		Risk:        RiskLow,
		BoundsValid: bounds.Valid(),
	}

	values := finiteValues(series)
	slope, ok := trendSlope(values)
	if !ok {
		return result
	}

	last := values[len(values)-1]
	forecast := last + slope*forecastHorizon
	result.Forecast = floatPtr(forecast)
	result.LastValue = floatPtr(last)
	result.Slope = floatPtr(slope)
	result.Sufficient = true

	if result.BoundsValid {
		result.Risk = classifyRisk(forecast, bounds)
	}
	return result
}

func classifyRisk(v float64, b Bounds) RiskLevel {
	min, max := *b.Min, *b.Max
	if v < min || v > max {
		return RiskHigh
	}
	margin := (max - min) * riskMarginRatio
	if v <= min+margin || v >= max-margin {
		return RiskMedium
	}
	return RiskLow
}
