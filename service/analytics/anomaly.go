package analytics

import "math"

// sigmaMultiple 离群判定的标准差倍数
const sigmaMultiple = 3.0

// Outlier 离群点，Index 为其在原始序列中的位置
type Outlier struct {
	Index  int     `json:"index"`
	Value  float64 `json:"value"`
	ZScore float64 `json:"z_score"`
}

// AnomalyReport 异常检测报告
type AnomalyReport struct {
	Outliers  []Outlier `json:"outliers"`
	Count     int       `json:"count"`
	Severity  Severity  `json:"severity"`
	Mean      *float64  `json:"mean"`
	StdDev    *float64  `json:"std_dev"`
	Threshold float64   `json:"threshold"`
}

// DetectAnomalies 基于序列自身的均值与标准差检测离群点
func DetectAnomalies(series []*float64) AnomalyReport {
	summary := ComputeStatistics(series)
	if summary.Mean == nil || summary.StdDev == nil {
		return AnomalyReport{Outliers: []Outlier{}, Severity: SeverityLow, Threshold: sigmaMultiple}
	}
	return DetectAnomaliesWithStats(series, *summary.Mean, *summary.StdDev)
}

// DetectAnomaliesWithStats |v-mean| > 3σ 即为离群点
// 有效值少于3个或 σ<=0 时不做判定
func DetectAnomaliesWithStats(series []*float64, mean, stdDev float64) AnomalyReport {
	report := AnomalyReport{
		Outliers:  []Outlier{},
		Severity:  SeverityLow,
		Mean:      floatPtr(mean),
		StdDev:    floatPtr(stdDev),
		Threshold: sigmaMultiple,
	}

	if len(finiteValues(series)) < minTrendPoints || !isFinite(stdDev) || stdDev <= 0 || !isFinite(mean) {
		return report
	}

	limit := sigmaMultiple * stdDev
	for i, v := range series {
		if v == nil || !isFinite(*v) {
			continue
		}
		if math.Abs(*v-mean) > limit {
			report.Outliers = append(report.Outliers, Outlier{
				Index:  i,
				Value:  *v,
				ZScore: (*v - mean) / stdDev,
			})
		}
	}

	report.Count = len(report.Outliers)
	report.Severity = classifySeverity(report.Count)
	return report
}

func classifySeverity(count int) Severity {
	switch {
	case count >= 3:
		return SeverityHigh
	case count >= 1:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
