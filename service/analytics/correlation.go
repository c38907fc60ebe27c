/*
 * @module service/analytics/correlation
 * @description 相关性分析：参数两两之间按共同有效日期计算 Pearson 相关系数并分级
 * @architecture 纯函数计算核心
 * @documentReference DESIGN.md
 * @stateFlow 参数日序列 -> 日期对齐 -> Pearson r -> 强度分级 -> 排序
 * @rules 配对点少于3个为未定义(nil)，未定义与0不同；未定义的配对排在最后
 * @dependencies gonum.org/v1/gonum/stat
 * @refs aggregation.go
 */

package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrLengthMismatch 相关性输入长度不一致
var ErrLengthMismatch = errors.New("相关性计算输入长度不一致")

const minCorrelationPoints = 3

// ParameterSeries 参数日序列，Values 的键为日期 (YYYY-MM-DD)
type ParameterSeries struct {
	ParameterID   string              `json:"parameter_id"`
	ParameterName string              `json:"parameter_name"`
	Values        map[string]*float64 `json:"values"`
}

// CorrelationPair 一对参数的相关性结果
type CorrelationPair struct {
	ParameterA  string              `json:"parameter_a"`
	NameA       string              `json:"name_a"`
	ParameterB  string              `json:"parameter_b"`
	NameB       string              `json:"name_b"`
	Coefficient *float64            `json:"coefficient"`
	Strength    CorrelationStrength `json:"strength"`
	SampleSize  int                 `json:"sample_size"`
}

// PearsonCorrelation 计算 Pearson 相关系数
// 长度不一致返回 ErrLengthMismatch；点数不足或任一侧方差为0时返回 nil
func PearsonCorrelation(x, y []float64) (*float64, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(x), len(y))
	}
	if len(x) < minCorrelationPoints {
		return nil, nil
	}
	r := stat.Correlation(x, y, nil)
	if !isFinite(r) {
		return nil, nil
	}
	r = math.Max(-1, math.Min(1, r))
	return &r, nil
}

// ClassifyCorrelation 按 |r| 分级
func ClassifyCorrelation(r *float64) CorrelationStrength {
	if r == nil {
		return StrengthUndefined
	}
	abs := math.Abs(*r)
	switch {
	case abs >= 0.8:
		return StrengthStrong
	case abs >= 0.5:
		return StrengthModerate
	case abs >= 0.3:
		return StrengthWeak
	default:
		return StrengthNone
	}
}

// alignSeries 取两个序列都有有效值的日期，按日期升序配对
func alignSeries(a, b map[string]*float64) ([]float64, []float64) {
	dates := make([]string, 0, len(a))
	for date, v := range a {
		if v == nil || !isFinite(*v) {
			continue
		}
		if w, ok := b[date]; ok && w != nil && isFinite(*w) {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)

	xs := make([]float64, len(dates))
	ys := make([]float64, len(dates))
	for i, date := range dates {
		xs[i] = *a[date]
		ys[i] = *b[date]
	}
	return xs, ys
}

// ComputeCorrelationMatrix 计算所有无序参数对的相关性
// 结果按 |r| 降序，未定义的排在最后，相同值保持输入顺序
func ComputeCorrelationMatrix(series []ParameterSeries) ([]CorrelationPair, error) {
	pairs := make([]CorrelationPair, 0, len(series)*(len(series)-1)/2+1)
	for i := 0; i < len(series); i++ {
		for j := i + 1; j < len(series); j++ {
			xs, ys := alignSeries(series[i].Values, series[j].Values)
			r, err := PearsonCorrelation(xs, ys)
			if err != nil {
				return nil, fmt.Errorf("计算 %s 与 %s 的相关性失败: %w", series[i].ParameterID, series[j].ParameterID, err)
			}
			pairs = append(pairs, CorrelationPair{
				ParameterA:  series[i].ParameterID,
				NameA:       series[i].ParameterName,
				ParameterB:  series[j].ParameterID,
				NameB:       series[j].ParameterName,
				Coefficient: r,
				Strength:    ClassifyCorrelation(r),
				SampleSize:  len(xs),
			})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		ri, rj := pairs[i].Coefficient, pairs[j].Coefficient
		if ri == nil || rj == nil {
			return ri != nil && rj == nil
		}
		return math.Abs(*ri) > math.Abs(*rj)
	})
	return pairs, nil
}

// SeriesFromRows 由合规行构建参数日序列
func SeriesFromRows(rows []ComplianceRow) []ParameterSeries {
	order := make([]string, 0)
	byID := make(map[string]*ParameterSeries)
	for _, row := range rows {
		s, ok := byID[row.ParameterID]
		if !ok {
			s = &ParameterSeries{
				ParameterID:   row.ParameterID,
				ParameterName: row.ParameterName,
				Values:        make(map[string]*float64),
			}
			byID[row.ParameterID] = s
			order = append(order, row.ParameterID)
		}
		s.Values[row.Date] = row.RawValue
	}

	result := make([]ParameterSeries, 0, len(order))
	for _, id := range order {
		result = append(result, *byID[id])
	}
	return result
}
