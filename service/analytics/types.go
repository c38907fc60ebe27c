/*
 * @module service/analytics/types
 * @description 合规与排名分析引擎的公共类型：物料类型、目标范围、趋势/严重程度/风险等级
 * @architecture 纯函数计算核心 - 类型定义层
 * @documentReference DESIGN.md
 * @stateFlow 无状态
 * @rules 未定义的数值一律用 nil 表示，禁止用 0 代替
 * @dependencies math
 * @refs range_resolver.go, compliance.go
 */

package analytics

import (
	"math"
	"strings"
)

// MaterialType 物料(水泥品种)上下文
type MaterialType string

const (
	MaterialGeneral MaterialType = ""    // 未选择物料，使用通用范围
	MaterialOPC     MaterialType = "OPC" // 普通硅酸盐水泥
	MaterialPCC     MaterialType = "PCC" // 复合水泥
)

// ParseMaterialType 解析物料类型，未知值按通用处理
func ParseMaterialType(s string) MaterialType {
	switch MaterialType(strings.ToUpper(strings.TrimSpace(s))) {
	case MaterialOPC:
		return MaterialOPC
	case MaterialPCC:
		return MaterialPCC
	default:
		return MaterialGeneral
	}
}

// Bounds 目标范围，任一端为 nil 表示未定义
type Bounds struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// NewBounds 由确定的上下限构造范围
func NewBounds(min, max float64) Bounds {
	return Bounds{Min: floatPtr(min), Max: floatPtr(max)}
}

// Defined 上下限是否都已给出
func (b Bounds) Defined() bool {
	return b.Min != nil && b.Max != nil && isFinite(*b.Min) && isFinite(*b.Max)
}

// Valid 范围是否可用于合规计算 (max > min)
func (b Bounds) Valid() bool {
	return b.Defined() && *b.Max > *b.Min
}

// Contains 值是否落在闭区间 [min, max] 内
func (b Bounds) Contains(v float64) bool {
	if !b.Defined() || !isFinite(v) {
		return false
	}
	return v >= *b.Min && v <= *b.Max
}

// TrendDirection 趋势方向
type TrendDirection string

const (
	TrendIncreasing   TrendDirection = "increasing"
	TrendDecreasing   TrendDirection = "decreasing"
	TrendStable       TrendDirection = "stable"
	TrendInsufficient TrendDirection = "insufficient"
)

// Severity 异常严重程度
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// RiskLevel 预测风险等级
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// CorrelationStrength 相关性强度
type CorrelationStrength string

const (
	StrengthStrong    CorrelationStrength = "strong"
	StrengthModerate  CorrelationStrength = "moderate"
	StrengthWeak      CorrelationStrength = "weak"
	StrengthNone      CorrelationStrength = "none"
	StrengthUndefined CorrelationStrength = "undefined"
)

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func floatPtr(v float64) *float64 {
	return &v
}

// finiteValues 过滤 nil、NaN、±Inf
func finiteValues(series []*float64) []float64 {
	values := make([]float64, 0, len(series))
	for _, v := range series {
		if v != nil && isFinite(*v) {
			values = append(values, *v)
		}
	}
	return values
}
