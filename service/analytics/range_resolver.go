/*
 * @module service/analytics/range_resolver
 * @description 目标范围解析器，按物料类型选择 OPC/PCC 专用范围或回退到通用范围
 * @architecture 策略模式 - 以物料类型为键的范围选择策略表
 * @documentReference DESIGN.md
 * @stateFlow 参数 + 物料上下文 -> 选择策略 -> 范围
 * @rules 专用范围上下限必须同时定义才生效，否则回退通用范围
 * @dependencies plantops-service/service/models
 * @refs compliance.go, ranking.go
 */

package analytics

import "plantops-service/service/models"

// boundsSelector 从参数中取出某一组范围
type boundsSelector func(p *models.Parameter) Bounds

var (
	generalSelector boundsSelector = func(p *models.Parameter) Bounds {
		return Bounds{Min: p.MinValue, Max: p.MaxValue}
	}

	materialSelectors = map[MaterialType]boundsSelector{
		MaterialOPC: func(p *models.Parameter) Bounds {
			return Bounds{Min: p.OPCMinValue, Max: p.OPCMaxValue}
		},
		MaterialPCC: func(p *models.Parameter) Bounds {
			return Bounds{Min: p.PCCMinValue, Max: p.PCCMaxValue}
		},
	}

	// 固定遍历顺序
	materialOrder = []MaterialType{MaterialOPC, MaterialPCC}
)

// ResolveRange 解析参数在给定物料上下文下的目标范围
// 返回的范围可能无效 (Valid()==false)，调用方应视为"不可计算"而非错误
func ResolveRange(p *models.Parameter, material MaterialType) Bounds {
	if p == nil {
		return Bounds{}
	}
	if selector, ok := materialSelectors[material]; ok {
		if b := selector(p); b.Defined() {
			return b
		}
	}
	return generalSelector(p)
}

// DefinedRanges 返回参数上所有已定义的范围，顺序为 通用、OPC、PCC
func DefinedRanges(p *models.Parameter) []Bounds {
	if p == nil {
		return nil
	}
	ranges := make([]Bounds, 0, 1+len(materialOrder))
	if b := generalSelector(p); b.Defined() {
		ranges = append(ranges, b)
	}
	for _, m := range materialOrder {
		if b := materialSelectors[m](p); b.Defined() {
			ranges = append(ranges, b)
		}
	}
	return ranges
}

// InAnyRange 排名口径：值满足任意一组已定义范围即视为达标
func InAnyRange(p *models.Parameter, value float64) bool {
	for _, b := range DefinedRanges(p) {
		if b.Contains(value) {
			return true
		}
	}
	return false
}
