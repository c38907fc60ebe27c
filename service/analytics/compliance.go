package analytics

// ComputeCompliance 将原始值归一化为目标范围内的百分比位置
// (value-min)/(max-min)*100，结果不截断，<0 或 >100 表示超出目标
// 范围无效或值缺失/非有限数时返回 nil
func ComputeCompliance(value *float64, b Bounds) *float64 {
	if value == nil || !isFinite(*value) || !b.Valid() {
		return nil
	}
	pct := (*value - *b.Min) / (*b.Max - *b.Min) * 100
	return &pct
}

// InContextRange 合规展示口径：只使用物料上下文选定的范围
func InContextRange(value float64, b Bounds) bool {
	return b.Valid() && b.Contains(value)
}

// inQAFBand QAF 统计口径：归一化百分比落在 [0,100]
func inQAFBand(pct float64) bool {
	return pct >= 0 && pct <= 100
}
