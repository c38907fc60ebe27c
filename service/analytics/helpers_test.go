package analytics

import "plantops-service/service/models"

// newParameter 构造只有通用范围的参数
func newParameter(id, category, unit string, min, max float64) models.Parameter {
	return models.Parameter{
		ID:        id,
		Name:      id,
		Category:  category,
		PlantUnit: unit,
		MinValue:  floatPtr(min),
		MaxValue:  floatPtr(max),
	}
}

// newReading 按顺序填充第1..n小时的读数
func newReading(parameterID, date, operator string, values ...float64) models.HourlyReading {
	r := models.HourlyReading{ParameterID: parameterID, Date: date, OperatorName: operator}
	for i, v := range values {
		r.Hours.Set(i+1, v)
	}
	return r
}

func series(values ...float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		out[i] = floatPtr(v)
	}
	return out
}
