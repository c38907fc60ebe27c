/*
 * @module service/analytics/aggregation
 * @description 汇聚引擎：小时读数 -> 日均值 -> 合规行 -> 月均值，以及日/月 QAF
 * @architecture 纯函数计算核心 - 分组汇聚
 * @documentReference DESIGN.md
 * @stateFlow 选择参数 -> 按(参数,日期)分组 -> 日均值 -> 解析范围 -> 合规百分比 -> 月度汇总
 * @rules 空槽位不计入分子分母；无数据返回 nil 而不是 0；月度 QAF 先累加计数再相除
 * @dependencies golang.org/x/text/cases
 * @refs range_resolver.go, compliance.go
 */

package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"plantops-service/service/models"
)

// ComplianceRow (参数, 日期) 的合规结果
type ComplianceRow struct {
	ParameterID   string   `json:"parameter_id"`
	ParameterName string   `json:"parameter_name"`
	Date          string   `json:"date"`
	RawValue      *float64 `json:"raw_value"`
	Percentage    *float64 `json:"percentage"`
	Bounds        Bounds   `json:"bounds"`
}

// MonthlyAverage 参数月度平均合规百分比
type MonthlyAverage struct {
	ParameterID  string   `json:"parameter_id"`
	Average      *float64 `json:"average"`
	DaysWithData int      `json:"days_with_data"`
}

// QAFResult 质量达成率，Date 为空表示月度汇总
type QAFResult struct {
	Date    string   `json:"date,omitempty"`
	InRange int      `json:"in_range"`
	Defined int      `json:"defined"`
	Value   *float64 `json:"value"`
}

// ParameterCompliance 合规表中的一行参数
type ParameterCompliance struct {
	ParameterID    string          `json:"parameter_id"`
	ParameterName  string          `json:"parameter_name"`
	Unit           string          `json:"unit"`
	Bounds         Bounds          `json:"bounds"`
	Rows           []ComplianceRow `json:"rows"`
	MonthlyAverage *float64        `json:"monthly_average"`
	QAF            QAFResult       `json:"qaf"`
}

// ComplianceTable 月度合规表
type ComplianceTable struct {
	Material   MaterialType          `json:"material"`
	Parameters []ParameterCompliance `json:"parameters"`
	DailyQAF   []QAFResult           `json:"daily_qaf"`
	MonthlyQAF QAFResult             `json:"monthly_qaf"`
}

type dayKey struct {
	parameterID string
	date        string
}

// FilterParameters 按类别与单元选择参数，比较时忽略大小写
// 类别或单元未选择时返回空集合
func FilterParameters(parameters []models.Parameter, category, plantUnit string) []models.Parameter {
	category = strings.TrimSpace(category)
	plantUnit = strings.TrimSpace(plantUnit)
	if category == "" || plantUnit == "" {
		return []models.Parameter{}
	}

	// Caser 有状态，不能跨 goroutine 共享
	folder := cases.Fold()
	wantCategory := folder.String(category)
	wantUnit := folder.String(plantUnit)

	selected := make([]models.Parameter, 0)
	for _, p := range parameters {
		if folder.String(strings.TrimSpace(p.Category)) == wantCategory &&
			folder.String(strings.TrimSpace(p.PlantUnit)) == wantUnit {
			selected = append(selected, p)
		}
	}
	return selected
}

// DailyAverage 对有效槽位求平均，无有效槽位返回 nil
func DailyAverage(slots []*float64) *float64 {
	values := finiteValues(slots)
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return floatPtr(sum / float64(len(values)))
}

// groupDailySlots 按(参数,日期)收集所有读数的小时槽位
// 同一天同一参数的多条读数(不同操作员/班次)合并为一个日均值
func groupDailySlots(index map[string]int, readings []models.HourlyReading) (map[dayKey][]*float64, []dayKey) {
	groups := make(map[dayKey][]*float64)
	keys := make([]dayKey, 0)
	for i := range readings {
		r := &readings[i]
		if _, ok := index[r.ParameterID]; !ok {
			continue
		}
		key := dayKey{parameterID: r.ParameterID, date: r.Date}
		if _, exists := groups[key]; !exists {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], r.Hours[:]...)
	}

	sort.SliceStable(keys, func(i, j int) bool {
		pi, pj := index[keys[i].parameterID], index[keys[j].parameterID]
		if pi != pj {
			return pi < pj
		}
		return keys[i].date < keys[j].date
	})
	return groups, keys
}

func parameterIndex(parameters []models.Parameter) map[string]int {
	index := make(map[string]int, len(parameters))
	for i, p := range parameters {
		if _, exists := index[p.ID]; !exists {
			index[p.ID] = i
		}
	}
	return index
}

// ComputeComplianceRows 计算每个(参数,日期)的合规行
// 行按参数输入顺序、日期升序排列；范围无效时行的 Percentage 为 nil
func ComputeComplianceRows(parameters []models.Parameter, readings []models.HourlyReading, material MaterialType) []ComplianceRow {
	rows := make([]ComplianceRow, 0)
	if len(parameters) == 0 || len(readings) == 0 {
		return rows
	}

	index := parameterIndex(parameters)
	groups, keys := groupDailySlots(index, readings)

	for _, key := range keys {
		avg := DailyAverage(groups[key])
		if avg == nil {
			continue
		}
		p := &parameters[index[key.parameterID]]
		bounds := ResolveRange(p, material)
		rows = append(rows, ComplianceRow{
			ParameterID:   p.ID,
			ParameterName: p.Name,
			Date:          key.date,
			RawValue:      avg,
			Percentage:    ComputeCompliance(avg, bounds),
			Bounds:        bounds,
		})
	}
	return rows
}

// ComputeMonthlyAverages 按参数求月度平均合规百分比，只统计百分比已定义的日期
func ComputeMonthlyAverages(rows []ComplianceRow) []MonthlyAverage {
	type accumulator struct {
		sum  float64
		days int
	}

	order := make([]string, 0)
	acc := make(map[string]*accumulator)
	for _, row := range rows {
		a, ok := acc[row.ParameterID]
		if !ok {
			a = &accumulator{}
			acc[row.ParameterID] = a
			order = append(order, row.ParameterID)
		}
		if row.Percentage != nil && isFinite(*row.Percentage) {
			a.sum += *row.Percentage
			a.days++
		}
	}

	result := make([]MonthlyAverage, 0, len(order))
	for _, id := range order {
		a := acc[id]
		ma := MonthlyAverage{ParameterID: id, DaysWithData: a.days}
		if a.days > 0 {
			ma.Average = floatPtr(a.sum / float64(a.days))
		}
		result = append(result, ma)
	}
	return result
}

// tallyQAF 统计已定义百分比数量与落在 [0,100] 的数量
func tallyQAF(rows []ComplianceRow) (inRange, defined int) {
	for _, row := range rows {
		if row.Percentage == nil || !isFinite(*row.Percentage) {
			continue
		}
		defined++
		if inQAFBand(*row.Percentage) {
			inRange++
		}
	}
	return inRange, defined
}

func newQAFResult(date string, inRange, defined int) QAFResult {
	q := QAFResult{Date: date, InRange: inRange, Defined: defined}
	if defined > 0 {
		q.Value = floatPtr(float64(inRange) / float64(defined) * 100)
	}
	return q
}

// ComputeDailyQAF 计算每日 QAF，按日期升序
func ComputeDailyQAF(rows []ComplianceRow) []QAFResult {
	byDate := make(map[string][]ComplianceRow)
	for _, row := range rows {
		byDate[row.Date] = append(byDate[row.Date], row)
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	result := make([]QAFResult, 0, len(dates))
	for _, date := range dates {
		inRange, defined := tallyQAF(byDate[date])
		result = append(result, newQAFResult(date, inRange, defined))
	}
	return result
}

// ComputeMonthlyQAF 计算月度 QAF：累加全月计数后再相除，而不是对日 QAF 求平均
func ComputeMonthlyQAF(rows []ComplianceRow) QAFResult {
	inRange, defined := tallyQAF(rows)
	return newQAFResult("", inRange, defined)
}

// BuildComplianceTable 构建月度合规表
func BuildComplianceTable(parameters []models.Parameter, readings []models.HourlyReading, material MaterialType) ComplianceTable {
	rows := ComputeComplianceRows(parameters, readings, material)

	byParameter := make(map[string][]ComplianceRow)
	for _, row := range rows {
		byParameter[row.ParameterID] = append(byParameter[row.ParameterID], row)
	}

	averages := make(map[string]*float64)
	for _, ma := range ComputeMonthlyAverages(rows) {
		averages[ma.ParameterID] = ma.Average
	}

	table := ComplianceTable{
		Material:   material,
		Parameters: make([]ParameterCompliance, 0, len(parameters)),
		DailyQAF:   ComputeDailyQAF(rows),
		MonthlyQAF: ComputeMonthlyQAF(rows),
	}

	seen := make(map[string]bool, len(parameters))
	for i := range parameters {
		p := &parameters[i]
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true

		paramRows := byParameter[p.ID]
		if paramRows == nil {
			paramRows = []ComplianceRow{}
		}
		inRange, defined := tallyQAF(paramRows)
		table.Parameters = append(table.Parameters, ParameterCompliance{
			ParameterID:    p.ID,
			ParameterName:  p.Name,
			Unit:           p.Unit,
			Bounds:         ResolveRange(p, material),
			Rows:           paramRows,
			MonthlyAverage: averages[p.ID],
			QAF:            newQAFResult("", inRange, defined),
		})
	}
	return table
}

// MonthDates 返回某月的所有日期 (YYYY-MM-DD)
func MonthDates(year int, month time.Month) []string {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]string, 0, 31)
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(models.ReadingDateLayout))
	}
	return dates
}

// ParseMonth 解析 YYYY-MM 格式的月份
func ParseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("月份格式错误，应为YYYY-MM: %w", err)
	}
	return t.Year(), t.Month(), nil
}

// DailySeries 按给定日期顺序取出参数的日均原始值，缺失日期为 nil
func DailySeries(rows []ComplianceRow, parameterID string, dates []string) []*float64 {
	byDate := make(map[string]*float64)
	for _, row := range rows {
		if row.ParameterID == parameterID {
			byDate[row.Date] = row.RawValue
		}
	}
	series := make([]*float64, len(dates))
	for i, date := range dates {
		series[i] = byDate[date]
	}
	return series
}
