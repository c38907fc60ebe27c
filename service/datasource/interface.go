/*
 * @module service/datasource/interface
 * @description 记录存储数据源统一接口，提供参数主数据、小时读数与操作员列表的只读访问
 * @architecture 接口隔离原则 - 分析核心只依赖快照，不感知存储实现
 * @documentReference DESIGN.md
 * @stateFlow 查询条件 -> 数据源实现 -> 模型快照
 * @rules 数据源只读；空的参数ID集合直接返回空结果
 * @dependencies context, plantops-service/service/models
 * @refs registry.go, postgrest_source.go, database_source.go
 */

package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"plantops-service/service/models"
)

// ErrUnsupportedSource 不支持的数据源类型
var ErrUnsupportedSource = errors.New("不支持的数据源类型")

// Source 数据源统一接口
type Source interface {
	// ListParameters 查询参数主数据，过滤条件为空时返回全部
	ListParameters(ctx context.Context, filter ParameterFilter) ([]models.Parameter, error)

	// ListHourlyReadings 查询日期范围内指定参数的小时读数
	ListHourlyReadings(ctx context.Context, dateRange DateRange, parameterIDs []string) ([]models.HourlyReading, error)

	// ListOperators 查询操作员主数据
	ListOperators(ctx context.Context) ([]models.Operator, error)

	// Ping 检查数据源是否可用
	Ping(ctx context.Context) error

	// Kind 数据源类型
	Kind() string

	// Close 释放连接
	Close() error
}

// ParameterFilter 参数过滤条件
type ParameterFilter struct {
	Category string `json:"category"`
	Unit     string `json:"unit"`
}

// DateRange 闭区间日期范围 (YYYY-MM-DD)
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// MonthRange 某月的完整日期范围
func MonthRange(year int, month time.Month) DateRange {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return DateRange{
		From: first.Format(models.ReadingDateLayout),
		To:   last.Format(models.ReadingDateLayout),
	}
}

// Validate 校验日期格式与先后顺序
func (r DateRange) Validate() error {
	from, err := time.Parse(models.ReadingDateLayout, r.From)
	if err != nil {
		return fmt.Errorf("开始日期格式错误: %w", err)
	}
	to, err := time.Parse(models.ReadingDateLayout, r.To)
	if err != nil {
		return fmt.Errorf("结束日期格式错误: %w", err)
	}
	if to.Before(from) {
		return fmt.Errorf("结束日期 %s 早于开始日期 %s", r.To, r.From)
	}
	return nil
}

// ParameterIDs 提取参数ID列表
func ParameterIDs(parameters []models.Parameter) []string {
	ids := make([]string, 0, len(parameters))
	for _, p := range parameters {
		ids = append(ids, p.ID)
	}
	return ids
}
