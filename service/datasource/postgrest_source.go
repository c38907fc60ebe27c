/*
 * @module service/datasource/postgrest_source
 * @description 基于 PostgREST 的托管记录存储数据源
 * @architecture 适配器模式 - 将 PostgREST 表查询转换为模型快照
 * @documentReference DESIGN.md
 * @stateFlow 构建查询参数 -> PostgREST 查询 -> 行解码 -> 模型
 * @rules 小时读数由 models.ParseHourlyValues 解析；格式错误的行跳过
 * @dependencies plantops-service/client
 * @refs interface.go
 */

package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"plantops-service/client"
	"plantops-service/service/config"
	"plantops-service/service/models"
)

// PostgREST 表名
const (
	parameterTable = "parameter_settings"
	readingTable   = "hourly_parameter_data"
	operatorTable  = "operators"

	parameterColumns = "id,parameter,unit,category,plant_unit,min_value,max_value,opc_min_value,opc_max_value,pcc_min_value,pcc_max_value"
	readingColumns   = "id,parameter_id,date,operator_name,hourly_values"
	operatorColumns  = "id,name,role,is_active"
)

// tableQuerier PostgREST 表查询能力
type tableQuerier interface {
	QueryTable(ctx context.Context, tableName string, query url.Values, out interface{}) error
	Ping(ctx context.Context) error
	Close() error
}

// PostgRESTSource PostgREST 数据源
type PostgRESTSource struct {
	client tableQuerier
}

// NewPostgRESTSource 基于已有客户端创建数据源
func NewPostgRESTSource(c tableQuerier) *PostgRESTSource {
	return &PostgRESTSource{client: c}
}

// NewPostgRESTSourceFromConfig 按配置创建客户端并获取Token
func NewPostgRESTSourceFromConfig(ctx context.Context, cfg config.DataSourceConfig) (Source, error) {
	pc := client.NewPostgRESTClient(&client.PostgRESTConfig{
		BaseURL:  cfg.PostgREST.URL,
		Username: cfg.PostgREST.Username,
		Password: cfg.PostgREST.Password,
		Timeout:  cfg.PostgREST.Timeout,
		Schema:   cfg.PostgREST.Schema,
	})
	if err := pc.Connect(ctx); err != nil {
		pc.Close()
		return nil, fmt.Errorf("连接PostgREST失败: %w", err)
	}
	return NewPostgRESTSource(pc), nil
}

// Kind 数据源类型
func (s *PostgRESTSource) Kind() string {
	return config.SourcePostgREST
}

// ListParameters 查询参数主数据
func (s *PostgRESTSource) ListParameters(ctx context.Context, filter ParameterFilter) ([]models.Parameter, error) {
	query := url.Values{}
	query.Set("select", parameterColumns)
	query.Set("order", "parameter.asc")
	if c := strings.TrimSpace(filter.Category); c != "" {
		query.Set("category", "ilike."+c)
	}
	if u := strings.TrimSpace(filter.Unit); u != "" {
		query.Set("plant_unit", "ilike."+u)
	}

	parameters := make([]models.Parameter, 0)
	if err := s.client.QueryTable(ctx, parameterTable, query, &parameters); err != nil {
		return nil, fmt.Errorf("查询参数主数据失败: %w", err)
	}
	return parameters, nil
}

// readingRow PostgREST 返回的小时读数行
type readingRow struct {
	ID           string          `json:"id"`
	ParameterID  string          `json:"parameter_id"`
	Date         string          `json:"date"`
	OperatorName string          `json:"operator_name"`
	HourlyValues json.RawMessage `json:"hourly_values"`
}

// inFilter 构造 PostgREST in 过滤条件，值加双引号避免逗号歧义
func inFilter(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}

// ListHourlyReadings 查询小时读数
func (s *PostgRESTSource) ListHourlyReadings(ctx context.Context, dateRange DateRange, parameterIDs []string) ([]models.HourlyReading, error) {
	if len(parameterIDs) == 0 {
		return []models.HourlyReading{}, nil
	}
	if err := dateRange.Validate(); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("select", readingColumns)
	query.Add("date", "gte."+dateRange.From)
	query.Add("date", "lte."+dateRange.To)
	query.Set("parameter_id", inFilter(parameterIDs))
	query.Set("order", "date.asc")

	rows := make([]readingRow, 0)
	if err := s.client.QueryTable(ctx, readingTable, query, &rows); err != nil {
		return nil, fmt.Errorf("查询小时读数失败: %w", err)
	}

	readings := make([]models.HourlyReading, 0, len(rows))
	for _, row := range rows {
		slots, err := models.ParseHourlyValues(row.HourlyValues)
		if err != nil {
			slog.Warn("小时读数格式错误，已跳过", "id", row.ID, "parameter_id", row.ParameterID, "error", err)
			continue
		}
		readings = append(readings, models.HourlyReading{
			ID:           row.ID,
			ParameterID:  row.ParameterID,
			Date:         row.Date,
			OperatorName: row.OperatorName,
			Hours:        slots,
		})
	}
	return readings, nil
}

// ListOperators 查询操作员主数据
func (s *PostgRESTSource) ListOperators(ctx context.Context) ([]models.Operator, error) {
	query := url.Values{}
	query.Set("select", operatorColumns)
	query.Set("order", "name.asc")

	operators := make([]models.Operator, 0)
	if err := s.client.QueryTable(ctx, operatorTable, query, &operators); err != nil {
		return nil, fmt.Errorf("查询操作员失败: %w", err)
	}
	return operators, nil
}

// Ping 检查数据源是否可用
func (s *PostgRESTSource) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close 释放连接
func (s *PostgRESTSource) Close() error {
	return s.client.Close()
}
