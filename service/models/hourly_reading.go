/*
 * @module service/models/hourly_reading
 * @description 小时读数模型，每条记录对应一个参数在一天内的24个小时槽位
 * @architecture 数据模型层
 * @documentReference DESIGN.md
 * @stateFlow 操作员录入 -> 外部存储 -> 分析引擎只读使用
 * @rules 任意槽位可以为空，空值不参与任何聚合计算
 * @dependencies gorm.io/gorm, github.com/google/uuid, github.com/spf13/cast
 * @refs service/analytics/aggregation.go, service/analytics/ranking.go
 */

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// HoursPerDay 每日小时槽位数
const HoursPerDay = 24

// ReadingDateLayout 读数日期格式
const ReadingDateLayout = "2006-01-02"

// HourlySlots 24个小时槽位，下标0对应第1小时
type HourlySlots [HoursPerDay]*float64

// Scan 实现 Scanner 接口
func (h *HourlySlots) Scan(value interface{}) error {
	if value == nil {
		*h = HourlySlots{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("类型断言失败: 不是 []byte 或 string")
	}

	slots, err := ParseHourlyValues(bytes)
	if err != nil {
		return err
	}
	*h = slots
	return nil
}

// Value 实现 Valuer 接口
func (h HourlySlots) Value() (driver.Value, error) {
	return json.Marshal(h[:])
}

// Set 设置第hour小时(1-24)的读数
func (h *HourlySlots) Set(hour int, value float64) {
	if hour < 1 || hour > HoursPerDay {
		return
	}
	v := value
	h[hour-1] = &v
}

// ParseHourlyValues 解析 hourly_values 列
// 兼容数组形式 [v1, v2, ...] 与对象形式 {"1": v1, "2": v2}，无法识别的小时或读数视为空
func ParseHourlyValues(raw []byte) (HourlySlots, error) {
	var slots HourlySlots
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return slots, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var values []interface{}
		if err := json.Unmarshal([]byte(trimmed), &values); err != nil {
			return slots, fmt.Errorf("解析小时数组失败: %w", err)
		}
		for i, v := range values {
			slots.setRaw(i+1, v)
		}
		return slots, nil
	}

	var values map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &values); err != nil {
		return slots, fmt.Errorf("解析小时对象失败: %w", err)
	}
	for key, v := range values {
		hour, err := cast.ToIntE(strings.TrimSpace(key))
		if err != nil {
			continue
		}
		slots.setRaw(hour, v)
	}
	return slots, nil
}

func (h *HourlySlots) setRaw(hour int, v interface{}) {
	if v == nil {
		return
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return
	}
	h.Set(hour, f)
}

// HourlyReading 参数小时读数
type HourlyReading struct {
	ID           string      `gorm:"type:varchar(50);primaryKey" json:"id"`
	ParameterID  string      `gorm:"type:varchar(50);not null;index" json:"parameter_id"`
	Date         string      `gorm:"type:varchar(10);not null;index" json:"date"` // YYYY-MM-DD
	OperatorName string      `gorm:"type:varchar(100);index" json:"operator_name"`
	Hours        HourlySlots `gorm:"column:hourly_values;type:jsonb" json:"hourly_values"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// TableName 指定表名
func (HourlyReading) TableName() string {
	return "hourly_parameter_data"
}

// BeforeCreate 创建前钩子
func (r *HourlyReading) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
