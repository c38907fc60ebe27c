/*
 * @module service/models/parameter
 * @description 工艺参数主数据模型，包含通用范围及OPC/PCC物料专用范围
 * @architecture 数据模型层
 * @documentReference DESIGN.md
 * @stateFlow 主数据由外部维护 -> 分析引擎只读使用
 * @rules 范围上下限允许为空，空值表示未定义
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/analytics/range_resolver.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Parameter 工艺参数主数据
type Parameter struct {
	ID          string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	Name        string    `gorm:"column:parameter;type:varchar(200);not null" json:"parameter"`
	Unit        string    `gorm:"type:varchar(50)" json:"unit"`                     // 计量单位，如 %、°C
	Category    string    `gorm:"type:varchar(100);not null;index" json:"category"` // 工段类别，如 Cement Mill
	PlantUnit   string    `gorm:"type:varchar(100);index" json:"plant_unit"`        // 类别下的设备单元
	MinValue    *float64  `json:"min_value"`
	MaxValue    *float64  `json:"max_value"`
	OPCMinValue *float64  `gorm:"column:opc_min_value" json:"opc_min_value"`
	OPCMaxValue *float64  `gorm:"column:opc_max_value" json:"opc_max_value"`
	PCCMinValue *float64  `gorm:"column:pcc_min_value" json:"pcc_min_value"`
	PCCMaxValue *float64  `gorm:"column:pcc_max_value" json:"pcc_max_value"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Parameter) TableName() string {
	return "parameter_settings"
}

// BeforeCreate 创建前钩子
func (p *Parameter) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
