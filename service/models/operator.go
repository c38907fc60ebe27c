package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Operator 操作员主数据
type Operator struct {
	ID        string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Role      string    `gorm:"type:varchar(50)" json:"role"`
	Active    bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Operator) TableName() string {
	return "operators"
}

// BeforeCreate 创建前钩子
func (o *Operator) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}
