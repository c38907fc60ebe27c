/*
 * @module service/datasource/database_source
 * @description 直连关系数据库的数据源实现
 * @architecture 仓储模式 - 基于 GORM 的只读查询
 * @documentReference DESIGN.md
 * @stateFlow 查询条件 -> GORM 查询 -> 模型
 * @rules 类别与单元比较忽略大小写
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs interface.go
 */

package datasource

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"plantops-service/service/config"
	"plantops-service/service/models"
)

// DatabaseSource 数据库数据源
type DatabaseSource struct {
	db *gorm.DB
}

// NewDatabaseSource 基于已有连接创建数据源
func NewDatabaseSource(db *gorm.DB) *DatabaseSource {
	return &DatabaseSource{db: db}
}

// NewDatabaseSourceFromConfig 按配置建立 postgres 连接
func NewDatabaseSourceFromConfig(ctx context.Context, cfg config.DataSourceConfig) (Source, error) {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	return NewDatabaseSource(db), nil
}

// DB 底层连接，用于安装变更通知触发器
func (s *DatabaseSource) DB() *gorm.DB {
	return s.db
}

// Kind 数据源类型
func (s *DatabaseSource) Kind() string {
	return config.SourceDatabase
}

// ListParameters 查询参数主数据
func (s *DatabaseSource) ListParameters(ctx context.Context, filter ParameterFilter) ([]models.Parameter, error) {
	query := s.db.WithContext(ctx).Model(&models.Parameter{})
	if c := strings.TrimSpace(filter.Category); c != "" {
		query = query.Where("LOWER(category) = LOWER(?)", c)
	}
	if u := strings.TrimSpace(filter.Unit); u != "" {
		query = query.Where("LOWER(plant_unit) = LOWER(?)", u)
	}

	parameters := make([]models.Parameter, 0)
	if err := query.Order("parameter ASC").Find(&parameters).Error; err != nil {
		return nil, fmt.Errorf("查询参数主数据失败: %w", err)
	}
	return parameters, nil
}

// ListHourlyReadings 查询小时读数
func (s *DatabaseSource) ListHourlyReadings(ctx context.Context, dateRange DateRange, parameterIDs []string) ([]models.HourlyReading, error) {
	if len(parameterIDs) == 0 {
		return []models.HourlyReading{}, nil
	}
	if err := dateRange.Validate(); err != nil {
		return nil, err
	}

	readings := make([]models.HourlyReading, 0)
	err := s.db.WithContext(ctx).
		Where("date BETWEEN ? AND ?", dateRange.From, dateRange.To).
		Where("parameter_id IN ?", parameterIDs).
		Order("date ASC").
		Find(&readings).Error
	if err != nil {
		return nil, fmt.Errorf("查询小时读数失败: %w", err)
	}
	return readings, nil
}

// ListOperators 查询操作员主数据
func (s *DatabaseSource) ListOperators(ctx context.Context) ([]models.Operator, error) {
	operators := make([]models.Operator, 0)
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&operators).Error; err != nil {
		return nil, fmt.Errorf("查询操作员失败: %w", err)
	}
	return operators, nil
}

// Ping 检查数据源是否可用
func (s *DatabaseSource) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("获取数据库连接失败: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close 释放连接
func (s *DatabaseSource) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
