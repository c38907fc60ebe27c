/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference DESIGN.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models
 */

package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"plantops-service/service/models"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.Parameter{},
		&models.HourlyReading{},
		&models.Operator{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		models.Parameter{}.TableName(),
		models.HourlyReading{}.TableName(),
		models.Operator{}.TableName(),
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// Float 返回浮点数指针
func Float(v float64) *float64 {
	return &v
}

// ParameterOption 参数选项函数类型
type ParameterOption func(*models.Parameter)

// WithBounds 设置通用范围
func WithBounds(min, max float64) ParameterOption {
	return func(p *models.Parameter) {
		p.MinValue = Float(min)
		p.MaxValue = Float(max)
	}
}

// WithOPCBounds 设置 OPC 范围
func WithOPCBounds(min, max float64) ParameterOption {
	return func(p *models.Parameter) {
		p.OPCMinValue = Float(min)
		p.OPCMaxValue = Float(max)
	}
}

// WithPCCBounds 设置 PCC 范围
func WithPCCBounds(min, max float64) ParameterOption {
	return func(p *models.Parameter) {
		p.PCCMinValue = Float(min)
		p.PCCMaxValue = Float(max)
	}
}

// CreateParameter 创建测试参数
func (f *TestDataFactory) CreateParameter(name, category, unit string, opts ...ParameterOption) *models.Parameter {
	parameter := &models.Parameter{
		ID:        generateID("param"),
		Name:      name,
		Unit:      "%",
		Category:  category,
		PlantUnit: unit,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(parameter)
	}

	if err := f.DB.Create(parameter).Error; err != nil {
		panic(fmt.Sprintf("failed to create test parameter: %v", err))
	}
	return parameter
}

// CreateHourlyReading 创建测试小时读数，values 依次填充第1..n小时
func (f *TestDataFactory) CreateHourlyReading(parameterID, date, operator string, values ...float64) *models.HourlyReading {
	reading := &models.HourlyReading{
		ID:           generateID("hr"),
		ParameterID:  parameterID,
		Date:         date,
		OperatorName: operator,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	for i, v := range values {
		reading.Hours.Set(i+1, v)
	}

	if err := f.DB.Create(reading).Error; err != nil {
		panic(fmt.Sprintf("failed to create test hourly reading: %v", err))
	}
	return reading
}

// CreateOperator 创建测试操作员
func (f *TestDataFactory) CreateOperator(name, role string) *models.Operator {
	operator := &models.Operator{
		ID:        generateID("op"),
		Name:      name,
		Role:      role,
		Active:    true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := f.DB.Create(operator).Error; err != nil {
		panic(fmt.Sprintf("failed to create test operator: %v", err))
	}
	return operator
}

// 辅助函数
func generateID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), generateSuffix())
}

func generateSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano()%100000)
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// CreateJSONRequest 创建JSON请求
func (h *HTTPTestHelper) CreateJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// DecodeResponse 解析统一响应结构，data 解码到 out（可为 nil）
func (h *HTTPTestHelper) DecodeResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, out interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code)

	var envelope struct {
		Status int             `json:"status"`
		Msg    string          `json:"msg"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())

	if out != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, out), string(envelope.Data))
	}
}
