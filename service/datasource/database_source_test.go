/*
 * @module service/datasource/database_source_test
 * @description 数据库数据源单元测试，使用内存 sqlite
 * @architecture 测试层
 * @documentReference DESIGN.md
 * @stateFlow 准备测试数据 -> 查询 -> 验证结果
 * @rules 覆盖过滤条件、日期范围与空参数集合；按存储端实际列名建表验证小时读数映射
 * @dependencies testing, testify, plantops-service/testutil
 * @refs database_source.go
 */

package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"plantops-service/service/config"
	"plantops-service/testutil"
)

func TestDatabaseSource(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	blaine := factory.CreateParameter("Blaine", "Cement Mill", "CM-1", testutil.WithBounds(3000, 4000))
	so3 := factory.CreateParameter("SO3", "cement mill", "cm-1", testutil.WithBounds(2, 3), testutil.WithOPCBounds(2.2, 2.8))
	factory.CreateParameter("Temperature", "Kiln", "K-1", testutil.WithBounds(1400, 1500))

	factory.CreateHourlyReading(blaine.ID, "2024-03-01", "Ani", 3500, 3600)
	factory.CreateHourlyReading(so3.ID, "2024-03-15", "Budi", 2.5)
	factory.CreateHourlyReading(blaine.ID, "2024-04-01", "Ani", 3700)

	factory.CreateOperator("Budi", "Operator")
	factory.CreateOperator("Ani", "Supervisor")

	source := NewDatabaseSource(tdb.DB)
	ctx := context.Background()
	assert.Equal(t, config.SourceDatabase, source.Kind())
	require.NoError(t, source.Ping(ctx))

	t.Run("按类别与单元过滤参数且忽略大小写", func(t *testing.T) {
		params, err := source.ListParameters(ctx, ParameterFilter{Category: "CEMENT MILL", Unit: "CM-1"})
		require.NoError(t, err)
		require.Len(t, params, 2)
		assert.Equal(t, "Blaine", params[0].Name)
		require.NotNil(t, params[1].OPCMinValue)
		assert.Equal(t, 2.2, *params[1].OPCMinValue)
		assert.Nil(t, params[1].PCCMinValue)
	})

	t.Run("无过滤条件返回全部参数", func(t *testing.T) {
		params, err := source.ListParameters(ctx, ParameterFilter{})
		require.NoError(t, err)
		assert.Len(t, params, 3)
	})

	t.Run("按月查询小时读数", func(t *testing.T) {
		readings, err := source.ListHourlyReadings(ctx, DateRange{From: "2024-03-01", To: "2024-03-31"}, []string{blaine.ID, so3.ID})
		require.NoError(t, err)
		require.Len(t, readings, 2)
		assert.Equal(t, "2024-03-01", readings[0].Date)
		require.NotNil(t, readings[0].Hours[1])
		assert.Equal(t, 3600.0, *readings[0].Hours[1])
		assert.Nil(t, readings[0].Hours[2])
		assert.Equal(t, "Budi", readings[1].OperatorName)
	})

	t.Run("空参数集合不查询", func(t *testing.T) {
		readings, err := source.ListHourlyReadings(ctx, DateRange{From: "2024-03-01", To: "2024-03-31"}, nil)
		require.NoError(t, err)
		assert.Empty(t, readings)
	})

	t.Run("日期范围错误", func(t *testing.T) {
		_, err := source.ListHourlyReadings(ctx, DateRange{From: "2024-03-31", To: "2024-03-01"}, []string{blaine.ID})
		assert.Error(t, err)
	})

	t.Run("操作员按姓名排序", func(t *testing.T) {
		operators, err := source.ListOperators(ctx)
		require.NoError(t, err)
		require.Len(t, operators, 2)
		assert.Equal(t, "Ani", operators[0].Name)
		assert.True(t, operators[0].Active)
	})
}

// 存储端的小时读数表由外部录入系统建立，列名为 hourly_values，内容可能是数组或对象
func TestDatabaseSource_StoreSchema(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	require.NoError(t, db.Exec(`CREATE TABLE hourly_parameter_data (
		id varchar(50) PRIMARY KEY,
		parameter_id varchar(50) NOT NULL,
		date varchar(10) NOT NULL,
		operator_name varchar(100),
		hourly_values text,
		created_at datetime,
		updated_at datetime
	)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO hourly_parameter_data VALUES
		('r1', 'p-blaine', '2024-03-01', 'Ani', '[3500,3600]', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP),
		('r2', 'p-so3', '2024-03-02', 'Budi', '{"1": 2.5, "3": "2.7"}', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP),
		('r3', 'p-so3', '2024-03-03', 'Budi', NULL, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`).Error)

	source := NewDatabaseSource(db)
	readings, err := source.ListHourlyReadings(context.Background(), DateRange{From: "2024-03-01", To: "2024-03-31"}, []string{"p-blaine", "p-so3"})
	require.NoError(t, err)
	require.Len(t, readings, 3)

	t.Run("数组形式读数映射到槽位", func(t *testing.T) {
		require.NotNil(t, readings[0].Hours[0])
		require.NotNil(t, readings[0].Hours[1])
		assert.Equal(t, 3500.0, *readings[0].Hours[0])
		assert.Equal(t, 3600.0, *readings[0].Hours[1])
		assert.Nil(t, readings[0].Hours[2])
	})

	t.Run("对象形式读数映射到槽位", func(t *testing.T) {
		require.NotNil(t, readings[1].Hours[0])
		require.NotNil(t, readings[1].Hours[2])
		assert.Equal(t, 2.5, *readings[1].Hours[0])
		assert.Equal(t, 2.7, *readings[1].Hours[2])
		assert.Nil(t, readings[1].Hours[1])
	})

	t.Run("空列视为全部未定义", func(t *testing.T) {
		for _, v := range readings[2].Hours {
			assert.Nil(t, v)
		}
	})
}
