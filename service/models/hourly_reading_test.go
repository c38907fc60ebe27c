/*
 * @module service/models/hourly_reading_test
 * @description 小时槽位解析与数据库扫描测试
 * @architecture 测试层
 * @documentReference DESIGN.md
 * @stateFlow 原始列值 -> 解析 -> 槽位断言
 * @rules 数组与对象两种存储形式都必须可解析
 * @dependencies testing, testify
 * @refs hourly_reading.go
 */

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHourlyValues(t *testing.T) {
	t.Run("对象形式", func(t *testing.T) {
		slots, err := ParseHourlyValues([]byte(`{"1": 10.5, "2": null, "3": "12", "24": 7, "x": 1, "25": 3, "4": ""}`))
		require.NoError(t, err)
		assert.Equal(t, 10.5, *slots[0])
		assert.Nil(t, slots[1])
		assert.Equal(t, 12.0, *slots[2])
		assert.Nil(t, slots[3])
		assert.Equal(t, 7.0, *slots[23])
	})

	t.Run("数组形式", func(t *testing.T) {
		slots, err := ParseHourlyValues([]byte(`[1, null, "abc", 4]`))
		require.NoError(t, err)
		assert.Equal(t, 1.0, *slots[0])
		assert.Nil(t, slots[1])
		assert.Nil(t, slots[2])
		assert.Equal(t, 4.0, *slots[3])
	})

	t.Run("空值", func(t *testing.T) {
		slots, err := ParseHourlyValues([]byte(`null`))
		require.NoError(t, err)
		assert.Nil(t, slots[0])

		slots, err = ParseHourlyValues(nil)
		require.NoError(t, err)
		assert.Nil(t, slots[0])
	})

	t.Run("格式错误", func(t *testing.T) {
		_, err := ParseHourlyValues([]byte(`"oops"`))
		assert.Error(t, err)
	})
}

func TestHourlySlotsScan(t *testing.T) {
	t.Run("数组字符串", func(t *testing.T) {
		var slots HourlySlots
		require.NoError(t, slots.Scan(`[3500, 3600]`))
		assert.Equal(t, 3500.0, *slots[0])
		assert.Equal(t, 3600.0, *slots[1])
		assert.Nil(t, slots[2])
	})

	t.Run("对象字节", func(t *testing.T) {
		var slots HourlySlots
		require.NoError(t, slots.Scan([]byte(`{"1": 2.5, "12": "2.7"}`)))
		assert.Equal(t, 2.5, *slots[0])
		assert.Equal(t, 2.7, *slots[11])
	})

	t.Run("NULL列", func(t *testing.T) {
		slots := HourlySlots{}
		slots.Set(1, 9)
		require.NoError(t, slots.Scan(nil))
		assert.Nil(t, slots[0])
	})

	t.Run("不支持的类型", func(t *testing.T) {
		var slots HourlySlots
		assert.Error(t, slots.Scan(42))
	})

	t.Run("写入后再读取", func(t *testing.T) {
		var slots HourlySlots
		slots.Set(2, 1.5)
		raw, err := slots.Value()
		require.NoError(t, err)

		var back HourlySlots
		require.NoError(t, back.Scan(raw))
		assert.Nil(t, back[0])
		assert.Equal(t, 1.5, *back[1])
	})
}
