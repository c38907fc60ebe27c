package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantops-service/service/models"
)

func TestSnapshotCache_Parameters(t *testing.T) {
	ctx := context.Background()
	max := 4000.0
	params := []models.Parameter{{ID: "p1", Name: "Blaine", Category: "Cement Mill", PlantUnit: "CM-1", MaxValue: &max}}
	data, err := json.Marshal(params)
	require.NoError(t, err)
	key := "plantops:snapshot:parameters:cement mill:cm-1"

	t.Run("写入后读取", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		c := NewSnapshotCache(db, time.Minute)
		mock.ExpectSet(key, data, time.Minute).SetVal("OK")
		mock.ExpectGet(key).SetVal(string(data))

		require.NoError(t, c.SetParameters(ctx, " Cement Mill ", "CM-1", params))
		got, err := c.GetParameters(ctx, "cement mill", "cm-1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Blaine", got[0].Name)
		assert.Equal(t, 4000.0, *got[0].MaxValue)
		assert.Nil(t, got[0].MinValue)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("未命中", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		c := NewSnapshotCache(db, 0)
		mock.ExpectGet(key).RedisNil()

		_, err := c.GetParameters(ctx, "Cement Mill", "CM-1")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("内容损坏按未命中处理", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		c := NewSnapshotCache(db, 0)
		mock.ExpectGet(key).SetVal("{not json")

		_, err := c.GetParameters(ctx, "Cement Mill", "CM-1")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("Redis错误", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		c := NewSnapshotCache(db, 0)
		mock.ExpectGet(key).SetErr(errors.New("connection refused"))

		_, err := c.GetParameters(ctx, "Cement Mill", "CM-1")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrCacheMiss))
	})
}

func TestSnapshotCache_Operators(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewSnapshotCache(db, time.Minute)

	operators := []models.Operator{{ID: "o1", Name: "Ani", Role: "Operator", Active: true}}
	data, _ := json.Marshal(operators)
	mock.ExpectSet("plantops:snapshot:operators", data, time.Minute).SetVal("OK")
	mock.ExpectGet("plantops:snapshot:operators").SetVal(string(data))

	require.NoError(t, c.SetOperators(ctx, operators))
	got, err := c.GetOperators(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ani", got[0].Name)
	assert.True(t, got[0].Active)
}

func TestSnapshotCache_Evict(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewSnapshotCache(db, 0)

	mock.ExpectScan(0, "plantops:snapshot:*", scanBatchSize).SetVal([]string{"plantops:snapshot:operators"}, 7)
	mock.ExpectDel("plantops:snapshot:operators").SetVal(1)
	mock.ExpectScan(7, "plantops:snapshot:*", scanBatchSize).SetVal([]string{"plantops:snapshot:parameters:kiln:"}, 0)
	mock.ExpectDel("plantops:snapshot:parameters:kiln:").SetVal(1)

	deleted, err := c.Evict(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
