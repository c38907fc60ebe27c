/*
 * @module service/rate_limiter/redis_rate_limiter_test
 * @description Redis限流器单元测试
 * @architecture 测试层
 * @documentReference DESIGN.md
 * @stateFlow 模拟Redis脚本返回 -> 执行限流检查 -> 验证结果
 * @rules 使用 redismock 校验Key与参数
 * @dependencies github.com/go-redis/redismock/v8, testify
 * @refs redis_rate_limiter.go
 */

package rate_limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*RedisRateLimiter, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	limiter := NewRedisRateLimiter(db, "test:rl")
	fixed := time.Unix(1_700_000_040, 0)
	limiter.now = func() time.Time { return fixed }
	return limiter, mock
}

func TestRedisRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	rule := Rule{Scope: "analytics", Window: time.Minute, MaxRequests: 10}
	// 1_700_000_040 / 60 = 28333334
	key := "test:rl:analytics:10.0.0.1:28333334"

	t.Run("窗口内允许", func(t *testing.T) {
		limiter, mock := newTestLimiter(t)
		mock.ExpectEval(limitScript, []string{key}, 10, 60).SetVal([]interface{}{int64(1), int64(3), int64(20)})

		result, err := limiter.Allow(ctx, rule, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 10, result.Limit)
		assert.Equal(t, 7, result.Remaining)
		assert.Equal(t, int64(1_700_000_060), result.ResetAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("超过限制", func(t *testing.T) {
		limiter, mock := newTestLimiter(t)
		mock.ExpectEval(limitScript, []string{key}, 10, 60).SetVal([]interface{}{int64(0), int64(10), int64(5)})

		result, err := limiter.Allow(ctx, rule, "10.0.0.1")
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, 0, result.Remaining)
	})

	t.Run("Redis错误", func(t *testing.T) {
		limiter, mock := newTestLimiter(t)
		mock.ExpectEval(limitScript, []string{key}, 10, 60).SetErr(errors.New("connection refused"))

		_, err := limiter.Allow(ctx, rule, "10.0.0.1")
		assert.ErrorContains(t, err, "限流检查失败")
	})

	t.Run("未设置上限时不访问Redis", func(t *testing.T) {
		limiter, mock := newTestLimiter(t)

		result, err := limiter.Allow(ctx, Rule{Scope: "analytics", Window: time.Minute}, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
