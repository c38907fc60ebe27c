/*
 * @module service/rate_limiter/redis_rate_limiter
 * @description 基于Redis的分布式固定窗口限流，多实例共享计数
 * @architecture 工具层 - 提供分布式限流能力
 * @documentReference DESIGN.md
 * @stateFlow 计算窗口Key -> Lua原子计数 -> 判断是否超限
 * @rules 使用Redis INCR和EXPIRE实现固定窗口限流；窗口内首个请求设置过期时间
 * @dependencies github.com/go-redis/redis/v8
 * @refs api/middleware/rate_limit.go
 */

package rate_limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultKeyPrefix = "plantops:rate_limit"

// limitScript 原子地检查并增加计数，返回 {allowed, current, ttl}
const limitScript = `
local key = KEYS[1]
local max_requests = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

local current = tonumber(redis.call('GET', key) or '0')
if current >= max_requests then
	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end
	return {0, current, ttl}
end

local new_count = redis.call('INCR', key)
if new_count == 1 then
	redis.call('EXPIRE', key, window)
end

local ttl = redis.call('TTL', key)
if ttl < 0 then
	ttl = window
end
return {1, new_count, ttl}
`

// Rule 限流规则
type Rule struct {
	Scope       string        // 限流范围，如 analytics、dashboard
	Window      time.Duration // 时间窗口
	MaxRequests int           // 窗口内最大请求数
}

// Result 限流检查结果
type Result struct {
	Allowed   bool  `json:"allowed"`
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetAt   int64 `json:"reset_at"` // Unix时间戳
}

// RedisRateLimiter Redis限流器
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisRateLimiter 基于共享Redis客户端创建限流器
func NewRedisRateLimiter(client *redis.Client, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisRateLimiter{client: client, prefix: prefix, now: time.Now}
}

// windowSeconds 窗口秒数，不足1秒按1秒计
func (rule Rule) windowSeconds() int {
	seconds := int(rule.Window / time.Second)
	if seconds < 1 {
		return 1
	}
	return seconds
}

// buildKey 构造限流Key，同一窗口内的请求落在同一个Key上
func (r *RedisRateLimiter) buildKey(rule Rule, clientID string) string {
	window := r.now().Unix() / int64(rule.windowSeconds())
	return fmt.Sprintf("%s:%s:%s:%d", r.prefix, rule.Scope, clientID, window)
}

// Allow 检查客户端在当前窗口内是否还能发起请求
func (r *RedisRateLimiter) Allow(ctx context.Context, rule Rule, clientID string) (*Result, error) {
	if rule.MaxRequests <= 0 {
		return &Result{Allowed: true, Limit: -1, Remaining: -1}, nil
	}

	key := r.buildKey(rule, clientID)
	raw, err := r.client.Eval(ctx, limitScript, []string{key}, rule.MaxRequests, rule.windowSeconds()).Result()
	if err != nil {
		return nil, fmt.Errorf("限流检查失败: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 3 {
		return nil, fmt.Errorf("限流脚本返回格式错误: %v", raw)
	}
	allowed, _ := values[0].(int64)
	current, _ := values[1].(int64)
	ttl, _ := values[2].(int64)

	remaining := rule.MaxRequests - int(current)
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Allowed:   allowed == 1,
		Limit:     rule.MaxRequests,
		Remaining: remaining,
		ResetAt:   r.now().Add(time.Duration(ttl) * time.Second).Unix(),
	}, nil
}
