/*
 * @module service/cache/snapshot_cache
 * @description 主数据快照缓存，减少参数与操作员主数据的重复查询
 * @architecture 缓存层 - Redis 键值存储，JSON 序列化
 * @documentReference DESIGN.md
 * @stateFlow 查询缓存 -> 未命中回源 -> 写入缓存 -> 变更通知时失效
 * @rules 缓存只保存主数据，不缓存小时读数与计算结果；键名按小写类别/单元区分
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/dashboard/service.go, service/event/change_listener.go
 */

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"plantops-service/service/models"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("缓存未命中")

const (
	defaultPrefix = "plantops:snapshot"
	defaultTTL    = 10 * time.Minute
	scanBatchSize = 100
)

// SnapshotCache Redis 主数据快照缓存
type SnapshotCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSnapshotCache 创建快照缓存，ttl<=0 时使用默认值
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &SnapshotCache{
		client: client,
		prefix: defaultPrefix,
		ttl:    ttl,
	}
}

func (c *SnapshotCache) parametersKey(category, unit string) string {
	return fmt.Sprintf("%s:parameters:%s:%s", c.prefix,
		strings.ToLower(strings.TrimSpace(category)),
		strings.ToLower(strings.TrimSpace(unit)))
}

func (c *SnapshotCache) operatorsKey() string {
	return c.prefix + ":operators"
}

func (c *SnapshotCache) get(ctx context.Context, key string, out interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("读取缓存失败: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		// 损坏的缓存按未命中处理
		slog.Warn("缓存内容无法解析", "key", key, "error", err)
		return ErrCacheMiss
	}
	return nil
}

func (c *SnapshotCache) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("序列化缓存失败: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("写入缓存失败: %w", err)
	}
	return nil
}

// GetParameters 读取参数快照
func (c *SnapshotCache) GetParameters(ctx context.Context, category, unit string) ([]models.Parameter, error) {
	var parameters []models.Parameter
	if err := c.get(ctx, c.parametersKey(category, unit), &parameters); err != nil {
		return nil, err
	}
	return parameters, nil
}

// SetParameters 写入参数快照
func (c *SnapshotCache) SetParameters(ctx context.Context, category, unit string, parameters []models.Parameter) error {
	return c.set(ctx, c.parametersKey(category, unit), parameters)
}

// GetOperators 读取操作员快照
func (c *SnapshotCache) GetOperators(ctx context.Context) ([]models.Operator, error) {
	var operators []models.Operator
	if err := c.get(ctx, c.operatorsKey(), &operators); err != nil {
		return nil, err
	}
	return operators, nil
}

// SetOperators 写入操作员快照
func (c *SnapshotCache) SetOperators(ctx context.Context, operators []models.Operator) error {
	return c.set(ctx, c.operatorsKey(), operators)
}

// Evict 删除全部快照，返回删除的键数量
func (c *SnapshotCache) Evict(ctx context.Context) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+":*", scanBatchSize).Result()
		if err != nil {
			return deleted, fmt.Errorf("扫描缓存键失败: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("删除缓存失败: %w", err)
			}
			deleted += n
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	slog.Info("主数据快照缓存已失效", "deleted", deleted)
	return deleted, nil
}
