/*
 * @module client/connectors/redis_connector
 * @description Redis发布订阅连接器，将告警消息发布到 <channel>:<key>
 * @architecture 适配器模式 - 封装 go-redis PUBLISH
 * @documentReference DESIGN.md
 * @stateFlow 发布消息 -> 返回订阅者数量
 * @rules 共享服务级 Redis 客户端，连接器关闭时不关闭客户端
 * @dependencies github.com/go-redis/redis/v8
 * @refs publisher.go
 */

package connectors

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-redis/redis/v8"
)

// RedisConnector Redis发布订阅连接器
type RedisConnector struct {
	client  *redis.Client
	channel string
	stats   *PublishStats
}

// NewRedisConnector 创建Redis发布连接器
func NewRedisConnector(client *redis.Client, channel string) (*RedisConnector, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis客户端不能为空")
	}
	if strings.TrimSpace(channel) == "" {
		return nil, fmt.Errorf("Redis channel 不能为空")
	}
	return &RedisConnector{client: client, channel: channel, stats: &PublishStats{}}, nil
}

// Name 通道名称
func (rc *RedisConnector) Name() string {
	return "redis"
}

func (rc *RedisConnector) channelFor(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return rc.channel
	}
	return rc.channel + ":" + key
}

// Publish 发布一条消息
func (rc *RedisConnector) Publish(ctx context.Context, key string, payload []byte) error {
	channel := rc.channelFor(key)
	receivers, err := rc.client.Publish(ctx, channel, payload).Result()
	rc.stats.record(len(payload), err)
	if err != nil {
		return fmt.Errorf("发布Redis消息失败: %w", err)
	}
	slog.Debug("Redis消息已发布", "channel", channel, "receivers", receivers)
	return nil
}

// GetStatistics 发送统计
func (rc *RedisConnector) GetStatistics() map[string]interface{} {
	stats := rc.stats.Snapshot()
	stats["channel"] = rc.channel
	return stats
}

// Close 客户端由服务统一关闭
func (rc *RedisConnector) Close() error {
	return nil
}
