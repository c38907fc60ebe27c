/*
 * @module client/connectors/publisher
 * @description 消息投递连接器的公共定义与发送统计
 * @architecture 适配器模式 - 屏蔽 Kafka/MQTT/Redis 客户端差异
 * @documentReference DESIGN.md
 * @stateFlow 序列化消息 -> 连接器发送 -> 更新统计
 * @rules 连接器只负责投递字节，不关心消息语义
 * @dependencies sync, time
 * @refs service/scheduler/report_scheduler.go
 */

package connectors

import (
	"context"
	"sync"
	"time"
)

// Publisher 消息投递连接器
type Publisher interface {
	// Name 通道名称，用于日志与指标
	Name() string
	// Publish 发送一条消息，key 用于分区或子主题
	Publish(ctx context.Context, key string, payload []byte) error
	Close() error
}

// PublishStats 发送统计
type PublishStats struct {
	MessagesSent int64     `json:"messages_sent"`
	BytesSent    int64     `json:"bytes_sent"`
	Failures     int64     `json:"failures"`
	LastSentAt   time.Time `json:"last_sent_at"`
	LastError    string    `json:"last_error"`
	mutex        sync.RWMutex
}

func (s *PublishStats) record(size int, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err != nil {
		s.Failures++
		s.LastError = err.Error()
		return
	}
	s.MessagesSent++
	s.BytesSent += int64(size)
	s.LastSentAt = time.Now()
}

// Snapshot 返回统计副本
func (s *PublishStats) Snapshot() map[string]interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return map[string]interface{}{
		"messages_sent": s.MessagesSent,
		"bytes_sent":    s.BytesSent,
		"failures":      s.Failures,
		"last_sent_at":  s.LastSentAt,
		"last_error":    s.LastError,
	}
}
