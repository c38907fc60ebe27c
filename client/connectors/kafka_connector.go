/*
 * @module client/connectors/kafka_connector
 * @description Kafka连接器，将告警消息写入指定topic
 * @architecture 适配器模式 - 封装 kafka-go Writer
 * @documentReference DESIGN.md
 * @stateFlow 创建Writer -> 写入消息 -> 关闭
 * @rules 消息key用于分区，同一范围的告警落在同一分区保证顺序
 * @dependencies github.com/segmentio/kafka-go
 * @refs publisher.go
 */

package connectors

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig Kafka连接器配置
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// messageWriter kafka-go Writer 的写入能力
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConnector Kafka连接器
type KafkaConnector struct {
	config *KafkaConfig
	writer messageWriter
	stats  *PublishStats
}

// NewKafkaConnector 创建Kafka连接器
func NewKafkaConnector(config *KafkaConfig) (*KafkaConnector, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("Kafka brokers 不能为空")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("Kafka topic 不能为空")
	}
	if config.BatchTimeout <= 0 {
		config.BatchTimeout = 50 * time.Millisecond
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Topic:                  config.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           config.BatchTimeout,
		WriteTimeout:           config.WriteTimeout,
		AllowAutoTopicCreation: true,
	}

	slog.Info("Kafka连接器已创建", "brokers", config.Brokers, "topic", config.Topic)
	return newKafkaConnector(config, writer), nil
}

func newKafkaConnector(config *KafkaConfig, writer messageWriter) *KafkaConnector {
	return &KafkaConnector{config: config, writer: writer, stats: &PublishStats{}}
}

// Name 通道名称
func (kc *KafkaConnector) Name() string {
	return "kafka"
}

// Publish 写入一条消息
func (kc *KafkaConnector) Publish(ctx context.Context, key string, payload []byte) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}

	err := kc.writer.WriteMessages(ctx, msg)
	kc.stats.record(len(payload), err)
	if err != nil {
		return fmt.Errorf("发送Kafka消息失败: %w", err)
	}
	return nil
}

// GetStatistics 发送统计
func (kc *KafkaConnector) GetStatistics() map[string]interface{} {
	stats := kc.stats.Snapshot()
	stats["topic"] = kc.config.Topic
	stats["brokers"] = kc.config.Brokers
	return stats
}

// Close 关闭Writer
func (kc *KafkaConnector) Close() error {
	return kc.writer.Close()
}
