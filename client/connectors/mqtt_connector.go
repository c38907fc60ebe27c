/*
 * @module client/connectors/mqtt_connector
 * @description MQTT连接器，将告警消息发布到 <topic>/<key> 主题
 * @architecture 适配器模式 - 封装 paho MQTT 客户端
 * @documentReference DESIGN.md
 * @stateFlow 连接broker -> 发布消息 -> 断开连接
 * @rules 使用QoS 1；连接断开由 paho 自动重连
 * @dependencies github.com/eclipse/paho.mqtt.golang
 * @refs publisher.go
 */

package connectors

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig MQTT连接器配置
type MQTTConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	Topic          string
	QoS            byte
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
}

// mqttClient paho 客户端中用到的部分
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTConnector MQTT连接器
type MQTTConnector struct {
	config *MQTTConfig
	client mqttClient
	stats  *PublishStats
}

// NewMQTTConnector 创建MQTT连接器并连接broker
func NewMQTTConnector(config *MQTTConfig) (*MQTTConnector, error) {
	if config.Broker == "" {
		return nil, fmt.Errorf("MQTT broker 不能为空")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("MQTT topic 不能为空")
	}
	if config.KeepAlive <= 0 {
		config.KeepAlive = 30 * time.Second
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	if config.QoS > 2 {
		config.QoS = 1
	}

	// 配置MQTT客户端选项
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	opts.SetCleanSession(true)
	opts.SetKeepAlive(config.KeepAlive)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(config.ConnectTimeout)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		slog.Warn("MQTT连接丢失", "broker", config.Broker, "error", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(config.ConnectTimeout) {
		return nil, fmt.Errorf("MQTT连接超时: %s", config.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("MQTT连接失败: %w", err)
	}

	slog.Info("MQTT连接器已连接到broker", "broker", config.Broker, "topic", config.Topic)
	return newMQTTConnector(config, client), nil
}

func newMQTTConnector(config *MQTTConfig, client mqttClient) *MQTTConnector {
	return &MQTTConnector{config: config, client: client, stats: &PublishStats{}}
}

// Name 通道名称
func (mc *MQTTConnector) Name() string {
	return "mqtt"
}

// topicFor 消息主题，key 中的空白与通配符替换为下划线
func (mc *MQTTConnector) topicFor(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return mc.config.Topic
	}
	replacer := strings.NewReplacer(" ", "_", "+", "_", "#", "_")
	return strings.TrimRight(mc.config.Topic, "/") + "/" + replacer.Replace(key)
}

// Publish 发布一条消息
func (mc *MQTTConnector) Publish(ctx context.Context, key string, payload []byte) error {
	token := mc.client.Publish(mc.topicFor(key), mc.config.QoS, false, payload)

	var err error
	select {
	case <-token.Done():
		err = token.Error()
	case <-ctx.Done():
		err = ctx.Err()
	}
	mc.stats.record(len(payload), err)
	if err != nil {
		return fmt.Errorf("发布MQTT消息失败: %w", err)
	}
	return nil
}

// GetStatistics 发送统计
func (mc *MQTTConnector) GetStatistics() map[string]interface{} {
	stats := mc.stats.Snapshot()
	stats["broker"] = mc.config.Broker
	stats["topic"] = mc.config.Topic
	return stats
}

// Close 断开连接，等待250ms让消息发送完成
func (mc *MQTTConnector) Close() error {
	mc.client.Disconnect(250)
	return nil
}
