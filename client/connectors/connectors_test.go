package connectors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaConnector(t *testing.T) {
	_, err := NewKafkaConnector(&KafkaConfig{Topic: "alerts"})
	assert.Error(t, err)
	_, err = NewKafkaConnector(&KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	writer := &fakeWriter{}
	kc := newKafkaConnector(&KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "plantops.alerts"}, writer)
	assert.Equal(t, "kafka", kc.Name())

	require.NoError(t, kc.Publish(context.Background(), "cement-mill", []byte(`{"type":"low_qaf"}`)))
	require.Len(t, writer.messages, 1)
	assert.Equal(t, "cement-mill", string(writer.messages[0].Key))
	assert.JSONEq(t, `{"type":"low_qaf"}`, string(writer.messages[0].Value))

	writer.err = errors.New("broker down")
	err = kc.Publish(context.Background(), "k", []byte("x"))
	assert.ErrorContains(t, err, "发送Kafka消息失败")

	stats := kc.GetStatistics()
	assert.Equal(t, int64(1), stats["messages_sent"])
	assert.Equal(t, int64(1), stats["failures"])
	assert.Equal(t, "broker down", stats["last_error"])

	require.NoError(t, kc.Close())
	assert.True(t, writer.closed)
}

// fakeToken 立即完成的 MQTT token
type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                       { return true }
func (t *fakeToken) WaitTimeout(_ time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}            { return t.done }
func (t *fakeToken) Error() error                     { return t.err }

type fakeMQTTClient struct {
	topics       []string
	payloads     []interface{}
	err          error
	disconnected bool
}

func (c *fakeMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload)
	return newFakeToken(c.err)
}

func (c *fakeMQTTClient) Disconnect(quiesce uint) {
	c.disconnected = true
}

func TestMQTTConnector(t *testing.T) {
	_, err := NewMQTTConnector(&MQTTConfig{Topic: "plantops/alerts"})
	assert.Error(t, err)

	client := &fakeMQTTClient{}
	mc := newMQTTConnector(&MQTTConfig{Broker: "tcp://localhost:1883", Topic: "plantops/alerts/", QoS: 1}, client)
	assert.Equal(t, "mqtt", mc.Name())

	require.NoError(t, mc.Publish(context.Background(), "Cement Mill#1", []byte("{}")))
	require.NoError(t, mc.Publish(context.Background(), "", []byte("{}")))
	assert.Equal(t, []string{"plantops/alerts/Cement_Mill_1", "plantops/alerts/"}, client.topics)

	client.err = errors.New("not connected")
	assert.ErrorContains(t, mc.Publish(context.Background(), "k", []byte("{}")), "发布MQTT消息失败")
	assert.Equal(t, int64(2), mc.GetStatistics()["messages_sent"])

	require.NoError(t, mc.Close())
	assert.True(t, client.disconnected)
}

func TestRedisConnector(t *testing.T) {
	_, err := NewRedisConnector(nil, "alerts")
	assert.Error(t, err)

	db, mock := redismock.NewClientMock()
	_, err = NewRedisConnector(db, " ")
	assert.Error(t, err)

	rc, err := NewRedisConnector(db, "plantops:alerts")
	require.NoError(t, err)
	assert.Equal(t, "redis", rc.Name())

	payload := []byte(`{"type":"high_risk"}`)
	mock.ExpectPublish("plantops:alerts:kiln", payload).SetVal(2)
	mock.ExpectPublish("plantops:alerts", payload).SetErr(errors.New("redis down"))

	require.NoError(t, rc.Publish(context.Background(), "kiln", payload))
	assert.ErrorContains(t, rc.Publish(context.Background(), "", payload), "发布Redis消息失败")
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, int64(1), rc.GetStatistics()["failures"])
}

func TestPublisherInterface(t *testing.T) {
	var _ Publisher = &KafkaConnector{}
	var _ Publisher = &MQTTConnector{}
	var _ Publisher = &RedisConnector{}
}
