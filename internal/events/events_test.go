package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"sleepwise/internal/domain"

	"github.com/alicebob/miniredis/v2"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleEvent() domain.InsightEvent {
	level := 12.0
	return domain.NewInsightCreatedEvent(&domain.Insight{
		ID:            "0190a0b0-0000-7000-8000-000000000001",
		UID:           "u1",
		Date:          time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
		SleepQuality:  7.3,
		DisorderLevel: &level,
	})
}

func TestRedisStreamPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	p := NewRedisStreamPublisher(client, "sleepwise:insights", 0, zap.NewNop())
	require.NoError(t, p.Publish(context.Background(), sampleEvent()))

	msgs, err := client.XRange(context.Background(), "sleepwise:insights", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.EventInsightCreated, msgs[0].Values["type"])
	assert.Equal(t, "u1", msgs[0].Values["uid"])

	var ev domain.InsightEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &ev))
	assert.Equal(t, 7.3, ev.SleepQuality)
	assert.Equal(t, "0190a0b0-0000-7000-8000-000000000001", ev.InsightID)
}

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (f *fakeToken) Wait() bool                     { return true }
func (f *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (f *fakeToken) Done() <-chan struct{}          { return f.done }
func (f *fakeToken) Error() error                   { return f.err }

type fakeMQTT struct {
	topic   string
	qos     byte
	payload []byte
	err     error
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.topic = topic
	f.qos = qos
	f.payload = payload.([]byte)
	return newFakeToken(f.err)
}

func (f *fakeMQTT) Disconnect(uint) {}

func TestMQTTPublisher(t *testing.T) {
	fake := &fakeMQTT{}
	p := newMQTTPublisher(fake, "sleepwise/insights", 1, zap.NewNop())

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	assert.Equal(t, "sleepwise/insights/u1", fake.topic)
	assert.Equal(t, byte(1), fake.qos)
	assert.Contains(t, string(fake.payload), `"type":"insight.created"`)

	fake.err = errors.New("not connected")
	assert.Error(t, p.Publish(context.Background(), sampleEvent()))
	assert.NoError(t, p.Close())
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), sampleEvent()))
	assert.NoError(t, p.Close())
}
