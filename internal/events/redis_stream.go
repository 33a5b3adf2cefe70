package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sleepwise/internal/domain"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisStreamPublisher 发布到 Redis Streams（XADD），消费方用消费者组读取
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *zap.Logger
}

func NewRedisStreamPublisher(client *redis.Client, stream string, maxLen int64, logger *zap.Logger) *RedisStreamPublisher {
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: maxLen, logger: logger}
}

var _ Publisher = (*RedisStreamPublisher)(nil)

// Publish writes the event as {type, uid, insight_id, data, timestamp}; data holds the full JSON.
func (p *RedisStreamPublisher) Publish(ctx context.Context, ev domain.InsightEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"type":       ev.Type,
			"uid":        ev.UID,
			"insight_id": ev.InsightID,
			"data":       string(data),
			"timestamp":  time.Now().Unix(),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
	}
	p.logger.Debug("Published insight event", zap.String("stream", p.stream), zap.String("message_id", id))
	return nil
}

// Close 不关闭共享的 redis client
func (p *RedisStreamPublisher) Close() error { return nil }
