package presence

import (
	"context"
	"encoding/json"
	"fmt"

	"ideation-workspace/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisTransport carries presence over Redis pub/sub so several service
// instances share one view of each channel.
type RedisTransport struct {
	client *redis.Client
	prefix string
}

func NewRedisTransport(client *redis.Client) *RedisTransport {
	return &RedisTransport{client: client, prefix: "presence:"}
}

func (t *RedisTransport) Publish(ctx context.Context, channel string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode presence record: %w", err)
	}
	if err := t.client.Publish(ctx, t.prefix+channel, data).Err(); err != nil {
		metrics.PresenceMessages.WithLabelValues("redis", "error").Inc()
		return fmt.Errorf("publish presence: %w", err)
	}
	metrics.PresenceMessages.WithLabelValues("redis", "published").Inc()
	return nil
}

func (t *RedisTransport) Subscribe(ctx context.Context, channel string) (<-chan Record, error) {
	sub := t.client.Subscribe(ctx, t.prefix+channel)
	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe presence: %w", err)
	}

	out := make(chan Record, subscriberBuffer)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var rec Record
				if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
					logrus.WithError(err).WithField("channel", channel).Warn("Dropping malformed presence record")
					continue
				}
				select {
				case out <- rec:
				default:
					metrics.PresenceMessages.WithLabelValues("redis", "dropped").Inc()
				}
			}
		}
	}()

	return out, nil
}
