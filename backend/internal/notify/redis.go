package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"daydei-social/backend/internal/constants"
	"daydei-social/backend/internal/state"
	apperrors "daydei-social/backend/pkg/errors"
)

// RedisPublisher appends notifications to a Redis stream.
type RedisPublisher struct {
	client *redis.Client
	stream string
}

func NewRedisPublisher(ctx context.Context, addr, password, stream string) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisPublisher{client: client, stream: stream}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, n state.Notification) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: constants.NotificationStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"id":         n.ID,
			"target_id":  n.Target,
			"kind":       string(n.Kind),
			"content":    n.Content,
			"url":        n.URL,
			"created_at": n.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return apperrors.NewNotifyPublishFailed(p.Name(), err)
	}
	return nil
}

func (p *RedisPublisher) Name() string { return "redis" }

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
