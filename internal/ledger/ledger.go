// Package ledger remembers which reminders already went out so that a second
// run on the same day does not email the owner again.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"todo-planner/internal/model"
)

const keyPrefix = "todo:reminder"

// RedisLedger stores sent markers in Redis, one key per task per due date.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	return &RedisLedger{client: client, ttl: ttl}
}

// Open connects to the Redis server at url ("redis://host:port/db") and checks
// that it answers.
func Open(ctx context.Context, url string, ttl time.Duration) (*RedisLedger, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisLedger(client, ttl), nil
}

func key(taskID uint, due model.Date) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, due, taskID)
}

// Claim records the reminder for taskID as sent. It returns false when another
// run already claimed it.
func (l *RedisLedger) Claim(ctx context.Context, taskID uint, due model.Date) (bool, error) {
	return l.client.SetNX(ctx, key(taskID, due), 1, l.ttl).Result()
}

// Release drops a claim after a failed send so the next run retries it.
func (l *RedisLedger) Release(ctx context.Context, taskID uint, due model.Date) error {
	return l.client.Del(ctx, key(taskID, due)).Err()
}

func (l *RedisLedger) Close() error {
	return l.client.Close()
}
