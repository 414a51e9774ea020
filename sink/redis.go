package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/use-agent/shelfscan/models"
)

// StreamAdder is the subset of *redis.Client the stream sink needs.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStream appends every record of a run to a Redis stream, one entry
// per record.
type RedisStream struct {
	client StreamAdder
	stream string
}

// NewRedisStream connects a stream sink to addr.
func NewRedisStream(addr, password string, db int, stream string) (*RedisStream, *redis.Client) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisStreamWithClient(client, stream), client
}

// NewRedisStreamWithClient wraps an existing client.
func NewRedisStreamWithClient(client StreamAdder, stream string) *RedisStream {
	return &RedisStream{client: client, stream: stream}
}

func (s *RedisStream) Name() string { return "redis" }

func (s *RedisStream) Write(ctx context.Context, res *models.SearchResult) error {
	for i, rec := range records(res) {
		body, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("redis sink: marshal record %d: %w", i, err)
		}
		err = s.client.XAdd(ctx, &redis.XAddArgs{
			Stream: s.stream,
			Values: map[string]interface{}{
				"mode":   res.Mode,
				"query":  res.Query,
				"url":    recordURL(rec),
				"record": string(body),
			},
		}).Err()
		if err != nil {
			return fmt.Errorf("redis sink: xadd record %d: %w", i, err)
		}
	}
	return nil
}
