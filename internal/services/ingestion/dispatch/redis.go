package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"trackframe-worker-go/internal/metrics"
	"trackframe-worker-go/internal/models"
)

// RedisStream appends InternalEvents to a Redis stream, trimming it to
// roughly maxLen entries.
type RedisStream struct {
	client  *redis.Client
	stream  string
	maxLen  int64
	timeout time.Duration
}

func NewRedisStream(client *redis.Client, stream string, maxLen int64, timeout time.Duration) *RedisStream {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisStream{
		client:  client,
		stream:  stream,
		maxLen:  maxLen,
		timeout: timeout,
	}
}

func (r *RedisStream) Dispatch(ev models.InternalEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.Append(ctx, ev); err != nil {
		metrics.DispatchErrors.WithLabelValues("redis").Inc()
		log.Error().Err(err).Str("event_id", ev.EventID).Str("stream", r.stream).Msg("Failed to append internal event to stream")
	}
}

// Append writes one entry and returns the error instead of logging it
func (r *RedisStream) Append(ctx context.Context, ev models.InternalEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]any{
			"event_id":   ev.EventID,
			"track_id":   ev.TrackID,
			"camera_id":  ev.CameraID,
			"timestamp":  ev.Timestamp.UTC().Format(time.RFC3339Nano),
			"event_type": string(ev.EventType),
			"source":     string(ev.Source),
			"event":      string(body),
		},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}

	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", r.stream, err)
	}
	return nil
}

func (r *RedisStream) Close() error {
	return r.client.Close()
}
