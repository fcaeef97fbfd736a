package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Sink stores emitted alerts with a bounded lifetime for downstream
// consumers. Writes are best-effort: a sink failure never invalidates the
// detection result already computed.
type Sink interface {
	Publish(ctx context.Context, key string, ttl time.Duration, alert Alert) error
}

// RedisSink writes alerts as JSON values with a TTL via SETEX.
type RedisSink struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisSink wraps a redis client as an alert sink.
func NewRedisSink(client *redis.Client, logger zerolog.Logger) *RedisSink {
	return &RedisSink{
		client: client,
		logger: logger.With().Str("component", "alert_sink").Logger(),
	}
}

// Publish serialises the alert and stores it under key with the given TTL.
func (s *RedisSink) Publish(ctx context.Context, key string, ttl time.Duration, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	if err := s.client.SetEx(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("setex alert %s: %w", key, err)
	}

	s.logger.Debug().Str("key", key).Dur("ttl", ttl).Msg("alert published")
	return nil
}

var _ Sink = (*RedisSink)(nil)
