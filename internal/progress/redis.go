// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// DefaultChannel is the Redis pub/sub channel progress events travel on.
const DefaultChannel = "pipeline_updates"

// Redis is a bus backed by Redis pub/sub, so watchers in other processes
// see events published by the worker.
type Redis struct {
	rdb     *redis.Client
	channel string
	owned   bool
	log     zerolog.Logger
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(cfg types.BusConfig, log zerolog.Logger) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	r := NewRedisFromClient(rdb, cfg.Channel, log)
	r.owned = true
	return r, nil
}

// NewRedisFromClient wraps an existing client. The caller keeps ownership
// of rdb.
func NewRedisFromClient(rdb *redis.Client, channel string, log zerolog.Logger) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{rdb: rdb, channel: channel, log: log.With().Str("component", "progress").Logger()}
}

// Publish implements Bus.
func (r *Redis) Publish(ctx context.Context, ev types.ProgressEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding progress event: %w", err)
	}
	if err := r.rdb.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", r.channel, err)
	}
	return nil
}

// Subscribe implements Bus. It returns once Redis has confirmed the
// subscription, so events published afterwards are delivered.
func (r *Redis) Subscribe(ctx context.Context) (*Subscription, error) {
	ps := r.rdb.Subscribe(ctx, r.channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", r.channel, err)
	}

	s := newSubscription(defaultBuffer)
	stopped := make(chan struct{})
	s.onClose = func() { <-stopped }

	go func() {
		defer close(stopped)
		defer close(s.events)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev types.ProgressEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					r.log.Warn().Err(err).Str("channel", msg.Channel).Msg("discarding undecodable progress message")
					continue
				}
				select {
				case s.events <- ev:
				case <-s.done:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return s, nil
}

// Close closes the Redis client when the bus created it.
func (r *Redis) Close() error {
	if !r.owned {
		return nil
	}
	return r.rdb.Close()
}
