/*
Copyright (C) 2026 Playloft Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/playloft/playloft/internal/events"
)

// RedisBus forwards published events to Redis pub/sub channels in addition
// to the local in-process bus. If Redis becomes unavailable the bridge
// trips a circuit breaker and keeps serving local subscribers only.
type RedisBus struct {
	client *redis.Client
	local  *events.Bus
	logger zerolog.Logger
	nodeID string

	mu          sync.Mutex
	failCount   int
	maxFails    int
	brokenUntil time.Time
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	DialTimeout  time.Duration
	WriteTimeout time.Duration

	// Circuit breaker
	MaxFailures   int
	CheckInterval time.Duration
}

// DefaultRedisConfig returns default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:          "localhost:6379",
		DialTimeout:   5 * time.Second,
		WriteTimeout:  3 * time.Second,
		MaxFailures:   5,
		CheckInterval: 30 * time.Second,
	}
}

// NewRedisBus creates a Redis-backed event bridge around the local bus.
func NewRedisBus(cfg RedisConfig, local *events.Bus, nodeID string, logger zerolog.Logger) *RedisBus {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	rb := &RedisBus{
		client:   client,
		local:    local,
		logger:   logger.With().Str("component", "eventbus-redis").Logger(),
		nodeID:   nodeID,
		maxFails: cfg.MaxFailures,
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		rb.logger.Warn().Err(err).Msg("redis unreachable, events stay in-process until it recovers")
		rb.trip(cfg.CheckInterval)
	}

	return rb
}

// Subscribe registers a local subscriber.
func (rb *RedisBus) Subscribe(eventType events.EventType) events.Subscriber {
	return rb.local.Subscribe(eventType)
}

// Unsubscribe removes a local subscriber.
func (rb *RedisBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	rb.local.Unsubscribe(eventType, sub)
}

// Publish delivers locally and forwards to Redis unless the breaker is open.
func (rb *RedisBus) Publish(eventType events.EventType, payload events.Payload) {
	rb.local.Publish(eventType, payload)

	if rb.broken() {
		return
	}

	data, err := marshalMessage(eventType, payload, rb.nodeID)
	if err != nil {
		rb.logger.Error().Err(err).Str("event", string(eventType)).Msg("marshal event failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rb.client.Publish(ctx, subjectFor(eventType), data).Err(); err != nil {
		rb.recordFailure(err)
		return
	}
	rb.recordSuccess()
}

// Close releases the Redis connection.
func (rb *RedisBus) Close() error {
	return rb.client.Close()
}

func (rb *RedisBus) broken() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return time.Now().Before(rb.brokenUntil)
}

func (rb *RedisBus) trip(d time.Duration) {
	rb.mu.Lock()
	rb.brokenUntil = time.Now().Add(d)
	rb.failCount = 0
	rb.mu.Unlock()
}

func (rb *RedisBus) recordFailure(err error) {
	rb.mu.Lock()
	rb.failCount++
	tripped := rb.failCount >= rb.maxFails
	if tripped {
		rb.brokenUntil = time.Now().Add(30 * time.Second)
		rb.failCount = 0
	}
	rb.mu.Unlock()

	if tripped {
		rb.logger.Warn().Err(err).Msg("redis publish failing, circuit opened for 30s")
	} else {
		rb.logger.Debug().Err(err).Msg("redis publish failed")
	}
}

func (rb *RedisBus) recordSuccess() {
	rb.mu.Lock()
	rb.failCount = 0
	rb.mu.Unlock()
}
