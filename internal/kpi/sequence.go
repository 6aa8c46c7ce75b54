package kpi

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sequencer issues monotonically increasing request ids per scope.
type Sequencer interface {
	// Next claims a new id for scope, superseding every earlier id.
	Next(ctx context.Context, scope string) (int64, error)
	// Current returns the latest id claimed for scope, 0 when none.
	Current(ctx context.Context, scope string) (int64, error)
}

// MemorySequencer keeps counters in process memory.
type MemorySequencer struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemorySequencer constructs an empty in-process sequencer.
func NewMemorySequencer() *MemorySequencer {
	return &MemorySequencer{counters: make(map[string]int64)}
}

func (s *MemorySequencer) Next(_ context.Context, scope string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[scope]++
	return s.counters[scope], nil
}

func (s *MemorySequencer) Current(_ context.Context, scope string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[scope], nil
}

const defaultSequencePrefix = "kpi:refresh"

// RedisSequencer shares counters between replicas through Redis.
type RedisSequencer struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSequencer builds a sequencer storing counters under prefix.
func NewRedisSequencer(client *redis.Client, prefix string) *RedisSequencer {
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultSequencePrefix
	}
	return &RedisSequencer{client: client, prefix: prefix, ttl: 24 * time.Hour}
}

func (s *RedisSequencer) key(scope string) string {
	return s.prefix + ":" + scope
}

func (s *RedisSequencer) Next(ctx context.Context, scope string) (int64, error) {
	key := s.key(scope)
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (s *RedisSequencer) Current(ctx context.Context, scope string) (int64, error) {
	id, err := s.client.Get(ctx, s.key(scope)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}
