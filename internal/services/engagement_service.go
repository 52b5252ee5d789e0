package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// EngagementService keeps lightweight daily message counters in Redis. It is
// optional: when Redis is not configured the service is nil and callers skip
// it. Counter updates fail open; a Redis outage never fails a chat turn.
type EngagementService struct {
	client *redis.Client
}

// NewEngagementService connects to Redis and verifies the connection.
func NewEngagementService(redisURL string) (*EngagementService, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("✅ Redis connection established")

	return &EngagementService{client: client}, nil
}

func dailyKey(day time.Time) string {
	return "fitcoach:messages:" + day.UTC().Format("2006-01-02")
}

// RecordMessage increments today's processed-message counter. Failures are
// logged and swallowed.
func (s *EngagementService) RecordMessage(ctx context.Context) {
	key := dailyKey(time.Now())

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("⚠️  Failed to record engagement counter: %v", err)
	}
}

// TodayCount returns today's processed-message count, 0 on any error.
func (s *EngagementService) TodayCount(ctx context.Context) int64 {
	count, err := s.client.Get(ctx, dailyKey(time.Now())).Int64()
	if err != nil {
		return 0
	}
	return count
}

// Close closes the Redis connection.
func (s *EngagementService) Close() error {
	return s.client.Close()
}
