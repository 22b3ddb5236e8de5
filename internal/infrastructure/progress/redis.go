// Package progress publishes per-row ingestion progress so upload
// clients can poll or subscribe to a run's percentage.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/uselessvevo/fuse-sheets/internal/core/tasks"
	"github.com/uselessvevo/fuse-sheets/internal/pkg/config"
)

// stateTTL keeps the last report of a run readable after it finishes.
const stateTTL = time.Hour

// RedisPublisher fans progress reports out over a pub/sub channel and
// keeps the latest report per run under a keyed entry.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// NewRedisPublisher connects and verifies the Redis endpoint
func NewRedisPublisher(cfg *config.ProgressConfig, logger *slog.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("progress publisher connected",
		slog.String("host", cfg.RedisHost),
		slog.Int("port", cfg.RedisPort),
		slog.String("channel", cfg.Channel),
	)

	return &RedisPublisher{
		client:  client,
		channel: cfg.Channel,
		logger:  logger,
	}, nil
}

// Publish sends one progress report and refreshes the run's state key
func (p *RedisPublisher) Publish(ctx context.Context, report tasks.Progress) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal progress report: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish progress: %w", err)
	}

	if err := p.client.Set(ctx, p.stateKey(report.RunID), payload, stateTTL).Err(); err != nil {
		return fmt.Errorf("failed to store progress state: %w", err)
	}
	return nil
}

// Current returns the latest report for a run, or false if none is stored
func (p *RedisPublisher) Current(ctx context.Context, runID string) (tasks.Progress, bool, error) {
	payload, err := p.client.Get(ctx, p.stateKey(runID)).Bytes()
	if err == redis.Nil {
		return tasks.Progress{}, false, nil
	}
	if err != nil {
		return tasks.Progress{}, false, fmt.Errorf("failed to read progress state: %w", err)
	}

	var report tasks.Progress
	if err := json.Unmarshal(payload, &report); err != nil {
		return tasks.Progress{}, false, fmt.Errorf("failed to unmarshal progress state: %w", err)
	}
	return report, true, nil
}

func (p *RedisPublisher) stateKey(runID string) string {
	return p.channel + ":" + runID
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	p.logger.Info("closing progress publisher")
	return p.client.Close()
}
