// Package cache provides the Redis backed report metadata cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/powerbi"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// reportCachePrefix is the Redis key prefix for report metadata.
	reportCachePrefix = "pbi:report:"
	defaultTTL        = 5 * time.Minute
)

// Cache stores Power BI report metadata. Embed tokens are never cached.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ powerbi.ReportCache = (*Cache)(nil)

// New creates a new Cache with a Redis client and verifies the connection.
func New(ctx context.Context, redisURL string, ttl time.Duration) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	c := NewWithClient(redis.NewClient(opt), ttl)
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return c, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Shutdown closes the client when the application stops.
func (c *Cache) Shutdown(context.Context) error {
	return c.Close()
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// GetReport returns the cached report, or nil on a miss.
func (c *Cache) GetReport(ctx context.Context, workspaceID, reportID uuid.UUID) (*powerbi.Report, error) {
	data, err := c.client.Get(ctx, reportKey(workspaceID, reportID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached report: %w", err)
	}

	var report powerbi.Report
	if err := json.Unmarshal(data, &report); err != nil {
		// Corrupted entry, treat as a miss.
		return nil, nil //nolint:nilerr
	}
	return &report, nil
}

// SetReport caches report metadata for the configured TTL.
func (c *Cache) SetReport(ctx context.Context, workspaceID uuid.UUID, report *powerbi.Report) error {
	reportID, err := uuid.Parse(report.ID)
	if err != nil {
		return fmt.Errorf("cache report: invalid report id %q: %w", report.ID, err)
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return c.client.Set(ctx, reportKey(workspaceID, reportID), data, c.ttl).Err()
}

// DeleteReport evicts a cached report.
func (c *Cache) DeleteReport(ctx context.Context, workspaceID, reportID uuid.UUID) error {
	return c.client.Del(ctx, reportKey(workspaceID, reportID)).Err()
}

func reportKey(workspaceID, reportID uuid.UUID) string {
	return reportCachePrefix + workspaceID.String() + ":" + reportID.String()
}
