package health

import (
	"context"
	"fmt"
	"time"

	redisstorage "github.com/taoyao-code/radio-hub/internal/storage/redis"
)

// RedisChecker Redis 主机链路所用连接的检查
type RedisChecker struct {
	client *redisstorage.Client
}

func NewRedisChecker(client *redisstorage.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string { return "redis" }

// Check Redis 是主机链路时不可达即 Unhealthy
func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if err := c.client.HealthCheck(ctx); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
			Latency: time.Since(start),
		}
	}

	stats := c.client.Stats()
	status, message := StatusHealthy, "ok"
	if stats.Timeouts > 0 && stats.Timeouts*10 > stats.Hits+stats.Misses {
		status, message = StatusDegraded, "frequent pool timeouts"
	}
	return CheckResult{
		Status:  status,
		Message: message,
		Details: map[string]interface{}{
			"total_conns": stats.TotalConns,
			"idle_conns":  stats.IdleConns,
			"hits":        stats.Hits,
			"misses":      stats.Misses,
			"timeouts":    stats.Timeouts,
		},
		Latency: time.Since(start),
	}
}
