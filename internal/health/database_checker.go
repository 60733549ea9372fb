package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taoyao-code/radio-hub/internal/journal"
)

// DatabaseChecker 归档数据库检查；归档失败只影响归档，最差为 Degraded
type DatabaseChecker struct {
	pool *pgxpool.Pool
	j    *journal.Journal
}

// NewDatabaseChecker j 可为 nil
func NewDatabaseChecker(pool *pgxpool.Pool, j *journal.Journal) *DatabaseChecker {
	return &DatabaseChecker{pool: pool, j: j}
}

func (c *DatabaseChecker) Name() string { return "database" }

func (c *DatabaseChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	details := map[string]interface{}{}
	if c.j != nil {
		st := c.j.Stats()
		details["persisted"] = st.Persisted
		details["dropped"] = st.Dropped
		details["pending"] = st.Pending
		details["breaker"] = st.Breaker
	}

	if err := c.pool.Ping(ctx); err != nil {
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("ping failed: %v", err),
			Details: details,
			Latency: time.Since(start),
		}
	}

	stats := c.pool.Stat()
	utilization := 0.0
	if stats.MaxConns() > 0 {
		utilization = float64(stats.AcquiredConns()) / float64(stats.MaxConns())
	}
	details["total_conns"] = stats.TotalConns()
	details["acquired_conns"] = stats.AcquiredConns()
	details["max_conns"] = stats.MaxConns()
	details["utilization"] = fmt.Sprintf("%.1f%%", utilization*100)

	status, message := StatusHealthy, "ok"
	if utilization > 0.9 {
		status, message = StatusDegraded, "connection pool near limit"
	}
	if b, ok := details["breaker"].(string); ok && b != journal.StateClosed.String() {
		status, message = StatusDegraded, "journal breaker "+b
	}
	return CheckResult{Status: status, Message: message, Details: details, Latency: time.Since(start)}
}
