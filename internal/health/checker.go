package health

import (
	"context"
	"time"
)

// Status 健康状态
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"  // 部分功能受损但仍在转发
	StatusUnhealthy Status = "unhealthy" // 无法转发
)

// CheckResult 健康检查结果
type CheckResult struct {
	Status  Status                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
	Latency time.Duration          `json:"latency"`
}

// Checker 健康检查器接口
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// CheckerFunc 以函数实现 Checker
type CheckerFunc struct {
	N  string
	Fn func(ctx context.Context) CheckResult
}

func (c CheckerFunc) Name() string { return c.N }

func (c CheckerFunc) Check(ctx context.Context) CheckResult { return c.Fn(ctx) }
