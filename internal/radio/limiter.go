package radio

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter 基于 Token Bucket 的发送限速器
type RateLimiter struct {
	limiter       *rate.Limiter
	ratePerSec    int
	burst         int
	allowedCount  atomic.Int64
	rejectedCount atomic.Int64
}

// NewRateLimiter 创建限速器
// ratePerSec: 每秒允许的发送帧数
// burst: 突发容量
func NewRateLimiter(ratePerSec int, burst int) *RateLimiter {
	if ratePerSec <= 0 {
		ratePerSec = 50
	}
	if burst <= 0 {
		burst = ratePerSec / 5
		if burst < 1 {
			burst = 1
		}
	}
	return &RateLimiter{
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), burst),
		ratePerSec: ratePerSec,
		burst:      burst,
	}
}

// Wait 等待令牌（阻塞，受 ctx 约束）
func (l *RateLimiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		l.rejectedCount.Add(1)
		return err
	}
	l.allowedCount.Add(1)
	return nil
}

// Stats 获取统计信息
func (l *RateLimiter) Stats() RateLimiterStats {
	return RateLimiterStats{
		RatePerSecond: l.ratePerSec,
		Burst:         l.burst,
		AllowedTotal:  l.allowedCount.Load(),
		RejectedTotal: l.rejectedCount.Load(),
	}
}

// RateLimiterStats 限速器统计信息
type RateLimiterStats struct {
	RatePerSecond int   `json:"rate_per_second"`
	Burst         int   `json:"burst"`
	AllowedTotal  int64 `json:"allowed_total"`
	RejectedTotal int64 `json:"rejected_total"`
}

// Paced 对主机发起的发送限速，应答路径不经过它
type Paced struct {
	Transport
	lim  *RateLimiter
	wait time.Duration
}

// NewPaced wait 为单次发送等待令牌的上限
func NewPaced(t Transport, lim *RateLimiter, wait time.Duration) *Paced {
	if wait <= 0 {
		wait = 200 * time.Millisecond
	}
	return &Paced{Transport: t, lim: lim, wait: wait}
}

func (p *Paced) Send(dst Addr, payload []byte) error {
	if err := p.acquire(); err != nil {
		return err
	}
	return p.Transport.Send(dst, payload)
}

func (p *Paced) Broadcast(payload []byte) error {
	if err := p.acquire(); err != nil {
		return err
	}
	return p.Transport.Broadcast(payload)
}

// Limiter 暴露给状态接口
func (p *Paced) Limiter() *RateLimiter { return p.lim }

func (p *Paced) acquire() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.wait)
	defer cancel()
	if err := p.lim.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return nil
}
