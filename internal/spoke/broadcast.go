package spoke

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/taoyao-code/radio-hub/internal/metrics"
	"github.com/taoyao-code/radio-hub/internal/radio"
)

const (
	DefaultBroadcastCopies = 3
	DefaultBroadcastJitter = 8 * time.Millisecond
)

// Redundant 广播无法确认，改为盲发多份，间隔随机抖动
// 接收端按 (ID, seq) 去重把多份合并为一个事件
type Redundant struct {
	tr     radio.Transport
	copies int
	jitter time.Duration
	m      *metrics.SpokeMetrics
}

func NewRedundant(tr radio.Transport, copies int, jitter time.Duration, m *metrics.SpokeMetrics) *Redundant {
	if copies <= 0 {
		copies = DefaultBroadcastCopies
	}
	if jitter <= 0 {
		jitter = DefaultBroadcastJitter
	}
	return &Redundant{tr: tr, copies: copies, jitter: jitter, m: m}
}

// Send 返回实际发出的份数；单份失败不中断后续发送
func (r *Redundant) Send(ctx context.Context, p []byte) (int, error) {
	sent := 0
	var lastErr error
	for i := 0; i < r.copies; i++ {
		if i > 0 && !sleepCtx(ctx, r.gap()) {
			break
		}
		if err := r.tr.Broadcast(p); err != nil {
			lastErr = err
			continue
		}
		sent++
	}
	r.m.Copies(sent)
	if sent == 0 {
		return 0, lastErr
	}
	return sent, nil
}

// gap 1ms..jitter
func (r *Redundant) gap() time.Duration {
	return time.Millisecond + rand.N(r.jitter)
}
