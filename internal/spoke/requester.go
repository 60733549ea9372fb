package spoke

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/radio-hub/internal/metrics"
	"github.com/taoyao-code/radio-hub/internal/protocol/wire"
	"github.com/taoyao-code/radio-hub/internal/radio"
)

// 默认重试参数
const (
	DefaultAckTimeout   = 40 * time.Millisecond
	DefaultMaxAttempts  = 3
	DefaultRetryBackoff = 10 * time.Millisecond
)

// State 确认请求状态机
//
//	Idle → Sent → AwaitingAck → Acked
//	                          → TimedOut → Sent（重发）
//	                                     → Exhausted（次数用尽）
type State uint8

const (
	StateIdle State = iota
	StateSent
	StateAwaitingAck
	StateAcked
	StateTimedOut
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSent:
		return "sent"
	case StateAwaitingAck:
		return "awaiting_ack"
	case StateAcked:
		return "acked"
	case StateTimedOut:
		return "timed_out"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// RequesterConfig 重试参数，零值字段使用默认值
type RequesterConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
	// Trace 每次状态迁移时调用，用于观测
	Trace func(State)
}

// Result 一次带确认发送的结果
type Result struct {
	Seq      uint32
	Attempts int
	State    State // StateAcked 或 StateExhausted
	Elapsed  time.Duration
}

// Acked 是否收到确认
func (r Result) Acked() bool { return r.State == StateAcked }

// SelfID 由链路地址后 4 字节（大端）派生的数字发送者 ID
func SelfID(a radio.Addr) uint32 { return binary.BigEndian.Uint32(a[2:]) }

// Requester 发送端有界重试
// 总耗时不超过 MaxAttempts×Timeout + (MaxAttempts-1)×Backoff
type Requester struct {
	tr     radio.Transport
	cfg    RequesterConfig
	selfID uint32
	seq    atomic.Uint32
	acks   chan wire.Ack
	mu     sync.Mutex
	log    *zap.Logger
	m      *metrics.SpokeMetrics
}

func NewRequester(tr radio.Transport, cfg RequesterConfig, log *zap.Logger, m *metrics.SpokeMetrics) *Requester {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultAckTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultRetryBackoff
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Requester{
		tr:     tr,
		cfg:    cfg,
		selfID: SelfID(tr.LocalAddr()),
		acks:   make(chan wire.Ack, 8),
		log:    log,
		m:      m,
	}
}

func (r *Requester) SelfID() uint32 { return r.selfID }

// OnAck 由接收上下文调用，不阻塞；与本节点无关的确认直接忽略
func (r *Requester) OnAck(a wire.Ack) {
	if a.SenderID != r.selfID {
		return
	}
	select {
	case r.acks <- a:
	default:
	}
}

// Send 发送带头文本并等待匹配的确认
// 只有参数错误或对端注册失败返回 error；未确认不是错误，见 Result.State
// ctx 结束时立即进入 Exhausted
func (r *Requester) Send(ctx context.Context, dst radio.Addr, text []byte) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seq := r.seq.Add(1)
	res := Result{Seq: seq}
	frame, err := wire.EncodeHeaderText(r.selfID, seq, text)
	if err != nil {
		return res, err
	}
	if err := r.tr.EnsurePeer(dst); err != nil {
		res.State = StateExhausted
		return res, fmt.Errorf("ensure peer %s: %w", dst, err)
	}
	r.discardStale()

	start := time.Now()
	timer := time.NewTimer(r.cfg.Timeout)
	timer.Stop()
	defer timer.Stop()

	state := StateIdle
	r.trace(state)
	for state != StateAcked && state != StateExhausted {
		switch state {
		case StateIdle:
			state = r.transmit(dst, frame, &res)
		case StateSent:
			timer.Reset(r.cfg.Timeout)
			state = StateAwaitingAck
		case StateAwaitingAck:
			state = r.await(ctx, timer.C, seq)
		case StateTimedOut:
			if res.Attempts >= r.cfg.MaxAttempts {
				state = StateExhausted
				break
			}
			if !sleepCtx(ctx, r.cfg.Backoff) {
				state = StateExhausted
				break
			}
			state = r.transmit(dst, frame, &res)
		}
		r.trace(state)
	}

	res.State = state
	res.Elapsed = time.Since(start)
	r.m.Report(state.String(), res.Attempts)
	if state == StateExhausted {
		r.log.Debug("report sent without confirmation",
			zap.Uint32("seq", seq), zap.Int("attempts", res.Attempts), zap.Duration("elapsed", res.Elapsed))
	}
	return res, nil
}

// transmit 发送失败也计入一次尝试，随后按超时处理
func (r *Requester) transmit(dst radio.Addr, frame []byte, res *Result) State {
	res.Attempts++
	if err := r.tr.Send(dst, frame); err != nil {
		r.log.Debug("report transmit failed", zap.Uint32("seq", res.Seq), zap.Error(err))
		return StateTimedOut
	}
	return StateSent
}

func (r *Requester) await(ctx context.Context, timeout <-chan time.Time, seq uint32) State {
	for {
		select {
		case a := <-r.acks:
			if a.Seq == seq {
				return StateAcked
			}
		case <-timeout:
			return StateTimedOut
		case <-ctx.Done():
			return StateExhausted
		}
	}
}

func (r *Requester) discardStale() {
	for {
		select {
		case <-r.acks:
		default:
			return
		}
	}
}

func (r *Requester) trace(s State) {
	if r.cfg.Trace != nil {
		r.cfg.Trace(s)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
