package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/radio-hub/internal/metrics"
	"github.com/taoyao-code/radio-hub/internal/protocol/wire"
	"github.com/taoyao-code/radio-hub/internal/radio"
)

// DefaultIdleHeartbeat 空闲心跳间隔
const DefaultIdleHeartbeat = 5 * time.Second

// Options 集线器参数，零值字段使用默认值
type Options struct {
	Prefix           string
	MaxIndex         uint8
	RegistryCapacity int
	DedupCapacity    int
	DedupWindow      time.Duration
	DedupHeaderText  bool
	QueueCapacity    int
	IdleHeartbeat    time.Duration

	// Pacer 非空时主机命令发送经过限速
	Pacer    *radio.RateLimiter
	PaceWait time.Duration

	Now func() time.Time
}

// HostLink 主机链路：按行读写
type HostLink interface {
	ReadLine(ctx context.Context) ([]byte, error)
	WriteLine(p []byte) error
}

// Hub 集线器：分类 → 注册表/去重/确认 → 入站队列 → 主机流
type Hub struct {
	opts   Options
	cls    wire.Classifier
	reg    *Registry
	dedup  *Suppressor
	hdedup *SenderSuppressor
	queue  *Queue
	tr     radio.Transport
	cmdTx  radio.Transport
	format Formatter
	log    *zap.Logger
	m      *metrics.HubMetrics
	now    func() time.Time
	start  time.Time
}

// New 创建集线器，调用 Attach 后开始处理无线帧
func New(tr radio.Transport, opts Options, log *zap.Logger, m *metrics.HubMetrics) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IdleHeartbeat <= 0 {
		opts.IdleHeartbeat = DefaultIdleHeartbeat
	}
	if opts.DedupWindow == 0 {
		opts.DedupWindow = DefaultDedupWindow
	}
	h := &Hub{
		opts:   opts,
		cls:    wire.NewClassifier(opts.Prefix, opts.MaxIndex),
		reg:    NewRegistry(opts.RegistryCapacity, opts.Now),
		dedup:  NewSuppressor(opts.DedupCapacity, opts.DedupWindow, opts.Now),
		hdedup: NewSenderSuppressor(opts.DedupCapacity, opts.DedupWindow, opts.Now),
		queue:  NewQueue(opts.QueueCapacity),
		tr:     tr,
		cmdTx:  tr,
		log:    log,
		m:      m,
		now:    opts.Now,
	}
	if opts.Pacer != nil {
		h.cmdTx = radio.NewPaced(tr, opts.Pacer, opts.PaceWait)
	}
	h.start = h.now()
	h.format = NewFormatter(h.start)
	return h
}

// Attach 注册为传输层的帧回调
func (h *Hub) Attach() { h.tr.SetHandler(h.HandleFrame) }

func (h *Hub) Registry() *Registry { return h.reg }

func (h *Hub) Queue() *Queue { return h.queue }

func (h *Hub) Formatter() Formatter { return h.format }

func (h *Hub) LocalAddr() radio.Addr { return h.tr.LocalAddr() }

// HandleFrame 接收上下文入口：不阻塞，分类与去重不分配内存
func (h *Hub) HandleFrame(f radio.Frame) {
	msg, ok := h.cls.Classify(f.Data)
	if !ok {
		h.m.Frame(wire.KindNone)
		if ce := h.log.Check(zap.DebugLevel, "frame dropped"); ce != nil {
			ce.Write(zap.Stringer("mac", f.Src), zap.Int("len", len(f.Data)))
		}
		return
	}
	h.m.Frame(msg.Kind)

	var it Item
	it.Src = f.Src
	it.At = f.At
	if it.At.IsZero() {
		it.At = h.now()
	}
	it.Kind = msg.Kind

	switch msg.Kind {
	case wire.KindAck:
		return
	case wire.KindEvent:
		h.learn(msg.Event.ID, f.Src)
		if !h.dedup.Accept(msg.Event.ID, msg.Event.Seq) {
			h.m.Duplicate()
			return
		}
		it.setEvent(msg.Event)
	case wire.KindText:
		if !msg.TextID.IsZero() {
			h.learn(msg.TextID, f.Src)
		}
		it.SetBody(msg.Text)
	case wire.KindHeaderText:
		if !msg.TextID.IsZero() {
			h.learn(msg.TextID, f.Src)
		}
		// 重复帧同样应答，发送方才会停止重试
		dup := h.opts.DedupHeaderText && !h.hdedup.Accept(f.Src, msg.SenderID, msg.Seq)
		if msg.SenderID != 0 {
			h.ack(f.Src, msg.SenderID, msg.Seq)
		}
		if dup {
			h.m.Duplicate()
			return
		}
		it.SenderID, it.Seq = msg.SenderID, msg.Seq
		it.SetBody(msg.Text)
	}

	if !h.queue.TryPush(&it) {
		h.m.QueueFull()
		if ce := h.log.Check(zap.DebugLevel, "inbound queue full"); ce != nil {
			ce.Write(zap.Stringer("mac", f.Src))
		}
		return
	}
	h.m.SetQueueDepth(h.queue.Len())
}

func (h *Hub) learn(id wire.NodeID, a radio.Addr) {
	old, evicted := h.reg.Learn(id, a)
	h.m.SetRegistry(h.reg.Len(), evicted)
	if !evicted {
		return
	}
	if ce := h.log.Check(zap.InfoLevel, "registry slot overwritten"); ce != nil {
		ce.Write(zap.String("evicted", old.String()), zap.String("id", id.String()), zap.Stringer("mac", a))
	}
}

// ack 对端注册失败或发送失败时静默放弃，报文照常入队
func (h *Hub) ack(dst radio.Addr, sid, seq uint32) {
	if err := h.tr.EnsurePeer(dst); err != nil {
		h.m.AckFailed(true)
		if ce := h.log.Check(zap.DebugLevel, "ack suppressed: peer"); ce != nil {
			ce.Write(zap.Stringer("mac", dst), zap.Error(err))
		}
		return
	}
	a := wire.Ack{SenderID: sid, Seq: seq}.Encode()
	if err := h.tr.Send(dst, a[:]); err != nil {
		h.m.AckFailed(false)
		if ce := h.log.Check(zap.DebugLevel, "ack suppressed: send"); ce != nil {
			ce.Write(zap.Stringer("mac", dst), zap.Error(err))
		}
		return
	}
	h.m.AckSent()
}

// Run 运行出站排空与命令入口，直到 ctx 结束或主机链路读失败
func (h *Hub) Run(ctx context.Context, link HostLink) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	drain := NewDrain(h, link)
	bridge := NewBridge(h, link)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		drain.Run(ctx)
	}()

	err := bridge.Run(ctx)
	cancel()
	wg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stats 运行状态快照
type Stats struct {
	Mac           radio.Addr `json:"mac"`
	UptimeMs      int64      `json:"uptime_ms"`
	RegistryLen   int        `json:"registry_len"`
	QueueLen      int        `json:"queue_len"`
	QueueCap      int        `json:"queue_cap"`
	QueueDropped  uint64     `json:"queue_dropped"`
	DedupWindowMs int64      `json:"dedup_window_ms"`
}

func (h *Hub) Stats() Stats {
	return Stats{
		Mac:           h.tr.LocalAddr(),
		UptimeMs:      h.format.Millis(h.now()),
		RegistryLen:   h.reg.Len(),
		QueueLen:      h.queue.Len(),
		QueueCap:      h.queue.Cap(),
		QueueDropped:  h.queue.Dropped(),
		DedupWindowMs: h.dedup.Window().Milliseconds(),
	}
}
