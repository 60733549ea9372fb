package hub

import (
	"sync"
	"time"

	"github.com/taoyao-code/radio-hub/internal/protocol/wire"
	"github.com/taoyao-code/radio-hub/internal/radio"
)

const (
	DefaultDedupCapacity = 64
	DefaultDedupWindow   = 3 * time.Second
)

type dedupSlot struct {
	id  wire.NodeID
	seq uint32
	at  time.Time
}

// Suppressor 按 (ID, seq) 的时间窗口去重
// 窗口外的同一对重新接受，允许节点重启后复用序号；环形覆盖同注册表
type Suppressor struct {
	mu     sync.Mutex
	slots  []dedupSlot
	n      int
	next   int
	window time.Duration
	now    func() time.Time
}

func NewSuppressor(capacity int, window time.Duration, now func() time.Time) *Suppressor {
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	if window < 0 {
		window = DefaultDedupWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Suppressor{slots: make([]dedupSlot, capacity), window: window, now: now}
}

// Accept true 表示新事件应处理，false 表示窗口内重复
// ID 超过 15 字符时截断后参与比较
func (s *Suppressor) Accept(id wire.NodeID, seq uint32) bool {
	id = id.Truncate(wire.DedupIDLen)
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < s.n; i++ {
		e := &s.slots[i]
		if e.seq != seq || e.id != id {
			continue
		}
		if now.Sub(e.at) <= s.window {
			return false
		}
		e.at = now
		return true
	}
	s.slots[s.next] = dedupSlot{id: id, seq: seq, at: now}
	s.next = (s.next + 1) % len(s.slots)
	if s.n < len(s.slots) {
		s.n++
	}
	return true
}

func (s *Suppressor) Window() time.Duration { return s.window }

type senderSlot struct {
	src radio.Addr
	sid uint32
	seq uint32
	at  time.Time
}

// SenderSuppressor 带头文本按 (源地址, sender_id, seq) 去重
// 与事件去重环分开，周期性文本上报不会挤掉按键条目
type SenderSuppressor struct {
	mu     sync.Mutex
	slots  []senderSlot
	n      int
	next   int
	window time.Duration
	now    func() time.Time
}

func NewSenderSuppressor(capacity int, window time.Duration, now func() time.Time) *SenderSuppressor {
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	if window < 0 {
		window = DefaultDedupWindow
	}
	if now == nil {
		now = time.Now
	}
	return &SenderSuppressor{slots: make([]senderSlot, capacity), window: window, now: now}
}

// Accept sid 为 0 时没有可靠身份，始终接受
func (s *SenderSuppressor) Accept(src radio.Addr, sid, seq uint32) bool {
	if sid == 0 {
		return true
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < s.n; i++ {
		e := &s.slots[i]
		if e.seq != seq || e.sid != sid || e.src != src {
			continue
		}
		if now.Sub(e.at) <= s.window {
			return false
		}
		e.at = now
		return true
	}
	s.slots[s.next] = senderSlot{src: src, sid: sid, seq: seq, at: now}
	s.next = (s.next + 1) % len(s.slots)
	if s.n < len(s.slots) {
		s.n++
	}
	return true
}
