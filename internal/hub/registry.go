package hub

import (
	"sync"
	"time"

	"github.com/taoyao-code/radio-hub/internal/protocol/wire"
	"github.com/taoyao-code/radio-hub/internal/radio"
)

// DefaultRegistryCapacity 注册表容量
const DefaultRegistryCapacity = 64

// Entry 注册表条目快照
type Entry struct {
	ID       string     `json:"id"`
	Addr     radio.Addr `json:"mac"`
	LastSeen time.Time  `json:"last_seen"`
}

type regSlot struct {
	id   wire.NodeID
	addr radio.Addr
	seen time.Time
}

// Registry 逻辑 ID → 链路地址映射
// 定长环形表：新 ID 总是写入下一个轮转槽位，无条件覆盖原占用者（不是 LRU）
// 因此超过容量的活跃节点会让最早写入的映射失效，直到它再次发帧
type Registry struct {
	mu    sync.Mutex
	slots []regSlot
	n     int
	next  int
	now   func() time.Time
}

func NewRegistry(capacity int, now func() time.Time) *Registry {
	if capacity <= 0 {
		capacity = DefaultRegistryCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &Registry{slots: make([]regSlot, capacity), now: now}
}

// Learn 无条件 upsert；返回被环形覆盖的旧 ID（若有）
// ID 大小写不敏感，已有条目保留首次学习时的写法
func (r *Registry) Learn(id wire.NodeID, addr radio.Addr) (evicted wire.NodeID, ok bool) {
	if id.IsZero() {
		return evicted, false
	}
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < r.n; i++ {
		if r.slots[i].id.EqualFold(id) {
			r.slots[i].addr = addr
			r.slots[i].seen = now
			return evicted, false
		}
	}
	s := &r.slots[r.next]
	if r.n == len(r.slots) {
		evicted, ok = s.id, true
	} else {
		r.n++
	}
	s.id, s.addr, s.seen = id, addr, now
	r.next = (r.next + 1) % len(r.slots)
	return evicted, ok
}

// Resolve 线性扫描，返回最近一次学习到的地址
func (r *Registry) Resolve(id wire.NodeID) (radio.Addr, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < r.n; i++ {
		if r.slots[i].id.EqualFold(id) {
			return r.slots[i].addr, true
		}
	}
	return radio.Addr{}, false
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Snapshot 按槽位顺序复制全部条目
func (r *Registry) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0, r.n)
	for i := 0; i < r.n; i++ {
		s := r.slots[i]
		out = append(out, Entry{ID: s.id.String(), Addr: s.addr, LastSeen: s.seen})
	}
	return out
}
