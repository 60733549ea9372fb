package radio

import "sync"

// DefaultMaxPeers 对端表容量
const DefaultMaxPeers = 20

// PeerTable 定长单播对端表，满后按轮转槽位覆盖最早插入的条目
type PeerTable struct {
	mu    sync.Mutex
	slots []Addr
	n     int
	next  int
}

func NewPeerTable(capacity int) *PeerTable {
	if capacity <= 0 {
		capacity = DefaultMaxPeers
	}
	return &PeerTable{slots: make([]Addr, capacity)}
}

// Ensure 已存在则无操作，否则写入下一个槽位
func (t *PeerTable) Ensure(a Addr) error {
	if a.IsZero() || a.IsBroadcast() {
		return ErrInvalidPeer
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.indexLocked(a) >= 0 {
		return nil
	}
	t.slots[t.next] = a
	t.next = (t.next + 1) % len(t.slots)
	if t.n < len(t.slots) {
		t.n++
	}
	return nil
}

func (t *PeerTable) Has(a Addr) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.indexLocked(a) >= 0
}

func (t *PeerTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

func (t *PeerTable) indexLocked(a Addr) int {
	for i := 0; i < t.n; i++ {
		if t.slots[i] == a {
			return i
		}
	}
	return -1
}
