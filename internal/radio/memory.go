package radio

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBacklog 每个节点的接收积压上限，满后丢帧
const DefaultBacklog = 64

// Medium 进程内模拟的无线空口
// 支持丢帧注入与发送旁路监听，用于确定性的协议测试
type Medium struct {
	mu    sync.RWMutex
	nodes map[Addr]*MemTransport
	loss  func(Frame) bool
	tap   func(Frame)
	now   func() time.Time
}

func NewMedium() *Medium {
	return &Medium{nodes: make(map[Addr]*MemTransport), now: time.Now}
}

// SetLoss 返回 true 的帧在空口中丢失
func (m *Medium) SetLoss(fn func(Frame) bool) {
	m.mu.Lock()
	m.loss = fn
	m.mu.Unlock()
}

// SetTap 观察每一次发送（丢帧判定之前），包括发往未接入地址的帧
func (m *Medium) SetTap(fn func(Frame)) {
	m.mu.Lock()
	m.tap = fn
	m.mu.Unlock()
}

// Attach 以给定地址接入空口
func (m *Medium) Attach(a Addr, backlog int) (*MemTransport, error) {
	if a.IsZero() || a.IsBroadcast() {
		return nil, ErrInvalidAddr
	}
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[a]; ok {
		return nil, ErrAddrInUse
	}
	t := &MemTransport{
		medium: m,
		addr:   a,
		peers:  NewPeerTable(DefaultMaxPeers),
		rx:     make(chan Frame, backlog),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	m.nodes[a] = t
	go t.deliverLoop()
	return t, nil
}

func (m *Medium) detach(a Addr) {
	m.mu.Lock()
	delete(m.nodes, a)
	m.mu.Unlock()
}

func (m *Medium) transmit(src, dst Addr, p []byte) {
	data := make([]byte, len(p))
	copy(data, p)

	m.mu.RLock()
	defer m.mu.RUnlock()
	f := Frame{Src: src, Dst: dst, Data: data, At: m.now()}
	if m.tap != nil {
		m.tap(f)
	}
	if m.loss != nil && m.loss(f) {
		return
	}
	if dst.IsBroadcast() {
		for a, n := range m.nodes {
			if a != src {
				n.enqueue(f)
			}
		}
		return
	}
	if n, ok := m.nodes[dst]; ok {
		n.enqueue(f)
	}
}

// MemTransport Medium 上的一个节点
type MemTransport struct {
	medium  *Medium
	addr    Addr
	peers   *PeerTable
	rx      chan Frame
	handler atomic.Pointer[Handler]

	mu       sync.Mutex
	peerErr  error
	closing  sync.Once
	closed   chan struct{}
	done     chan struct{}
	overflow atomic.Uint64
}

var _ Transport = (*MemTransport)(nil)

func (t *MemTransport) LocalAddr() Addr { return t.addr }

func (t *MemTransport) SetHandler(h Handler) { t.handler.Store(&h) }

// FailPeers 之后的 EnsurePeer 对新对端返回 err，nil 恢复正常
func (t *MemTransport) FailPeers(err error) {
	t.mu.Lock()
	t.peerErr = err
	t.mu.Unlock()
}

func (t *MemTransport) EnsurePeer(a Addr) error {
	if t.isClosed() {
		return ErrClosed
	}
	if t.peers.Has(a) {
		return nil
	}
	t.mu.Lock()
	err := t.peerErr
	t.mu.Unlock()
	if err != nil {
		return err
	}
	return t.peers.Ensure(a)
}

func (t *MemTransport) Send(dst Addr, p []byte) error {
	if t.isClosed() {
		return ErrClosed
	}
	if err := checkPayload(p); err != nil {
		return err
	}
	if !t.peers.Has(dst) {
		return ErrPeerNotFound
	}
	t.medium.transmit(t.addr, dst, p)
	return nil
}

func (t *MemTransport) Broadcast(p []byte) error {
	if t.isClosed() {
		return ErrClosed
	}
	if err := checkPayload(p); err != nil {
		return err
	}
	t.medium.transmit(t.addr, BroadcastAddr, p)
	return nil
}

// Overflow 因接收积压已满而丢弃的帧数
func (t *MemTransport) Overflow() uint64 { return t.overflow.Load() }

func (t *MemTransport) Close() error {
	t.closing.Do(func() {
		t.medium.detach(t.addr)
		close(t.closed)
		<-t.done
	})
	return nil
}

func (t *MemTransport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

func (t *MemTransport) enqueue(f Frame) {
	select {
	case t.rx <- f:
	default:
		t.overflow.Add(1)
	}
}

func (t *MemTransport) deliverLoop() {
	defer close(t.done)
	for {
		select {
		case f := <-t.rx:
			if h := t.handler.Load(); h != nil && *h != nil {
				(*h)(f)
			}
		case <-t.closed:
			return
		}
	}
}
