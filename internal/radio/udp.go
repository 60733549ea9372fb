package radio

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// 组播报文: ["RH"][dst:6][src:6][payload]
const (
	udpMagic0     = 'R'
	udpMagic1     = 'H'
	udpHeaderSize = 2 + 6 + 6

	DefaultGroup = "239.42.42.42:4211"
)

// UDPConfig UDP 组播模拟无线的参数
type UDPConfig struct {
	Addr      Addr
	Group     string
	Interface string
	MaxPeers  int
}

// UDPTransport 用 UDP 组播模拟广播空口，同组内所有进程共享一个"信道"
type UDPTransport struct {
	addr    Addr
	group   *net.UDPAddr
	conn    *net.UDPConn
	peers   *PeerTable
	handler atomic.Pointer[Handler]
	log     *zap.Logger

	writeMu sync.Mutex
	closed  atomic.Bool
	done    chan struct{}
}

var _ Transport = (*UDPTransport)(nil)

// ListenUDP 加入组播组并启动接收 goroutine
func ListenUDP(cfg UDPConfig, log *zap.Logger) (*UDPTransport, error) {
	if cfg.Addr.IsZero() || cfg.Addr.IsBroadcast() {
		return nil, ErrInvalidAddr
	}
	if cfg.Group == "" {
		cfg.Group = DefaultGroup
	}
	if log == nil {
		log = zap.NewNop()
	}
	group, err := net.ResolveUDPAddr("udp4", cfg.Group)
	if err != nil {
		return nil, fmt.Errorf("resolve group: %w", err)
	}
	var ifi *net.Interface
	if cfg.Interface != "" {
		if ifi, err = net.InterfaceByName(cfg.Interface); err != nil {
			return nil, fmt.Errorf("interface %s: %w", cfg.Interface, err)
		}
	}
	conn, err := net.ListenMulticastUDP("udp4", ifi, group)
	if err != nil {
		return nil, fmt.Errorf("join group %s: %w", cfg.Group, err)
	}
	t := &UDPTransport{
		addr:  cfg.Addr,
		group: group,
		conn:  conn,
		peers: NewPeerTable(cfg.MaxPeers),
		log:   log,
		done:  make(chan struct{}),
	}
	go t.readLoop()
	log.Info("udp radio joined", zap.String("group", cfg.Group), zap.Stringer("mac", cfg.Addr))
	return t, nil
}

func (t *UDPTransport) LocalAddr() Addr { return t.addr }

func (t *UDPTransport) SetHandler(h Handler) { t.handler.Store(&h) }

func (t *UDPTransport) EnsurePeer(a Addr) error {
	if t.closed.Load() {
		return ErrClosed
	}
	return t.peers.Ensure(a)
}

func (t *UDPTransport) Send(dst Addr, p []byte) error {
	if !t.peers.Has(dst) {
		return ErrPeerNotFound
	}
	return t.write(dst, p)
}

func (t *UDPTransport) Broadcast(p []byte) error {
	return t.write(BroadcastAddr, p)
}

func (t *UDPTransport) write(dst Addr, p []byte) error {
	if t.closed.Load() {
		return ErrClosed
	}
	if err := checkPayload(p); err != nil {
		return err
	}
	var buf [udpHeaderSize + MaxPayload]byte
	buf[0], buf[1] = udpMagic0, udpMagic1
	copy(buf[2:8], dst[:])
	copy(buf[8:14], t.addr[:])
	n := copy(buf[udpHeaderSize:], p)

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err := t.conn.WriteToUDP(buf[:udpHeaderSize+n], t.group)
	return err
}

func (t *UDPTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := t.conn.Close()
	<-t.done
	return err
}

func (t *UDPTransport) readLoop() {
	defer close(t.done)
	buf := make([]byte, 2048)
	for {
		n, _, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if t.closed.Load() {
				return
			}
			t.log.Warn("udp radio read failed", zap.Error(err))
			time.Sleep(50 * time.Millisecond)
			continue
		}
		f, ok := t.decode(buf[:n])
		if !ok {
			continue
		}
		if h := t.handler.Load(); h != nil && *h != nil {
			(*h)(f)
		}
	}
}

// decode 过滤自身发出的帧与发往其他节点的单播
func (t *UDPTransport) decode(p []byte) (Frame, bool) {
	if len(p) <= udpHeaderSize || p[0] != udpMagic0 || p[1] != udpMagic1 {
		return Frame{}, false
	}
	var f Frame
	copy(f.Dst[:], p[2:8])
	copy(f.Src[:], p[8:14])
	if f.Src == t.addr {
		return Frame{}, false
	}
	if f.Dst != t.addr && !f.Dst.IsBroadcast() {
		return Frame{}, false
	}
	f.Data = p[udpHeaderSize:]
	if len(f.Data) > MaxPayload {
		return Frame{}, false
	}
	f.At = time.Now()
	return f, true
}
