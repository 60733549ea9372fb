// Package legacy 兼容旧版传感器：UDP 明文 CSV 上报转换为 JSON 文本帧送入集线器
package legacy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/radio-hub/internal/metrics"
	"github.com/taoyao-code/radio-hub/internal/protocol/wire"
	"github.com/taoyao-code/radio-hub/internal/radio"
	"github.com/taoyao-code/radio-hub/internal/spoke"
)

// DefaultAddr 旧版传感器上报端口
const DefaultAddr = ":4210"

// ErrBadRecord CSV 字段数或取值不合法
var ErrBadRecord = errors.New("legacy: bad record")

// FrameSink 接收转换后的帧，通常为 hub.Hub
type FrameSink interface {
	HandleFrame(f radio.Frame)
}

// Parse sensor_id,distance,timestamp,packet_id,retries
func Parse(p []byte) (spoke.Report, error) {
	fields := bytes.Split(bytes.TrimSpace(p), []byte(","))
	if len(fields) != 5 {
		return spoke.Report{}, fmt.Errorf("%w: %d fields", ErrBadRecord, len(fields))
	}
	for i := range fields {
		fields[i] = bytes.TrimSpace(fields[i])
	}
	var (
		r   spoke.Report
		err error
	)
	r.ID = string(fields[0])
	if r.ID == "" {
		return spoke.Report{}, fmt.Errorf("%w: empty sensor id", ErrBadRecord)
	}
	if r.Distance, err = strconv.ParseFloat(string(fields[1]), 64); err != nil {
		return spoke.Report{}, fmt.Errorf("%w: distance: %v", ErrBadRecord, err)
	}
	if r.TS, err = strconv.ParseInt(string(fields[2]), 10, 64); err != nil {
		return spoke.Report{}, fmt.Errorf("%w: timestamp: %v", ErrBadRecord, err)
	}
	pid, err := strconv.ParseUint(string(fields[3]), 10, 32)
	if err != nil {
		return spoke.Report{}, fmt.Errorf("%w: packet id: %v", ErrBadRecord, err)
	}
	r.PID = uint32(pid)
	if r.Retries, err = strconv.Atoi(string(fields[4])); err != nil {
		return spoke.Report{}, fmt.Errorf("%w: retries: %v", ErrBadRecord, err)
	}
	return r, nil
}

// PseudoAddr 02:00 + IPv4 四字节，本地管理地址不会与真实无线地址冲突
func PseudoAddr(ip netip.Addr) radio.Addr {
	a := radio.Addr{0x02, 0x00}
	b := ip.Unmap().As16()
	copy(a[2:], b[12:])
	return a
}

// Listener 旧版 UDP 接入
type Listener struct {
	conn *net.UDPConn
	sink FrameSink
	log  *zap.Logger
	m    *metrics.HubMetrics
	now  func() time.Time
}

// Listen 绑定 UDP 地址；addr 为空使用 DefaultAddr
func Listen(addr string, sink FrameSink, log *zap.Logger, m *metrics.HubMetrics) (*Listener, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	if log == nil {
		log = zap.NewNop()
	}
	ua, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", ua)
	if err != nil {
		return nil, err
	}
	return &Listener{conn: conn, sink: sink, log: log, m: m, now: time.Now}, nil
}

func (l *Listener) Addr() net.Addr { return l.conn.LocalAddr() }

// Run 阻塞读取直至 ctx 结束
func (l *Listener) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = l.conn.Close()
	}()
	buf := make([]byte, 512)
	for {
		n, src, err := l.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		l.Handle(src.Addr(), buf[:n])
	}
}

// Handle 转换一个数据报；非法记录只计数
func (l *Listener) Handle(src netip.Addr, p []byte) {
	r, err := Parse(p)
	if err != nil {
		l.m.Legacy(false)
		l.log.Debug("legacy record dropped", zap.String("src", src.String()), zap.Error(err))
		return
	}
	body, err := json.Marshal(r)
	if err != nil || len(body) > wire.MaxLineLen {
		l.m.Legacy(false)
		return
	}
	l.m.Legacy(true)
	l.sink.HandleFrame(radio.Frame{Src: PseudoAddr(src), Data: body, At: l.now()})
}

func (l *Listener) Close() error { return l.conn.Close() }
