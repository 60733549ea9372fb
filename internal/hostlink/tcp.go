package hostlink

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TCPLink 主机通过 TCP 连接；同一时刻只服务一个客户端，新连接替换旧连接
type TCPLink struct {
	addr         string
	writeTimeout time.Duration
	log          *zap.Logger

	ln    net.Listener
	wg    sync.WaitGroup
	stopC chan struct{}
	lines chan []byte
	once  sync.Once
	mu    sync.Mutex
	conn  net.Conn
}

var _ Link = (*TCPLink)(nil)

// ListenTCP 监听并在后台接受连接
func ListenTCP(addr string, writeTimeout time.Duration, log *zap.Logger) (*TCPLink, error) {
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	l := &TCPLink{
		addr:         addr,
		writeTimeout: writeTimeout,
		log:          log,
		ln:           ln,
		stopC:        make(chan struct{}),
		lines:        make(chan []byte, 16),
	}
	l.wg.Add(1)
	go l.acceptLoop()
	return l, nil
}

func (l *TCPLink) Name() string { return "tcp:" + l.ln.Addr().String() }

// Addr 实际监听地址
func (l *TCPLink) Addr() net.Addr { return l.ln.Addr() }

// Connected 当前是否有主机连接
func (l *TCPLink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

func (l *TCPLink) acceptLoop() {
	defer l.wg.Done()
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-l.stopC:
				return
			default:
			}
			// 短暂错误等待后重试
			time.Sleep(50 * time.Millisecond)
			continue
		}
		l.mu.Lock()
		if old := l.conn; old != nil {
			_ = old.Close()
		}
		l.conn = conn
		l.mu.Unlock()
		l.log.Info("host client connected", zap.String("remote", conn.RemoteAddr().String()))

		l.wg.Add(1)
		go l.readConn(conn)
	}
}

func (l *TCPLink) readConn(c net.Conn) {
	defer l.wg.Done()
	defer l.drop(c)
	sc := bufio.NewScanner(c)
	sc.Buffer(make([]byte, 0, 256), MaxCommandLine)
	for sc.Scan() {
		line := bytes.TrimRight(sc.Bytes(), "\r")
		if len(line) == 0 {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		select {
		case l.lines <- cp:
		case <-l.stopC:
			return
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		l.log.Debug("host client read ended", zap.Error(err))
	}
}

func (l *TCPLink) drop(c net.Conn) {
	_ = c.Close()
	l.mu.Lock()
	if l.conn == c {
		l.conn = nil
		l.log.Info("host client disconnected", zap.String("remote", c.RemoteAddr().String()))
	}
	l.mu.Unlock()
}

// ReadLine 客户端断开不结束读取，等待下一个客户端
func (l *TCPLink) ReadLine(ctx context.Context) ([]byte, error) {
	select {
	case line := <-l.lines:
		return line, nil
	case <-l.stopC:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WriteLine 无客户端时返回 ErrNoClient，行被丢弃
func (l *TCPLink) WriteLine(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return ErrNoClient
	}
	_ = l.conn.SetWriteDeadline(time.Now().Add(l.writeTimeout))
	buf := make([]byte, 0, len(p)+1)
	buf = append(append(buf, p...), '\n')
	if _, err := l.conn.Write(buf); err != nil {
		_ = l.conn.Close()
		return err
	}
	return nil
}

// Close 关闭监听与当前连接并等待 goroutine 退出
func (l *TCPLink) Close() error {
	l.once.Do(func() {
		close(l.stopC)
		_ = l.ln.Close()
		l.mu.Lock()
		if l.conn != nil {
			_ = l.conn.Close()
		}
		l.mu.Unlock()
		l.wg.Wait()
	})
	return nil
}
