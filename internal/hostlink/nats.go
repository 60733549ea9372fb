package hostlink

import (
	"context"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/radio-hub/internal/config"
)

// ConnectNATS 按配置建立带自动重连的 NATS 连接
func ConnectNATS(cfg cfgpkg.NATSConfig, name string, log *zap.Logger) (*nats.Conn, error) {
	if log == nil {
		log = zap.NewNop()
	}
	return nats.Connect(cfg.URL,
		nats.Name(name),
		nats.UserInfo(cfg.Username, cfg.Password),
		nats.ReconnectWait(cfg.ReconnectInterval),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			log.Error("nats error", zap.String("subject", subject), zap.Error(err))
		}),
	)
}

// NATSLink 主机链路：出站行发布到 events 主题，命令从 commands 主题订阅
type NATSLink struct {
	nc       *nats.Conn
	events   string
	commands string
	msgs     chan *nats.Msg
	sub      *nats.Subscription
	closed   chan struct{}
	once     sync.Once
}

var _ Link = (*NATSLink)(nil)

// NewNATS 订阅命令主题；连接由调用方管理
func NewNATS(nc *nats.Conn, events, commands string) (*NATSLink, error) {
	l := &NATSLink{
		nc:       nc,
		events:   events,
		commands: commands,
		msgs:     make(chan *nats.Msg, 64),
		closed:   make(chan struct{}),
	}
	sub, err := nc.ChanSubscribe(commands, l.msgs)
	if err != nil {
		return nil, err
	}
	l.sub = sub
	return l, nil
}

func (l *NATSLink) Name() string { return "nats:" + l.commands }

func (l *NATSLink) WriteLine(p []byte) error {
	// Publish 会持有切片到刷新前，调用方的缓冲区会被复用
	cp := make([]byte, len(p))
	copy(cp, p)
	return l.nc.Publish(l.events, cp)
}

func (l *NATSLink) ReadLine(ctx context.Context) ([]byte, error) {
	for {
		select {
		case m := <-l.msgs:
			if len(m.Data) == 0 || len(m.Data) > MaxCommandLine {
				continue
			}
			return m.Data, nil
		case <-l.closed:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close 退订命令主题，不关闭连接
func (l *NATSLink) Close() error {
	var err error
	l.once.Do(func() {
		close(l.closed)
		err = l.sub.Unsubscribe()
	})
	return err
}
