package hostlink

import (
	"context"
	"sync"
	"time"

	redisstorage "github.com/taoyao-code/radio-hub/internal/storage/redis"
)

// RedisKeys Redis 主机链路的键名
type RedisKeys struct {
	EventsChannel string // PUBLISH 实时推送
	EventsList    string // 最近 N 行
	EventsMaxLen  int64
	CommandsKey   string // 主机 RPUSH 命令，集线器 BLPOP
}

// RedisLink 主机通过 Redis 交换行：出站行发布并保留最近窗口，入站命令来自列表
type RedisLink struct {
	cli     *redisstorage.Client
	keys    RedisKeys
	sink    redisstorage.LineSink
	timeout time.Duration
	closed  chan struct{}
	once    sync.Once
}

var _ Link = (*RedisLink)(nil)

func NewRedis(cli *redisstorage.Client, keys RedisKeys) *RedisLink {
	if keys.EventsMaxLen <= 0 {
		keys.EventsMaxLen = 1000
	}
	return &RedisLink{
		cli:     cli,
		keys:    keys,
		sink:    redisstorage.LineSink{Channel: keys.EventsChannel, List: keys.EventsList, MaxLen: keys.EventsMaxLen},
		timeout: 2 * time.Second,
		closed:  make(chan struct{}),
	}
}

func (l *RedisLink) Name() string { return "redis:" + l.keys.CommandsKey }

func (l *RedisLink) WriteLine(p []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	return l.cli.PushLine(ctx, l.sink, string(p))
}

// ReadLine 以 1s 为粒度阻塞弹出命令，便于响应 ctx 与 Close
func (l *RedisLink) ReadLine(ctx context.Context) ([]byte, error) {
	for {
		select {
		case <-l.closed:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		line, ok, err := l.cli.PopLine(ctx, l.keys.CommandsKey, time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if ok && line != "" && len(line) <= MaxCommandLine {
			return []byte(line), nil
		}
	}
}

// Close 不关闭共享的 Redis 客户端
func (l *RedisLink) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}
