package journal

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/radio-hub/internal/metrics"
)

// 行类型
const (
	KindFrame     = "frame"
	KindHeartbeat = "heartbeat"
	KindDiag      = "diag"
	KindPong      = "pong"
	KindIDs       = "ids"
	KindOther     = "other"
)

// Options 零值字段使用默认值
type Options struct {
	Buffer           int
	BatchSize        int
	FlushInterval    time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
	WriteTimeout     time.Duration
}

// Journal 异步批量归档主机出站行；缓冲满或熔断时丢弃，不反压主机流
type Journal struct {
	store   Store
	hubID   string
	opts    Options
	ch      chan Record
	breaker *Breaker
	log     *zap.Logger
	m       *metrics.HubMetrics
	now     func() time.Time

	persisted atomic.Uint64
	dropped   atomic.Uint64
}

func New(store Store, hubID string, opts Options, log *zap.Logger, m *metrics.HubMetrics) *Journal {
	if opts.Buffer <= 0 {
		opts.Buffer = 1024
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	j := &Journal{
		store:   store,
		hubID:   hubID,
		opts:    opts,
		ch:      make(chan Record, opts.Buffer),
		breaker: NewBreaker(opts.BreakerThreshold, opts.BreakerCooldown),
		log:     log,
		m:       m,
		now:     time.Now,
	}
	j.breaker.OnStateChange(func(from, to State) {
		log.Warn("journal breaker state changed", zap.Stringer("from", from), zap.Stringer("to", to))
	})
	return j
}

// Record 复制行并入缓冲，满则丢弃
func (j *Journal) Record(line []byte) {
	kind, mac := Classify(line)
	r := Record{Kind: kind, MAC: mac, Line: append([]byte(nil), line...), At: j.now()}
	select {
	case j.ch <- r:
	default:
		j.dropped.Add(1)
		j.m.Journal(0, 1)
	}
}

// Run 按批次大小或刷新间隔写库，ctx 结束后尽力写出剩余行
func (j *Journal) Run(ctx context.Context) {
	batch := make([]Record, 0, j.opts.BatchSize)
	ticker := time.NewTicker(j.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case r := <-j.ch:
			batch = append(batch, r)
			if len(batch) >= j.opts.BatchSize {
				batch = j.flush(batch)
			}
		case <-ticker.C:
			batch = j.flush(batch)
		case <-ctx.Done():
		drain:
			for {
				select {
				case r := <-j.ch:
					batch = append(batch, r)
				default:
					break drain
				}
			}
			j.flush(batch)
			return
		}
	}
}

func (j *Journal) flush(batch []Record) []Record {
	if len(batch) == 0 {
		return batch
	}
	ctx, cancel := context.WithTimeout(context.Background(), j.opts.WriteTimeout)
	defer cancel()
	err := j.breaker.Call(func() error { return j.store.Insert(ctx, j.hubID, batch) })
	n := len(batch)
	switch {
	case err == nil:
		j.persisted.Add(uint64(n))
		j.m.Journal(n, 0)
	case errors.Is(err, ErrCircuitOpen):
		j.dropped.Add(uint64(n))
		j.m.Journal(0, n)
	default:
		j.dropped.Add(uint64(n))
		j.m.Journal(0, n)
		j.log.Warn("journal insert failed", zap.Int("lines", n), zap.Error(err))
	}
	clear(batch)
	return batch[:0]
}

// Stats 归档计数
type Stats struct {
	Persisted uint64 `json:"persisted"`
	Dropped   uint64 `json:"dropped"`
	Pending   int    `json:"pending"`
	Breaker   string `json:"breaker"`
}

func (j *Journal) Stats() Stats {
	return Stats{
		Persisted: j.persisted.Load(),
		Dropped:   j.dropped.Load(),
		Pending:   len(j.ch),
		Breaker:   j.breaker.State().String(),
	}
}

var (
	tsPrefix = []byte(`{"ts":`)
	macKey   = []byte(`"mac":"`)
)

// Classify 依据 ts 之后的第一个键判断行类型，帧行同时取出 mac
func Classify(line []byte) (kind, mac string) {
	if !bytes.HasPrefix(line, tsPrefix) {
		return KindOther, ""
	}
	rest := line[len(tsPrefix):]
	i := bytes.IndexByte(rest, ',')
	if i < 0 {
		return KindOther, ""
	}
	rest = rest[i+1:]
	switch {
	case bytes.HasPrefix(rest, macKey):
		v := rest[len(macKey):]
		if end := bytes.IndexByte(v, '"'); end > 0 {
			mac = string(v[:end])
		}
		return KindFrame, mac
	case bytes.HasPrefix(rest, []byte(`"hb":`)):
		return KindHeartbeat, ""
	case bytes.HasPrefix(rest, []byte(`"err":`)):
		return KindDiag, ""
	case bytes.HasPrefix(rest, []byte(`"pong":`)):
		return KindPong, ""
	case bytes.HasPrefix(rest, []byte(`"ids":`)):
		return KindIDs, ""
	}
	return KindOther, ""
}
