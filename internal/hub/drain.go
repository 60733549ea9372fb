package hub

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/radio-hub/internal/metrics"
)

// LineWriter 主机流写入端
type LineWriter interface {
	WriteLine(p []byte) error
}

// Drain 出站排空任务：逐条格式化写往主机，空闲超过阈值时写心跳
type Drain struct {
	q      *Queue
	w      LineWriter
	format Formatter
	idle   time.Duration
	log    *zap.Logger
	m      *metrics.HubMetrics
	now    func() time.Time
	buf    []byte
}

func NewDrain(h *Hub, w LineWriter) *Drain {
	return &Drain{
		q:      h.queue,
		w:      w,
		format: h.format,
		idle:   h.opts.IdleHeartbeat,
		log:    h.log,
		m:      h.m,
		now:    h.now,
		buf:    make([]byte, 0, 512),
	}
}

// Run 阻塞直到 ctx 结束；写失败只记录，条目丢失
func (d *Drain) Run(ctx context.Context) {
	for ctx.Err() == nil {
		it, ok := d.q.Pop(ctx, d.idle)
		if ctx.Err() != nil {
			return
		}
		if !ok {
			d.buf = d.format.AppendHeartbeat(d.buf[:0], d.now(), d.q.Len(), d.q.Dropped())
			d.write(d.buf, metrics.LineHeartbeat)
			continue
		}
		d.m.SetQueueDepth(d.q.Len())
		d.buf = d.format.AppendItem(d.buf[:0], &it)
		d.write(d.buf, metrics.LineEvent)
	}
}

func (d *Drain) write(line []byte, typ string) {
	if err := d.w.WriteLine(line); err != nil {
		d.m.HostWriteError()
		d.log.Warn("host write failed", zap.String("type", typ), zap.Error(err))
		return
	}
	d.m.HostLine(typ)
}
