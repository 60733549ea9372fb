package hub

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/taoyao-code/radio-hub/internal/protocol/wire"
	"github.com/taoyao-code/radio-hub/internal/radio"
)

// DefaultQueueCapacity 入站队列容量
const DefaultQueueCapacity = 128

// Item 入站队列条目，消息体以定长数组按值保存，入队不分配内存
type Item struct {
	Src      radio.Addr
	At       time.Time
	Kind     wire.Kind
	SenderID uint32 // 仅带头文本
	Seq      uint32 // 仅带头文本
	n        uint8
	body     [wire.MaxLineLen]byte
}

// Body 返回消息体（事件为合成 JSON，文本为原文）
func (it *Item) Body() []byte { return it.body[:it.n] }

// SetBody 超长部分截断
func (it *Item) SetBody(p []byte) {
	it.n = uint8(copy(it.body[:], p))
}

func (it *Item) setEvent(ev wire.Event) {
	b := ev.AppendJSON(it.body[:0])
	it.n = uint8(copy(it.body[:], b))
}

// Queue 单生产者单消费者的有界 FIFO；满时丢弃新条目，生产者永不阻塞
type Queue struct {
	ch      chan Item
	dropped atomic.Uint64
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{ch: make(chan Item, capacity)}
}

// TryPush 非阻塞入队，满时返回 false
func (q *Queue) TryPush(it *Item) bool {
	select {
	case q.ch <- *it:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Pop 最多等待 wait；超时或 ctx 结束返回 false
func (q *Queue) Pop(ctx context.Context, wait time.Duration) (Item, bool) {
	select {
	case it := <-q.ch:
		return it, true
	default:
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case it := <-q.ch:
		return it, true
	case <-t.C:
		return Item{}, false
	case <-ctx.Done():
		return Item{}, false
	}
}

func (q *Queue) Len() int { return len(q.ch) }

func (q *Queue) Cap() int { return cap(q.ch) }

// Dropped 因队列满而丢弃的累计条目数
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
