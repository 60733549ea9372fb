package spoke

import (
	"context"
	"time"

	"github.com/taoyao-code/radio-hub/internal/protocol/wire"
)

// ButtonNode 按键节点：状态变化以二进制事件冗余广播
type ButtonNode struct {
	id    wire.NodeID
	multi bool
	out   *Redundant
	seq   uint32
	start time.Time
}

// NewButtonNode multi=true 时使用多索引记录（一个节点多个按键）
func NewButtonNode(id string, multi bool, out *Redundant) (*ButtonNode, error) {
	nid := wire.MakeID(id)
	limit := wire.SingleIDLen
	if multi {
		limit = wire.MultiIDLen
	}
	if nid.IsZero() || nid.Len() > limit {
		return nil, wire.ErrIDTooLong
	}
	return &ButtonNode{id: nid, multi: multi, out: out, start: time.Now()}, nil
}

func (b *ButtonNode) ID() string { return b.id.String() }

// Press 上报一次按键状态；序号单调递增，所有冗余副本共用同一序号
func (b *ButtonNode) Press(ctx context.Context, index uint8, pressed bool) (uint32, error) {
	b.seq++
	ev := wire.Event{
		ID:       b.id,
		Index:    index,
		Pressed:  pressed,
		Seq:      b.seq,
		UptimeMs: uint32(time.Since(b.start).Milliseconds()),
		Multi:    b.multi,
	}
	if !b.multi {
		ev.Index = 1
	}
	frame, err := ev.Encode()
	if err != nil {
		return b.seq, err
	}
	_, err = b.out.Send(ctx, frame)
	return b.seq, err
}
