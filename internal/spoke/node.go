package spoke

import (
	"context"

	"go.uber.org/zap"

	"github.com/taoyao-code/radio-hub/internal/protocol/wire"
	"github.com/taoyao-code/radio-hub/internal/radio"
)

const commandBacklog = 8

// Node 终端节点的接收分发：确认交给 Requester，文本交给 Interpreter
// 解释器可能阻塞在硬件上，因此文本经缓冲通道转到 Run 中处理
type Node struct {
	tr     radio.Transport
	cls    wire.Classifier
	req    *Requester
	interp *Interpreter
	cmds   chan []byte
	log    *zap.Logger
}

// NewNode req 与 interp 均可为 nil
func NewNode(tr radio.Transport, req *Requester, interp *Interpreter, log *zap.Logger) *Node {
	if log == nil {
		log = zap.NewNop()
	}
	return &Node{
		tr:     tr,
		cls:    wire.NewClassifier("", 0),
		req:    req,
		interp: interp,
		cmds:   make(chan []byte, commandBacklog),
		log:    log,
	}
}

// Attach 注册为传输层的帧回调
func (n *Node) Attach() { n.tr.SetHandler(n.HandleFrame) }

func (n *Node) HandleFrame(f radio.Frame) {
	msg, ok := n.cls.Classify(f.Data)
	if !ok {
		return
	}
	switch msg.Kind {
	case wire.KindAck:
		if n.req != nil {
			n.req.OnAck(msg.Ack)
		}
	case wire.KindText:
		if n.interp == nil {
			return
		}
		cp := make([]byte, len(msg.Text))
		copy(cp, msg.Text)
		select {
		case n.cmds <- cp:
		default:
			n.log.Debug("command backlog full", zap.Stringer("mac", f.Src))
		}
	}
}

// Run 处理文本命令直到 ctx 结束
func (n *Node) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-n.cmds:
			out := n.interp.Handle(ctx, text)
			if out != OutcomeNotForMe {
				n.log.Debug("command handled", zap.Stringer("outcome", out), zap.ByteString("text", text))
			}
		}
	}
}
