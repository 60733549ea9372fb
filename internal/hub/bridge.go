package hub

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/radio-hub/internal/metrics"
	"github.com/taoyao-code/radio-hub/internal/protocol/wire"
	"github.com/taoyao-code/radio-hub/internal/radio"
)

// LineReader 主机命令读取端
type LineReader interface {
	ReadLine(ctx context.Context) ([]byte, error)
}

// Bridge 主机命令入口
//
//	TX <logical-id> <payload>      按注册表解析目的地址
//	TXMAC <AA:BB:CC:DD:EE:FF> <payload>
//	IDS                             输出注册表
//	PING                            输出 pong
//
// 每条 TX/TXMAC 至多产生一次无线发送，解析失败写诊断行且不发送，也不排队等待
type Bridge struct {
	reg    *Registry
	tx     radio.Transport
	link   HostLink
	format Formatter
	log    *zap.Logger
	m      *metrics.HubMetrics
	now    func() time.Time
}

func NewBridge(h *Hub, link HostLink) *Bridge {
	return &Bridge{
		reg:    h.reg,
		tx:     h.cmdTx,
		link:   link,
		format: h.format,
		log:    h.log,
		m:      h.m,
		now:    h.now,
	}
}

// Run 逐行读取命令；主机链路 EOF 视为正常结束
func (b *Bridge) Run(ctx context.Context) error {
	for {
		line, err := b.link.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		b.Handle(line)
	}
}

// Handle 处理一行命令
func (b *Bridge) Handle(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	verb, rest := cut(line)
	switch {
	case bytes.EqualFold(verb, []byte("TX")):
		b.handleTX(line, rest)
	case bytes.EqualFold(verb, []byte("TXMAC")):
		b.handleTXMAC(line, rest)
	case bytes.EqualFold(verb, []byte("IDS")):
		b.m.Command(metrics.CmdQuery)
		b.reply(b.format.IDs(b.now(), b.reg.Snapshot()), metrics.LineReply)
	case bytes.EqualFold(verb, []byte("PING")):
		b.m.Command(metrics.CmdQuery)
		b.reply(b.format.Pong(b.now()), metrics.LineReply)
	default:
		b.badCommand(line)
	}
}

func (b *Bridge) handleTX(line, rest []byte) {
	idTok, payload := cut(rest)
	if len(idTok) == 0 || len(payload) == 0 {
		b.badCommand(line)
		return
	}
	id := wire.IDFromBytes(idTok)
	dst, ok := b.reg.Resolve(id)
	if !ok {
		b.m.Command(metrics.CmdUnknownID)
		b.diag(Diag{Err: DiagUnknownID, ID: string(idTok)})
		return
	}
	b.send(dst, payload, zap.ByteString("id", idTok))
}

func (b *Bridge) handleTXMAC(line, rest []byte) {
	macTok, payload := cut(rest)
	if len(macTok) == 0 || len(payload) == 0 {
		b.badCommand(line)
		return
	}
	dst, err := radio.ParseAddr(string(macTok))
	if err != nil || dst.IsBroadcast() || dst.IsZero() {
		b.m.Command(metrics.CmdBadMAC)
		b.diag(Diag{Err: DiagBadMAC, MAC: string(macTok)})
		return
	}
	b.send(dst, payload)
}

// send 对端注册或发送失败不回写诊断，只记录
func (b *Bridge) send(dst radio.Addr, payload []byte, fields ...zap.Field) {
	if len(payload) > radio.MaxPayload {
		b.m.Command(metrics.CmdBadCommand)
		b.diag(Diag{Err: DiagTooLarge, Len: len(payload)})
		return
	}
	fields = append(fields, zap.Stringer("mac", dst), zap.Int("len", len(payload)))
	if err := b.tx.EnsurePeer(dst); err != nil {
		b.m.Command(metrics.CmdPeerFailed)
		b.log.Debug("command dropped: peer", append(fields, zap.Error(err))...)
		return
	}
	if err := b.tx.Send(dst, payload); err != nil {
		b.m.Command(metrics.CmdSendFailed)
		b.log.Debug("command dropped: send", append(fields, zap.Error(err))...)
		return
	}
	b.m.Command(metrics.CmdSent)
	b.log.Debug("command sent", fields...)
}

func (b *Bridge) badCommand(line []byte) {
	b.m.Command(metrics.CmdBadCommand)
	b.diag(Diag{Err: DiagBadCommand, Line: string(line)})
}

func (b *Bridge) diag(d Diag) {
	b.reply(b.format.Diag(b.now(), d), metrics.LineDiag)
}

func (b *Bridge) reply(p []byte, typ string) {
	if err := b.link.WriteLine(p); err != nil {
		b.m.HostWriteError()
		b.log.Warn("host write failed", zap.String("type", typ), zap.Error(err))
		return
	}
	b.m.HostLine(typ)
}

// cut 按第一个空白切分，剩余部分去掉前导空白
func cut(p []byte) (head, rest []byte) {
	i := bytes.IndexAny(p, " \t")
	if i < 0 {
		return p, nil
	}
	return p[:i], bytes.TrimLeft(p[i+1:], " \t")
}
