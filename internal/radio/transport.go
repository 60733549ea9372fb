package radio

import "time"

// MaxPayload 单帧负载上限
const MaxPayload = 250

// Frame 接收到的无线帧
// Data 只在 Handler 调用期间有效，需要保留时必须拷贝
type Frame struct {
	Src  Addr
	Dst  Addr
	Data []byte
	At   time.Time
}

// Handler 帧回调，运行在传输层唯一的接收 goroutine 中
// 实现不得阻塞
type Handler func(Frame)

// Transport 无连接、按链路地址寻址、可能丢帧的无线传输
type Transport interface {
	LocalAddr() Addr
	// SetHandler 在开始收帧前设置；传 nil 表示丢弃所有帧
	SetHandler(h Handler)
	// EnsurePeer 幂等注册单播对端，已存在时无操作
	EnsurePeer(a Addr) error
	// Send 单播到已注册对端，不保证送达
	Send(dst Addr, p []byte) error
	// Broadcast 广播，无需对端注册
	Broadcast(p []byte) error
	Close() error
}

func checkPayload(p []byte) error {
	if len(p) == 0 {
		return ErrEmptyPayload
	}
	if len(p) > MaxPayload {
		return ErrPayloadTooLarge
	}
	return nil
}
