package wire

import "encoding/binary"

// Kind 分类后的消息类型
type Kind uint8

const (
	KindNone Kind = iota
	KindEvent
	KindText
	KindHeaderText
	KindAck
)

func (k Kind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindText:
		return "text"
	case KindHeaderText:
		return "header_text"
	case KindAck:
		return "ack"
	default:
		return "none"
	}
}

// Message 分类结果，按 Kind 读取对应字段
// Text 引用原始帧内存，帧被复用前必须拷贝
type Message struct {
	Kind     Kind
	Event    Event
	Ack      Ack
	SenderID uint32 // KindHeaderText
	Seq      uint32 // KindHeaderText
	Text     []byte // KindText / KindHeaderText
	TextID   NodeID // 文本中扫描到的 "id"/"device_id"，可能为空
}

// Classifier 按帧长度与 ID 前缀判定负载类型
type Classifier struct {
	Prefix   string
	MaxIndex uint8
}

// NewClassifier 空前缀或零索引上限时使用默认值
func NewClassifier(prefix string, maxIndex uint8) Classifier {
	if prefix == "" {
		prefix = DefaultNodePrefix
	}
	if maxIndex == 0 {
		maxIndex = DefaultMaxIndex
	}
	return Classifier{Prefix: prefix, MaxIndex: maxIndex}
}

// Classify 对原始帧分类，返回 false 表示丢弃
// 顺序: 确认帧 → 多索引事件 → 单索引事件 → 原始文本 → 带头文本
// 不分配内存，不返回错误
func (c Classifier) Classify(p []byte) (Message, bool) {
	var m Message
	n := len(p)

	if n == AckSize && binary.LittleEndian.Uint16(p) == AckMagic {
		m.Kind = KindAck
		m.Ack, _ = DecodeAck(p)
		return m, true
	}

	if n == MultiEventSize {
		ev := decodeMulti(p)
		if ev.ID.HasPrefix(c.Prefix) && ev.ID.Printable() && ev.Index >= 1 && ev.Index <= c.MaxIndex {
			m.Kind = KindEvent
			m.Event = ev
			return m, true
		}
	}

	if n == SingleEventSize {
		ev := decodeSingle(p)
		if ev.ID.HasPrefix(c.Prefix) {
			m.Kind = KindEvent
			m.Event = ev
			return m, true
		}
	}

	if n > 0 && p[0] == '{' {
		// '{' 开头但超长的帧不再尝试带头解析
		if n > MaxLineLen {
			return m, false
		}
		m.Kind = KindText
		m.Text = p
		m.TextID, _ = ScanID(p)
		return m, true
	}

	if n >= MinHeaderFrame {
		body := p[HeaderSize:]
		if len(body) == 0 || len(body) > MaxLineLen {
			return m, false
		}
		m.Kind = KindHeaderText
		m.SenderID = binary.LittleEndian.Uint32(p[0:4])
		m.Seq = binary.LittleEndian.Uint32(p[4:8])
		m.Text = body
		m.TextID, _ = ScanID(body)
		return m, true
	}

	return m, false
}
