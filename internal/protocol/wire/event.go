package wire

import (
	"encoding/binary"
	"strconv"
)

// Event 结构化二进制事件（按键类节点）
type Event struct {
	ID       NodeID
	Index    uint8 // 子索引 1..N，单索引记录隐含为 1
	Pressed  bool
	Seq      uint32
	UptimeMs uint32
	Multi    bool // true 时按多索引记录编码
}

// AppendEncode 按记录布局追加编码结果
func (e Event) AppendEncode(dst []byte) ([]byte, error) {
	idLen := SingleIDLen
	if e.Multi {
		idLen = MultiIDLen
		if e.Index < 1 {
			return dst, ErrIndexRange
		}
	}
	// ID 可以填满字段，接收端遇 NUL 或字段结尾截止
	if e.ID.Len() > idLen {
		return dst, ErrIDTooLong
	}
	var field [MultiIDLen]byte
	copy(field[:idLen], e.ID.b[:e.ID.n])
	dst = append(dst, field[:idLen]...)
	if e.Multi {
		dst = append(dst, e.Index)
	}
	if e.Pressed {
		dst = append(dst, 1)
	} else {
		dst = append(dst, 0)
	}
	dst = binary.LittleEndian.AppendUint32(dst, e.Seq)
	dst = binary.LittleEndian.AppendUint32(dst, e.UptimeMs)
	return dst, nil
}

// Encode 编码为新切片
func (e Event) Encode() ([]byte, error) {
	return e.AppendEncode(make([]byte, 0, MultiEventSize))
}

func decodeSingle(p []byte) Event {
	return Event{
		ID:       IDFromBytes(p[:SingleIDLen]),
		Index:    1,
		Pressed:  p[SingleIDLen] != 0,
		Seq:      binary.LittleEndian.Uint32(p[SingleIDLen+1:]),
		UptimeMs: binary.LittleEndian.Uint32(p[SingleIDLen+5:]),
	}
}

func decodeMulti(p []byte) Event {
	return Event{
		ID:       IDFromBytes(p[:MultiIDLen]),
		Index:    p[MultiIDLen],
		Pressed:  p[MultiIDLen+1] != 0,
		Seq:      binary.LittleEndian.Uint32(p[MultiIDLen+2:]),
		UptimeMs: binary.LittleEndian.Uint32(p[MultiIDLen+6:]),
		Multi:    true,
	}
}

// AppendJSON 合成主机侧消息体:
// {"id":"BTN3","btn":1,"pressed":true,"seq":5,"uptime":1234}
func (e Event) AppendJSON(dst []byte) []byte {
	dst = append(dst, `{"id":`...)
	dst = e.ID.AppendJSON(dst)
	dst = append(dst, `,"btn":`...)
	dst = strconv.AppendUint(dst, uint64(e.Index), 10)
	dst = append(dst, `,"pressed":`...)
	dst = strconv.AppendBool(dst, e.Pressed)
	dst = append(dst, `,"seq":`...)
	dst = strconv.AppendUint(dst, uint64(e.Seq), 10)
	dst = append(dst, `,"uptime":`...)
	dst = strconv.AppendUint(dst, uint64(e.UptimeMs), 10)
	return append(dst, '}')
}
