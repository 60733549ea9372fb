package wire

import "encoding/binary"

// Ack 确认帧
type Ack struct {
	SenderID uint32
	Seq      uint32
}

// Encode 编码为 10 字节确认帧
func (a Ack) Encode() [AckSize]byte {
	var b [AckSize]byte
	binary.LittleEndian.PutUint16(b[0:2], AckMagic)
	binary.LittleEndian.PutUint32(b[2:6], a.SenderID)
	binary.LittleEndian.PutUint32(b[6:10], a.Seq)
	return b
}

// DecodeAck 长度与魔数均匹配时解析确认帧
func DecodeAck(p []byte) (Ack, bool) {
	if len(p) != AckSize || binary.LittleEndian.Uint16(p[0:2]) != AckMagic {
		return Ack{}, false
	}
	return Ack{
		SenderID: binary.LittleEndian.Uint32(p[2:6]),
		Seq:      binary.LittleEndian.Uint32(p[6:10]),
	}, true
}

// EncodeHeaderText 构造需要确认的带头文本帧
func EncodeHeaderText(senderID, seq uint32, text []byte) ([]byte, error) {
	if len(text) == 0 {
		return nil, ErrEmptyText
	}
	if len(text) > MaxLineLen {
		return nil, ErrTextTooLong
	}
	b := make([]byte, HeaderSize, HeaderSize+len(text))
	binary.LittleEndian.PutUint32(b[0:4], senderID)
	binary.LittleEndian.PutUint32(b[4:8], seq)
	return append(b, text...), nil
}
