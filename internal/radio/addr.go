package radio

import (
	"fmt"
	"strings"
)

// Addr 6 字节链路地址
type Addr [6]byte

// BroadcastAddr 广播地址
var BroadcastAddr = Addr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

const upperHex = "0123456789ABCDEF"

// ParseAddr 解析冒号分隔的十六进制地址，例如 AA:BB:CC:DD:EE:FF（大小写均可）
func ParseAddr(s string) (Addr, error) {
	var a Addr
	s = strings.TrimSpace(s)
	if len(s) != 17 {
		return a, fmt.Errorf("%w: %q", ErrInvalidAddr, s)
	}
	for i := 0; i < 6; i++ {
		off := i * 3
		if i < 5 && s[off+2] != ':' {
			return a, fmt.Errorf("%w: %q", ErrInvalidAddr, s)
		}
		hi, ok1 := unhex(s[off])
		lo, ok2 := unhex(s[off+1])
		if !ok1 || !ok2 {
			return a, fmt.Errorf("%w: %q", ErrInvalidAddr, s)
		}
		a[i] = hi<<4 | lo
	}
	return a, nil
}

// MustParseAddr 仅用于常量地址与测试
func MustParseAddr(s string) Addr {
	a, err := ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// AppendText 以 AA:BB:CC:DD:EE:FF 形式追加，不分配内存
func (a Addr) AppendText(dst []byte) []byte {
	for i, b := range a {
		if i > 0 {
			dst = append(dst, ':')
		}
		dst = append(dst, upperHex[b>>4], upperHex[b&0x0f])
	}
	return dst
}

func (a Addr) String() string {
	var buf [17]byte
	return string(a.AppendText(buf[:0]))
}

func (a Addr) IsZero() bool { return a == Addr{} }

func (a Addr) IsBroadcast() bool { return a == BroadcastAddr }

// MarshalText 用于 JSON 输出
func (a Addr) MarshalText() ([]byte, error) { return a.AppendText(make([]byte, 0, 17)), nil }

// UnmarshalText 用于配置与 JSON 输入
func (a *Addr) UnmarshalText(b []byte) error {
	v, err := ParseAddr(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
