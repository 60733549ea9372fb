package wire

// NodeID 定长存储的逻辑节点 ID，避免在接收路径上分配字符串
// 未使用的尾部字节始终为 0，因此可以直接用 == 比较
type NodeID struct {
	n uint8
	b [MaxIDLen]byte
}

// IDFromBytes 从定长记录字段中提取 ID：遇到 NUL 截止，去掉尾部空格，超长截断
func IDFromBytes(p []byte) NodeID {
	var id NodeID
	for _, c := range p {
		if c == 0 || int(id.n) == MaxIDLen {
			break
		}
		id.b[id.n] = c
		id.n++
	}
	id.trimRight()
	return id
}

// MakeID 从字符串构造 ID，规则同 IDFromBytes
func MakeID(s string) NodeID {
	var id NodeID
	for i := 0; i < len(s); i++ {
		if s[i] == 0 || int(id.n) == MaxIDLen {
			break
		}
		id.b[id.n] = s[i]
		id.n++
	}
	id.trimRight()
	return id
}

func (id *NodeID) trimRight() {
	for id.n > 0 && id.b[id.n-1] == ' ' {
		id.n--
		id.b[id.n] = 0
	}
}

func (id NodeID) String() string { return string(id.b[:id.n]) }

func (id NodeID) Len() int { return int(id.n) }

func (id NodeID) IsZero() bool { return id.n == 0 }

// Truncate 返回最多 n 个字符的 ID
func (id NodeID) Truncate(n int) NodeID {
	if n < 0 {
		n = 0
	}
	for int(id.n) > n {
		id.n--
		id.b[id.n] = 0
	}
	return id
}

// HasPrefix 节点类别前缀检查（区分大小写）
func (id NodeID) HasPrefix(prefix string) bool {
	if len(prefix) > int(id.n) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		if id.b[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Printable 是否全部为可打印 ASCII
func (id NodeID) Printable() bool {
	for i := 0; i < int(id.n); i++ {
		if c := id.b[i]; c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

// EqualFold ASCII 大小写不敏感比较
func (id NodeID) EqualFold(o NodeID) bool {
	if id.n != o.n {
		return false
	}
	for i := 0; i < int(id.n); i++ {
		if lower(id.b[i]) != lower(o.b[i]) {
			return false
		}
	}
	return true
}

// AppendTo 追加原始字节
func (id NodeID) AppendTo(dst []byte) []byte { return append(dst, id.b[:id.n]...) }

// AppendJSON 追加带引号并转义的 JSON 字符串
func (id NodeID) AppendJSON(dst []byte) []byte { return AppendJSONString(dst, id.b[:id.n]) }

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
