package wire

var (
	keyID       = []byte(`"id"`)
	keyDeviceID = []byte(`"device_id"`)
)

// ScanID 在结构化文本中查找 "id" 或 "device_id" 的字符串值
// 只做字节扫描，不解析 JSON；值含转义或为空时视为未找到
func ScanID(p []byte) (NodeID, bool) {
	if id, ok := scanKey(p, keyID); ok {
		return id, true
	}
	return scanKey(p, keyDeviceID)
}

func scanKey(p, key []byte) (NodeID, bool) {
	for i := 0; i+len(key) <= len(p); i++ {
		if !hasAt(p, i, key) {
			continue
		}
		j := skipSpace(p, i+len(key))
		if j >= len(p) || p[j] != ':' {
			continue
		}
		j = skipSpace(p, j+1)
		if j >= len(p) || p[j] != '"' {
			continue
		}
		start := j + 1
		end := start
		for end < len(p) && p[end] != '"' && p[end] != '\\' {
			end++
		}
		if end >= len(p) || p[end] != '"' || end == start {
			continue
		}
		return IDFromBytes(p[start:end]), true
	}
	return NodeID{}, false
}

func hasAt(p []byte, i int, key []byte) bool {
	for k := range key {
		if p[i+k] != key[k] {
			return false
		}
	}
	return true
}

func skipSpace(p []byte, i int) int {
	for i < len(p) && (p[i] == ' ' || p[i] == '\t') {
		i++
	}
	return i
}
