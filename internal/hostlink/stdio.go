package hostlink

import "os"

// NewStdio 主机通过标准输入输出连接（日志需输出到 stderr）
func NewStdio() *StreamLink {
	return NewStream("stdio", os.Stdin, os.Stdout, nil)
}
