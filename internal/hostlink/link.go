package hostlink

import (
	"context"
	"errors"
)

// MaxCommandLine 主机命令行上限，超长行整行丢弃
const MaxCommandLine = 1024

var (
	ErrClosed   = errors.New("host link closed")
	ErrNoClient = errors.New("no host client connected")
)

// Link 面向主机的行链路
// WriteLine 并发安全，每次写出一整行（自动追加换行）
type Link interface {
	ReadLine(ctx context.Context) ([]byte, error)
	WriteLine(p []byte) error
	Close() error
	Name() string
}
