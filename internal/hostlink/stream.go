package hostlink

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

// StreamLink 基于字节流（stdio/串口）的行链路
type StreamLink struct {
	name   string
	r      io.Reader
	w      io.Writer
	c      io.Closer
	lines  chan []byte
	closed chan struct{}
	once   sync.Once

	errMu   sync.Mutex
	readErr error

	wmu  sync.Mutex
	wbuf []byte
}

var _ Link = (*StreamLink)(nil)

// NewStream c 可为 nil
func NewStream(name string, r io.Reader, w io.Writer, c io.Closer) *StreamLink {
	s := &StreamLink{
		name:   name,
		r:      r,
		w:      w,
		c:      c,
		lines:  make(chan []byte, 16),
		closed: make(chan struct{}),
		wbuf:   make([]byte, 0, 512),
	}
	go s.readLoop()
	return s
}

func (s *StreamLink) Name() string { return s.name }

func (s *StreamLink) readLoop() {
	defer close(s.lines)
	br := bufio.NewReaderSize(s.r, MaxCommandLine)
	for {
		line, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			// 丢弃超长行的剩余部分
			for errors.Is(err, bufio.ErrBufferFull) {
				_, err = br.ReadSlice('\n')
			}
			if err != nil {
				s.setErr(err)
				return
			}
			continue
		}
		if trimmed := bytes.TrimRight(line, "\r\n"); len(trimmed) > 0 {
			cp := make([]byte, len(trimmed))
			copy(cp, trimmed)
			select {
			case s.lines <- cp:
			case <-s.closed:
				return
			}
		}
		if err != nil {
			s.setErr(err)
			return
		}
	}
}

func (s *StreamLink) setErr(err error) {
	s.errMu.Lock()
	s.readErr = err
	s.errMu.Unlock()
}

// ReadLine 返回不含换行的一行；输入结束返回 io.EOF
func (s *StreamLink) ReadLine(ctx context.Context) ([]byte, error) {
	select {
	case line, ok := <-s.lines:
		if ok {
			return line, nil
		}
		s.errMu.Lock()
		err := s.readErr
		s.errMu.Unlock()
		if err == nil {
			err = io.EOF
		}
		return nil, err
	case <-s.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WriteLine 整行写出，处理部分写
func (s *StreamLink) WriteLine(p []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}
	s.wbuf = append(append(s.wbuf[:0], p...), '\n')
	for off := 0; off < len(s.wbuf); {
		n, err := s.w.Write(s.wbuf[off:])
		if err != nil {
			return err
		}
		off += n
	}
	return nil
}

func (s *StreamLink) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closed)
		if s.c != nil {
			err = s.c.Close()
		}
	})
	return err
}
