package hub

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/radio-hub/internal/radio"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock { return &fakeClock{t: time.Date(2025, 10, 31, 20, 0, 0, 0, time.UTC)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeLink 内存主机链路
type fakeLink struct {
	in    chan []byte
	mu    sync.Mutex
	out   []string
	wrote chan struct{}
}

func newFakeLink() *fakeLink {
	return &fakeLink{in: make(chan []byte, 16), wrote: make(chan struct{}, 64)}
}

func (l *fakeLink) ReadLine(ctx context.Context) ([]byte, error) {
	select {
	case p, ok := <-l.in:
		if !ok {
			return nil, io.EOF
		}
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *fakeLink) WriteLine(p []byte) error {
	l.mu.Lock()
	l.out = append(l.out, string(p))
	l.mu.Unlock()
	select {
	case l.wrote <- struct{}{}:
	default:
	}
	return nil
}

func (l *fakeLink) lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.out...)
}

func (l *fakeLink) waitLines(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if out := l.lines(); len(out) >= n {
			return out
		}
		select {
		case <-l.wrote:
		case <-deadline:
			t.Fatalf("want %d host lines, got %d", n, len(l.lines()))
		}
	}
}

// sendLog 记录空口上的所有发送
type sendLog struct {
	mu     sync.Mutex
	frames []radio.Frame
}

func (s *sendLog) tap(f radio.Frame) {
	s.mu.Lock()
	s.frames = append(s.frames, f)
	s.mu.Unlock()
}

func (s *sendLog) from(src radio.Addr) []radio.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []radio.Frame
	for _, f := range s.frames {
		if f.Src == src {
			out = append(out, f)
		}
	}
	return out
}

var (
	hubMAC   = radio.MustParseAddr("24:0A:C4:00:00:01")
	spokeMAC = radio.MustParseAddr("24:0A:C4:00:00:02")
)

type rig struct {
	medium *radio.Medium
	hubTr  *radio.MemTransport
	spoke  *radio.MemTransport
	sends  *sendLog
	clock  *fakeClock
	hub    *Hub
}

func newRig(t *testing.T, opts Options) *rig {
	t.Helper()
	m := radio.NewMedium()
	sends := &sendLog{}
	m.SetTap(sends.tap)

	hubTr, err := m.Attach(hubMAC, 0)
	require.NoError(t, err)
	spoke, err := m.Attach(spokeMAC, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = hubTr.Close()
		_ = spoke.Close()
	})

	clock := newClock()
	if opts.Now == nil {
		opts.Now = clock.Now
	}
	h := New(hubTr, opts, nil, nil)
	h.Attach()
	return &rig{medium: m, hubTr: hubTr, spoke: spoke, sends: sends, clock: clock, hub: h}
}

func (r *rig) frame(src radio.Addr, data []byte) radio.Frame {
	return radio.Frame{Src: src, Dst: hubMAC, Data: data, At: r.clock.Now()}
}

func (r *rig) popNow(t *testing.T) (Item, bool) {
	t.Helper()
	return r.hub.Queue().Pop(context.Background(), time.Millisecond)
}
