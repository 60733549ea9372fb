package radio

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	frames []Frame
	ch     chan struct{}
}

func newRecorder() *recorder { return &recorder{ch: make(chan struct{}, 64)} }

func (r *recorder) handle(f Frame) {
	cp := f
	cp.Data = append([]byte(nil), f.Data...)
	r.mu.Lock()
	r.frames = append(r.frames, cp)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(time.Second):
		t.Fatal("frame not delivered")
	}
}

func (r *recorder) snapshot() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Frame(nil), r.frames...)
}

func attach(t *testing.T, m *Medium, s string) *MemTransport {
	t.Helper()
	tr, err := m.Attach(MustParseAddr(s), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestMemTransport_Unicast(t *testing.T) {
	m := NewMedium()
	hub := attach(t, m, "02:00:00:00:00:01")
	spoke := attach(t, m, "02:00:00:00:00:02")
	rec := newRecorder()
	spoke.SetHandler(rec.handle)

	assert.ErrorIs(t, hub.Send(spoke.LocalAddr(), []byte("x")), ErrPeerNotFound, "未注册对端不能单播")

	require.NoError(t, hub.EnsurePeer(spoke.LocalAddr()))
	require.NoError(t, hub.Send(spoke.LocalAddr(), []byte("hello")))
	rec.wait(t)

	got := rec.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, hub.LocalAddr(), got[0].Src)
	assert.Equal(t, spoke.LocalAddr(), got[0].Dst)
	assert.Equal(t, "hello", string(got[0].Data))
}

func TestMemTransport_BroadcastSkipsSender(t *testing.T) {
	m := NewMedium()
	a := attach(t, m, "02:00:00:00:00:01")
	b := attach(t, m, "02:00:00:00:00:02")
	c := attach(t, m, "02:00:00:00:00:03")

	ra, rb, rc := newRecorder(), newRecorder(), newRecorder()
	a.SetHandler(ra.handle)
	b.SetHandler(rb.handle)
	c.SetHandler(rc.handle)

	require.NoError(t, a.Broadcast([]byte("all")))
	rb.wait(t)
	rc.wait(t)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, ra.snapshot())
}

func TestMemTransport_Errors(t *testing.T) {
	m := NewMedium()
	a := attach(t, m, "02:00:00:00:00:01")
	peer := MustParseAddr("02:00:00:00:00:09")

	assert.ErrorIs(t, a.Broadcast(nil), ErrEmptyPayload)
	assert.ErrorIs(t, a.Broadcast(make([]byte, MaxPayload+1)), ErrPayloadTooLarge)

	boom := errors.New("peer table locked")
	a.FailPeers(boom)
	assert.ErrorIs(t, a.EnsurePeer(peer), boom)
	a.FailPeers(nil)
	assert.NoError(t, a.EnsurePeer(peer))

	_, err := m.Attach(a.LocalAddr(), 0)
	assert.ErrorIs(t, err, ErrAddrInUse)

	require.NoError(t, a.Close())
	assert.ErrorIs(t, a.Send(peer, []byte("x")), ErrClosed)
	assert.NoError(t, a.Close(), "重复关闭无副作用")
}

func TestMedium_LossAndTap(t *testing.T) {
	m := NewMedium()
	a := attach(t, m, "02:00:00:00:00:01")
	b := attach(t, m, "02:00:00:00:00:02")
	rec := newRecorder()
	b.SetHandler(rec.handle)

	var tapped []string
	var mu sync.Mutex
	m.SetTap(func(f Frame) {
		mu.Lock()
		tapped = append(tapped, string(f.Data))
		mu.Unlock()
	})
	m.SetLoss(func(f Frame) bool { return string(f.Data) == "lost" })

	require.NoError(t, a.Broadcast([]byte("lost")))
	require.NoError(t, a.Broadcast([]byte("kept")))
	rec.wait(t)

	got := rec.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "kept", string(got[0].Data))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"lost", "kept"}, tapped, "旁路在丢帧判定之前")
}

func TestPaced(t *testing.T) {
	m := NewMedium()
	a := attach(t, m, "02:00:00:00:00:01")
	p := NewPaced(a, NewRateLimiter(1, 1), 10*time.Millisecond)

	require.NoError(t, p.Broadcast([]byte("1")))
	err := p.Broadcast([]byte("2"))
	assert.ErrorIs(t, err, ErrRateLimited, "令牌耗尽且等待上限很短")

	st := p.Limiter().Stats()
	assert.Equal(t, int64(1), st.AllowedTotal)
	assert.Equal(t, int64(1), st.RejectedTotal)
}
