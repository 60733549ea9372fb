package spoke

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/radio-hub/internal/hub"
	"github.com/taoyao-code/radio-hub/internal/radio"
)

var (
	hubMAC   = radio.MustParseAddr("24:0A:C4:00:00:01")
	spokeMAC = radio.MustParseAddr("24:0A:C4:12:34:56")
)

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

func attach(t *testing.T, m *radio.Medium, a radio.Addr) *radio.MemTransport {
	t.Helper()
	tr, err := m.Attach(a, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

// withHub 在空口上挂一个真实的集线器
func withHub(t *testing.T, m *radio.Medium) *hub.Hub {
	t.Helper()
	h := hub.New(attach(t, m, hubMAC), hub.Options{DedupHeaderText: true}, nil, nil)
	h.Attach()
	return h
}

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) record(s State) {
	l.mu.Lock()
	l.states = append(l.states, s)
	l.mu.Unlock()
}

func (l *stateLog) get() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.states...)
}
