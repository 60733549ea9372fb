package journal

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/radio-hub/internal/config"
)

type fakeStore struct {
	mu      sync.Mutex
	batches [][]Record
	err     error
}

func (s *fakeStore) Insert(_ context.Context, hubID string, recs []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, append([]Record(nil), recs...))
	return nil
}

func (s *fakeStore) lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, b := range s.batches {
		for _, r := range b {
			out = append(out, string(r.Line))
		}
	}
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		line string
		kind string
		mac  string
	}{
		{"事件帧", `{"ts":12,"mac":"24:0A:C4:00:00:02","msg":{"id":"BTN1"}}`, KindFrame, "24:0A:C4:00:00:02"},
		{"带头文本", `{"ts":12,"mac":"24:0A:C4:00:00:02","sid":1,"seq":2,"msg":"hi"}`, KindFrame, "24:0A:C4:00:00:02"},
		{"心跳", `{"ts":5000,"hb":true,"queued":0,"dropped":0}`, KindHeartbeat, ""},
		{"诊断", `{"ts":1,"err":"unknown id","id":"X"}`, KindDiag, ""},
		{"PONG", `{"ts":1,"pong":true}`, KindPong, ""},
		{"IDS", `{"ts":1,"ids":[]}`, KindIDs, ""},
		{"未知", `{"hello":1}`, KindOther, ""},
		{"截断", `{"ts":1`, KindOther, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, mac := Classify([]byte(tt.line))
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.mac, mac)
		})
	}
}

func TestJournal_BatchesAndFlushesOnStop(t *testing.T) {
	store := &fakeStore{}
	j := New(store, "hub-1", Options{BatchSize: 2, FlushInterval: time.Hour}, zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { j.Run(ctx); close(done) }()

	buf := []byte(`{"ts":1,"hb":true,"queued":0,"dropped":0}`)
	j.Record(buf)
	buf[6] = '9' // 调用方复用缓冲区不影响已记录的行
	j.Record([]byte(`{"ts":2,"pong":true}`))
	require.Eventually(t, func() bool { return len(store.lines()) == 2 }, time.Second, 5*time.Millisecond)

	j.Record([]byte(`{"ts":3,"pong":true}`))
	cancel()
	<-done

	assert.Equal(t, []string{
		`{"ts":1,"hb":true,"queued":0,"dropped":0}`,
		`{"ts":2,"pong":true}`,
		`{"ts":3,"pong":true}`,
	}, store.lines())
	st := j.Stats()
	assert.Equal(t, uint64(3), st.Persisted)
	assert.Equal(t, uint64(0), st.Dropped)
	assert.Equal(t, "closed", st.Breaker)
}

func TestJournal_DropsWhenFull(t *testing.T) {
	j := New(&fakeStore{}, "hub-1", Options{Buffer: 1}, zap.NewNop(), nil)
	j.Record([]byte(`{"ts":1,"pong":true}`))
	j.Record([]byte(`{"ts":2,"pong":true}`))
	assert.Equal(t, uint64(1), j.Stats().Dropped)
	assert.Equal(t, 1, j.Stats().Pending)
}

func TestJournal_StoreFailureOpensBreaker(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	j := New(store, "hub-1", Options{BatchSize: 1, BreakerThreshold: 2, BreakerCooldown: time.Hour}, zap.NewNop(), nil)

	for i := 0; i < 3; i++ {
		j.flush([]Record{{Kind: KindPong, Line: []byte(`{"ts":1,"pong":true}`)}})
	}
	st := j.Stats()
	assert.Equal(t, uint64(3), st.Dropped)
	assert.Equal(t, "open", st.Breaker)
}

// 需要 PostgreSQL（TEST_DATABASE_URL）；未配置时跳过
func TestPGStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Open(ctx, cfgpkg.JournalConfig{DSN: dsn}, zap.NewNop())
	require.NoError(t, err)
	defer pool.Close()

	store := NewPGStore(pool)
	hubID := "test-" + time.Now().Format("150405.000000")
	require.NoError(t, store.Insert(ctx, hubID, []Record{
		{Kind: KindFrame, MAC: "24:0A:C4:00:00:02", Line: []byte(`{"ts":1,"mac":"24:0A:C4:00:00:02","msg":"a"}`), At: time.Now()},
		{Kind: KindHeartbeat, Line: []byte(`{"ts":2,"hb":true,"queued":0,"dropped":0}`), At: time.Now()},
	}))

	rows, err := store.Recent(ctx, hubID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, KindHeartbeat, rows[0].Kind)
	assert.Nil(t, rows[0].MAC)
	require.NotNil(t, rows[1].MAC)
	assert.Equal(t, "24:0A:C4:00:00:02", *rows[1].MAC)
	require.NoError(t, store.Ping(ctx))
}
