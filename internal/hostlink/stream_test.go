package hostlink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLine(t *testing.T, l Link) ([]byte, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return l.ReadLine(ctx)
}

func TestStream_ReadLines(t *testing.T) {
	in := strings.NewReader("PING\r\n\nIDS\n" + strings.Repeat("x", 2*MaxCommandLine) + "\nTX BTN1 hi")
	s := NewStream("test", in, io.Discard, nil)

	var got []string
	for {
		line, err := readLine(t, s)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, string(line))
	}
	// 空行与超长行被丢弃，末尾无换行的行仍然交付
	assert.Equal(t, []string{"PING", "IDS", "TX BTN1 hi"}, got)
}

func TestStream_ReadLineHonorsContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	s := NewStream("pipe", pr, io.Discard, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.ReadLine(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type shortWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write 每次只写入一个字节
func (w *shortWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(p) == 0 {
		return 0, nil
	}
	w.buf.WriteByte(p[0])
	return 1, nil
}

func TestStream_WriteLine(t *testing.T) {
	w := &shortWriter{}
	s := NewStream("test", strings.NewReader(""), w, nil)

	require.NoError(t, s.WriteLine([]byte(`{"ts":1}`)))
	require.NoError(t, s.WriteLine([]byte(`{"ts":2}`)))
	assert.Equal(t, "{\"ts\":1}\n{\"ts\":2}\n", w.buf.String())

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.WriteLine([]byte("x")), ErrClosed)
	_, err := readLine(t, s)
	assert.Error(t, err)
}

type recorder struct{ lines []string }

func (r *recorder) Record(p []byte) { r.lines = append(r.lines, string(p)) }

func TestTee(t *testing.T) {
	var out bytes.Buffer
	base := NewStream("test", strings.NewReader(""), &out, nil)
	assert.Same(t, base, NewTee(base, nil).(*StreamLink))

	rec := &recorder{}
	l := NewTee(base, rec)
	require.NoError(t, l.WriteLine([]byte(`{"hb":true}`)))
	assert.Equal(t, []string{`{"hb":true}`}, rec.lines)
	assert.Equal(t, "{\"hb\":true}\n", out.String())
	assert.Equal(t, "test", l.Name())

	second := &recorder{}
	l = NewTee(base, nil, rec, second)
	require.NoError(t, l.WriteLine([]byte(`{"pong":true}`)))
	assert.Equal(t, []string{`{"pong":true}`}, second.lines, "每个 Recorder 都收到副本")
	assert.Len(t, rec.lines, 2)
}
