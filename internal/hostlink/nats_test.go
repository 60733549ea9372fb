package hostlink

import (
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 需要本地 NATS；不可达时跳过
func TestNATSLink(t *testing.T) {
	url := os.Getenv("TEST_NATS_URL")
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url, nats.Timeout(300*time.Millisecond))
	if err != nil {
		t.Skipf("nats unavailable: %v", err)
	}
	defer nc.Close()

	l, err := NewNATS(nc, "test.hub.events", "test.hub.commands")
	require.NoError(t, err)
	defer l.Close()

	events, err := nc.SubscribeSync("test.hub.events")
	require.NoError(t, err)

	buf := []byte(`{"ts":1}`)
	require.NoError(t, l.WriteLine(buf))
	buf[2] = 'X'
	msg, err := events.NextMsg(time.Second)
	require.NoError(t, err)
	assert.Equal(t, `{"ts":1}`, string(msg.Data))

	require.NoError(t, nc.Publish("test.hub.commands", []byte("PING")))
	require.NoError(t, nc.Flush())
	line, err := readLine(t, l)
	require.NoError(t, err)
	assert.Equal(t, "PING", string(line))
}
