package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/radio-hub/internal/protocol/wire"
)

func TestFormatter_AppendItem(t *testing.T) {
	start := time.Date(2025, 10, 31, 20, 0, 0, 0, time.UTC)
	f := NewFormatter(start)

	var it Item
	it.Src = spokeMAC
	it.At = start.Add(1500 * time.Millisecond)
	it.Kind = wire.KindEvent
	it.setEvent(wire.Event{ID: wire.MakeID("BTN3"), Index: 1, Pressed: true, Seq: 5, UptimeMs: 1234})

	line := f.AppendItem(nil, &it)
	assert.Equal(t, `{"ts":1500,"mac":"24:0A:C4:00:00:02","msg":{"id":"BTN3","btn":1,"pressed":true,"seq":5,"uptime":1234}}`, string(line))

	it.Kind = wire.KindHeaderText
	it.SenderID, it.Seq = 77, 8
	it.SetBody([]byte(`{"d":3}`))
	line = f.AppendItem(nil, &it)
	assert.Equal(t, `{"ts":1500,"mac":"24:0A:C4:00:00:02","sid":77,"seq":8,"msg":{"d":3}}`, string(line))

	// 非 JSON 文本作为字符串嵌入，整行仍是合法 JSON
	it.Kind = wire.KindText
	it.SetBody([]byte(`{broken "x`))
	line = f.AppendItem(nil, &it)
	var v map[string]interface{}
	require.NoError(t, json.Unmarshal(line, &v))
	assert.Equal(t, `{broken "x`, v["msg"])
}

func TestFormatter_Lines(t *testing.T) {
	start := time.Date(2025, 10, 31, 20, 0, 0, 0, time.UTC)
	f := NewFormatter(start)
	now := start.Add(5 * time.Second)

	assert.Equal(t, `{"ts":5000,"hb":true,"queued":0,"dropped":3}`, string(f.AppendHeartbeat(nil, now, 0, 3)))
	assert.JSONEq(t, `{"ts":5000,"err":"unknown id","id":"SERVO1"}`, string(f.Diag(now, Diag{Err: DiagUnknownID, ID: "SERVO1"})))
	assert.JSONEq(t, `{"ts":5000,"pong":true}`, string(f.Pong(now)))

	ids := f.IDs(now, []Entry{{ID: "BTN3", Addr: spokeMAC, LastSeen: start.Add(4 * time.Second)}})
	assert.JSONEq(t, `{"ts":5000,"ids":[{"id":"BTN3","mac":"24:0A:C4:00:00:02","age_ms":1000}]}`, string(ids))
}

func TestDrain_WritesItemsAndHeartbeat(t *testing.T) {
	r := newRig(t, Options{IdleHeartbeat: 30 * time.Millisecond})
	link := newFakeLink()
	d := NewDrain(r.hub, link)

	r.hub.HandleFrame(r.frame(spokeMAC, []byte(`{"id":"SONAR1","d":9}`)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	lines := link.waitLines(t, 2)

	var v map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &v))
	assert.Equal(t, "24:0A:C4:00:00:02", v["mac"])
	assert.Equal(t, map[string]interface{}{"id": "SONAR1", "d": float64(9)}, v["msg"])

	// 空闲后写心跳
	v = nil
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &v))
	assert.Equal(t, true, v["hb"])
}
