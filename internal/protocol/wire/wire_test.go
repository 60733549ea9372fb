package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeID(t *testing.T) {
	id := IDFromBytes([]byte("BTN3\x00\x00garbage"))
	assert.Equal(t, "BTN3", id.String())
	assert.Equal(t, MakeID("BTN3"), id, "NUL 之后的字节不参与比较")

	assert.Equal(t, "PAD", MakeID("PAD  ").String(), "去掉尾部空格")
	assert.Equal(t, MaxIDLen, MakeID("ABCDEFGHIJKLMNOPQRSTUVWXYZ").Len())
	assert.Equal(t, "ABCDE", MakeID("ABCDEFGH").Truncate(5).String())

	assert.True(t, MakeID("servo1").EqualFold(MakeID("SERVO1")))
	assert.False(t, MakeID("servo1").EqualFold(MakeID("SERVO12")))

	assert.True(t, MakeID("BTN7").HasPrefix("BTN"))
	assert.False(t, MakeID("BT").HasPrefix("BTN"))
	assert.False(t, MakeID("btn7").HasPrefix("BTN"))

	assert.False(t, IDFromBytes([]byte{'B', 0x01}).Printable())
}

func TestScanID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"id 键", `{"id":"SERVO1","angle":45}`, "SERVO1", true},
		{"device_id 键", `{"device_id":"R2"}`, "R2", true},
		{"冒号两侧空白", `{"id" : "PAD1"}`, "PAD1", true},
		{"id 优先于 device_id", `{"device_id":"A","id":"B"}`, "B", true},
		{"数字值忽略", `{"id":5}`, "", false},
		{"空值忽略", `{"id":""}`, "", false},
		{"含转义忽略", `{"id":"a\"b"}`, "", false},
		{"值位置上的 id 字样", `{"name":"id","x":1}`, "", false},
		{"未闭合", `{"id":"ABC`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ScanID([]byte(tt.in))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, id.String())
		})
	}
}

func TestEvent_AppendJSON(t *testing.T) {
	ev := Event{ID: MakeID("BTN3"), Index: 1, Pressed: true, Seq: 5, UptimeMs: 1234}
	out := ev.AppendJSON(nil)
	assert.Equal(t, `{"id":"BTN3","btn":1,"pressed":true,"seq":5,"uptime":1234}`, string(out))

	var v map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &v))
}

func TestEvent_EncodeErrors(t *testing.T) {
	_, err := Event{ID: MakeID("BTN-TOO-LONG-ID")}.Encode()
	assert.ErrorIs(t, err, ErrIDTooLong)

	_, err = Event{ID: MakeID("BTN1"), Multi: true}.Encode()
	assert.ErrorIs(t, err, ErrIndexRange)
}

func TestAppendJSONString(t *testing.T) {
	out := AppendJSONString(nil, []byte("a\"b\\c\n\x01"))
	var s string
	require.NoError(t, json.Unmarshal(out, &s))
	assert.Equal(t, "a\"b\\c\n\x01", s)
}

func TestAppendJSONString_UTF8(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"合法多字节原样保留", []byte("温度ok"), "温度ok"},
		{"孤立高位字节替换", []byte("BTN\xff1"), "BTN\ufffd1"},
		{"截断的多字节序列", []byte("a\xe6\xb8"), "a\ufffd\ufffd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := AppendJSONString(nil, tt.in)
			require.True(t, json.Valid(out), "%q", out)
			var s string
			require.NoError(t, json.Unmarshal(out, &s))
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestEvent_AppendJSONInvalidID(t *testing.T) {
	raw := make([]byte, SingleEventSize)
	copy(raw, "BTN\x80\xfe")
	raw[12] = 1
	m, ok := NewClassifier("BTN", 8).Classify(raw)
	require.True(t, ok)
	require.Equal(t, KindEvent, m.Kind)
	assert.True(t, json.Valid(m.Event.AppendJSON(nil)), "主机行必须是合法 JSON")
}

func TestEncodeHeaderText(t *testing.T) {
	b, err := EncodeHeaderText(3, 4, []byte(`{"x":1}`))
	require.NoError(t, err)
	m, ok := NewClassifier("", 0).Classify(b)
	require.True(t, ok)
	assert.Equal(t, KindHeaderText, m.Kind)
	assert.Equal(t, uint32(3), m.SenderID)

	_, err = EncodeHeaderText(3, 4, nil)
	assert.ErrorIs(t, err, ErrEmptyText)
	_, err = EncodeHeaderText(3, 4, make([]byte, MaxLineLen+1))
	assert.ErrorIs(t, err, ErrTextTooLong)
}
