package hub

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/taoyao-code/radio-hub/internal/protocol/wire"
	"github.com/taoyao-code/radio-hub/internal/radio"
)

// Formatter 生成主机侧 JSON 行，ts 为自集线器启动以来的毫秒数
type Formatter struct {
	start time.Time
}

func NewFormatter(start time.Time) Formatter { return Formatter{start: start} }

func (f Formatter) Millis(t time.Time) int64 { return t.Sub(f.start).Milliseconds() }

// AppendItem {"ts":..,"mac":"..",["sid":..,"seq":..,]"msg":..}
// 文本消息体是合法 JSON 时原样嵌入，否则作为字符串转义
func (f Formatter) AppendItem(dst []byte, it *Item) []byte {
	dst = append(dst, `{"ts":`...)
	dst = strconv.AppendInt(dst, f.Millis(it.At), 10)
	dst = append(dst, `,"mac":"`...)
	dst = it.Src.AppendText(dst)
	dst = append(dst, '"')
	if it.Kind == wire.KindHeaderText {
		dst = append(dst, `,"sid":`...)
		dst = strconv.AppendUint(dst, uint64(it.SenderID), 10)
		dst = append(dst, `,"seq":`...)
		dst = strconv.AppendUint(dst, uint64(it.Seq), 10)
	}
	dst = append(dst, `,"msg":`...)
	body := it.Body()
	if it.Kind == wire.KindEvent || json.Valid(body) {
		dst = append(dst, body...)
	} else {
		dst = wire.AppendJSONString(dst, body)
	}
	return append(dst, '}')
}

// AppendHeartbeat {"ts":..,"hb":true,"queued":n,"dropped":n}
func (f Formatter) AppendHeartbeat(dst []byte, now time.Time, queued int, dropped uint64) []byte {
	dst = append(dst, `{"ts":`...)
	dst = strconv.AppendInt(dst, f.Millis(now), 10)
	dst = append(dst, `,"hb":true,"queued":`...)
	dst = strconv.AppendInt(dst, int64(queued), 10)
	dst = append(dst, `,"dropped":`...)
	dst = strconv.AppendUint(dst, dropped, 10)
	return append(dst, '}')
}

// Diag 诊断行
type Diag struct {
	TS   int64  `json:"ts"`
	Err  string `json:"err"`
	ID   string `json:"id,omitempty"`
	MAC  string `json:"mac,omitempty"`
	Line string `json:"line,omitempty"`
	Len  int    `json:"len,omitempty"`
}

// 诊断错误文本
const (
	DiagUnknownID   = "unknown id"
	DiagBadMAC      = "bad mac"
	DiagBadCommand  = "bad command"
	DiagTooLarge    = "payload too large"
	diagLineExcerpt = 64
)

func (f Formatter) Diag(now time.Time, d Diag) []byte {
	d.TS = f.Millis(now)
	if len(d.Line) > diagLineExcerpt {
		d.Line = d.Line[:diagLineExcerpt]
	}
	b, _ := json.Marshal(d)
	return b
}

// Pong PING 命令的应答
func (f Formatter) Pong(now time.Time) []byte {
	b, _ := json.Marshal(struct {
		TS   int64 `json:"ts"`
		Pong bool  `json:"pong"`
	}{f.Millis(now), true})
	return b
}

type idsEntry struct {
	ID    string     `json:"id"`
	MAC   radio.Addr `json:"mac"`
	AgeMs int64      `json:"age_ms"`
}

// IDs IDS 命令的应答: {"ts":..,"ids":[{"id":..,"mac":..,"age_ms":..}]}
func (f Formatter) IDs(now time.Time, entries []Entry) []byte {
	out := struct {
		TS  int64      `json:"ts"`
		IDs []idsEntry `json:"ids"`
	}{TS: f.Millis(now), IDs: make([]idsEntry, 0, len(entries))}
	for _, e := range entries {
		out.IDs = append(out.IDs, idsEntry{ID: e.ID, MAC: e.Addr, AgeMs: now.Sub(e.LastSeen).Milliseconds()})
	}
	b, _ := json.Marshal(out)
	return b
}
