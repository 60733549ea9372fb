// Package sensors 维护每个测距传感器的最新读数，数据来自写往主机的事件行
package sensors

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultCapacity 最多跟踪的传感器数量
const DefaultCapacity = 64

// Reading 某传感器最近一次上报
type Reading struct {
	ID        string    `json:"id"`
	MAC       string    `json:"mac"`
	Distance  float64   `json:"distance"`
	SensorTS  int64     `json:"sensor_ts"`
	PID       uint32    `json:"pid"`
	Retries   int       `json:"retries"`
	HubTS     int64     `json:"hub_ts"`
	UpdatedAt time.Time `json:"updated_at"`
}

// hostLine 主机事件行中与传感器相关的字段
type hostLine struct {
	TS  int64           `json:"ts"`
	MAC string          `json:"mac"`
	Msg json.RawMessage `json:"msg"`
}

type report struct {
	ID       string   `json:"id"`
	Distance *float64 `json:"distance"`
	TS       int64    `json:"ts"`
	PID      uint32   `json:"pid"`
	Retries  int      `json:"retries"`
}

// Board 实现 hostlink.Recorder；满时淘汰最久未更新的传感器
type Board struct {
	mu       sync.RWMutex
	byID     map[string]*Reading
	capacity int
	now      func() time.Time
}

func NewBoard(capacity int) *Board {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Board{byID: make(map[string]*Reading), capacity: capacity, now: time.Now}
}

var distanceKey = []byte(`"distance"`)

// Record 非传感器行直接忽略
func (b *Board) Record(line []byte) {
	if !bytes.Contains(line, distanceKey) {
		return
	}
	var hl hostLine
	if err := json.Unmarshal(line, &hl); err != nil || len(hl.Msg) == 0 || hl.Msg[0] != '{' {
		return
	}
	var r report
	if err := json.Unmarshal(hl.Msg, &r); err != nil || r.ID == "" || r.Distance == nil {
		return
	}
	b.update(Reading{
		ID:        r.ID,
		MAC:       hl.MAC,
		Distance:  *r.Distance,
		SensorTS:  r.TS,
		PID:       r.PID,
		Retries:   r.Retries,
		HubTS:     hl.TS,
		UpdatedAt: b.now(),
	})
}

func (b *Board) update(r Reading) {
	key := strings.ToUpper(r.ID)
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.byID[key]; ok {
		*cur = r
		return
	}
	if len(b.byID) >= b.capacity {
		var oldest string
		var at time.Time
		for k, v := range b.byID {
			if oldest == "" || v.UpdatedAt.Before(at) {
				oldest, at = k, v.UpdatedAt
			}
		}
		delete(b.byID, oldest)
	}
	b.byID[key] = &r
}

// Latest 按 ID 查询，大小写不敏感
func (b *Board) Latest(id string) (Reading, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.byID[strings.ToUpper(id)]
	if !ok {
		return Reading{}, false
	}
	return *r, true
}

// Snapshot 按 ID 排序的全部读数
func (b *Board) Snapshot() []Reading {
	b.mu.RLock()
	out := make([]Reading, 0, len(b.byID))
	for _, r := range b.byID {
		out = append(out, *r)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byID)
}
