package spoke

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
)

// RandomWalk 模拟测距数据源，在 [Min, Max] 内随机游走
type RandomWalk struct {
	Min, Max, Step float64

	mu  sync.Mutex
	cur float64
}

func (w *RandomWalk) Sample(context.Context) (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cur == 0 {
		w.cur = (w.Min + w.Max) / 2
	}
	w.cur += (rand.Float64()*2 - 1) * w.Step
	if w.cur < w.Min {
		w.cur = w.Min
	}
	if w.cur > w.Max {
		w.cur = w.Max
	}
	return w.cur, nil
}

// PositionActuator 模拟执行端：记录角度/位置/索引
type PositionActuator struct {
	mu    sync.Mutex
	state map[string]any
	index int
	slots int
}

// NewPositionActuator slots 为 next/prev 循环的位置数
func NewPositionActuator(slots int) *PositionActuator {
	if slots <= 0 {
		slots = 1
	}
	return &PositionActuator{state: map[string]any{"index": 0}, slots: slots}
}

func (a *PositionActuator) Apply(_ context.Context, cmd Command) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch cmd.Name {
	case CmdSet:
		for k, raw := range cmd.Params {
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, fmt.Errorf("param %s: %w", k, err)
			}
			a.state[k] = v
			if k == "index" {
				if f, ok := v.(float64); ok {
					a.index = int(f) % a.slots
				}
			}
		}
	case "next":
		a.index = (a.index + 1) % a.slots
		a.state["index"] = a.index
	case "prev":
		a.index = (a.index + a.slots - 1) % a.slots
		a.state["index"] = a.index
	case "status":
	default:
		return nil, fmt.Errorf("unsupported command %q", cmd.Name)
	}
	snap := make(map[string]any, len(a.state))
	for k, v := range a.state {
		snap[k] = v
	}
	return snap, nil
}
