package spoke

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/radio-hub/internal/metrics"
	"github.com/taoyao-code/radio-hub/internal/radio"
)

// DefaultCommandWindow 执行端去重窗口
const DefaultCommandWindow = 250 * time.Millisecond

// CmdSet 只带参数字段时隐含的默认动作
const CmdSet = "set"

// Command 解析后的执行命令
type Command struct {
	Name   string
	Seq    *int64
	Params map[string]json.RawMessage // 除 id/to/cmd/seq 以外的全部字段
}

// Actuator 不透明的执行端硬件驱动，返回执行后的状态
type Actuator interface {
	Apply(ctx context.Context, cmd Command) (state any, err error)
}

// Outcome 一条文本的处理结果
type Outcome uint8

const (
	OutcomeExecuted Outcome = iota
	OutcomeNotForMe
	OutcomeDuplicate
	OutcomeInvalid
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExecuted:
		return "executed"
	case OutcomeNotForMe:
		return "not_for_me"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// implied 出现这些字段且没有 cmd 时执行默认动作
var implied = []string{"index", "pos", "angle"}

// Interpreter 可寻址执行端命令解释器
// 序号去重只有一个槽位且与发送方无关：任何来源的相同 seq 在窗口内都会被忽略
type Interpreter struct {
	id     string
	act    Actuator
	tr     radio.Transport
	window time.Duration
	log    *zap.Logger
	m      *metrics.SpokeMetrics
	now    func() time.Time

	mu      sync.Mutex
	hasLast bool
	lastSeq int64
	lastAt  time.Time
}

func NewInterpreter(id string, act Actuator, tr radio.Transport, window time.Duration, log *zap.Logger, m *metrics.SpokeMetrics) *Interpreter {
	if window <= 0 {
		window = DefaultCommandWindow
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Interpreter{id: id, act: act, tr: tr, window: window, log: log, m: m, now: time.Now}
}

// Status 执行后广播的状态行
type Status struct {
	ID    string `json:"id"`
	Cmd   string `json:"cmd"`
	Seq   *int64 `json:"seq,omitempty"`
	OK    bool   `json:"ok"`
	State any    `json:"state,omitempty"`
	Err   string `json:"err,omitempty"`
}

// Handle 解析 → 身份匹配 → 序号去重 → 确定命令 → 执行 → 广播状态
func (in *Interpreter) Handle(ctx context.Context, text []byte) Outcome {
	out := in.handle(ctx, text)
	in.m.Actuator(out.String())
	return out
}

func (in *Interpreter) handle(ctx context.Context, text []byte) Outcome {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(text, &fields); err != nil {
		return OutcomeInvalid
	}

	target := stringField(fields, "id")
	if target == "" {
		target = stringField(fields, "to")
	}
	if !strings.EqualFold(target, in.id) {
		return OutcomeNotForMe
	}

	cmd := Command{Name: stringField(fields, "cmd"), Params: make(map[string]json.RawMessage)}
	if raw, ok := fields["seq"]; ok {
		var seq int64
		if err := json.Unmarshal(raw, &seq); err == nil {
			cmd.Seq = &seq
			if in.seenRecently(seq) {
				return OutcomeDuplicate
			}
		}
	}
	for k, v := range fields {
		switch k {
		case "id", "to", "cmd", "seq":
		default:
			cmd.Params[k] = v
		}
	}
	if cmd.Name == "" {
		for _, k := range implied {
			if _, ok := fields[k]; ok {
				cmd.Name = CmdSet
				break
			}
		}
	}
	if cmd.Name == "" {
		return OutcomeInvalid
	}

	st := Status{ID: in.id, Cmd: cmd.Name, Seq: cmd.Seq}
	state, err := in.act.Apply(ctx, cmd)
	outcome := OutcomeExecuted
	if err != nil {
		st.Err = err.Error()
		outcome = OutcomeFailed
	} else {
		st.OK = true
		st.State = state
	}
	in.broadcast(st)
	return outcome
}

// seenRecently 单槽位：相同序号且在窗口内视为重复，否则记录新序号
func (in *Interpreter) seenRecently(seq int64) bool {
	now := in.now()
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.hasLast && in.lastSeq == seq && now.Sub(in.lastAt) <= in.window {
		return true
	}
	in.hasLast, in.lastSeq, in.lastAt = true, seq, now
	return false
}

func (in *Interpreter) broadcast(st Status) {
	b, err := json.Marshal(st)
	if err != nil {
		in.log.Warn("status encode failed", zap.Error(err))
		return
	}
	if len(b) > radio.MaxPayload {
		in.log.Warn("status line too large", zap.Int("len", len(b)))
		return
	}
	if err := in.tr.Broadcast(b); err != nil {
		in.log.Debug("status broadcast failed", zap.Error(err))
	}
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
