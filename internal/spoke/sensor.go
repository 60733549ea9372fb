package spoke

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/radio-hub/internal/radio"
)

// Sampler 不透明的数据源（测距等）
type Sampler interface {
	Sample(ctx context.Context) (float64, error)
}

// SampleFunc 函数适配
type SampleFunc func(ctx context.Context) (float64, error)

func (f SampleFunc) Sample(ctx context.Context) (float64, error) { return f(ctx) }

// Report 传感器上报正文
type Report struct {
	ID       string  `json:"id"`
	Distance float64 `json:"distance"`
	TS       int64   `json:"ts"`
	PID      uint32  `json:"pid"`
	Retries  int     `json:"retries"` // 上一次上报消耗的重发次数
}

// SensorNode 周期采样并以带确认的方式单播给集线器
type SensorNode struct {
	id      string
	hub     radio.Addr
	req     *Requester
	sampler Sampler
	log     *zap.Logger
	start   time.Time
	pid     uint32
	retries int
}

func NewSensorNode(id string, hub radio.Addr, req *Requester, sampler Sampler, log *zap.Logger) *SensorNode {
	if log == nil {
		log = zap.NewNop()
	}
	return &SensorNode{id: id, hub: hub, req: req, sampler: sampler, log: log, start: time.Now()}
}

// ReportOnce 采样一次并发送；未确认不视为错误
func (s *SensorNode) ReportOnce(ctx context.Context) (Result, error) {
	v, err := s.sampler.Sample(ctx)
	if err != nil {
		return Result{}, err
	}
	s.pid++
	body, err := json.Marshal(Report{
		ID:       s.id,
		Distance: v,
		TS:       time.Since(s.start).Milliseconds(),
		PID:      s.pid,
		Retries:  s.retries,
	})
	if err != nil {
		return Result{}, err
	}
	res, err := s.req.Send(ctx, s.hub, body)
	if err != nil {
		return res, err
	}
	s.retries = res.Attempts - 1
	return res, nil
}

// Run 按固定周期上报，重试耗时有上界，不会拖慢采样节奏超过该上界
func (s *SensorNode) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := s.ReportOnce(ctx)
			if err != nil {
				s.log.Warn("sensor report failed", zap.String("id", s.id), zap.Error(err))
				continue
			}
			s.log.Debug("sensor report",
				zap.String("id", s.id), zap.Uint32("seq", res.Seq),
				zap.Stringer("state", res.State), zap.Int("attempts", res.Attempts))
		}
	}
}
