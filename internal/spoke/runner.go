package spoke

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/radio-hub/internal/metrics"
	"github.com/taoyao-code/radio-hub/internal/radio"
)

// Discipline 模拟节点的发送参数
type Discipline struct {
	Requester     RequesterConfig
	Copies        int
	Jitter        time.Duration
	CommandWindow time.Duration
}

// Opener 为节点地址打开一个传输
type Opener func(a radio.Addr) (radio.Transport, error)

// pressHold 模拟一次按下到松开的时长
const pressHold = 80 * time.Millisecond

// RunFleet 启动全部节点并阻塞到 ctx 结束；任一节点打开失败则关闭已打开的传输并返回
func RunFleet(ctx context.Context, f *Fleet, open Opener, d Discipline, log *zap.Logger, m *metrics.SpokeMetrics) error {
	if log == nil {
		log = zap.NewNop()
	}
	var (
		wg         sync.WaitGroup
		transports []radio.Transport
	)
	closeAll := func() error {
		var errs []error
		for _, tr := range transports {
			errs = append(errs, tr.Close())
		}
		return errors.Join(errs...)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, ns := range f.Nodes {
		tr, err := open(ns.MAC)
		if err != nil {
			cancel()
			wg.Wait()
			_ = closeAll()
			return fmt.Errorf("open %s (%s): %w", ns.ID, ns.MAC, err)
		}
		transports = append(transports, tr)
		nlog := log.With(zap.String("node", ns.ID), zap.String("kind", ns.Kind), zap.Stringer("mac", ns.MAC))

		switch ns.Kind {
		case KindButton:
			btn, err := NewButtonNode(ns.ID, ns.Buttons > 1, NewRedundant(tr, d.Copies, d.Jitter, m))
			if err != nil {
				cancel()
				wg.Wait()
				_ = closeAll()
				return fmt.Errorf("button %s: %w", ns.ID, err)
			}
			NewNode(tr, nil, nil, nlog).Attach()
			wg.Add(1)
			go func(ns NodeSpec) {
				defer wg.Done()
				runButton(ctx, btn, ns, nlog)
			}(ns)

		case KindSensor:
			req := NewRequester(tr, d.Requester, nlog, m)
			NewNode(tr, req, nil, nlog).Attach()
			sensor := NewSensorNode(ns.ID, f.Hub, req, &RandomWalk{Min: 20, Max: 400, Step: 15}, nlog)
			wg.Add(1)
			go func(interval time.Duration) {
				defer wg.Done()
				sensor.Run(ctx, interval)
			}(ns.Interval)

		case KindActuator:
			interp := NewInterpreter(ns.ID, NewPositionActuator(ns.Slots), tr, d.CommandWindow, nlog, m)
			node := NewNode(tr, nil, interp, nlog)
			node.Attach()
			wg.Add(1)
			go func() {
				defer wg.Done()
				node.Run(ctx)
			}()
		}
		nlog.Info("spoke node started")
	}

	<-ctx.Done()
	wg.Wait()
	return closeAll()
}

// runButton 周期性按下随机一个按键再松开
func runButton(ctx context.Context, b *ButtonNode, ns NodeSpec, log *zap.Logger) {
	ticker := time.NewTicker(ns.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		idx := uint8(1)
		if ns.Buttons > 1 {
			idx = uint8(1 + rand.IntN(ns.Buttons))
		}
		for _, pressed := range []bool{true, false} {
			seq, err := b.Press(ctx, idx, pressed)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn("button press failed", zap.Uint32("seq", seq), zap.Error(err))
				break
			}
			if pressed && !sleepCtx(ctx, pressHold) {
				return
			}
		}
	}
}
